package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display: message, suggestion,
// and the code for reference.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	he, ok := err.(*HolocronError)
	if !ok {
		he = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", he.Message)
	if he.Suggestion != "" {
		fmt.Fprintf(&sb, "Suggestion: %s\n", he.Suggestion)
	}
	fmt.Fprintf(&sb, "[%s]", he.Code)
	return sb.String()
}
