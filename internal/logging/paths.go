package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.holocron/logs, falling back to the temp
// directory when the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".holocron", "logs")
	}
	return filepath.Join(home, ".holocron", "logs")
}

// DefaultLogPath returns the engine log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "holocron.log")
}
