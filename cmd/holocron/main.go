package main

import (
	"os"

	"github.com/holocron-dev/holocron/cmd/holocron/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
