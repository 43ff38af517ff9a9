package main

import (
	"os"

	"github.com/rvudash/rvudash/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
