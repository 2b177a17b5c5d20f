package main

import (
	"os"

	"github.com/concilia-dev/concilia/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
