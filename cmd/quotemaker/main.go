package main

import (
	"os"

	"github.com/quotemaker-dev/quotemaker/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
