package main

import (
	"os"

	"github.com/gomanifold/manifold/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
