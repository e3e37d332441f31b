package main

import (
	"os"

	"go-library/cmd/library/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
