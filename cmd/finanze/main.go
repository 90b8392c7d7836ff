package main

import (
	"os"

	"finanze/cmd/finanze/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
