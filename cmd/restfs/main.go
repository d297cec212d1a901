package main

import (
	"os"

	"github.com/brettbedarf/restfs/cmd/restfs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
