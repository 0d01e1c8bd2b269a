package main

import (
	"os"

	"github.com/katalvlaran/scflow/cmd/scflow/commands"
)

var version = "dev"

func main() {
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
