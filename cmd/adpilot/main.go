package main

import (
	"os"

	"github.com/liyecom/adpilot/cmd/adpilot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
