package main

import (
	"os"

	"github.com/kiosk404/warden/internal/wardenctl/cmd"
)

func main() {
	command := cmd.NewDefaultWardenCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
