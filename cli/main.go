package main

import (
	"os"

	"github.com/tordoze/nanogit/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
