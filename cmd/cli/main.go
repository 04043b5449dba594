package main

import (
	"os"

	"github.com/staffhub-dev/staffhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
