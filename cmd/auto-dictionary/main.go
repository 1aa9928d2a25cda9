package main

import (
	"os"

	"github.com/mikey/auto-dictionary/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
