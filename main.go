package main

import (
	"os"

	"github.com/cybrota/igloo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
