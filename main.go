package main

import (
	"os"

	"github.com/ebrunet/dispatchcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
