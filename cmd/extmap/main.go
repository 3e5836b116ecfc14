package main

import (
	"os"
)

// version is set via build-time ldflags
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
