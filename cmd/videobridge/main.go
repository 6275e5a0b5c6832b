// Command videobridge captures from cameras and plays movies through the
// frame bridge, headless or in the terminal.
package main

import (
	"os"
)

const version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
