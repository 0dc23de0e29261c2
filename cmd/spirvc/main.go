// Command spirvc compiles GLSL shaders to SPIR-V through the bridge.
package main

import (
	"os"

	"github.com/pterm/pterm"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
