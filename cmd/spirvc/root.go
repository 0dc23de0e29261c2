package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/spirv-bridge/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "spirvc",
		Short:         "Compile GLSL shaders to SPIR-V",
		Long:          `spirvc compiles GLSL shaders to SPIR-V using the configured backend (glslc, a Wasm plugin or a linked libshaderc).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newCompileCmd(opts), newVersionCmd())
	return cmd
}

// logger logs to stderr in console form so diagnostics stay readable next
// to pterm output.
func (o *rootOptions) logger() (*zap.Logger, error) {
	return logging.New(o.logLevel, "console")
}
