package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			pterm.Printfln("spirvc %s (commit %s, built %s)", version, commit, date)
		},
	}
}
