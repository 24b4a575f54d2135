/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/phicore/phistore/pkg/container"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the phistore version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("phistore %s (format revision %d)\n", Version, container.FormatRevision)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
