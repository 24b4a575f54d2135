/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phicore/phistore/pkg/container"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Create an empty container",
	Long: `Create an empty container at the given path with the fixed top-level
layout (/data, /scales, /diag) and the current format revision.

A {date} token in the path is replaced with the current timestamp.

Examples:
	  phistore init ./run-{date}.phi
	  phistore init ./scan.phi --backend badger --force`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		opts := []container.Option{container.WithBackend(cfg.Backend)}
		if force {
			opts = append(opts, container.WithOverwrite())
		}
		session, err := container.NewSession(args[0], container.ModeWrite, opts...)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		cmd.Printf("Created container %s (backend %s)\n", session.Path(), cfg.Backend)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing container")
}
