/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phicore/phistore/pkg/container"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls <path> [location]",
	Short: "List the arrays stored in a container",
	Long: `List the arrays stored under a location inside a container. The
location defaults to /data. Only complete arrays are listed; nodes without
a scales attribute are skipped.

Examples:
	  phistore ls ./scan.phi
	  phistore ls ./scan.phi /data/calibration`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		location := ""
		if len(args) > 1 {
			location = args[1]
		}

		session, err := container.NewSession(args[0], container.ModeRead,
			container.WithBackend(cfg.Backend))
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		arrays, err := session.ListArrays(location)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		for _, name := range arrays {
			cmd.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
