/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phicore/phistore/pkg/container"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <path> [array]",
	Short: "Show container or array details",
	Long: `Show the format revision and root attributes of a container, or the
dimensions, shape and attributes of one stored array.

Examples:
	  phistore info ./scan.phi
	  phistore info ./scan.phi /data/X`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		session, err := container.NewSession(args[0], container.ModeRead,
			container.WithBackend(cfg.Backend))
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		if len(args) > 1 {
			printArrayInfo(cmd, session, args[1])
			return
		}

		attrs, err := session.ReadAttrs("/")
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		cmd.Printf("Container: %s\n", session.Path())
		if rev, ok := attrs[container.FormatAttr]; ok {
			cmd.Printf("Format revision: %v\n", rev)
		}
		arrays, err := session.ListArrays("")
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		cmd.Printf("Arrays: %d\n", len(arrays))
		for _, name := range arrays {
			cmd.Printf("  %s\n", name)
		}
	},
}

func printArrayInfo(cmd *cobra.Command, session *container.Session, location string) {
	raw, err := session.ReadArrayRaw(location, nil)
	if err != nil {
		cmd.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cmd.Printf("Name:  %s\n", raw.Name)
	cmd.Printf("DType: %s\n", raw.DType)
	cmd.Printf("Shape: %v\n", raw.Shape)
	cmd.Printf("Dims:  %s\n", strings.Join(raw.Dims, ", "))
	for _, dim := range raw.Dims {
		cmd.Printf("  %s: %d points\n", dim, len(raw.Coords[dim]))
	}
	for key, value := range raw.Attrs {
		cmd.Printf("Attr %s: %v\n", key, value)
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
