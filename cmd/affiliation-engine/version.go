package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of affiliation-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "affiliation-engine %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
