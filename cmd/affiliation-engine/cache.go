package main

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List the cached PDFs",
	Long: `Cache lists the documents recorded in the cache manifest with their
page count, size and download time.`,
	Args: cobra.NoArgs,
	RunE: runCache,
}

func init() {
	cacheCmd.Flags().String("format", formatText, "output format: text, json or yaml")

	rootCmd.AddCommand(cacheCmd)
}

func runCache(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	a, err := newSourceApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.source.Manifest().List(cmd.Context())
	if err != nil {
		return err
	}
	return writeCache(cmd.OutOrStdout(), format, entries)
}
