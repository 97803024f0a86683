package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch ARXIV_ID",
	Short: "Download a paper and report its page count and text length",
	Long: `Fetch downloads the PDF for an arXiv identifier (or reads it from the
cache) and prints the identifier, the page count and the length of the
extracted text. No model is called.

ARXIV_ID: the arXiv paper identifier (e.g. 1706.03762 or 2301.12345v1).`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	id, err := acquire.ParseArxivID(args[0])
	if err != nil {
		return err
	}

	a, err := newSourceApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.source.FetchText(cmd.Context(), id)
	if err != nil {
		return err
	}
	writeDocument(cmd.OutOrStdout(), doc)
	return nil
}
