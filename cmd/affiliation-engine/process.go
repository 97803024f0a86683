// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process ARXIV_ID",
	Short: "Extract and normalize the author affiliations of one paper",
	Long: `Process downloads the paper (or reads it from the cache), extracts the
authors with their affiliations, deduplicates the affiliations and resolves
them to official institution names.

ARXIV_ID: the arXiv paper identifier (e.g. 1706.03762 or 2301.12345v1).

Use --text-file to supply the paper text yourself and skip the download.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("format", formatText, "output format: text, json or yaml")
	processCmd.Flags().String("text-file", "", "read the paper text from this file instead of downloading the PDF")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	textFile, _ := cmd.Flags().GetString("text-file")

	a, err := newPipelineApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if textFile != "" {
		text, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", textFile, err)
		}
		paper, err := a.orchestrator.ProcessText(ctx, args[0], string(text))
		if err != nil {
			return err
		}
		return writePaper(cmd.OutOrStdout(), format, paper)
	}

	paper, err := a.orchestrator.Process(ctx, args[0])
	if err != nil {
		return err
	}
	return writePaper(cmd.OutOrStdout(), format, paper)
}
