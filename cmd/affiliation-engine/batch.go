package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var batchCmd = &cobra.Command{
	Use:   "batch ARXIV_ID...",
	Short: "Process several papers concurrently",
	Long: `Batch runs an independent pipeline per identifier, a bounded number at a
time. A paper that fails does not stop the others; the command exits non-zero
when any paper failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("format", formatText, "output format: text, json or yaml")
	batchCmd.Flags().Int("concurrency", 4, "maximum papers processed at once")
	viper.BindPFlag("concurrency", batchCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	a, err := newPipelineApp()
	if err != nil {
		return err
	}
	defer a.Close()

	items := a.orchestrator.ProcessBatch(cmd.Context(), args, a.cfg.Concurrency)
	failed, err := writeBatch(cmd.OutOrStdout(), format, items)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d paper(s) failed", failed)
	}
	return nil
}
