// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the affiliation-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the affiliation-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "affiliation-engine",
	Short: "Extract and normalize author affiliations from arXiv papers",
	Long: `affiliation-engine downloads an arXiv paper, extracts its authors and
their affiliations with a language model, deduplicates the affiliations and
resolves them to official institution names. Ambiguous affiliations are
reported as validation issues rather than errors.

The model is selected with MODEL_NAME (or --model) as "provider:model",
for example "anthropic:claude-sonnet-4-5" or "openai:gpt-4o-mini".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir, nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 && viper.GetBool("debug") {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./affiliation-engine.yaml or ~/.config/affiliation-engine/affiliation-engine.yaml)")
	pf.Bool("debug", false, "verbose development logging")
	pf.String("model", "", "model as provider:model (default: $MODEL_NAME)")
	pf.String("cache-dir", acquire.DefaultCacheDir, "directory for cached PDFs and the cache manifest")
	pf.Int("attempts", 5, "calls per inference request, the first one included")
	pf.Duration("call-timeout", 2*time.Minute, "timeout for a single inference attempt")
	pf.Duration("fetch-timeout", 60*time.Second, "HTTP timeout for PDF downloads")
	pf.Duration("download-interval", 3*time.Second, "minimum spacing between arXiv downloads")

	for key, flag := range map[string]string{
		"debug":             "debug",
		"model":             "model",
		"cache_dir":         "cache-dir",
		"attempts":          "attempts",
		"call_timeout":      "call-timeout",
		"fetch_timeout":     "fetch-timeout",
		"download_interval": "download-interval",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("affiliation-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "affiliation-engine"))
		}
	}

	viper.SetEnvPrefix("AFFILIATION_ENGINE")
	viper.AutomaticEnv()
	viper.BindEnv("model", "MODEL_NAME", "AFFILIATION_ENGINE_MODEL")
	viper.BindEnv("logfire_token", "LOGFIRE_TOKEN", "AFFILIATION_ENGINE_LOGFIRE_TOKEN")

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("debug") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
