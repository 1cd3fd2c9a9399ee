// Package main provides the fixmytext command line: one-shot corrections,
// the document pipeline and the local bridge for the UI shell.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fixmytext",
	Short: "Hotkey-driven text correction and document restructuring",
	Long: `fixmytext corrects selected text in place (single hotkey press) or hands it to an
assistant UI that restructures it into an email, wiki page, memo or slide outline
(double press).

Settings are read from a YAML file (--config) and FIXMYTEXT_* / provider API key
environment variables. A .env file in the working directory is loaded when present.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("FIXMYTEXT_CONFIG"), "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed progress information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
