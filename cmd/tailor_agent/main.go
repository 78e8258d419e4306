// Package main provides the entry point for the document tailor agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tailor_agent",
	Short: "Document tailor pipeline agent",
	Long:  "Tailor agent turns a job posting into a tailored LaTeX CV and cover letter through a four-stage inference pipeline, either one-shot from the CLI or as a REST API server.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
