// Package main provides the entry point for the meeting report server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "report_agent",
	Short: "Meeting Report HTTP API Server",
	Long:  "Meeting Report transcribes uploaded meeting audio, extracts structured notes with an LLM and renders them as a downloadable PDF report.",
	// errors are printed once by main
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
