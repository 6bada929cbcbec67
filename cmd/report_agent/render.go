package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/meeting-reporter/internal/observability"
	"github.com/jonathan/meeting-reporter/internal/rendering"
	"github.com/jonathan/meeting-reporter/internal/schemas"
	"github.com/jonathan/meeting-reporter/internal/types"
	rootschemas "github.com/jonathan/meeting-reporter/schemas"
	"github.com/spf13/cobra"
)

var (
	renderNotesFile      string
	renderTranscriptFile string
	renderOutput         string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a PDF report from notes JSON and a transcript",
	Long:  "Validates a notes JSON file against the notes schema and renders it, together with a plain-text transcript, into a PDF report.",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderNotesFile, "notes", "n", "", "Path to notes JSON file (required)")
	renderCmd.Flags().StringVarP(&renderTranscriptFile, "transcript", "t", "", "Path to transcript text file (optional)")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Path to output PDF file (required)")

	if err := renderCmd.MarkFlagRequired("notes"); err != nil {
		panic(fmt.Sprintf("failed to mark notes flag as required: %v", err))
	}
	if err := renderCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(renderNotesFile)
	if err != nil {
		return fmt.Errorf("failed to read notes file: %w", err)
	}

	var meetingNotes types.Notes
	if err := json.Unmarshal(data, &meetingNotes); err != nil {
		return fmt.Errorf("failed to parse notes JSON: %w", err)
	}

	schema, err := rootschemas.Files.ReadFile(rootschemas.NotesSchema)
	if err != nil {
		return fmt.Errorf("failed to read notes schema: %w", err)
	}
	if err := schemas.ValidateJSONString(string(schema), string(data)); err != nil {
		return fmt.Errorf("%s: %w", renderNotesFile, err)
	}

	var transcript string
	if renderTranscriptFile != "" {
		raw, err := os.ReadFile(renderTranscriptFile)
		if err != nil {
			return fmt.Errorf("failed to read transcript file: %w", err)
		}
		transcript = string(raw)
	}

	if err := rendering.NewPDFRenderer().Export(transcript, meetingNotes, renderOutput); err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintNotes(meetingNotes)
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", renderOutput)
	return nil
}
