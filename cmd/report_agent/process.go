package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/observability"
	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/rendering"
	"github.com/jonathan/meeting-reporter/internal/types"
	"github.com/spf13/cobra"
)

var (
	processAudio   string
	processOut     string
	processVerbose bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate a report for a local audio file",
	Long: `Runs the full pipeline (transcription -> notes -> PDF) on a local audio file without starting the server.

Job state is kept in memory; the report is written to --out.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processAudio, "audio", "a", "", "Path to the meeting audio file (required)")
	processCmd.Flags().StringVarP(&processOut, "out", "o", "", "Directory for the PDF report (defaults to DEFAULT_REPORT_DIR)")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print stage progress and the extracted notes")

	if err := processCmd.MarkFlagRequired("audio"); err != nil {
		panic(fmt.Sprintf("failed to mark audio flag as required: %v", err))
	}

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	info, err := os.Stat(processAudio)
	if err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("audio path %s is a directory", processAudio)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reportDir := processOut
	if reportDir == "" {
		reportDir = cfg.ReportDir
	}

	ctx := cmd.Context()
	store := db.NewMemoryStore()
	jobID, audio, err := seedLocalJob(ctx, store, processAudio)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(cfg, store, reportDir)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if processVerbose {
		orch.OnProgress = func(event pipeline.ProgressEvent) {
			printer.PrintProgress(event)
			if n, ok := event.Content.(types.Notes); ok {
				printer.PrintNotes(n)
			}
		}
	}

	runErr := orch.Run(ctx, jobID, audio.FilePath)

	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	printer.PrintJobSummary(job, rendering.ReportPath(reportDir, jobID))
	return runErr
}

// seedLocalJob records a local user, the audio file and a created job.
func seedLocalJob(ctx context.Context, store db.Store, audioPath string) (uuid.UUID, *types.AudioFile, error) {
	user, err := store.CreateUser(ctx, "local", "")
	if err != nil {
		return uuid.Nil, nil, err
	}

	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to resolve %s: %w", audioPath, err)
	}
	audio := &types.AudioFile{
		ID:       uuid.New(),
		UserID:   user.ID,
		Filename: filepath.Base(abs),
		FilePath: abs,
	}
	if err := store.CreateAudioFile(ctx, audio); err != nil {
		return uuid.Nil, nil, err
	}

	jobID, err := store.CreateJob(ctx, audio.ID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return jobID, audio, nil
}
