package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jonathan/meeting-reporter/internal/config"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/notes"
	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/rendering"
	"github.com/jonathan/meeting-reporter/internal/server"
	"github.com/jonathan/meeting-reporter/internal/server/ratelimit"
	"github.com/jonathan/meeting-reporter/internal/transcription"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveMemoryStore bool
	serveMigrate     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts meeting audio uploads, runs report jobs in the background and serves the finished PDF reports.

Configuration is read from the environment (and a .env file when present).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveMemoryStore, "memory-store", false, "Keep users, audio files and jobs in memory instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PORT applies unless --port was given explicitly
	if env := os.Getenv("PORT"); env != "" && !cmd.Flags().Changed("port") {
		port, err := strconv.Atoi(env)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		servePort = port
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}
	rateLimit, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	orch, err := newOrchestrator(cfg, store, cfg.ReportDir)
	if err != nil {
		return err
	}
	dispatcher := pipeline.NewAsyncDispatcher(orch)

	srv, err := server.New(server.Config{
		Port:          servePort,
		Store:         store,
		Dispatcher:    dispatcher,
		JWT:           jwtConfig,
		Password:      passwordConfig,
		RateLimit:     rateLimit,
		UploadDir:     cfg.UploadDir,
		ReportDir:     cfg.ReportDir,
		MaxUploadSize: cfg.MaxUploadSize,
		CORSOrigins:   cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

// loadConfig reads and validates the environment configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore connects to PostgreSQL, or returns an in-memory store with --memory-store.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, func(), error) {
	if serveMemoryStore {
		log.Printf("[serve] using in-memory store; data is lost on exit")
		return db.NewMemoryStore(), func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required (or pass --memory-store)")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
	}
	return database, database.Close, nil
}

// newOrchestrator wires the configured providers and the PDF renderer.
func newOrchestrator(cfg *config.Config, store pipeline.JobStore, reportDir string) (*pipeline.Orchestrator, error) {
	newTranscriber, err := transcription.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	newGenerator, err := notes.NewFactory(cfg)
	if err != nil {
		return nil, err
	}
	return &pipeline.Orchestrator{
		Store:          store,
		NewTranscriber: newTranscriber,
		NewGenerator:   newGenerator,
		Renderer:       rendering.NewPDFRenderer(),
		ReportDir:      reportDir,
	}, nil
}
