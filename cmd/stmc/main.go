package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/auth"
	"github.com/tgienger/stmc/internal/config"
	"github.com/tgienger/stmc/internal/db"
	"github.com/tgienger/stmc/internal/logging"
	"github.com/tgienger/stmc/internal/store"
	"github.com/tgienger/stmc/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("stmc %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path, err := config.Path()
	if err != nil {
		return fmt.Errorf("locating config: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logFile, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger.WithField("version", version).Info("starting stmc")

	// Initialize database
	database, err := db.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer database.Close()

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	opts := []api.Option{api.WithHTTPClient(httpClient), api.WithLogger(logger)}

	session := auth.NewSession(database, api.NewAuthClient(cfg.AuthURL, opts...), logger)
	tasks := store.New(api.NewClient(cfg.APIURL, session, opts...), session, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Attach before restoring so a restored session triggers the first fetch
	detach := tasks.Attach(ctx)
	defer detach()
	if err := session.Restore(ctx); err != nil {
		logger.WithError(err).Warn("restoring session")
	}

	// Create and run the application
	app := ui.NewApp(session, tasks, database, logger)
	p := tea.NewProgram(app, tea.WithAltScreen())
	unbind := ui.Bind(p, tasks, session)
	defer unbind()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
