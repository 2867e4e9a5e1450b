// Package commands implements the LeapDash subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/config"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/store"
	"golang.org/x/term"
)

// configKey is used to store config in context.
type configKey struct{}

// WithConfig stores the config in the context for subcommands.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// getConfig retrieves the config from the command context.
func getConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{
		RulesDir:     config.DefaultRulesDir,
		StorePath:    config.DefaultStoreFile,
		OutputFormat: config.DefaultOutput,
	}
}

// newLogger builds the structured logger for a command run.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if !cfg.Verbose {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openCatalog opens the metadata catalog database.
func openCatalog(cfg *config.Config) (*catalog.SQLiteCatalog, error) {
	if cfg.CatalogPath == "" {
		return nil, fmt.Errorf("catalog database required (use --catalog or set catalog in leapdash.yaml)")
	}
	cat := catalog.NewSQLiteCatalog()
	if err := cat.Open(cfg.CatalogPath); err != nil {
		return nil, err
	}
	return cat, nil
}

// openLibrary loads the rule library.
func openLibrary(cfg *config.Config, logger *slog.Logger) (*rules.Library, error) {
	return rules.Open(cfg.RulesDir, logger)
}

// openStore opens the dashboard store, creating its directory as needed.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if dir := filepath.Dir(cfg.StorePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	s := store.NewStore(logger)
	if err := s.Open(cfg.StorePath); err != nil {
		return nil, err
	}
	return s, nil
}

// renderTable renders t as text or markdown per the configured output
// mode. Auto picks text on a TTY and markdown otherwise.
func renderTable(cfg *config.Config, w io.Writer, t table.Writer) {
	t.SetOutputMirror(w)

	mode := cfg.OutputFormat
	if mode == "" || mode == "auto" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			mode = "text"
		} else {
			mode = "markdown"
		}
	}

	if mode == "markdown" {
		t.RenderMarkdown()
		return
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
