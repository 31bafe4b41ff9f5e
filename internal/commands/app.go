package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/dateparse"
	"github.com/budgetanalyzer/transactions/internal/importer"
	"github.com/budgetanalyzer/transactions/internal/logging"
	"github.com/budgetanalyzer/transactions/internal/store"
	"github.com/budgetanalyzer/transactions/internal/transactions"
)

// loadConfig reads the --config file, falling back to defaults when the
// default file is absent. Relative paths in the config resolve against the
// config file's directory.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	cfg, err := config.Load(absPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg = config.Default()
	} else if err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	resolvePaths(cfg, baseDir)

	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, "", err
	}
	return cfg, baseDir, nil
}

func resolvePaths(cfg *config.Config, baseDir string) {
	cfg.ImportDir = resolve(baseDir, cfg.ImportDir)
	if cfg.Database.Driver == config.DriverSQLite && isFilePath(cfg.Database.DSN) {
		cfg.Database.DSN = resolve(baseDir, cfg.Database.DSN)
	}
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// isFilePath reports whether a sqlite DSN names a plain file.
func isFilePath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

// app holds the wired services shared by serve and import.
type app struct {
	store        store.Store
	formats      *config.Formats
	imports      *importer.Service
	transactions *transactions.Service
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	formats, err := config.NewFormats(cfg.CsvFormats)
	if err != nil {
		return nil, err
	}

	dates := dateparse.NewCache()
	if err := dates.Warm(formats.Patterns()...); err != nil {
		return nil, fmt.Errorf("warming date patterns: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	mapper := importer.NewMapper(formats, dates, importer.WithLogger(logger))
	return &app{
		store:        st,
		formats:      formats,
		imports:      importer.NewService(mapper, st, logger),
		transactions: transactions.NewService(st, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// ensureDir creates dir if it is missing.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
