package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/importer"
	"github.com/budgetanalyzer/transactions/internal/importlog"
)

type importOptions struct {
	format    string
	accountID string
	paths     []string
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank CSV files",
		Long: "Import bank CSV files in one batch. Without arguments every CSV in the\n" +
			"configured import directory is imported and then moved to its processed/ subdirectory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, baseDir, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.paths = args
			return runImport(cmd.Context(), cmd.OutOrStdout(), cfg, baseDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "CSV format key (required)")
	_ = cmd.MarkFlagRequired("format")
	cmd.Flags().StringVar(&opts.accountID, "account", "", "account id stamped on every transaction")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, cfg *config.Config, baseDir string, opts importOptions) error {
	paths := opts.paths
	fromDir := len(paths) == 0
	if fromDir {
		found, err := importer.Scan(cfg.ImportDir)
		if err != nil {
			return err
		}
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", cfg.ImportDir)
		return nil
	}

	files, err := importer.ReadFiles(paths)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	entry := importlog.Entry{
		Timestamp: time.Now(),
		Format:    opts.format,
		AccountID: opts.accountID,
		Files:     baseNames(paths),
	}

	res, importErr := a.imports.Import(ctx, importer.Request{
		Format:    opts.format,
		AccountID: opts.accountID,
		Files:     files,
	})
	entry.BatchID = res.BatchID.String()
	if importErr != nil {
		entry.Status = importlog.StatusFailed
		entry.Error = importErr.Error()
		if err := importlog.Append(baseDir, entry); err != nil {
			return fmt.Errorf("%w (also failed to write import log: %v)", importErr, err)
		}
		return importErr
	}

	entry.Status = importlog.StatusOK
	entry.Transactions = len(res.Transactions)
	entry.Skipped = res.Skipped
	if err := importlog.Append(baseDir, entry); err != nil {
		return err
	}

	if fromDir {
		for _, p := range paths {
			if err := importer.MarkProcessed(cfg.ImportDir, p); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(out, "Imported %d transactions from %d file(s) (batch %s)\n",
		len(res.Transactions), res.Files, res.BatchID)
	if res.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d empty file(s)\n", res.Skipped)
	}
	return nil
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
