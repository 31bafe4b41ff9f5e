package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/budgetanalyzer/transactions/internal/config"
)

func newInitCommand() *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a transactions.yaml and import directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, driver)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", config.DriverSQLite, "database driver (sqlite or postgres)")

	return cmd
}

func runInit(out io.Writer, dir, driver string) error {
	cfgPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default()
	switch driver {
	case config.DriverSQLite:
	case config.DriverPostgres:
		cfg.Database.Driver = config.DriverPostgres
		cfg.Database.DSN = "${DATABASE_URL}"
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	// Create directory structure.
	for _, d := range []string{
		"logs",
		cfg.ImportDir,
		filepath.Join(cfg.ImportDir, "processed"),
	} {
		if err := ensureDir(filepath.Join(dir, d)); err != nil {
			return err
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "*.db\n.env\nlogs/\n" + cfg.ImportDir + "/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Fprintf(out, "Initialized transactions workspace at %s\n", dir)
	return nil
}
