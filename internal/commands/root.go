// Package commands implements the transactions CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/budgetanalyzer/transactions/internal/buildinfo"
)

// defaultConfigFile is read from the working directory unless --config is set.
const defaultConfigFile = "transactions.yaml"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "transactions",
		Short:   "Import bank CSV exports and manage transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", defaultConfigFile, "path to config file")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newFormatsCommand())

	return rootCmd
}
