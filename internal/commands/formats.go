package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/budgetanalyzer/transactions/internal/config"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List configured CSV formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			formats, err := config.NewFormats(cfg.CsvFormats)
			if err != nil {
				return err
			}
			return printFormats(cmd.OutOrStdout(), formats)
		},
	}
}

func printFormats(out io.Writer, formats *config.Formats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tBANK\tCURRENCY\tDATE FORMAT\tLAYOUT")
	for _, key := range formats.Keys() {
		c, err := formats.Lookup(key)
		if err != nil {
			return err
		}
		layout := "debit/credit columns"
		if c.HasTypeColumn() {
			layout = "type column " + c.TypeHeader
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", key, c.BankName, c.DefaultCurrencyISOCode, c.DateFormat, layout)
	}
	return tw.Flush()
}
