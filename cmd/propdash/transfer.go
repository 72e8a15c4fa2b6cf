package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var transferTable string

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import rows from a JSONL file",
	Long: `Import reads one JSON object per line and upserts it by id into the
table. Lines that are not valid JSON or lack an id are skipped and counted.
The whole file is imported in one transaction. Only the sqlite backend
supports import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		if a.sqlite == nil {
			return usageError{err: errSQLiteOnly}
		}

		report, err := a.sqlite.ImportJSONL(cmd.Context(), tableOrDefault(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", report.Imported, report.Skipped)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file.jsonl>",
	Short: "Export rows to a JSONL file",
	Long: `Export writes every row of the table to the file, one JSON object per
line, oldest first. The file is replaced atomically. Only the sqlite
backend supports export.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		if a.sqlite == nil {
			return usageError{err: errSQLiteOnly}
		}

		n, err := a.sqlite.ExportJSONL(cmd.Context(), tableOrDefault(), args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]int{"exported": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d\n", n)
		return nil
	},
}

func tableOrDefault() string {
	if transferTable != "" {
		return transferTable
	}
	return cfg.Table
}

func init() {
	for _, c := range []*cobra.Command{importCmd, exportCmd} {
		c.Flags().StringVar(&transferTable, "table", "", "table to transfer (default: the configured property table)")
	}
}
