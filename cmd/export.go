package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenfield-eo/recmap/internal/export"
	"github.com/greenfield-eo/recmap/internal/store"
)

var (
	exportRunID string
	exportTable string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored zonal table to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.GetTable(ctx, exportRunID, exportTable)
		if err != nil {
			return err
		}

		switch {
		case strings.HasSuffix(exportOut, ".csv"):
			return export.WriteCSV(exportOut, rows)
		case strings.HasSuffix(exportOut, ".xlsx"):
			return export.WriteXLSX(exportOut, exportTable, rows)
		default:
			return eris.Errorf("unsupported output extension in %q", exportOut)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "run id")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "table name (demand, flow, supply, use)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (.csv or .xlsx)")
	_ = exportCmd.MarkFlagRequired("run")
	_ = exportCmd.MarkFlagRequired("table")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
