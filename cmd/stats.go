package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/greenfield-eo/recmap/internal/raster"
)

var statsCmd = &cobra.Command{
	Use:   "stats <grid.asc>",
	Short: "Print univariate statistics for an ASCII raster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open %s", args[0])
		}
		defer f.Close()

		ag, err := raster.ReadASCII(f)
		if err != nil {
			return err
		}

		stats := raster.Univar(ag.Grid)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
