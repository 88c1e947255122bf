package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/export"
	"github.com/greenfield-eo/recmap/internal/pipeline"
	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/store"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

var (
	runManifest string
	runOutDir   string
	runNoStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one run from a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		manifest, err := LoadManifest(runManifest)
		if err != nil {
			return err
		}

		grids, rc, err := manifest.LoadInputs()
		if err != nil {
			return err
		}

		schedule, err := cfg.Mobility.Schedule()
		if err != nil {
			return err
		}

		p, err := pipeline.New(grids, rc, schedule, cfg.Run.Capacity, cfg.Run.ZeroFloor)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx, manifest.Request())
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		outDir := runOutDir
		if outDir == "" {
			outDir = cfg.Export.Dir
		}
		if err := writeOutputs(res, manifest, outDir); err != nil {
			return err
		}

		if !runNoStore {
			if err := persistResult(cmd, res); err != nil {
				return err
			}
		}

		zap.L().Info("run complete",
			zap.String("run_id", res.RunID),
			zap.Int("grids", len(res.Grids)))
		return nil
	},
}

// writeOutputs exports every derived grid as an ASCII raster and every zonal
// table in the configured format.
func writeOutputs(res *pipeline.Result, manifest *Manifest, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return eris.Wrapf(err, "create output dir %s", outDir)
	}

	outputs := make([]string, 0, len(res.Grids))
	for out := range res.Grids {
		outputs = append(outputs, string(out))
	}
	sort.Strings(outputs)

	for _, name := range outputs {
		path := filepath.Join(outDir, name+".asc")
		if err := writeGrid(path, res.Grids[pipeline.Output(name)], manifest.Extent); err != nil {
			return err
		}
	}

	tables := map[string][]zonal.SummaryRow{
		"demand": res.DemandTable,
		"flow":   res.FlowTable,
		"supply": res.SupplyTable,
		"use":    res.UseTable,
	}
	for name, rows := range tables {
		if rows == nil {
			continue
		}
		if cfg.Export.Format == "xlsx" {
			if err := export.WriteXLSX(filepath.Join(outDir, name+".xlsx"), name, rows); err != nil {
				return err
			}
		} else {
			if err := export.WriteCSV(filepath.Join(outDir, name+".csv"), rows); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeGrid(path string, g *raster.Grid, extent raster.Extent) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	return raster.WriteASCII(f, g, extent)
}

// persistResult records the run, its statistics and its tables in the
// configured database.
func persistResult(cmd *cobra.Command, res *pipeline.Result) error {
	ctx := cmd.Context()

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	outputs := make([]string, 0, len(res.Grids))
	for out := range res.Grids {
		outputs = append(outputs, string(out))
	}
	sort.Strings(outputs)

	if _, err := st.CreateRun(ctx, res.RunID, outputs); err != nil {
		return err
	}
	for out, stats := range res.Stats {
		if err := st.PutStatistics(ctx, res.RunID, string(out), stats); err != nil {
			return err
		}
	}
	tables := map[string][]zonal.SummaryRow{
		"demand": res.DemandTable,
		"flow":   res.FlowTable,
		"supply": res.SupplyTable,
		"use":    res.UseTable,
	}
	for name, rows := range tables {
		if rows == nil {
			continue
		}
		if err := st.PutTable(ctx, res.RunID, name, rows); err != nil {
			return err
		}
	}
	return st.FinishRun(ctx, res.RunID, store.RunStatusComplete, "")
}

func init() {
	runCmd.Flags().StringVar(&runManifest, "manifest", "run.yaml", "run manifest path")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory (default from config)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip persisting results to the database")
	rootCmd.AddCommand(runCmd)
}
