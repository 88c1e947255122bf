package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "recmap",
	Short: "Ecosystem-service recreation mapping engine",
	Long:  "Derives recreation potential, opportunity spectrum, demand, mobility and flow rasters from scored land-cover components, with zonal tables and stored run statistics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
