package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/greenfield-eo/recmap/internal/decay"
	"github.com/greenfield-eo/recmap/internal/spectrum"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
	Mobility MobilityConfig `yaml:"mobility" mapstructure:"mobility"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend for run results.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RunConfig configures run-wide computation behavior.
type RunConfig struct {
	Workers      int     `yaml:"workers" mapstructure:"workers"`
	NoDataPolicy string  `yaml:"nodata_policy" mapstructure:"nodata_policy"`
	ZeroFloor    float64 `yaml:"zero_floor" mapstructure:"zero_floor"`
	Capacity     float64 `yaml:"capacity" mapstructure:"capacity"`
}

// MobilityConfig configures the distance-decay schedule. Empty bands select
// the built-in schedule.
type MobilityConfig struct {
	Bands    []decay.Band `yaml:"bands" mapstructure:"bands"`
	Constant float64      `yaml:"constant" mapstructure:"constant"`
	Score    float64      `yaml:"score" mapstructure:"score"`
}

// Schedule resolves the configured decay schedule, falling back to the
// built-in mobility coefficients when no bands are configured.
func (m MobilityConfig) Schedule() (*decay.Schedule, error) {
	if len(m.Bands) == 0 {
		return decay.DefaultMobilitySchedule(), nil
	}
	return decay.NewSchedule(m.Bands, m.Constant, m.Score)
}

// ClassifyConfig configures the ordinal classification of the normalized
// indices.
type ClassifyConfig struct {
	CutPoints spectrum.CutPoints `yaml:"cut_points" mapstructure:"cut_points"`
}

// ExportConfig configures tabular exports.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the results API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "recmap.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("run.workers", 4)
	v.SetDefault("run.nodata_policy", "propagate")
	v.SetDefault("run.zero_floor", 0.0001)
	v.SetDefault("run.capacity", 1.0)
	v.SetDefault("mobility.constant", 1.0)
	v.SetDefault("mobility.score", 1.0)
	v.SetDefault("classify.cut_points.low", 1.0/3.0)
	v.SetDefault("classify.cut_points.high", 2.0/3.0)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "csv")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
