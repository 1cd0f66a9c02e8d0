package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Selector  SelectorConfig  `mapstructure:"selector"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DataConfig locates the granule collection on disk.
type DataConfig struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"`
}

// SelectorConfig carries the zoom thresholds and value bounds for
// viewport selection.
type SelectorConfig struct {
	GridVisibleZoom float64 `mapstructure:"grid_visible_zoom"`
	DensePointsZoom float64 `mapstructure:"dense_points_zoom"`
	SparseStride    int     `mapstructure:"sparse_stride"`
	XCO2Min         float64 `mapstructure:"xco2_min"`
	XCO2Max         float64 `mapstructure:"xco2_max"`
}

type CORSConfig struct {
	Origins string `mapstructure:"origins"`
}

type SchedulerConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RefreshMinutes int  `mapstructure:"refresh_minutes"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.pattern", "*.nc4")
	v.SetDefault("selector.grid_visible_zoom", 4)
	v.SetDefault("selector.dense_points_zoom", 4)
	v.SetDefault("selector.sparse_stride", 20)
	v.SetDefault("selector.xco2_min", 380)
	v.SetDefault("selector.xco2_max", 420)
	v.SetDefault("cors.origins", "http://localhost:3000")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.refresh_minutes", 15)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CO2SCOPE_DATA_DIR → data.dir
	v.SetEnvPrefix("CO2SCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Data.Dir == "" {
		errs = append(errs, "data.dir is required")
	}
	if c.Data.Pattern == "" {
		errs = append(errs, "data.pattern is required")
	}
	if c.Selector.SparseStride < 1 {
		errs = append(errs, fmt.Sprintf("selector.sparse_stride must be at least 1, got %d", c.Selector.SparseStride))
	}
	if c.Selector.GridVisibleZoom < 0 {
		errs = append(errs, "selector.grid_visible_zoom must not be negative")
	}
	if c.Selector.DensePointsZoom < 0 {
		errs = append(errs, "selector.dense_points_zoom must not be negative")
	}
	if c.Selector.XCO2Min > c.Selector.XCO2Max {
		errs = append(errs, fmt.Sprintf("selector.xco2_min %v exceeds selector.xco2_max %v",
			c.Selector.XCO2Min, c.Selector.XCO2Max))
	}
	if c.Scheduler.Enabled && c.Scheduler.RefreshMinutes < 1 {
		errs = append(errs, fmt.Sprintf("scheduler.refresh_minutes must be at least 1, got %d", c.Scheduler.RefreshMinutes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
