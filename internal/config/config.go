package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"MATCHER_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"MATCHER_DB_MAX_CONNS" default:"8"`

	GeoWeight      float64 `envconfig:"MATCHER_GEO_WEIGHT" default:"0.30"`
	TemporalWeight float64 `envconfig:"MATCHER_TEMPORAL_WEIGHT" default:"0.20"`
	TextWeight     float64 `envconfig:"MATCHER_TEXT_WEIGHT" default:"0.30"`
	VisualWeight   float64 `envconfig:"MATCHER_VISUAL_WEIGHT" default:"0.20"`

	MaxDistanceKM   float64 `envconfig:"MATCHER_MAX_DISTANCE_KM" default:"50"`
	MaxWindowHours  float64 `envconfig:"MATCHER_MAX_WINDOW_HOURS" default:"168"`
	AcceptThreshold float64 `envconfig:"MATCHER_ACCEPT_THRESHOLD" default:"0.35"`
	CategoryBoost   float64 `envconfig:"MATCHER_CATEGORY_BOOST" default:"0.05"`
	CandidateLimit  int     `envconfig:"MATCHER_CANDIDATE_LIMIT" default:"200"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("MATCHER_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("MATCHER_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("MATCHER_DB_MIN_CONNS (%d) cannot exceed MATCHER_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"MATCHER_GEO_WEIGHT", c.GeoWeight},
		{"MATCHER_TEMPORAL_WEIGHT", c.TemporalWeight},
		{"MATCHER_TEXT_WEIGHT", c.TextWeight},
		{"MATCHER_VISUAL_WEIGHT", c.VisualWeight},
	} {
		if w.value < 0 {
			return fmt.Errorf("%s must be >= 0", w.name)
		}
	}
	if c.GeoWeight+c.TemporalWeight+c.TextWeight+c.VisualWeight <= 0 {
		return fmt.Errorf("at least one signal weight must be > 0")
	}
	if c.MaxDistanceKM <= 0 {
		return fmt.Errorf("MATCHER_MAX_DISTANCE_KM must be > 0")
	}
	if c.MaxWindowHours <= 0 {
		return fmt.Errorf("MATCHER_MAX_WINDOW_HOURS must be > 0")
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return fmt.Errorf("MATCHER_ACCEPT_THRESHOLD must be in [0,1]")
	}
	if c.CategoryBoost < 0 || c.CategoryBoost > 0.5 {
		return fmt.Errorf("MATCHER_CATEGORY_BOOST must be in [0,0.5]")
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("MATCHER_CANDIDATE_LIMIT must be >= 1")
	}
	return nil
}
