package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"reunite.city/matcher/internal/cli"
	"reunite.city/matcher/internal/config"
	"reunite.city/matcher/internal/db"
	"reunite.city/matcher/internal/logging"
	"reunite.city/matcher/internal/match"
	"reunite.city/matcher/internal/scoring"
)

// runtime bundles the shared wiring every command needs.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *db.Pool
	engine *match.Engine
}

func newRuntime(ctx context.Context, envLoader *cli.EnvLoader) (*runtime, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	engine, err := match.NewEngine(pool, logger, match.Options{
		Params: scoringParams(cfg),
	})
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("build match engine: %w", err)
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		engine: engine,
	}, nil
}

func (r *runtime) Close() {
	if r == nil || r.pool == nil {
		return
	}
	_ = r.pool.Close()
}

func scoringParams(cfg *config.Config) scoring.Params {
	return scoring.Params{
		GeoWeight:       cfg.GeoWeight,
		TemporalWeight:  cfg.TemporalWeight,
		TextWeight:      cfg.TextWeight,
		VisualWeight:    cfg.VisualWeight,
		MaxDistanceKM:   cfg.MaxDistanceKM,
		MaxWindowHours:  cfg.MaxWindowHours,
		AcceptThreshold: cfg.AcceptThreshold,
		CategoryBoost:   cfg.CategoryBoost,
		CandidateLimit:  cfg.CandidateLimit,
	}
}
