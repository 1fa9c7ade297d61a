package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/star/darksky/internal/cache"
	"github.com/star/darksky/internal/catalog"
	"github.com/star/darksky/internal/config"
	"github.com/star/darksky/internal/darkness"
	"github.com/star/darksky/internal/ephemeris"
	"github.com/star/darksky/internal/geo"
	"github.com/star/darksky/internal/health"
	"github.com/star/darksky/internal/planner"
	"github.com/star/darksky/internal/sessions"
	"github.com/star/darksky/internal/store"
)

// app is the wired service shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.Store
	planner *planner.Planner
	probes  *health.Handler
}

// newApp loads configuration and wires the store, ephemeris pool, cache,
// catalog and planner. Logs go to logOut as JSON.
func newApp(ctx context.Context, cmd *cli.Command, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	geoSvc, err := geo.NewStatic(geo.Config{
		ElevationM:      cfg.Geo.ElevationM,
		DefaultTimezone: cfg.Geo.DefaultTimezone,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		return nil, err
	}

	pool := ephemeris.NewWorkerPool(cfg.Ephemeris.Workers)
	windows := cache.NewWindowCache(st, darkness.NewGenerator(pool).Generate, logger)
	p := planner.New(windows, sessions.NewExtractor(pool), cat, geoSvc, logger)

	probes := health.New(2 * time.Second)
	probes.Add("store", st.Ping)

	logger.Info("darksky configured",
		"store_driver", cfg.Store.Driver,
		"workers", pool.Workers(),
		"catalog_targets", cat.Len(),
		"elevation_m", cfg.Geo.ElevationM,
		"default_timezone", cfg.Geo.DefaultTimezone,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		planner: p,
		probes:  probes,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing window store", "error", err)
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}
