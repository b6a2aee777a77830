package main

import (
	"context"
	"fmt"

	"github.com/duallang/duallang/pkg/cache"
	cacheredis "github.com/duallang/duallang/pkg/cache/redis"
	cachesqlite "github.com/duallang/duallang/pkg/cache/sqlite"
	"github.com/duallang/duallang/pkg/config"
	"github.com/duallang/duallang/pkg/pipeline"
	"github.com/duallang/duallang/pkg/router"
	"github.com/duallang/duallang/pkg/session"
	"github.com/duallang/duallang/pkg/tracker"
)

const defaultConfigPath = "duallang.yaml"

// app bundles the components every command builds from the config file.
type app struct {
	cfg     *config.Config
	cache   *cache.Cache
	tracker tracker.Tracker
	session *session.Session
}

func openCache(ctx context.Context, cfg *config.Config) (*cache.Cache, error) {
	var store cache.Store
	switch cfg.Cache.Backend {
	case "sqlite":
		s, err := cachesqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		store = s
	case "redis":
		r := cfg.Cache.Redis
		s, err := cacheredis.New(ctx, r.Addr, r.Password, r.DB, r.Key)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		store = s
	}
	c, err := cache.New(ctx, store)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	return c, nil
}

// openApp loads configPath and builds the session. Overrides run before any
// component is created, so they do not count as a settings change.
func openApp(ctx context.Context, configPath string, overrides ...func(*config.Config)) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	c, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var tr tracker.Tracker
	if cfg.Usage.Enabled {
		st, err := tracker.New(cfg.DBPath)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("init tracker: %w", err)
		}
		tr = st
	}

	opts := session.Options{
		Retries:          cfg.Retry.Retries,
		BaseDelay:        cfg.Retry.BaseDelay,
		DocumentInterval: cfg.Document.Interval,
	}
	opts.Scheduler.Lookahead = cfg.Scheduler.Lookahead
	opts.Scheduler.BackfillBatchSize = cfg.Scheduler.BackfillBatchSize
	opts.Scheduler.Interval = cfg.Scheduler.Interval

	client := pipeline.New(router.New(cfg), c, tr)
	return &app{
		cfg:     cfg,
		cache:   c,
		tracker: tr,
		session: session.New(cfg.Settings, c, client, opts),
	}, nil
}

func (a *app) Close() {
	a.session.Close()
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	_ = a.cache.Close()
}
