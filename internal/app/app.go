// Package app assembles the pipeline from config and runs its long-lived
// parts: the HTTP server, the confirmation sweeper, and the instrument file
// watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kuber/internal/confirm"
	"kuber/internal/config"
	"kuber/internal/instrument"
	"kuber/internal/logger"
	"kuber/internal/store"
	httpapi "kuber/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg         *config.Config
	server      *httpapi.Server
	gate        *confirm.Gate
	instruments *instrument.Store
	resolver    *instrument.Resolver
	audit       store.Store
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is cancelled. The sweeper and watcher are best-effort
// background loops; only the HTTP listener failing brings the app down.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		a.gate.RunSweeper(ctx, time.Duration(a.cfg.Confirm.SweepSeconds)*time.Second)
		return nil
	})

	if a.cfg.Instruments.Watch {
		group.Go(func() error {
			err := a.instruments.Watch(ctx, func() {
				a.resolver.Rebuild()
				logger.Infof("instrument master reloaded, resolver index rebuilt")
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnf("instrument watcher stopped: %v", err)
			}
			return nil
		})
	}

	err := group.Wait()
	if cerr := a.audit.Close(); cerr != nil {
		logger.Warnf("audit store close: %v", cerr)
	}
	return err
}
