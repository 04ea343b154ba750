package app

import (
	"context"
	"fmt"
	"time"

	"kuber/internal/agent"
	"kuber/internal/analysis"
	"kuber/internal/confirm"
	"kuber/internal/config"
	"kuber/internal/gateway/angelone"
	"kuber/internal/instrument"
	"kuber/internal/intent"
	"kuber/internal/logger"
	"kuber/internal/oracle"
	"kuber/internal/plan"
	"kuber/internal/store"
	storesqlite "kuber/internal/store/sqlite"
	httpapi "kuber/internal/transport/http"
)

// AppBuilder constructs the object graph. Overrides exist so tests can swap
// the stores and the broker without touching the wiring.
type AppBuilder struct {
	cfg *config.Config

	oracleOverride oracle.Oracle
	auditOverride  store.Store
}

type AppBuilderOption func(*AppBuilder)

func WithOracle(o oracle.Oracle) AppBuilderOption {
	return func(b *AppBuilder) { b.oracleOverride = o }
}

func WithAuditStore(s store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.auditOverride = s }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	instStore, err := instrument.OpenStore(cfg.Instruments.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open instrument master: %w", err)
	}
	resolver, err := instrument.NewResolver(
		instStore, cfg.Instruments.AliasesPath, cfg.Instruments.MaxDistance, cfg.Instruments.MinScore)
	if err != nil {
		return nil, fmt.Errorf("build symbol resolver: %w", err)
	}
	logger.Infof("instrument master ready (%d instruments)", instStore.Len())

	var llm oracle.Oracle
	if b.oracleOverride != nil {
		llm = b.oracleOverride
	} else {
		llm = oracle.NewChatClient(cfg.Oracle)
	}

	brokerClient, err := angelone.NewClient(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("build broker client: %w", err)
	}

	audit := b.auditOverride
	if audit == nil {
		audit, err = storesqlite.Open(cfg.Store.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
	}

	gate := confirm.NewGate(time.Duration(cfg.Confirm.TTLSeconds) * time.Second)
	analyzer := analysis.NewAnalyzer(llm, cfg.Analysis)
	executor := plan.NewExecutor(resolver, brokerClient, gate, analyzer, audit)
	service := agent.NewService(intent.NewClassifier(llm), executor, audit)

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Service: service,
		Broker:  brokerClient,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:         cfg,
		server:      server,
		gate:        gate,
		instruments: instStore,
		resolver:    resolver,
		audit:       audit,
	}, nil
}
