package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studentrisk-backend/internal/clients/redis"
	"github.com/yungbote/studentrisk-backend/internal/config"
	httpapi "github.com/yungbote/studentrisk-backend/internal/http"
	"github.com/yungbote/studentrisk-backend/internal/observability"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Services Services

	server       *httpapi.Server
	storage      Storage
	events       redis.EventBus
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(log, cfg)
}

// NewWithConfig wires the app from an already loaded config.
func NewWithConfig(log *logger.Logger, cfg *config.Config) (*App, error) {
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.Service,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init()

	storage, err := wireStorage(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	events, err := redis.NewEventBus(log, cfg.Events.RedisAddr, cfg.Events.Channel)
	if err != nil {
		_ = storage.Close()
		log.Sync()
		return nil, fmt.Errorf("init redis event bus: %w", err)
	}

	svcs, err := wireServices(log, cfg, storage.Store, events, metrics)
	if err != nil {
		_ = events.Close()
		_ = storage.Close()
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Config:       cfg,
		Services:     svcs,
		server:       wireHTTP(log, cfg, svcs, events, metrics),
		storage:      storage,
		events:       events,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is canceled, then releases every resource.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	err := g.Wait()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	errs = append(errs, a.storage.Close())
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.otelShutdown(ctx))
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return errors.Join(errs...)
}
