package app

import (
	"fmt"

	"github.com/yungbote/studentrisk-backend/internal/clients/redis"
	"github.com/yungbote/studentrisk-backend/internal/config"
	"github.com/yungbote/studentrisk-backend/internal/observability"
	"github.com/yungbote/studentrisk-backend/internal/persistence"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction/invoker"
	"github.com/yungbote/studentrisk-backend/internal/services"
)

type Services struct {
	Predictions services.PredictionService
	Gateway     *persistence.Gateway
}

func wireInvoker(log *logger.Logger, cfg config.InferenceConfig) (invoker.Invoker, error) {
	if cfg.Mode == "static" {
		log.Warn("inference running in static mode; every prediction is fixed", "output", cfg.StaticOutput)
		return &invoker.Static{Output: cfg.StaticOutput}, nil
	}
	args := append([]string{cfg.ScriptPath}, cfg.ExtraArgs...)
	p, err := invoker.NewProcess(log, invoker.Options{
		Command: cfg.PythonPath,
		Args:    args,
		Dir:     cfg.WorkDir,
		Timeout: cfg.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("init inference process: %w", err)
	}
	return p, nil
}

func wireServices(log *logger.Logger, cfg *config.Config, store persistence.Store, events redis.EventBus, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	inv, err := wireInvoker(log, cfg.Inference)
	if err != nil {
		return Services{}, err
	}
	gateway := persistence.NewGateway(store, log)

	predictions, err := services.NewPredictionService(services.PredictionServiceDeps{
		Log:     log,
		Invoker: inv,
		Gateway: gateway,
		Events:  events,
		Metrics: metrics,
		Query:   cfg.Query,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init prediction service: %w", err)
	}
	return Services{Predictions: predictions, Gateway: gateway}, nil
}
