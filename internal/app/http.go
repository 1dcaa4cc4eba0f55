package app

import (
	"github.com/yungbote/studentrisk-backend/internal/clients/redis"
	"github.com/yungbote/studentrisk-backend/internal/config"
	httpapi "github.com/yungbote/studentrisk-backend/internal/http"
	httpH "github.com/yungbote/studentrisk-backend/internal/http/handlers"
	"github.com/yungbote/studentrisk-backend/internal/observability"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

func wireHTTP(log *logger.Logger, cfg *config.Config, svcs Services, events redis.EventBus, metrics *observability.Metrics) *httpapi.Server {
	log.Info("Wiring HTTP...", "addr", cfg.HTTP.Addr)

	checks := map[string]httpH.Pinger{"storage": svcs.Predictions}
	if _, ok := events.(redis.Noop); !ok {
		checks["redis"] = events
	}

	return httpapi.NewServer(log, cfg.HTTP, httpapi.RouterConfig{
		Log:         log,
		ServiceName: cfg.Service,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Metrics:     metrics,
		PredictionHandler: httpH.NewPredictionHandler(httpH.PredictionHandlerDeps{
			Log:          log,
			Predictions:  svcs.Predictions,
			DefaultLimit: cfg.Query.DefaultLimit,
		}),
		HealthHandler: httpH.NewHealthHandler(checks),
	})
}
