package app

import (
	"context"
	"fmt"

	"github.com/yungbote/studentrisk-backend/internal/config"
	"github.com/yungbote/studentrisk-backend/internal/data/db"
	"github.com/yungbote/studentrisk-backend/internal/data/repos/students"
	"github.com/yungbote/studentrisk-backend/internal/data/rest"
	"github.com/yungbote/studentrisk-backend/internal/persistence"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

type StorageBootstrapErrorCode string

const (
	StorageBootstrapErrorConnectFailed StorageBootstrapErrorCode = "connect_failed"
	StorageBootstrapErrorMigrateFailed StorageBootstrapErrorCode = "migrate_failed"
	StorageBootstrapErrorInvalidDriver StorageBootstrapErrorCode = "invalid_driver"
)

type StorageBootstrapError struct {
	Code   StorageBootstrapErrorCode
	Driver string
	Cause  error
}

func (e *StorageBootstrapError) Error() string {
	if e == nil {
		return "storage bootstrap failed"
	}
	return fmt.Sprintf("storage bootstrap failed (code=%s driver=%q): %v", e.Code, e.Driver, e.Cause)
}

func (e *StorageBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Storage is the wired store plus whatever must be closed with it.
type Storage struct {
	Store persistence.Store
	close func() error
}

func (s Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func wireStorage(log *logger.Logger, cfg *config.Config) (Storage, error) {
	driver := cfg.Storage.Driver
	log.Info("Wiring storage...", "driver", driver, "table", cfg.Storage.Table)

	switch driver {
	case "postgres", "sqlite":
		svc, err := db.Open(cfg, log)
		if err != nil {
			return Storage{}, &StorageBootstrapError{Code: StorageBootstrapErrorConnectFailed, Driver: driver, Cause: err}
		}
		if cfg.Storage.AutoMigrate {
			if err := svc.AutoMigrate(cfg.Storage.Table); err != nil {
				_ = svc.Close()
				return Storage{}, &StorageBootstrapError{Code: StorageBootstrapErrorMigrateFailed, Driver: driver, Cause: err}
			}
		}
		repo := students.NewRepo(svc.DB(), log, cfg.Storage.Table)
		return Storage{Store: persistence.NewGormStore(svc.DB(), repo), close: svc.Close}, nil

	case "rest":
		client, err := rest.New(log, rest.Options{
			BaseURL: cfg.Storage.REST.BaseURL,
			APIKey:  cfg.Storage.REST.APIKey,
			Table:   cfg.Storage.Table,
			Timeout: cfg.Storage.REST.Timeout.Duration,
		})
		if err != nil {
			return Storage{}, &StorageBootstrapError{Code: StorageBootstrapErrorConnectFailed, Driver: driver, Cause: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.REST.Timeout.Duration)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			// The REST endpoint may come up after us; readiness reports it.
			log.Warn("REST storage not reachable at startup", "error", err)
		}
		return Storage{Store: client}, nil
	}
	return Storage{}, &StorageBootstrapError{Code: StorageBootstrapErrorInvalidDriver, Driver: driver, Cause: fmt.Errorf("unsupported driver")}
}
