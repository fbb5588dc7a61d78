// Package app wires configuration into a ready-to-run reconciler.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rl1809/inventory-metafields/internal/adapter/shopify"
	"github.com/rl1809/inventory-metafields/internal/adapter/storage"
	"github.com/rl1809/inventory-metafields/internal/config"
	"github.com/rl1809/inventory-metafields/internal/core/service"
	"github.com/rl1809/inventory-metafields/internal/port"
)

type App struct {
	Reconciler *service.Reconciler
	Runs       port.RunRepository
	Lock       port.LockRepository

	closers []func() error
}

// New connects the stores named in cfg and builds the reconciler. Without
// MYSQL_DSN run history is kept in memory; without REDIS_ADDR the reconcile
// lock is process-local.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger, dryRun bool, opts ...service.Option) (*App, error) {
	a := &App{}

	if err := a.openRunStore(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openLock(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = shopify.AdminEndpoint(cfg.Shop, cfg.APIVersion)
	}
	client := shopify.NewClient(
		endpoint,
		cfg.AccessToken,
		&http.Client{Timeout: cfg.HTTPTimeout},
		logger,
	)

	a.Reconciler = service.NewReconciler(
		shopify.NewCatalogAdapter(client),
		a.Runs,
		a.Lock,
		service.Settings{
			Locations: cfg.Locations,
			Keys:      cfg.Keys,
			Pause:     cfg.Pause,
			LockTTL:   cfg.LockTTL,
			DryRun:    dryRun,
		},
		logger,
		opts...,
	)
	return a, nil
}

func (a *App) openRunStore(ctx context.Context, cfg config.Config, logger *zerolog.Logger) error {
	if cfg.MySQLDSN == "" {
		logger.Warn().Msg("MYSQL_DSN not set, run history kept in memory")
		a.Runs = storage.NewMemoryRunStore()
		return nil
	}

	dsn, err := mysqlDSN(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mysql: %w", err)
	}

	adapter := storage.NewMySQLAdapter(db)
	if err := adapter.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info().Msg("connected to mysql")

	a.Runs = adapter
	return nil
}

// mysqlDSN forces parseTime so run timestamps scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

func (a *App) openLock(ctx context.Context, cfg config.Config, logger *zerolog.Logger) error {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, reconcile lock is local to this process")
		a.Lock = storage.NewLocalLock()
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.closers = append(a.closers, rdb.Close)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	a.Lock = storage.NewRedisAdapter(rdb)
	return nil
}

// Close releases store connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
