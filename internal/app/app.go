// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, применяет миграции, собирает
// репозитории, сервисы, обработчики, HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/db/postgres"
	"serotonyl.ru/brusliste/internal/features/access"
	"serotonyl.ru/brusliste/internal/features/ledger"
	"serotonyl.ru/brusliste/internal/features/stats"
	"serotonyl.ru/brusliste/internal/jobs"
	"serotonyl.ru/brusliste/internal/metrics"
	"serotonyl.ru/brusliste/internal/notify"
	"serotonyl.ru/brusliste/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler // nil, если FEATURE_JOBS_ENABLED=false
	DB        *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Метрики и уведомления ===
	m := metrics.New()
	notifier := notify.New(ctx, cfg)

	// === 3. Репозитории ===
	ledgerRepo := ledger.NewRepository(pool)
	statsRepo := stats.NewRepository(pool)
	accessRepo := access.NewRepository(pool)

	// === 4. Сервисы ===
	ledgerService := ledger.NewService(ledgerRepo, cfg, notifier, m)
	statsService := stats.NewService(statsRepo, cfg)
	accessService, err := access.NewService(accessRepo, cfg, m)
	if err != nil {
		pool.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"unit_price": ledgerService.UnitPrice().String(),
		"currency":   cfg.LedgerCurrency,
	}).Info("Цена бутылки")

	// === 5. HTTP ===
	srv := server.New(cfg, server.Deps{
		Ledger:  ledger.NewHandler(ledgerService),
		Stats:   stats.NewHandler(statsService),
		Access:  access.NewHandler(accessService),
		Gate:    accessService,
		Metrics: m,
		DB:      pool,
	})

	// === 6. Планировщик задач ===
	var scheduler *jobs.Scheduler
	if cfg.FeatureJobsEnabled {
		scheduler = jobs.NewScheduler(cfg, ledgerService, statsService, notifier, m)
	}

	return &App{
		Server:    srv,
		Scheduler: scheduler,
		DB:        pool,
	}, nil
}
