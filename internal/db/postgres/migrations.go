// Package postgres — migrations.go содержит схему БД и применяет её при старте.
// SQL-миграции встроены в код для упрощения деплоя: один бинарник, без файлов рядом.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Migration — одна версия схемы.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations — все миграции по порядку. Новые только дописываются в конец.
var Migrations = []Migration{
	{1, "people", migration001People},
	{2, "transactions", migration002Transactions},
	{3, "api_keys", migration003APIKeys},
}

// Migrate создаёт таблицу версий и применяет недостающие миграции.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := RunMigrations(ctx, pool); err != nil {
		return err
	}

	for _, m := range Migrations {
		applied, err := ExecMigrationSQL(ctx, pool, m.Version, m.SQL)
		if err != nil {
			return fmt.Errorf("миграция %d (%s): %w", m.Version, m.Name, err)
		}
		if applied {
			log.Infof("Миграция %d (%s) применена", m.Version, m.Name)
		}
	}
	return nil
}

// RunMigrations готовит таблицу schema_migrations для учёта версий.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("не удалось получить соединение: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	log.Debug("Система миграций готова")
	return nil
}

// ExecMigrationSQL выполняет SQL одной миграции в транзакции.
// Возвращает applied=false, если версия уже была применена раньше.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) (bool, error) {
	applied := false
	err := InTx(ctx, pool, func(tx pgx.Tx) error {
		// Блокировка на уровне транзакции: две реплики не применят миграцию одновременно
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", int64(version)); err != nil {
			return fmt.Errorf("ошибка блокировки миграции: %w", err)
		}

		var exists bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка проверки миграции: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version,
		); err != nil {
			return fmt.Errorf("ошибка записи версии миграции: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// Имя уникально и чувствительно к регистру: "Ola" и "ola" — разные люди.
// CHECK не даёт долгу уйти в минус даже при ошибке в коде.
var migration001People = `
CREATE TABLE IF NOT EXISTS people (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL,
    outstanding_units BIGINT NOT NULL DEFAULT 0 CHECK (outstanding_units >= 0),
    beverage_type VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// person_id NULL — анонимная быстрая покупка (или удалённый человек).
// amount хранится в сотых долях валюты.
var migration002Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    person_id BIGINT REFERENCES people(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    beverage_units BIGINT NOT NULL,
    amount BIGINT NOT NULL CHECK (amount >= 0),
    kind VARCHAR(16) NOT NULL CHECK (kind IN ('purchase', 'return', 'payment', 'quickbuy')),
    beverage_type VARCHAR(64)
);
CREATE INDEX IF NOT EXISTS idx_transactions_person_id ON transactions(person_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_beverage_type ON transactions(beverage_type);
`

// В таблице только SHA-256 ключа; сам ключ знает лишь тот, кому его выдали.
var migration003APIKeys = `
CREATE TABLE IF NOT EXISTS api_keys (
    id BIGSERIAL PRIMARY KEY,
    key_hash VARCHAR(64) UNIQUE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
