// Package access — repository.go работает с таблицей api_keys.
package access

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/brusliste/internal/db/postgres"
)

// KeyStore — хранилище хешей ключей.
type KeyStore interface {
	// Insert возвращает ErrKeyCollision, если такой хеш уже есть.
	Insert(ctx context.Context, keyHash string) error
	Exists(ctx context.Context, keyHash string) (bool, error)
}

// Repository — реализация KeyStore поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий ключей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, keyHash string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO api_keys (key_hash) VALUES ($1)`, keyHash)
	if postgres.IsUniqueViolation(err) {
		return ErrKeyCollision
	}
	if err != nil {
		return postgres.WrapError("запись ключа", err)
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, keyHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM api_keys WHERE key_hash = $1)`, keyHash,
	).Scan(&exists)
	if err != nil {
		return false, postgres.WrapError("проверка ключа", err)
	}
	return exists, nil
}
