// Package postgres — вспомогательные функции для работы с БД.
// queries.go содержит обёртку транзакций и классификацию ошибок pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/brusliste/internal/common"
)

// Коды SQLSTATE, после которых запрос можно безопасно повторить
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// InTx выполняет fn внутри одной транзакции БД.
// Если fn вернула ошибку или Commit упал — транзакция откатывается,
// и БД никогда не видит половину изменений. Ошибки fn возвращаются как есть,
// чтобы ValidationError/NotFoundError дошли до вызывающего без обёртки.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		// Не смогли взять соединение из пула — клиент может повторить
		return &common.StoreError{Op: "начало транзакции", Err: err, Retryable: true}
	}
	// Откатываем транзакцию, если что-то пошло не так (после Commit это no-op)
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapError("фиксация транзакции", err)
	}
	return nil
}

// WrapError превращает ошибку pgx в common.StoreError.
// Уже типизированные ошибки (StoreError, ValidationError, NotFoundError) не трогает.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrStore) || errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrNotFound) {
		return err
	}
	return &common.StoreError{Op: op, Err: err, Retryable: isRetryable(err)}
}

// IsUniqueViolation — нарушено ли уникальное ограничение.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
