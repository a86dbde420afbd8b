// Package stats — repository.go выполняет агрегирующие запросы к transactions.
package stats

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/brusliste/internal/db/postgres"
)

// Store — агрегаты, нужные сервису статистики.
type Store interface {
	// Leaderboard — топ людей по сумме бутылок в [from, to); nil снимает границу.
	Leaderboard(ctx context.Context, from, to *time.Time, limit int) ([]*LeaderboardEntry, error)
	// TypeDistribution возвращает группы по напитку и общее число записей журнала.
	TypeDistribution(ctx context.Context) ([]*TypeCount, int64, error)
}

// Repository — реализация Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий статистики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Leaderboard считает только покупки и возвраты: оплата повторяет уже
// учтённые бутылки, а быстрые покупки ни к кому не привязаны.
// При равенстве выше тот, чьё имя раньше по алфавиту.
func (r *Repository) Leaderboard(ctx context.Context, from, to *time.Time, limit int) ([]*LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.name, SUM(t.beverage_units) AS total
		FROM transactions t
		JOIN people p ON p.id = t.person_id
		WHERE t.kind IN ('purchase', 'return')
		  AND ($1::timestamptz IS NULL OR t.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR t.created_at < $2)
		GROUP BY p.id, p.name
		HAVING SUM(t.beverage_units) > 0
		ORDER BY total DESC, p.name ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, postgres.WrapError("таблица лидеров", err)
	}
	defer rows.Close()

	entries := make([]*LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.TotalBeverages); err != nil {
			return nil, postgres.WrapError("чтение таблицы лидеров", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError("таблица лидеров", err)
	}
	return entries, nil
}

// TypeDistribution группирует записи с указанным напитком.
// Общее число берётся из того же запроса, что и группы, чтобы проценты
// не разъехались при параллельной записи.
func (r *Repository) TypeDistribution(ctx context.Context) ([]*TypeCount, int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT beverage_type, COUNT(*) AS cnt, (SELECT COUNT(*) FROM transactions) AS total
		FROM transactions
		WHERE beverage_type IS NOT NULL
		GROUP BY beverage_type
		ORDER BY cnt DESC, beverage_type ASC
	`)
	if err != nil {
		return nil, 0, postgres.WrapError("распределение напитков", err)
	}
	defer rows.Close()

	var total int64
	counts := make([]*TypeCount, 0)
	for rows.Next() {
		var c TypeCount
		if err := rows.Scan(&c.BeverageType, &c.Count, &total); err != nil {
			return nil, 0, postgres.WrapError("чтение распределения", err)
		}
		counts = append(counts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.WrapError("распределение напитков", err)
	}
	if len(counts) > 0 {
		return counts, total, nil
	}

	// Групп нет: общее число всё равно нужно вызывающему
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, postgres.WrapError("подсчёт журнала", err)
	}
	return counts, total, nil
}
