// Package ledger — repository.go выполняет операции с таблицами people и transactions.
// Изменения долга всегда идут внутри транзакции БД через WithinTx:
// строка человека блокируется FOR UPDATE, поэтому параллельные запросы
// по одному человеку выполняются по очереди.
package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/db/postgres"
)

// TxStore — операции, доступные только внутри транзакции.
type TxStore interface {
	// EnsurePerson создаёт человека с нулевым долгом, если имени ещё нет.
	EnsurePerson(ctx context.Context, name string, beverageType *string) error
	// LockPersonByName/LockPersonByID блокируют строку до конца транзакции.
	// Возвращают nil, nil, если человека нет.
	LockPersonByName(ctx context.Context, name string) (*Person, error)
	LockPersonByID(ctx context.Context, id int64) (*Person, error)
	// ApplyDelta прибавляет delta к долгу; beverageType == nil оставляет прежний напиток.
	ApplyDelta(ctx context.Context, id, delta int64, beverageType *string) (*Person, error)
	ZeroBalance(ctx context.Context, id int64) (*Person, error)
	InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error)
	DeletePerson(ctx context.Context, id int64) error
}

// Store — хранилище, которым пользуется Service.
type Store interface {
	// WithinTx выполняет fn атомарно: при ошибке ничего не сохраняется.
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
	ListPeople(ctx context.Context) ([]*Person, error)
	ListTransactions(ctx context.Context) ([]*Transaction, error)
	InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error)
	UpdateTransactionBeverageType(ctx context.Context, id int64, beverageType *string) (*Transaction, error)
}

// querier — общее у pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const personColumns = `id, name, outstanding_units, beverage_type, created_at, updated_at`

// Repository — реализация Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий учёта.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WithinTx открывает транзакцию и отдаёт fn репозиторий, привязанный к ней.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&txRepository{q: tx})
	})
}

// ListPeople возвращает всех людей, отсортированных по имени.
func (r *Repository) ListPeople(ctx context.Context) ([]*Person, error) {
	rows, err := r.db.Query(ctx, `SELECT `+personColumns+` FROM people ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, postgres.WrapError("чтение списка людей", err)
	}
	defer rows.Close()

	people := make([]*Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, postgres.WrapError("чтение строки человека", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError("чтение списка людей", err)
	}
	return people, nil
}

// ListTransactions возвращает журнал целиком, новые записи первыми.
// Имя человека подтягивается LEFT JOIN: у быстрых покупок его нет.
func (r *Repository) ListTransactions(ctx context.Context) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.person_id, p.name, t.created_at, t.beverage_units, t.amount, t.kind, t.beverage_type
		FROM transactions t
		LEFT JOIN people p ON p.id = t.person_id
		ORDER BY t.created_at DESC, t.id DESC
	`)
	if err != nil {
		return nil, postgres.WrapError("чтение журнала", err)
	}
	defer rows.Close()

	txs := make([]*Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, postgres.WrapError("чтение строки журнала", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.WrapError("чтение журнала", err)
	}
	return txs, nil
}

// InsertTransaction пишет запись вне транзакции (быстрая покупка).
func (r *Repository) InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error) {
	return insertTransaction(ctx, r.db, t)
}

// UpdateTransactionBeverageType меняет напиток у записи журнала.
// Больше ничего в записи не меняется.
func (r *Repository) UpdateTransactionBeverageType(ctx context.Context, id int64, beverageType *string) (*Transaction, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE transactions t
		SET beverage_type = $2
		WHERE t.id = $1
		RETURNING t.id, t.person_id, (SELECT p.name FROM people p WHERE p.id = t.person_id),
		          t.created_at, t.beverage_units, t.amount, t.kind, t.beverage_type
	`, id, beverageType)

	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &common.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return nil, postgres.WrapError("изменение напитка в журнале", err)
	}
	return t, nil
}

// txRepository — операции внутри открытой транзакции.
type txRepository struct {
	q querier
}

func (r *txRepository) EnsurePerson(ctx context.Context, name string, beverageType *string) error {
	// При гонке двух вставок одного имени вторая дождётся первой и ничего не сделает
	_, err := r.q.Exec(ctx, `
		INSERT INTO people (name, outstanding_units, beverage_type)
		VALUES ($1, 0, $2)
		ON CONFLICT (name) DO NOTHING
	`, name, beverageType)
	if err != nil {
		return postgres.WrapError("создание человека", err)
	}
	return nil
}

func (r *txRepository) LockPersonByName(ctx context.Context, name string) (*Person, error) {
	row := r.q.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE name = $1 FOR UPDATE`, name)
	return lockedPerson(row)
}

func (r *txRepository) LockPersonByID(ctx context.Context, id int64) (*Person, error) {
	row := r.q.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1 FOR UPDATE`, id)
	return lockedPerson(row)
}

func (r *txRepository) ApplyDelta(ctx context.Context, id, delta int64, beverageType *string) (*Person, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE people
		SET outstanding_units = outstanding_units + $2,
		    beverage_type = COALESCE($3, beverage_type),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns, id, delta, beverageType)

	p, err := scanPerson(row)
	if err != nil {
		return nil, postgres.WrapError("изменение долга", err)
	}
	return p, nil
}

func (r *txRepository) ZeroBalance(ctx context.Context, id int64) (*Person, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE people
		SET outstanding_units = 0, updated_at = NOW()
		WHERE id = $1
		RETURNING `+personColumns, id)

	p, err := scanPerson(row)
	if err != nil {
		return nil, postgres.WrapError("обнуление долга", err)
	}
	return p, nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error) {
	return insertTransaction(ctx, r.q, t)
}

func (r *txRepository) DeletePerson(ctx context.Context, id int64) error {
	// ON DELETE SET NULL: история остаётся, но без ссылки на человека
	tag, err := r.q.Exec(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return postgres.WrapError("удаление человека", err)
	}
	if tag.RowsAffected() == 0 {
		return &common.NotFoundError{Entity: "person", ID: id}
	}
	return nil
}

func insertTransaction(ctx context.Context, q querier, t *Transaction) (*Transaction, error) {
	saved := *t
	// Money и Kind передаём базовыми типами, чтобы pgx не кодировал их через String()
	err := q.QueryRow(ctx, `
		INSERT INTO transactions (person_id, beverage_units, amount, kind, beverage_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, t.PersonID, t.BeverageUnits, int64(t.Amount), string(t.Kind), t.BeverageType).
		Scan(&saved.ID, &saved.CreatedAt)
	if err != nil {
		return nil, postgres.WrapError("запись транзакции", err)
	}
	return &saved, nil
}

func lockedPerson(row pgx.Row) (*Person, error) {
	p, err := scanPerson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.WrapError("блокировка человека", err)
	}
	return p, nil
}

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.OutstandingUnits, &p.BeverageType, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t      Transaction
		amount int64
		kind   string
	)
	err := row.Scan(&t.ID, &t.PersonID, &t.PersonName, &t.CreatedAt, &t.BeverageUnits, &amount, &kind, &t.BeverageType)
	if err != nil {
		return nil, err
	}
	t.Amount = common.Money(amount)
	t.Kind = Kind(kind)
	return &t, nil
}
