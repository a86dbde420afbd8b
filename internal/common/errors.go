// Package common — errors.go определяет ошибки, которые используются во всех
// модулях сервиса. Типы ошибок позволяют HTTP-слою различать проблемы
// и отвечать клиенту понятным статусом.
package common

import (
	"errors"
	"fmt"
)

// Общие ошибки
var (
	// ErrUnauthorized — ключ доступа отсутствует или не выдавался
	ErrUnauthorized = errors.New("нет доступа: неверный или отсутствующий ключ")
	// ErrNotFound — базовая ошибка «не найдено», на неё указывает NotFoundError
	ErrNotFound = errors.New("не найдено")
	// ErrValidation — базовая ошибка валидации, на неё указывает ValidationError
	ErrValidation = errors.New("некорректный запрос")
	// ErrStore — базовая ошибка хранилища, на неё указывает StoreError
	ErrStore = errors.New("ошибка хранилища")
)

// Ошибки учёта напитков
var (
	// ErrNegativeBalance — возврат больше, чем человек должен
	ErrNegativeBalance = errors.New("возврат превышает текущий долг")
	// ErrOutstandingBalance — нельзя удалить человека с непогашенным долгом
	ErrOutstandingBalance = errors.New("у человека есть непогашенный долг")
)

// ValidationError — ошибка входных данных с указанием поля.
type ValidationError struct {
	Field   string // Поле запроса (name, delta_units, id, ...)
	Message string // Что не так, пригодно для показа клиенту
	Err     error  // Необязательная причина (ErrNegativeBalance и т.п.)
}

// NewValidationError создаёт ошибку валидации для поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is позволяет проверять errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError — операция адресует несуществующую запись.
type NotFoundError struct {
	Entity string // person, transaction
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s с id=%d не найден", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError — сбой БД: соединение, ограничение, сериализация.
// Клиенту показывается только общий текст, причина уходит в лог.
type StoreError struct {
	Op        string // Что делали («начало транзакции», «запись транзакции», ...)
	Err       error  // Исходная ошибка pgx
	Retryable bool   // Можно ли повторить запрос
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRetryable сообщает, стоит ли вызывающей стороне повторить операцию.
func IsRetryable(err error) bool {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Retryable
	}
	return false
}
