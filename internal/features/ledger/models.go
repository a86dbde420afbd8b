// Package ledger ведёт учёт напитков: кто сколько бутылок должен,
// журнал покупок/возвратов/оплат и анонимные быстрые покупки.
// models.go описывает людей и записи журнала.
package ledger

import (
	"time"

	"serotonyl.ru/brusliste/internal/common"
)

// Kind — тип записи в журнале.
type Kind string

// Допустимые типы транзакций
const (
	KindPurchase Kind = "purchase" // Взял бутылки в долг (delta > 0)
	KindReturn   Kind = "return"   // Вернул бутылки (delta < 0)
	KindPayment  Kind = "payment"  // Погасил весь долг
	KindQuickBuy Kind = "quickbuy" // Анонимная покупка одной бутылки
)

// Ограничения полей (совпадают с размерами колонок в схеме)
const (
	MaxNameLength         = 255
	MaxBeverageTypeLength = 64
)

// Person — человек в списке и его текущий долг.
// Каждое имя встречается ровно один раз, регистр имеет значение.
type Person struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	OutstandingUnits int64     `db:"outstanding_units" json:"outstanding_units"` // Сколько бутылок должен (>= 0)
	BeverageType     *string   `db:"beverage_type" json:"beverage_type"`         // Любимый напиток, может быть nil
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction — неизменяемая запись журнала (кроме beverage_type).
type Transaction struct {
	ID            int64        `db:"id" json:"id"`
	PersonID      *int64       `db:"person_id" json:"person_id"`     // nil для быстрой покупки
	PersonName    *string      `db:"person_name" json:"person_name"` // Заполняется при чтении журнала
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	BeverageUnits int64        `db:"beverage_units" json:"beverage_units"` // Со знаком: возврат отрицательный
	Amount        common.Money `db:"amount" json:"amount"`                 // Всегда |units| * цена
	Kind          Kind         `db:"kind" json:"kind"`
	BeverageType  *string      `db:"beverage_type" json:"beverage_type"`
}

// kindForDelta выбирает тип записи по знаку изменения.
func kindForDelta(delta int64) Kind {
	if delta < 0 {
		return KindReturn
	}
	return KindPurchase
}
