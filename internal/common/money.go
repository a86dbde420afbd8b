// Package common — money.go описывает денежные суммы.
// Суммы хранятся в минимальных единицах (эре/копейках), чтобы
// |units| * unitPrice считался точно, без плавающей точки.
package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money — сумма в сотых долях валюты. 1050 = 10.50.
type Money int64

// Пределы цены и долга: при них |units| * цена помещается в int64
// с запасом на суммы по всем должникам.
const (
	MaxUnitPrice    Money = 100_000_00 // 100 000.00
	MaxBalanceUnits int64 = 1_000_000_000
)

// ParseMoney разбирает десятичную строку: "10", "2.5", "2,50".
// Отрицательные суммы и больше двух знаков после запятой запрещены.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("пустая сумма")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("сумма не может быть отрицательной: %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("некорректная дробная часть: %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректная сумма %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("некорректная сумма %q", s)
	}
	if w < 0 || w > (math.MaxInt64-f)/100 {
		return 0, fmt.Errorf("сумма вне допустимого диапазона: %q", s)
	}
	return Money(w*100 + f), nil
}

// Decode реализует envconfig.Decoder для LEDGER_UNIT_PRICE.
func (m *Money) Decode(value string) error {
	parsed, err := ParseMoney(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ForUnits возвращает |units| * m.
func (m Money) ForUnits(units int64) Money {
	if units < 0 {
		units = -units
	}
	return Money(units) * m
}

// String форматирует сумму как "20.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON отдаёт сумму JSON-числом с двумя знаками: 20.00
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON принимает число или строку.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decode(strings.Trim(string(data), `"`))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// FormatMoney форматирует сумму для сообщений: "1 250.00 kr"
func FormatMoney(m Money, currency string) string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%s.%02d %s", sign, FormatNumber(v/100), v%100, currency)
}
