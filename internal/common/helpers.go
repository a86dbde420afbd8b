// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: плюрализация, работа со временем и часовым поясом.
package common

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// PluralizeBottles возвращает правильную форму слова «бутылка» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "бутылка" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "бутылки" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "бутылок" (0, 5-20, 25-30, 100, ...)
func PluralizeBottles(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "бутылка"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "бутылки"
	}
	return "бутылок"
}

// LoadLocation загружает часовой пояс по имени.
// Если tzdata недоступна — откатываемся на UTC, чтобы сервис всё равно стартовал.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить часовой пояс %s, используем UTC", name)
		return time.UTC
	}
	return loc
}

// MonthStart возвращает полночь первого дня месяца, в котором лежит t (в поясе loc).
func MonthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// MonthRange возвращает полуинтервал [начало месяца, начало следующего месяца).
func MonthRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := MonthStart(t, loc)
	return start, start.AddDate(0, 1, 0)
}
