// Package stats — service.go собирает статистику и тексты отчётов.
package stats

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/config"
)

// Названия месяцев для отчётов («за март 2024»)
var monthNames = [...]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// Service считает статистику по журналу.
type Service struct {
	store Store
	loc   *time.Location   // Пояс, в котором считается «текущий месяц»
	size  int              // Размер таблиц лидеров
	now   func() time.Time // Подменяется в тестах
}

// NewService создаёт сервис статистики.
func NewService(store Store, cfg *config.Config) *Service {
	size := cfg.LeaderboardSize
	if size <= 0 {
		size = 5
	}
	return &Service{
		store: store,
		loc:   common.LoadLocation(cfg.AppTimezone),
		size:  size,
		now:   time.Now,
	}
}

// Statistics возвращает лидеров текущего месяца, лидеров за всё время
// и распределение напитков.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	month, err := s.MonthlyLeaderboard(ctx, s.now())
	if err != nil {
		return nil, err
	}

	allTime, err := s.store.Leaderboard(ctx, nil, nil, s.size)
	if err != nil {
		return nil, err
	}

	distribution, err := s.Distribution(ctx)
	if err != nil {
		return nil, err
	}

	return &Statistics{
		CurrentMonthLeaderboard:  month,
		AllTimeLeaderboard:       allTime,
		BeverageTypeDistribution: distribution,
	}, nil
}

// MonthlyLeaderboard — лидеры календарного месяца, в котором лежит month.
func (s *Service) MonthlyLeaderboard(ctx context.Context, month time.Time) ([]*LeaderboardEntry, error) {
	from, to := common.MonthRange(month, s.loc)
	return s.store.Leaderboard(ctx, &from, &to, s.size)
}

// Distribution — доли напитков от общего числа записей журнала.
// Записи без напитка в группы не попадают, но учитываются в знаменателе.
func (s *Service) Distribution(ctx context.Context) ([]*TypeShare, error) {
	counts, total, err := s.store.TypeDistribution(ctx)
	if err != nil {
		return nil, err
	}

	shares := make([]*TypeShare, 0, len(counts))
	for _, c := range counts {
		shares = append(shares, &TypeShare{
			BeverageType: c.BeverageType,
			Count:        c.Count,
			Percentage:   percentage(c.Count, total),
		})
	}
	return shares, nil
}

// MonthlyReport формирует текст итогов прошлого месяца относительно now.
// Пустая строка — в том месяце никто ничего не брал.
func (s *Service) MonthlyReport(ctx context.Context, now time.Time) (string, error) {
	prev := common.MonthStart(now, s.loc).AddDate(0, -1, 0)
	entries, err := s.MonthlyLeaderboard(ctx, prev)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Итоги за %s %d:\n\n", monthNames[prev.Month()-1], prev.Year())
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s — %d %s\n", i+1, e.Name, e.TotalBeverages, common.PluralizeBottles(e.TotalBeverages))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// percentage округляет долю до двух знаков: 1 из 3 → 33.33.
func percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*10000/float64(total)) / 100
}
