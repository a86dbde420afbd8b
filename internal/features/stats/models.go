// Package stats считает статистику по журналу: лидеров по выпитому
// за месяц и за всё время и доли напитков.
package stats

// LeaderboardEntry — строка таблицы лидеров.
type LeaderboardEntry struct {
	Name           string `json:"name"`
	TotalBeverages int64  `json:"total_beverages"`
}

// TypeShare — сколько записей журнала приходится на напиток.
type TypeShare struct {
	BeverageType string  `json:"beverage_type"`
	Count        int64   `json:"count"`
	Percentage   float64 `json:"percentage"` // От числа ВСЕХ записей журнала, 2 знака
}

// TypeCount — сырая строка группировки из БД.
type TypeCount struct {
	BeverageType string
	Count        int64
}

// Statistics — ответ GET /api/statistics.
type Statistics struct {
	CurrentMonthLeaderboard  []*LeaderboardEntry `json:"current_month_leaderboard"`
	AllTimeLeaderboard       []*LeaderboardEntry `json:"all_time_leaderboard"`
	BeverageTypeDistribution []*TypeShare        `json:"beverage_type_distribution"`
}
