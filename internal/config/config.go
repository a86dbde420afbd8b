// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// а godotenv подхватывает локальный .env, если он есть.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"serotonyl.ru/brusliste/internal/common"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker дефолт "postgres" (имя сервиса в docker-compose), для локалки DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"brusliste"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"brusliste"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`
	// Таймаут установки соединения; по нему неудачный запрос получает StoreError
	DBConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Oslo"`

	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":3001"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSAllowedOrigin   string        `envconfig:"CORS_ALLOWED_ORIGIN" default:"https://brusliste.vercel.app"`

	// --- Ledger ---
	// Цена одной бутылки. Исторически была и 2, и 10 — поэтому только через конфиг.
	LedgerUnitPrice common.Money `envconfig:"LEDGER_UNIT_PRICE" default:"10"`
	LedgerCurrency  string       `envconfig:"LEDGER_CURRENCY" default:"kr"`
	LeaderboardSize int          `envconfig:"LEADERBOARD_SIZE" default:"5"`

	// --- Access ---
	// Argon2id-хеш пароля для выдачи ключей. Пустой — выдача открыта (как раньше).
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Rate Limiting (выдача ключей) ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"5"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`

	// --- Jobs ---
	JobsDebtorReminderCron string `envconfig:"JOBS_DEBTOR_REMINDER_CRON" default:"0 12 * * MON"`
	JobsMonthlyReportCron  string `envconfig:"JOBS_MONTHLY_REPORT_CRON" default:"0 10 1 * *"`

	// --- Feature Flags ---
	FeatureTelegramEnabled bool `envconfig:"FEATURE_TELEGRAM_ENABLED" default:"false"`
	FeatureJobsEnabled     bool `envconfig:"FEATURE_JOBS_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsProduction — запущены ли мы в проде (gin release mode, меньше логов).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.LedgerUnitPrice <= 0 || c.LedgerUnitPrice > common.MaxUnitPrice {
		return fmt.Errorf("LEDGER_UNIT_PRICE должен быть в диапазоне (0, %s]", common.MaxUnitPrice)
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	if c.FeatureTelegramEnabled && (c.TelegramBotToken == "" || c.TelegramChatID == 0) {
		return fmt.Errorf("FEATURE_TELEGRAM_ENABLED требует TELEGRAM_BOT_TOKEN и TELEGRAM_CHAT_ID")
	}
	if c.AdminPasswordHash != "" && !strings.HasPrefix(c.AdminPasswordHash, "$argon2id$") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH должен быть в формате argon2id")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения, заполняет Config.
func Load() (*Config, error) {
	// .env не обязателен: в Docker всё приходит через окружение
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
