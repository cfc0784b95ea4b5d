// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
// Передаётся в конструкторы сервисов явно, глобального состояния нет.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Основной чат; 0 — бот отвечает в любой группе
	MainChatID int64 `envconfig:"MAIN_CHAT_ID" default:"0"`
	// Куда объявлять передачу золотого жетона; 0 — в чат, где его передали
	GoldenChatID int64 `envconfig:"GOLDEN_CHAT_ID" default:"0"`
	// Сколько апдейтов обрабатываем параллельно
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Storage ---
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"recognition"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`
	// Ограничение на один вызов хранилища
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// --- Recognition ---
	RecognizeTrigger    string    `envconfig:"RECOGNIZE_TRIGGER" default:"🤜"`
	GoldenTrigger       string    `envconfig:"GOLDEN_TRIGGER" default:"🏆"`
	GoldMultiplier      int64     `envconfig:"GOLD_MULTIPLIER" default:"25"`
	GoldenInitialHolder int64     `envconfig:"GOLDEN_INITIAL_HOLDER" default:"0"`
	GoldenBootstrapAt   time.Time `envconfig:"GOLDEN_BOOTSTRAP_AT" default:"2024-01-01T00:00:00Z"`
	DailyLimit          int       `envconfig:"DAILY_LIMIT" default:"5"`
	DailyLimitExemptRaw string    `envconfig:"DAILY_LIMIT_EXEMPT"`
	DailyLimitExempt    []int64   `ignored:"true"`
	MinMessageLength    int       `envconfig:"MIN_MESSAGE_LENGTH" default:"20"`
	LeaderboardSize     int       `envconfig:"LEADERBOARD_SIZE" default:"10"`

	// --- Admin ---
	AdminIDsRaw       string        `envconfig:"ADMIN_IDS"`
	AdminIDs          []int64       `ignored:"true"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	AdminSessionTTL   time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"24h"`

	// --- Reports ---
	ReportChatIDsRaw string  `envconfig:"REPORT_CHAT_IDS"`
	ReportChatIDs    []int64 `ignored:"true"`
	ReportDays       int     `envconfig:"REPORT_DAYS" default:"7"`
	ReportCron       string  `envconfig:"REPORT_CRON" default:"0 9 * * 1"`

	// --- Backup ---
	BackupCron       string `envconfig:"BACKUP_CRON" default:"0 3 * * *"`
	BackupS3Bucket   string `envconfig:"BACKUP_S3_BUCKET"`
	BackupS3Prefix   string `envconfig:"BACKUP_S3_PREFIX" default:"recognition/"`
	BackupS3Region   string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	BackupS3Endpoint string `envconfig:"BACKUP_S3_ENDPOINT"`

	// --- Events ---
	NATSURL string `envconfig:"NATS_URL"`

	// --- Rewards ---
	RewardsFile string `envconfig:"REWARDS_FILE"`

	// --- Rate Limiting ---
	RateLimitPerSec float64 `envconfig:"RATE_LIMIT_PER_SEC" default:"1"`
	RateLimitBurst  int     `envconfig:"RATE_LIMIT_BURST" default:"5"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает часовой пояс приложения.
// Validate гарантирует, что он загружается.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin проверяет, входит ли пользователь в ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	return containsID(c.AdminIDs, userID)
}

// IsLimitExempt проверяет, освобождён ли пользователь от дневного лимита.
func (c *Config) IsLimitExempt(userID int64) bool {
	return containsID(c.DailyLimitExempt, userID)
}

func (c *Config) Validate() error {
	if c.StorageDriver != DriverPostgres && c.StorageDriver != DriverMemory {
		return fmt.Errorf("STORAGE_DRIVER должен быть %q или %q", DriverPostgres, DriverMemory)
	}
	if c.StorageDriver == DriverPostgres {
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil || c.AppTimezone == "" {
		return fmt.Errorf("APP_TIMEZONE: неизвестный часовой пояс %q", c.AppTimezone)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT должен быть > 0")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.GoldMultiplier <= 0 {
		return fmt.Errorf("GOLD_MULTIPLIER должен быть > 0")
	}
	if c.DailyLimit < 0 || c.MinMessageLength < 0 {
		return fmt.Errorf("DAILY_LIMIT и MIN_MESSAGE_LENGTH не могут быть отрицательными")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть > 0")
	}
	if c.RateLimitPerSec <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC и RATE_LIMIT_BURST должны быть > 0")
	}
	if strings.TrimSpace(c.RecognizeTrigger) == "" || strings.TrimSpace(c.GoldenTrigger) == "" {
		return fmt.Errorf("RECOGNIZE_TRIGGER и GOLDEN_TRIGGER не могут быть пустыми")
	}
	return nil
}

// ValidateBot — дополнительные проверки для запуска Telegram-бота.
func (c *Config) ValidateBot() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	lists := []struct {
		name string
		raw  string
		dst  *[]int64
	}{
		{"ADMIN_IDS", cfg.AdminIDsRaw, &cfg.AdminIDs},
		{"DAILY_LIMIT_EXEMPT", cfg.DailyLimitExemptRaw, &cfg.DailyLimitExempt},
		{"REPORT_CHAT_IDS", cfg.ReportChatIDsRaw, &cfg.ReportChatIDs},
	}
	for _, l := range lists {
		ids, err := parseInt64CSV(l.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", l.name, err)
		}
		*l.dst = ids
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
