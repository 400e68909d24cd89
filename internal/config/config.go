package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clinic_booking_bot/pkg/errors"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Server    ServerConfig    `json:"server"`
	Ledger    LedgerConfig    `json:"ledger"`
	Extractor ExtractorConfig `json:"extractor"`
	Sessions  SessionsConfig  `json:"sessions"`
	Clinic    ClinicConfig    `json:"clinic"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Log       LogConfig       `json:"log"`
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	Token       string `json:"token"`
	WebhookURL  string `json:"webhook_url"`
	SecretToken string `json:"secret_token"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	RateLimitRPM int           `json:"rate_limit_rpm"`
}

// LedgerConfig содержит настройки хранилища журнала записей
type LedgerConfig struct {
	Driver string `json:"driver"`
	Path   string `json:"path"`
}

// ExtractorConfig содержит настройки извлечения полей из текста
type ExtractorConfig struct {
	Provider string        `json:"provider"`
	APIKey   string        `json:"-"`
	Model    string        `json:"model"`
	Timeout  time.Duration `json:"timeout"`
}

// SessionsConfig содержит настройки хранилища диалогов
type SessionsConfig struct {
	Backend       string        `json:"backend"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
	TTL           time.Duration `json:"ttl"`
}

// ClinicConfig содержит сведения о клинике
type ClinicConfig struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// ScheduleConfig содержит настройки напоминаний
type ScheduleConfig struct {
	ReminderMins int `json:"reminder_mins"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

const (
	LedgerCSV    = "csv"
	LedgerSQLite = "sqlite"

	ExtractorRules  = "rules"
	ExtractorGemini = "gemini"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"SERVER_READ_TIMEOUT":  "30s",
	"SERVER_WRITE_TIMEOUT": "30s",
	"SERVER_IDLE_TIMEOUT":  "120s",
	"RATE_LIMIT_RPM":       60,
	"LEDGER_DRIVER":        LedgerCSV,
	"LEDGER_PATH":          "bookings.csv",
	"EXTRACTOR_PROVIDER":   ExtractorRules,
	"GEMINI_MODEL":         "gemini-2.5-flash",
	"EXTRACTOR_TIMEOUT":    "15s",
	"SESSION_BACKEND":      SessionsMemory,
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_DB":             0,
	"SESSION_TTL":          "30m",
	"CLINIC_NAME":          "BrightSmile Dental Clinic",
	"CLINIC_TIMEZONE":      "Local",
	"REMINDER_MINS":        60,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
}

var envKeys = []string{
	"TELEGRAM_TOKEN", "WEBHOOK_URL", "TELEGRAM_SECRET_TOKEN",
	"GEMINI_API_KEY", "REDIS_PASSWORD",
}

// Load загружает конфигурацию: файл .env (если есть), затем переменные
// окружения поверх значений по умолчанию
func Load() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, errors.ErrConfigurationInvalid.WithError(fmt.Errorf("config validation failed: %w", err))
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:       v.GetString("TELEGRAM_TOKEN"),
			WebhookURL:  v.GetString("WEBHOOK_URL"),
			SecretToken: v.GetString("TELEGRAM_SECRET_TOKEN"),
		},
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
			RateLimitRPM: v.GetInt("RATE_LIMIT_RPM"),
		},
		Ledger: LedgerConfig{
			Driver: strings.ToLower(v.GetString("LEDGER_DRIVER")),
			Path:   v.GetString("LEDGER_PATH"),
		},
		Extractor: ExtractorConfig{
			Provider: strings.ToLower(v.GetString("EXTRACTOR_PROVIDER")),
			APIKey:   v.GetString("GEMINI_API_KEY"),
			Model:    v.GetString("GEMINI_MODEL"),
			Timeout:  v.GetDuration("EXTRACTOR_TIMEOUT"),
		},
		Sessions: SessionsConfig{
			Backend:       strings.ToLower(v.GetString("SESSION_BACKEND")),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTL:           v.GetDuration("SESSION_TTL"),
		},
		Clinic: ClinicConfig{
			Name:     v.GetString("CLINIC_NAME"),
			Timezone: v.GetString("CLINIC_TIMEZONE"),
		},
		Schedule: ScheduleConfig{
			ReminderMins: v.GetInt("REMINDER_MINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate проверяет корректность конфигурации, общую для всех режимов
func (c *Config) Validate() error {
	switch c.Ledger.Driver {
	case LedgerCSV, LedgerSQLite:
	default:
		return fmt.Errorf("LEDGER_DRIVER must be %q or %q, got %q", LedgerCSV, LedgerSQLite, c.Ledger.Driver)
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return fmt.Errorf("LEDGER_PATH is required")
	}

	switch c.Extractor.Provider {
	case ExtractorRules:
	case ExtractorGemini:
		if c.Extractor.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when EXTRACTOR_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("EXTRACTOR_PROVIDER must be %q or %q, got %q", ExtractorRules, ExtractorGemini, c.Extractor.Provider)
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("EXTRACTOR_TIMEOUT must be positive")
	}

	switch c.Sessions.Backend {
	case SessionsMemory:
	case SessionsRedis:
		if c.Sessions.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionsMemory, SessionsRedis, c.Sessions.Backend)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	if c.Schedule.ReminderMins < 0 {
		return fmt.Errorf("REMINDER_MINS must be non-negative")
	}
	if c.Server.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be non-negative")
	}

	return nil
}

// ValidateServe дополнительно проверяет настройки Telegram для режима serve
func (c *Config) ValidateServe() error {
	if c.Telegram.Token == "" {
		return errors.ErrConfigurationInvalid.WithError(fmt.Errorf("TELEGRAM_TOKEN is required"))
	}
	if c.Telegram.WebhookURL == "" {
		return errors.ErrConfigurationInvalid.WithError(fmt.Errorf("WEBHOOK_URL is required"))
	}
	return nil
}

// Location возвращает часовой пояс клиники
func (c *Config) Location() (*time.Location, error) {
	if c.Clinic.Timezone == "" || strings.EqualFold(c.Clinic.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Clinic.Timezone)
}

// ReminderLead возвращает, за сколько до приема отправлять напоминание
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.Schedule.ReminderMins) * time.Minute
}
