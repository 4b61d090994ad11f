package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Cache    CacheConfig
	JWT      JWTConfig
	WhatsApp WhatsAppConfig
	Email    EmailConfig
	Reminder ReminderConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Port               string
	Env                string
	Timezone           string
	BaseURL            string
	BookingHorizonDays int
}

type DBConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	MaxIdleConns   int
	MaxOpenConns   int
	ConnectTimeout time.Duration
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig selects the availability cache backend: "redis" or "local".
type CacheConfig struct {
	Driver          string
	AvailabilityTTL time.Duration
	LocalCapacity   int
}

type JWTConfig struct {
	Secret             string
	CancellationSecret string
	AccessExpiry       time.Duration
	RefreshExpiry      time.Duration
}

type WhatsAppConfig struct {
	APIURL     string
	InstanceID string
	Token      string
}

// EmailConfig selects the provider alert transport: "sendgrid", "ses" or "stub".
type EmailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	AWSRegion      string
}

type ReminderConfig struct {
	Enabled     bool
	Interval    time.Duration
	WindowStart time.Duration
	WindowEnd   time.Duration
	Concurrency int
	CronSecret  string
}

type MetricsConfig struct {
	Enabled bool
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Containers inject the environment directly; only a malformed file is fatal.
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_TIMEZONE", "America/Argentina/Buenos_Aires")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("BOOKING_HORIZON_DAYS", 30)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("CACHE_DRIVER", "redis")
	viper.SetDefault("CACHE_LOCAL_CAPACITY", 1024)
	viper.SetDefault("WHATSAPP_API_URL", "https://api.ultramsg.com")
	viper.SetDefault("EMAIL_PROVIDER", "stub")
	viper.SetDefault("EMAIL_FROM_NAME", "Consultorio")
	viper.SetDefault("REMINDER_ENABLED", true)
	viper.SetDefault("REMINDER_CONCURRENCY", 4)
	viper.SetDefault("METRICS_ENABLED", true)

	config := &Config{
		App: AppConfig{
			Port:               viper.GetString("APP_PORT"),
			Env:                viper.GetString("APP_ENV"),
			Timezone:           viper.GetString("APP_TIMEZONE"),
			BaseURL:            viper.GetString("APP_BASE_URL"),
			BookingHorizonDays: viper.GetInt("BOOKING_HORIZON_DAYS"),
		},
		DB: DBConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetString("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			Name:           viper.GetString("DB_NAME"),
			MaxIdleConns:   viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:   viper.GetInt("DB_MAX_OPEN_CONNS"),
			ConnectTimeout: parseDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			AutoMigrate:    viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			Driver:          viper.GetString("CACHE_DRIVER"),
			AvailabilityTTL: parseDuration("CACHE_AVAILABILITY_TTL", 5*time.Minute),
			LocalCapacity:   viper.GetInt("CACHE_LOCAL_CAPACITY"),
		},
		JWT: JWTConfig{
			Secret:             viper.GetString("JWT_SECRET"),
			CancellationSecret: viper.GetString("CANCELLATION_TOKEN_SECRET"),
			AccessExpiry:       parseDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry:      parseDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:     viper.GetString("WHATSAPP_API_URL"),
			InstanceID: viper.GetString("WHATSAPP_INSTANCE_ID"),
			Token:      viper.GetString("WHATSAPP_TOKEN"),
		},
		Email: EmailConfig{
			Provider:       viper.GetString("EMAIL_PROVIDER"),
			SendGridAPIKey: viper.GetString("SENDGRID_API_KEY"),
			FromEmail:      viper.GetString("EMAIL_FROM"),
			FromName:       viper.GetString("EMAIL_FROM_NAME"),
			AWSRegion:      viper.GetString("AWS_REGION"),
		},
		Reminder: ReminderConfig{
			Enabled:     viper.GetBool("REMINDER_ENABLED"),
			Interval:    parseDuration("REMINDER_INTERVAL", 15*time.Minute),
			WindowStart: parseDuration("REMINDER_WINDOW_START", 29*time.Hour),
			WindowEnd:   parseDuration("REMINDER_WINDOW_END", 31*time.Hour),
			Concurrency: viper.GetInt("REMINDER_CONCURRENCY"),
			CronSecret:  viper.GetString("CRON_SECRET"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
		},
	}

	if config.JWT.CancellationSecret == "" {
		config.JWT.CancellationSecret = config.JWT.Secret
	}
	if config.App.BookingHorizonDays <= 0 {
		config.App.BookingHorizonDays = 30
	}

	return config, nil
}

// Location resolves the clinic timezone, falling back to UTC when unknown.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
