package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// ErrInvalidConfig возвращается, когда конфигурация не проходит проверку
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Database       DatabaseConfig       `toml:"database"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
	Tracing        TracingConfig        `toml:"tracing"`
	CatalogService CatalogServiceConfig `toml:"catalog_service"`
	Redis          RedisConfig          `toml:"redis"`
	Kafka          KafkaConfig          `toml:"kafka"`
	Stripe         StripeConfig         `toml:"stripe"`
	Scheduling     SchedulingConfig     `toml:"scheduling"`
	Recurrence     RecurrenceConfig     `toml:"recurrence"`
	Storage        StorageConfig        `toml:"storage"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig настройки Prometheus метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// TracingConfig настройки экспорта трейсов в OTLP
type TracingConfig struct {
	Enabled      bool    `toml:"enabled"`
	ServiceName  string  `toml:"service_name"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// CatalogServiceConfig настройки клиента каталога услуг
type CatalogServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"`
}

// RedisConfig настройки распределенной блокировки. Пустой Addr - блокировки в памяти процесса.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	LockPrefix string `toml:"lock_prefix"`
	LockTTL    int    `toml:"lock_ttl"`
	LockWait   int    `toml:"lock_wait"`
}

// KafkaConfig настройки публикации уведомлений. Пустой Brokers - уведомления только в лог.
type KafkaConfig struct {
	Brokers       string `toml:"brokers"`
	Topic         string `toml:"topic"`
	WriteTimeout  int    `toml:"write_timeout"`
	NotifyTimeout int    `toml:"notify_timeout"`
}

// StripeConfig настройки платежей. Пустой SecretKey - платежи отключены.
type StripeConfig struct {
	SecretKey        string `toml:"secret_key"`
	WebhookSecret    string `toml:"webhook_secret"`
	WebhookTolerance int    `toml:"webhook_tolerance"`
	Currency         string `toml:"currency"`
	SuccessURL       string `toml:"success_url"`
	CancelURL        string `toml:"cancel_url"`
}

// Enabled платежи настроены
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// SchedulingConfig настройки записи
type SchedulingConfig struct {
	MaxAdvanceDays int    `toml:"max_advance_days"`
	Timezone       string `toml:"timezone"`
	LockTimeout    int    `toml:"lock_timeout"`
}

// Location часовой пояс, в котором трактуются даты и время записей
func (s SchedulingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// RecurrenceConfig настройки генерации серий
type RecurrenceConfig struct {
	HorizonDays          int    `toml:"horizon_days"`
	MaxOccurrencesPerRun int    `toml:"max_occurrences_per_run"`
	MaintenanceSchedule  string `toml:"maintenance_schedule"`
	RunTimeout           int    `toml:"run_timeout"`
}

// StorageConfig выбор хранилища
type StorageConfig struct {
	Driver string `toml:"driver"`
}

// Load загружает конфигурацию из TOML файла, применяет значения по умолчанию
// и переменные окружения для секретов, затем проверяет результат
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.HTTPPort, 8080)
	setDefault(&c.Server.ReadTimeout, 10)
	setDefault(&c.Server.WriteTimeout, 10)
	setDefault(&c.Server.IdleTimeout, 60)
	setDefault(&c.Server.ShutdownTimeout, 15)

	setDefault(&c.Database.Port, 5432)
	setDefault(&c.Database.MaxOpenConns, 25)
	setDefault(&c.Database.MaxIdleConns, 5)
	setDefault(&c.Database.ConnMaxLifetime, 300)
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "smc_schedulingservice"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "smc-schedulingservice"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}

	setDefault(&c.CatalogService.Timeout, 5)

	if c.Redis.LockPrefix == "" {
		c.Redis.LockPrefix = "scheduling:lock"
	}
	setDefault(&c.Redis.LockTTL, 10)
	setDefault(&c.Redis.LockWait, 5)

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "scheduling.notifications"
	}
	setDefault(&c.Kafka.WriteTimeout, 5)
	setDefault(&c.Kafka.NotifyTimeout, 10)

	setDefault(&c.Stripe.WebhookTolerance, 300)
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "usd"
	}

	setDefault(&c.Scheduling.MaxAdvanceDays, 60)
	setDefault(&c.Scheduling.LockTimeout, 5)
	if c.Scheduling.Timezone == "" {
		c.Scheduling.Timezone = "UTC"
	}

	setDefault(&c.Recurrence.HorizonDays, 30)
	setDefault(&c.Recurrence.MaxOccurrencesPerRun, 100)
	setDefault(&c.Recurrence.RunTimeout, 600)
	if c.Recurrence.MaintenanceSchedule == "" {
		c.Recurrence.MaintenanceSchedule = "0 3 * * *"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
}

// applyEnv секреты можно не хранить в файле
func (c *Config) applyEnv() {
	setFromEnv(&c.Database.Password, "SCHEDULING_DATABASE_PASSWORD")
	setFromEnv(&c.Redis.Password, "SCHEDULING_REDIS_PASSWORD")
	setFromEnv(&c.Stripe.SecretKey, "SCHEDULING_STRIPE_SECRET_KEY")
	setFromEnv(&c.Stripe.WebhookSecret, "SCHEDULING_STRIPE_WEBHOOK_SECRET")
}

// Validate проверяет значения, без которых сервис не может стартовать
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("server.http_port %d out of range", c.Server.HTTPPort))
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres storage")
		}
	case StorageDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver %q is not one of postgres, memory", c.Storage.Driver))
	}

	if c.CatalogService.URL == "" {
		problems = append(problems, "catalog_service.url is required")
	}

	if _, err := c.Scheduling.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("scheduling.timezone: %v", err))
	}

	if c.Recurrence.HorizonDays > domain.MaxHorizonDays {
		problems = append(problems, fmt.Sprintf("recurrence.horizon_days must be at most %d", domain.MaxHorizonDays))
	}

	if _, err := cron.ParseStandard(c.Recurrence.MaintenanceSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("recurrence.maintenance_schedule: %v", err))
	}

	if c.Stripe.Enabled() && c.Stripe.WebhookSecret == "" {
		problems = append(problems, "stripe.webhook_secret is required when stripe.secret_key is set")
	}

	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		problems = append(problems, "tracing.otlp_endpoint is required when tracing is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFromEnv(v *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*v = value
	}
}
