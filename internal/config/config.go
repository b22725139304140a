// Package config предоставляет структуры и функции для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Access                  `yaml:"access"`
	Billing                 `yaml:"billing"`
	TrialSweeper            `yaml:"trial_sweeper"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"20"`
	RateBurst   int           `yaml:"rate_burst" env-default:"40"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки подключения к брокеру сообщений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Access настройки контроля доступа к Pro-функциям.
//
// CacheDriver выбирает хранилище кеша решений: "redis" (общий для всех инстансов)
// или "memory" (локальный LRU, только для одного инстанса).
type Access struct {
	CacheDriver        string        `yaml:"cache_driver" env:"ACCESS_CACHE_DRIVER" env-default:"redis"`
	MemoryCacheSize    int           `yaml:"memory_cache_size" env-default:"10000"`
	RoleCacheTTL       time.Duration `yaml:"role_cache_ttl" env-default:"5m"`
	DecisionCacheTTL   time.Duration `yaml:"decision_cache_ttl" env-default:"5m"`
	FeaturesAccountant []string      `yaml:"pro_features_accountant"`
	FeaturesMember     []string      `yaml:"pro_features_member"`
}

// Billing настройки приёма вебхуков биллинга.
type Billing struct {
	WebhookSecret string `yaml:"webhook_secret" env:"BILLING_WEBHOOK_SECRET"`
}

// TrialSweeper расписание проверки истёкших пробных периодов (cron-выражение).
// Lookback задаёт, насколько далеко в прошлое смотрит первый запуск после старта.
type TrialSweeper struct {
	Schedule string        `yaml:"schedule" env-default:"@every 1m"`
	Lookback time.Duration `yaml:"lookback" env-default:"1h"`
}

// MustLoad функция для загрузки конфига из файла CONFIG_PATH. Завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.CacheDriver != "redis" && cfg.CacheDriver != "memory" {
		return nil, fmt.Errorf("%s: unknown cache driver %q", op, cfg.CacheDriver)
	}
	return &cfg, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Access:\n"+
			"  CacheDriver: %s\n"+
			"  RoleCacheTTL: %s\n"+
			"  DecisionCacheTTL: %s\n"+
			"  FeaturesAccountant: %v\n"+
			"  FeaturesMember: %v\n"+
			"TrialSweeper:\n"+
			"  Schedule: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.MaxRetries,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.CacheDriver,
		c.RoleCacheTTL,
		c.DecisionCacheTTL,
		c.FeaturesAccountant,
		c.FeaturesMember,
		c.Schedule,
	)
}
