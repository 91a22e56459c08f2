package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Puzzle    PuzzleConfig    `mapstructure:"puzzle"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"` // debug | release | test
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IsRelease сообщает, запущен ли сервер в production-режиме
func (s ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MigrationsURL   string        `mapstructure:"migrations_url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis.
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Enabled: при false кеш и rate limiting отключены
	Enabled    bool     `mapstructure:"enabled"`
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
}

// PuzzleConfig содержит настройки выдачи ежедневной головоломки
type PuzzleConfig struct {
	// DailyCacheTTL: время жизни закешированной головоломки дня
	DailyCacheTTL time.Duration `mapstructure:"daily_cache_ttl"`
	// MaxAnswerLength ограничивает длину присылаемого ответа
	MaxAnswerLength int `mapstructure:"max_answer_length"`
}

// RateLimitConfig содержит лимиты для публичных эндпоинтов
type RateLimitConfig struct {
	SubmitPerMinute   int `mapstructure:"submit_per_minute"`
	ValidatePerMinute int `mapstructure:"validate_per_minute"`
	AuthPerMinute     int `mapstructure:"auth_per_minute"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.mode", "debug")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_url", "file://migrations")
	vip.SetDefault("database.max_open_conns", 25)
	vip.SetDefault("database.max_idle_conns", 10)
	vip.SetDefault("database.conn_max_lifetime", time.Hour)

	vip.SetDefault("redis.enabled", true)
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.addr", "localhost:6379")

	vip.SetDefault("jwt.expiration_hrs", 24)

	vip.SetDefault("puzzle.daily_cache_ttl", 5*time.Minute)
	vip.SetDefault("puzzle.max_answer_length", 100)

	vip.SetDefault("ratelimit.submit_per_minute", 10)
	vip.SetDefault("ratelimit.validate_per_minute", 30)
	vip.SetDefault("ratelimit.auth_per_minute", 5)
}

func bindEnv(vip *viper.Viper) {
	// Привязываем переменные окружения ЯВНО
	bindings := map[string]string{
		"server.port":             "SERVER_PORT",
		"server.mode":             "GIN_MODE",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.user":           "DATABASE_USER",
		"database.password":       "DATABASE_PASSWORD",
		"database.dbname":         "DATABASE_DBNAME",
		"database.sslmode":        "DATABASE_SSLMODE",
		"database.migrations_url": "DATABASE_MIGRATIONS_URL",
		"redis.enabled":           "REDIS_ENABLED",
		"redis.mode":              "REDIS_MODE",
		"redis.addrs":             "REDIS_ADDRS",
		"redis.addr":              "REDIS_ADDR",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"redis.master_name":       "REDIS_MASTER_NAME",
		"jwt.secret":              "JWT_SECRET",
		"jwt.expiration_hrs":      "JWT_EXPIRATION_HRS",
		"puzzle.daily_cache_ttl":  "PUZZLE_DAILY_CACHE_TTL",
	}
	for key, env := range bindings {
		if err := vip.BindEnv(key, env); err != nil {
			log.Printf("[Config] Не удалось привязать %s к %s: %v", env, key, err)
		}
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	setDefaults(vip)
	bindEnv(vip)

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл не обязателен: значения могут прийти из окружения и умолчаний
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				log.Printf("[Config] Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("[Config] Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cfg.Server.IsRelease() {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s (mode %s)", cfg.Server.Port, cfg.Server.Mode)
		log.Printf("Database: %s@%s:%s/%s sslmode=%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		log.Printf("Redis Enabled: %t, Mode: %s", cfg.Redis.Enabled, cfg.Redis.Mode)
		log.Printf("JWT Secret Set: %t, Expiration Hours: %d", cfg.JWT.Secret != "", cfg.JWT.ExpirationHrs)
		log.Printf("Daily cache TTL: %s", cfg.Puzzle.DailyCacheTTL)
		log.Printf("-----------------------------------------")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate проверяет обязательные параметры
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.Server.IsRelease() && c.Database.Password == "" {
		return fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
	}
	if c.Puzzle.MaxAnswerLength <= 0 {
		return fmt.Errorf("puzzle.max_answer_length must be positive")
	}
	return nil
}
