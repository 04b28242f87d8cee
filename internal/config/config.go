// Package config читает настройки сервиса из окружения и .env.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm/logger"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port            string
	Storage         string
	DatabaseURL     string
	LogLevel        string
	LogFormat       string
	DBLogLevel      string
	SeedDemoData    bool
	ShutdownTimeout time.Duration
}

// Load читает .env (если есть), затем переменные окружения.
// Второе значение сообщает, был ли найден .env.
func Load(envFiles ...string) (*Config, bool, error) {
	dotenvLoaded := godotenv.Load(envFiles...) == nil
	cfg, err := fromViper(newViper())
	return cfg, dotenvLoaded, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE", StorageInMemory)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("SEED_DEMO_DATA", true)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("PORT"),
		Storage:         strings.ToLower(v.GetString("STORAGE")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		DBLogLevel:      strings.ToLower(v.GetString("DB_LOG_LEVEL")),
		SeedDemoData:    v.GetBool("SEED_DEMO_DATA"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя исправить дефолтом.
func (c *Config) Validate() error {
	if c.Storage != StorageInMemory && c.Storage != StoragePostgres {
		return fmt.Errorf("invalid storage type %q: use %q or %q", c.Storage, StorageInMemory, StoragePostgres)
	}
	if c.Storage == StoragePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set for postgres storage")
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if _, err := GormLogLevel(c.DBLogLevel); err != nil {
		return err
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr - адрес для http.Server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// GormLogLevel переводит строку конфигурации в уровень логгера gorm.
func GormLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent, nil
	case "error":
		return logger.Error, nil
	case "warn", "":
		return logger.Warn, nil
	case "info":
		return logger.Info, nil
	}
	return 0, fmt.Errorf("invalid db log level %q", level)
}
