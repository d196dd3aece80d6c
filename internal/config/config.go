package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config хранит настройки сервиса, прочитанные из окружения.
type Config struct {
	ServerAddress string
	PostgresConn  string
	LogLevel      string
}

// Load читает .env (если есть) и переменные окружения.
// POSTGRES_CONN обязателен, остальные поля имеют значения по умолчанию.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServerAddress: getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
		PostgresConn:  os.Getenv("POSTGRES_CONN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
	if cfg.PostgresConn == "" {
		return cfg, errors.New("POSTGRES_CONN env variable is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
