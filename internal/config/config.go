package config

import (
	"log"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config - конфигурация сервиса, читается из переменных окружения.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	UserRepo     string `env:"POSTGRES_USER" env-default:"postgres"`
	PasswordRepo string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	HostRepo     string `env:"POSTGRES_HOST" env-default:"localhost"`
	PortRepo     string `env:"POSTGRES_PORT" env-default:"5432"`
	DBName       string `env:"POSTGRES_DB" env-default:"econet"`
	SSLMode      string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// MustLoad читает .env (если есть) и переменные окружения, падает при ошибке.
func MustLoad() *Config {
	// .env нужен только для локального запуска
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	return &cfg
}
