package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort   string
	CorsOrigins  []string
	GeminiApiKey string
	ModelName    string

	PgHost     string
	PgPort     string
	PgUser     string
	PgPassword string
	PgName     string
}

// NewConfig читает конфигурацию из .env файла и переменных окружения
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5641")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-exp")
	v.SetDefault("PG_PORT", "5432")

	if err := v.ReadInConfig(); err != nil {
		// .env не обязателен, конфигурация может прийти целиком из окружения
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:   v.GetString("SERVER_PORT"),
		CorsOrigins:  strings.Split(v.GetString("CORS_ORIGINS"), ","),
		GeminiApiKey: v.GetString("GEMINI_API_KEY"),
		ModelName:    v.GetString("GEMINI_MODEL"),
		PgHost:       v.GetString("PG_HOST"),
		PgPort:       v.GetString("PG_PORT"),
		PgUser:       v.GetString("PG_USER"),
		PgPassword:   v.GetString("PG_PASSWORD"),
		PgName:       v.GetString("PG_NAME"),
	}

	if cfg.PgHost == "" || cfg.PgUser == "" || cfg.PgName == "" {
		return nil, fmt.Errorf("database configuration is incomplete: PG_HOST, PG_USER and PG_NAME are required")
	}

	return cfg, nil
}
