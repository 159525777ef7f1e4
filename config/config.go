package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Relay     RelayConfig     `yaml:"relay"`
	ParcelBox ParcelBoxConfig `yaml:"parcelbox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RelayConfig описывает внешний tracking-relay. Пустой base_url означает
// работу на локальной fake-заглушке.
type RelayConfig struct {
	BaseURL string `yaml:"base_url"`
}

type ParcelBoxConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Константы продуктовой политики; значения по умолчанию: 300 секунд,
	// 7 дней, 3 месяца.
	StatusTTLSeconds int `yaml:"status_ttl_seconds"`
	AutoCompleteDays int `yaml:"auto_complete_days"`
	RetentionMonths  int `yaml:"retention_months"`

	RefreshConcurrency        int `yaml:"refresh_concurrency"`
	RefreshRateLimitPerMinute int `yaml:"refresh_rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
