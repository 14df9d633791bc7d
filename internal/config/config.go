package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Storage  StorageConfig  `yaml:"storage"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// StorageConfig selects the durable client-state backend: "file" keeps a
// JSON snapshot on disk, "redis" keeps it in a Redis key.
type StorageConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Load reads the YAML config file and applies environment overrides. A .env
// file next to the binary is honored when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "tableside-state.json"
	}
	if cfg.Storage.Redis.Key == "" {
		cfg.Storage.Redis.Key = "tableside:state"
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.User, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.Database, "DB_NAME")

	overrideString(&cfg.RabbitMQ.Host, "RABBITMQ_HOST")
	overrideInt(&cfg.RabbitMQ.Port, "RABBITMQ_PORT")
	overrideString(&cfg.RabbitMQ.User, "RABBITMQ_USER")
	overrideString(&cfg.RabbitMQ.Password, "RABBITMQ_PASSWORD")

	overrideString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	overrideString(&cfg.Storage.Path, "STORAGE_PATH")
	overrideString(&cfg.Storage.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Storage.Redis.Password, "REDIS_PASSWORD")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
