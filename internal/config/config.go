package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/local.yaml"

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens     `yaml:"tokens"`
	RabbitMQ   `yaml:"rabbitmq"`
	Storage    `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:3000"`
	Port        string        `env:"PORT"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   bool          `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"true"`
}

type Storage struct {
	Driver   string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	URI      string        `yaml:"uri" env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	Database string        `yaml:"database" env:"MONGODB_DATABASE" env-default:"TodoApp"`
	Timeout  time.Duration `yaml:"timeout" env:"STORAGE_TIMEOUT" env-default:"5s"`
}

// Tokens.Secret is never read from source; it must come from the file or JWT_SECRET.
type Tokens struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env:"TOKEN_TTL" env-default:"0s"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"todo_api.notices"`
}

// MustLoad reads the file named by CONFIG_PATH (or the local default) and panics on failure.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// PORT alone is enough on hosted platforms.
	if cfg.HTTPServer.Port != "" {
		cfg.HTTPServer.Address = ":" + cfg.HTTPServer.Port
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Tokens.Secret == "" {
		return errors.New("tokens.secret is required")
	}

	switch c.Storage.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Timeout <= 0 {
		return errors.New("storage.timeout must be positive")
	}

	return nil
}
