package main

import (
	"fmt"
	"os"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/mq"
	"codearena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 40 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	MaxHeaderBytes int           `yaml:"maxHeaderBytes"`
}

// AuthConfig holds the accepted credentials.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwtSecret"`
	InternalAPIKey string `yaml:"internalApiKey"`
}

// BrokerConfig selects and configures the message queue backend.
type BrokerConfig struct {
	Backend  string            `yaml:"backend"` // rabbitmq | kafka
	RabbitMQ mq.RabbitMQConfig `yaml:"rabbitmq"`
	Kafka    mq.KafkaConfig    `yaml:"kafka"`
}

// CoreServiceConfig points at the platform core service.
type CoreServiceConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// AppConfig holds the gateway configuration.
type AppConfig struct {
	Server ServerConfig      `yaml:"server"`
	Logger logger.Config     `yaml:"logger"`
	Auth   AuthConfig        `yaml:"auth"`
	Redis  cache.RedisConfig `yaml:"redis"`
	Broker BrokerConfig      `yaml:"broker"`
	Core   CoreServiceConfig `yaml:"core"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	if cfg.Auth.JWTSecret == "" && cfg.Auth.InternalAPIKey == "" {
		return nil, fmt.Errorf("auth.jwtSecret or auth.internalApiKey is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	applyRedisDefaults(&cfg.Redis)

	if cfg.Broker.Backend == "" {
		cfg.Broker.Backend = "rabbitmq"
	}
	if err := validateBroker(&cfg.Broker); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets deployment environments override secrets and
// endpoints without touching the config file.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("INTERNAL_API_KEY"); v != "" {
		cfg.Auth.InternalAPIKey = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.Broker.RabbitMQ.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CORE_SERVICE_URL"); v != "" {
		cfg.Core.BaseURL = v
	}
}

func validateBroker(cfg *BrokerConfig) error {
	switch cfg.Backend {
	case "rabbitmq":
		if cfg.RabbitMQ.URL == "" {
			return fmt.Errorf("broker.rabbitmq.url is required")
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("broker.kafka.brokers are required")
		}
	default:
		return fmt.Errorf("unknown broker backend: %s", cfg.Backend)
	}
	return nil
}

// buildQueue creates the configured broker client.
func buildQueue(cfg *BrokerConfig) (mq.MessageQueue, error) {
	if cfg.Backend == "kafka" {
		return mq.NewKafkaQueue(cfg.Kafka)
	}
	rmq := cfg.RabbitMQ
	if rmq.Heartbeat == 0 {
		rmq = mq.DefaultRabbitMQConfig(rmq.URL)
	}
	return mq.NewRabbitMQQueue(rmq)
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
}
