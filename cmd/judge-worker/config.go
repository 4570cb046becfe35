package main

import (
	"fmt"
	"os"
	"time"

	"codearena/internal/common/mq"
	"codearena/internal/judge/sandbox"
	"codearena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const defaultShutdownTimeout = 10 * time.Second

// JudgeConfig holds sandbox executor settings.
type JudgeConfig struct {
	WorkRoot   string `yaml:"workRoot"`
	TimeoutSec int    `yaml:"timeoutSec"`
}

// BrokerConfig selects and configures the message queue backend.
type BrokerConfig struct {
	Backend  string            `yaml:"backend"` // rabbitmq | kafka
	RabbitMQ mq.RabbitMQConfig `yaml:"rabbitmq"`
	Kafka    mq.KafkaConfig    `yaml:"kafka"`
}

// CoreServiceConfig points at the platform core service.
type CoreServiceConfig struct {
	BaseURL        string `yaml:"baseURL"`
	InternalAPIKey string `yaml:"internalApiKey"`
}

// AppConfig holds the worker configuration.
type AppConfig struct {
	Logger logger.Config     `yaml:"logger"`
	Judge  JudgeConfig       `yaml:"judge"`
	Broker BrokerConfig      `yaml:"broker"`
	Core   CoreServiceConfig `yaml:"core"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	applyEnvOverrides(&cfg)

	if cfg.Judge.WorkRoot == "" {
		cfg.Judge.WorkRoot = sandbox.DefaultWorkRoot
	}
	if cfg.Broker.Backend == "" {
		cfg.Broker.Backend = "rabbitmq"
	}
	switch cfg.Broker.Backend {
	case "rabbitmq":
		if cfg.Broker.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("broker.rabbitmq.url is required")
		}
	case "kafka":
		if len(cfg.Broker.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("broker.kafka.brokers are required")
		}
	default:
		return nil, fmt.Errorf("unknown broker backend: %s", cfg.Broker.Backend)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.Broker.RabbitMQ.URL = v
	}
	if v := os.Getenv("CORE_SERVICE_URL"); v != "" {
		cfg.Core.BaseURL = v
	}
	if v := os.Getenv("INTERNAL_API_KEY"); v != "" {
		cfg.Core.InternalAPIKey = v
	}
}

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
