package main

import (
	"fmt"
	"os"
	"time"

	"codearena/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings. Write timeout is generous:
// one batch can mean many LLM and model calls.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// AuthConfig holds the accepted credentials.
type AuthConfig struct {
	JWTSecret      string `yaml:"jwtSecret"`
	InternalAPIKey string `yaml:"internalApiKey"`
}

// NormalizerConfig configures the LLM code normalizer. Empty endpoint
// disables normalization (raw code is embedded).
type NormalizerConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	Model    string `yaml:"model"`
}

// EmbedderConfig configures the embedding model and cache.
type EmbedderConfig struct {
	ModelPath     string  `yaml:"modelPath"`
	TokenizerPath string  `yaml:"tokenizerPath"`
	CachePath     string  `yaml:"cachePath"`
	Threshold     float32 `yaml:"threshold"`
}

// AppConfig holds the check service configuration.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Logger     logger.Config    `yaml:"logger"`
	Auth       AuthConfig       `yaml:"auth"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
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

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Auth.JWTSecret == "" && cfg.Auth.InternalAPIKey == "" {
		return nil, fmt.Errorf("auth.jwtSecret or auth.internalApiKey is required")
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("INTERNAL_API_KEY"); v != "" {
		cfg.Auth.InternalAPIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.Normalizer.APIKey = v
	}
}
