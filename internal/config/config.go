package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	PublicBaseURL string           `json:"public_base_url"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Dynamo        DynamoConfig     `json:"dynamodb"`
	RateLimit     RateLimitConfig  `json:"rate_limit"`

	// GrantTTLSeconds is the lifetime of short-lived access grants; the
	// store evicts them on its own after this window.
	GrantTTLSeconds int `json:"grant_ttl_seconds"`
	// NdaGrantDays is how long an NDA access grant stays valid after
	// signing, independent of any single link's expiry.
	NdaGrantDays int `json:"nda_grant_days"`

	CORSAllowlist []string `json:"cors_allowlist"`
}

type DynamoConfig struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Table     string `json:"table"`
}

type RateLimitConfig struct {
	Requests      int `json:"requests"`
	WindowMinutes int `json:"window_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Dynamo.Table == "" {
		return nil, fmt.Errorf("dynamodb.table is required")
	}
	if cfg.Dynamo.Region == "" {
		cfg.Dynamo.Region = "us-east-1"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 60
	}
	if cfg.RateLimit.WindowMinutes == 0 {
		cfg.RateLimit.WindowMinutes = 60
	}
	if cfg.GrantTTLSeconds == 0 {
		cfg.GrantTTLSeconds = 300
	}
	if cfg.NdaGrantDays == 0 {
		cfg.NdaGrantDays = 365
	}
	return &cfg, nil
}
