package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// ActionsCap bounds the per-session action list kept in Redis.
		ActionsCap int `yaml:"actions_cap"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Rabbit struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbit"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Embed struct {
		AllowedOrigin string `yaml:"allowed_origin"`
	} `yaml:"embed"`
	Progress struct {
		MaxAnswers int `yaml:"max_answers"`
	} `yaml:"progress"`
	Telemetry struct {
		QueueSize       int    `yaml:"queue_size"`
		MaxRetries      uint64 `yaml:"max_retries"`
		InitialInterval string `yaml:"initial_interval"`
		MaxElapsed      string `yaml:"max_elapsed"`
	} `yaml:"telemetry"`
	Client struct {
		BaseURL     string `yaml:"base_url"`
		SessionPath string `yaml:"session_path"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"client"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file yields defaults plus environment, so the CLI works without one.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Postgres.URL = getEnv("DATABASE_URL", cfg.Postgres.URL)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Rabbit.URL = getEnv("RABBITMQ_URL", cfg.Rabbit.URL)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Client.BaseURL = getEnv("SPARKLAB_URL", cfg.Client.BaseURL)
	cfg.Log.Mode = getEnv("LOG_MODE", cfg.Log.Mode)
	cfg.Progress.MaxAnswers = getEnvInt("PROGRESS_MAX_ANSWERS", cfg.Progress.MaxAnswers)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
