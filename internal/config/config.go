// Package config loads environment-driven settings for both binaries.
// Defaults let everything run locally against the devstack without setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the tunables of the rider client and the devstack.
type Config struct {
	// Client side.
	APIBaseURL     string
	BrokerURL      string
	SessionToken   string
	RouteStatePath string
	ChatPageSize   int

	// Devstack side.
	HTTPAddr      string
	PGDSN         string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	MatchWindow   time.Duration

	LogLevel string
}

func defaults() Config {
	return Config{
		APIBaseURL:   "http://localhost:8080",
		BrokerURL:    "ws://localhost:8080/connection/websocket",
		ChatPageSize: 50,
		HTTPAddr:     ":8080",
		PGDSN:        "host=localhost user=user password=password dbname=hopalong port=5432 sslmode=disable",
		JWTSecret:    "dev-only-secret",
		MatchWindow:  3 * time.Hour,
		LogLevel:     "info",
	}
}

// Load reads the configuration from the environment on top of defaults.
func Load() (Config, error) {
	cfg := defaults()
	var errs []error

	setString(&cfg.APIBaseURL, "HOPALONG_API_URL")
	setString(&cfg.BrokerURL, "HOPALONG_BROKER_URL")
	cfg.SessionToken = os.Getenv("HOPALONG_TOKEN")
	cfg.RouteStatePath = os.Getenv("HOPALONG_ROUTE_STATE")
	setInt(&cfg.ChatPageSize, "HOPALONG_CHAT_PAGE_SIZE", &errs)

	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.PGDSN, "PG_DSN")
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setDuration(&cfg.MatchWindow, "MATCH_WINDOW", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.ChatPageSize <= 0 {
		errs = append(errs, fmt.Errorf("HOPALONG_CHAT_PAGE_SIZE must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setString(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setInt(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setDuration(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}
