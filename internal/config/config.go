// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	AllowedOrigins []string

	// Remote chat platform.
	CozeAPIBase  string
	CozeAPIToken string

	// Poll budgets: the single-agent chat flow waits longer than a debate,
	// where one slow agent would stall everyone behind it.
	ChatMaxPolls   int
	DebateMaxPolls int
	PollInterval   time.Duration

	// Streaming jobs.
	StreamJobTTL        time.Duration
	StreamSweepInterval time.Duration

	// Empty DBPath keeps sessions in memory.
	DBPath string

	// Optional JSON file overriding the built-in agent catalog.
	AgentsConfig string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "3002"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		CozeAPIBase:         getEnv("COZE_API_BASE", "https://api.coze.cn"),
		CozeAPIToken:        getEnv("COZE_API_TOKEN", ""),
		ChatMaxPolls:        getEnvInt("CHAT_MAX_POLLS", 200),
		DebateMaxPolls:      getEnvInt("DEBATE_MAX_POLLS", 100),
		PollInterval:        getEnvDuration("POLL_INTERVAL", time.Second),
		StreamJobTTL:        getEnvDuration("STREAM_JOB_TTL", 30*time.Minute),
		StreamSweepInterval: getEnvDuration("STREAM_SWEEP_INTERVAL", 5*time.Minute),
		DBPath:              getEnv("DB_PATH", ""),
		AgentsConfig:        getEnv("AGENTS_CONFIG", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.CozeAPIBase == "" {
		return fmt.Errorf("COZE_API_BASE cannot be empty")
	}
	if c.CozeAPIToken == "" {
		return fmt.Errorf("COZE_API_TOKEN is required")
	}
	if c.ChatMaxPolls <= 0 || c.DebateMaxPolls <= 0 {
		return fmt.Errorf("poll budgets must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	if c.StreamJobTTL <= 0 || c.StreamSweepInterval <= 0 {
		return fmt.Errorf("stream TTL and sweep interval must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
