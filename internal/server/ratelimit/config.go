package ratelimit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfig reads RATE_LIMIT_* variables. Malformed values are errors.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.Enabled, err = envBool("RATE_LIMIT_ENABLED", cfg.Enabled); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return &Config{Enabled: false}, nil
	}
	if cfg.DefaultLimit, err = envInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit); err != nil {
		return nil, err
	}
	if cfg.DefaultWindow, err = envDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = envDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval); err != nil {
		return nil, err
	}

	cfg.Whitelist = parseIPList(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST"))
	return cfg, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// parseIPList parses a comma-separated list of client addresses.
func parseIPList(list string) map[string]bool {
	out := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			out[ip] = true
		}
	}
	return out
}
