package gcp

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable.
func GetEnvInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

// GetEnvFloat reads a floating point environment variable.
func GetEnvFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

// GetEnvDuration reads a duration such as "60s" or "2m".
func GetEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}
