package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseString reads a string environment variable with a default.
func ParseString(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return defaultVal
}

// ParseBool reads a boolean environment variable with a default.
// Accepts the forms strconv.ParseBool accepts.
func ParseBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// ParseInt reads an integer environment variable with a default.
func ParseInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// ParseFloat reads a float environment variable with a default.
func ParseFloat(key string, defaultVal float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// ParseDuration reads a duration environment variable with a default.
func ParseDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// SplitCSVNonEmpty splits a comma separated value, dropping empty entries.
func SplitCSVNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
