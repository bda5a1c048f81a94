package reliability

import (
	"os"
	"strconv"
	"time"
)

// ReliabilityConfig holds configuration for reliability testing
type ReliabilityConfig struct {
	Level         string        // "basic" or "stress"
	Duration      time.Duration // Test duration for stress tests
	MaxGoroutines int           // Maximum goroutines for concurrent tests
	MaxOpenSpans  int           // Open spans held at once by hierarchy tests
}

// getReliabilityConfig reads configuration from environment variables
func getReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		Level:         getEnv("SPANDUMP_RELIABILITY_LEVEL", ""),
		Duration:      parseDuration(getEnv("SPANDUMP_RELIABILITY_DURATION", "5s")),
		MaxGoroutines: parseInt(getEnv("SPANDUMP_RELIABILITY_MAX_GOROUTINES", "100"), 100),
		MaxOpenSpans:  parseInt(getEnv("SPANDUMP_RELIABILITY_MAX_OPEN_SPANS", "10000"), 10000),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses a positive integer from string with default fallback
func parseInt(s string, fallback int) int {
	if value, err := strconv.Atoi(s); err == nil && value > 0 {
		return value
	}
	return fallback
}

// parseDuration parses duration from string with default fallback
func parseDuration(s string) time.Duration {
	if duration, err := time.ParseDuration(s); err == nil {
		return duration
	}
	return 5 * time.Second
}
