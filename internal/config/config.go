// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/flavioborgesnunes/loteamento-frontend-sub000/pkg/schedule"
)

type Config struct {
	APIURL        string
	Token         string
	Port          int
	CachePath     string
	LogLevel      string
	LogFormat     string
	FrameInterval time.Duration
}

// Load reads the configuration. Files named in envFiles are loaded first;
// variables already set in the environment win over file values.
func Load(envFiles ...string) *Config {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	return &Config{
		APIURL:        getEnv("LOTEAMENTO_API_URL", "http://localhost:8000/api"),
		Token:         getEnv("LOTEAMENTO_TOKEN", ""),
		Port:          getEnvAsInt("PORT", 3000),
		CachePath:     getEnv("LOTEAMENTO_CACHE", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		FrameInterval: time.Duration(getEnvAsInt("FRAME_INTERVAL_MS", int(schedule.DefaultFrameInterval/time.Millisecond))) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultVal
}
