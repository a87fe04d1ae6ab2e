package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

type Config struct {
	AppURL                 string
	DatabaseDSN            string
	RateLimit              int
	RequestTokens          int
	RedisAddr              string
	RedisTokenKey          string
	ShutdownTimeoutSeconds int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "mturk.db"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		RequestTokens:          getEnvAsInt("REQUEST_TOKENS", 32),
		// Empty REDIS_ADDR keeps the request token pool in memory.
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisTokenKey:          getEnv("REDIS_TOKEN_KEY", "mturk_request_tokens"),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
	}

	validate(cfg)
	return cfg
}

func validate(cfg Config) {
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		log.Fatal("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.RequestTokens <= 0 {
		log.Fatal("REQUEST_TOKENS must be greater than 0")
	}
	if cfg.RedisAddr != "" && cfg.RedisTokenKey == "" {
		log.Fatal("REDIS_TOKEN_KEY must not be empty when REDIS_ADDR is set")
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}
