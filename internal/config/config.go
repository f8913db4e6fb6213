package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env            string
	ListenAddr     string
	DatabaseURL    string
	RedisAddr      string
	ScannerAPIURL  string
	ScannerAPIKey  string
	ScanWorkers    int
	ScanTimeout    time.Duration
	ScanRatePerSec float64
	MinBenchmark   int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (Config, error) {
	// Best effort; a missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	cfg := Config{
		Env:            getenv("APP_ENV", "development"),
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ScannerAPIURL:  os.Getenv("SCANNER_API_URL"),
		ScannerAPIKey:  os.Getenv("SCANNER_API_KEY"),
		ScanWorkers:    getenvInt("SCAN_WORKERS", 2),
		ScanTimeout:    getenvDuration("SCAN_TIMEOUT", 3*time.Minute),
		ScanRatePerSec: getenvFloat("SCAN_RATE_PER_SEC", 1),
		MinBenchmark:   getenvInt("BENCHMARK_MIN_SAMPLES", 10),
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		var out float64
		_, err := fmt.Sscanf(v, "%g", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
