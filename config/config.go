package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is loaded from the environment, optionally seeded from a
// .env file.
type Config struct {
	// Postgres DSN. Empty means no postgres; SQLitePath is tried
	// next, and an in-memory store is the final fallback.
	DatabaseURL string
	SQLitePath  string

	// Static bearer token the cron trigger endpoint requires.
	CronSecret string

	Port      int
	ChunkSize int

	// Empty disables the prometheus endpoint.
	MetricsAddr string

	// Empty disables run summary publishing.
	NATSURL     string
	NATSSubject string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		CronSecret:  os.Getenv("CRON_SECRET"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: getenvDefault("NATS_SUBJECT", "busmetrics.rollup.daily"),
	}

	if cfg.DatabaseURL == "" {
		host := os.Getenv("PGHOST")
		if host != "" {
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			db := os.Getenv("PGDATABASE")
			if db == "" {
				return nil, fmt.Errorf("PGDATABASE must be set when PGHOST is set")
			}
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", user, host, port, db, sslmode)
			}
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Port = port
	} else {
		cfg.Port = 8080
	}

	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid CHUNK_SIZE: %q", v)
		}
		cfg.ChunkSize = size
	} else {
		cfg.ChunkSize = 5000
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
