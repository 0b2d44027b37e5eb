package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Database struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type Config struct {
	Addr           string
	JWTSecret      string
	AllowedOrigins []string
	Store          string
	DB             Database

	QuietPeriod    time.Duration
	StatusReset    time.Duration
	IndicatorReset time.Duration
	ConfirmTimeout time.Duration

	LogLevel string
}

// Load reads .env files (a missing file is fine) and then the process
// environment. Values already present in the environment win over .env.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Addr:           env("ADDR", ":8080"),
		JWTSecret:      env("JWT_SECRET", ""),
		AllowedOrigins: splitList(env("ALLOWED_ORIGINS", "*")),
		Store:          strings.ToLower(env("STORE", StoreMemory)),
		DB: Database{
			User:     env("user", ""),
			Password: env("password", ""),
			Host:     env("host", "localhost"),
			Port:     env("port", "5432"),
			Name:     env("dbname", ""),
			SSLMode:  env("sslmode", "require"),
		},
		LogLevel: env("LOG_LEVEL", "info"),
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"AUTOSAVE_QUIET", time.Second, &cfg.QuietPeriod},
		{"STATUS_RESET", 5 * time.Second, &cfg.StatusReset},
		{"INDICATOR_RESET", 2 * time.Second, &cfg.IndicatorReset},
		{"CONFIRM_TIMEOUT", time.Minute, &cfg.ConfirmTimeout},
	}
	for _, d := range durations {
		v, err := duration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	switch cfg.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.DB.Name == "" {
			return nil, errors.New("postgres store requires dbname")
		}
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
