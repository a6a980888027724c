package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// StorageBackend selects where the ride and driver collections live:
	// memory, file, redis or postgres.
	StorageBackend string
	StorageFile    string
	RidesKey       string
	DriversKey     string

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	PGDSN         string
	RunMigrations bool

	KafkaBrokers []string
	KafkaTopic   string

	WebhookURL string

	AssignedDelay time.Duration
	EnRouteDelay  time.Duration
	ArrivedDelay  time.Duration

	LogLevel string
}

var storageBackends = map[string]bool{"memory": true, "file": true, "redis": true, "postgres": true}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		StorageBackend:  "memory",
		StorageFile:     "rapidryde-localstorage.json",
		RidesKey:        "rapidryde-rides",
		DriversKey:      "rapidryde-driversData",
		KafkaTopic:      "ride-events",
		AssignedDelay:   4 * time.Second,
		EnRouteDelay:    4 * time.Second,
		ArrivedDelay:    3 * time.Second,
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.StorageBackend = strings.ToLower(strings.TrimSpace(v))
	}
	setStringFromEnv(&cfg.StorageFile, "STORAGE_FILE")
	setStringFromEnv(&cfg.RidesKey, "RIDES_KEY")
	setStringFromEnv(&cfg.DriversKey, "DRIVERS_KEY")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisPrefix, "REDIS_KEY_PREFIX")

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.WebhookURL, "EVENT_WEBHOOK_URL")

	setDurationFromEnv(&cfg.AssignedDelay, "LIFECYCLE_ASSIGNED_DELAY", &errs)
	setDurationFromEnv(&cfg.EnRouteDelay, "LIFECYCLE_ENROUTE_DELAY", &errs)
	setDurationFromEnv(&cfg.ArrivedDelay, "LIFECYCLE_ARRIVED_DELAY", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if !storageBackends[cfg.StorageBackend] {
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of memory, file, redis, postgres"))
	}
	if cfg.StorageBackend == "redis" && cfg.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("REDIS_ADDR is required for the redis backend"))
	}
	if cfg.StorageBackend == "postgres" && cfg.PGDSN == "" {
		errs = append(errs, fmt.Errorf("PG_DSN is required for the postgres backend"))
	}
	for key, d := range map[string]time.Duration{
		"LIFECYCLE_ASSIGNED_DELAY": cfg.AssignedDelay,
		"LIFECYCLE_ENROUTE_DELAY":  cfg.EnRouteDelay,
		"LIFECYCLE_ARRIVED_DELAY":  cfg.ArrivedDelay,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", key))
		}
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
