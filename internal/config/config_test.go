package config

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	for _, k := range []string{"STORAGE_BACKEND", "LIFECYCLE_ASSIGNED_DELAY", "KAFKA_BROKERS", "HTTP_ADDR"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageBackend != "memory" || cfg.AssignedDelay != 4*time.Second || cfg.ArrivedDelay != 3*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RidesKey != "rapidryde-rides" || cfg.DriversKey != "rapidryde-driversData" {
		t.Fatalf("unexpected storage keys %q %q", cfg.RidesKey, cfg.DriversKey)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LIFECYCLE_ENROUTE_DELAY", "250ms")
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StorageBackend != "redis" || cfg.EnRouteDelay != 250*time.Millisecond {
		t.Fatalf("overrides not applied %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
}

func TestLoadServerConfigErrors(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("PG_DSN", "")
	t.Setenv("LIFECYCLE_ARRIVED_DELAY", "soon")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatalf("expected errors for missing DSN and bad duration")
	}
}
