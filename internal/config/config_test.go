package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORAGE_DRIVER", "KAFKA_BROKERS", "REDIS_ADDR", "TOKEN_TTL_HOURS", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != DriverPostgres {
		t.Fatalf("unexpected driver %q", cfg.StorageDriver)
	}
	if cfg.TokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.TokenTTL)
	}
	if len(cfg.KafkaBrokers) != 0 || cfg.RedisAddr != "" {
		t.Fatalf("expected kafka and redis disabled, got %v %q", cfg.KafkaBrokers, cfg.RedisAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("TOKEN_TTL_HOURS", "not-a-number")

	cfg := FromEnv()

	if cfg.StorageDriver != DriverMemory {
		t.Fatalf("unexpected driver %q", cfg.StorageDriver)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
	if cfg.TokenTTL != 30*24*time.Hour {
		t.Fatalf("expected fallback token ttl, got %v", cfg.TokenTTL)
	}
}
