package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/custody/internal/infrastructure/config"
)

const testOwner = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", testOwner)
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.DefaultRewardRateBps != 500 {
		t.Fatalf("expected default reward rate 500 bps, got %d", cfg.DefaultRewardRateBps)
	}

	if cfg.DefaultEntryFee != "5" {
		t.Fatalf("expected default entry fee 5, got %s", cfg.DefaultEntryFee)
	}

	if cfg.KafkaTopic != "custody.events" {
		t.Fatalf("expected default kafka topic, got %s", cfg.KafkaTopic)
	}
}

func TestLoadRequiresOwner(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", "")
	os.Unsetenv("OWNER_ADDRESS")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error when owner address is missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", testOwner)
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "kafka-1:9092" {
		t.Fatalf("expected kafka brokers to be split, got %v", cfg.KafkaBrokers)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", testOwner)
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
