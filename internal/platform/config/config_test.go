package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.PoolCapacity != 7 {
		t.Errorf("expected default capacity 7, got %d", cfg.PoolCapacity)
	}
	if cfg.RebillInterval != 3*time.Second {
		t.Errorf("expected default rebill interval 3s, got %s", cfg.RebillInterval)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.DBDriver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("POOL_CAPACITY", "3")
	t.Setenv("REBILL_INTERVAL", "250ms")
	t.Setenv("BROKER_ACCOUNT_ID", "42")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := FromEnv()
	if cfg.PoolCapacity != 3 {
		t.Errorf("expected capacity 3, got %d", cfg.PoolCapacity)
	}
	if cfg.RebillInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.RebillInterval)
	}
	if cfg.BrokerAccountID != 42 {
		t.Errorf("expected broker account 42, got %d", cfg.BrokerAccountID)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("expected fallback redis db 0, got %d", cfg.RedisDB)
	}
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.yaml")
	content := `
pool_capacity: 12
central_bank_addr: bank.internal:8000
rebill_interval: 10s
db_driver: pgx
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile failed: %v", err)
	}

	if cfg.PoolCapacity != 12 {
		t.Errorf("expected capacity 12, got %d", cfg.PoolCapacity)
	}
	if cfg.CentralBankAddr != "bank.internal:8000" {
		t.Errorf("unexpected bank addr %s", cfg.CentralBankAddr)
	}
	if cfg.RebillInterval != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.RebillInterval)
	}
	if !strings.Contains(cfg.DSN(), "dbname=") {
		t.Errorf("expected a postgres DSN, got %q", cfg.DSN())
	}
	// Untouched keys keep their env values.
	if cfg.APIPort != "80" {
		t.Errorf("expected api port to stay 80, got %s", cfg.APIPort)
	}
}

func TestApplyFile_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative capacity", "pool_capacity: -1\n", "pool capacity"},
		{"bad duration", "rebill_interval: soon\n", "rebill_interval"},
		{"unknown driver", "db_driver: mysql\n", "db driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "broker.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			err := FromEnv().ApplyFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
