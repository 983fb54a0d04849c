package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()

	homeDir := filepath.Join(tempDir, "home")
	if err := os.MkdirAll(filepath.Join(homeDir, ".cipherlab"), 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	tomlPath := filepath.Join(homeDir, ".cipherlab", "config.toml")
	tomlConfig := []byte(`addr = "0.0.0.0:1111"
audit_log_path = "/var/log/cipherlab.log"
shutdown_timeout = "9s"

[caesar]
default_shift = 7

[rate_limit]
rps = 10.5
burst = 20
`)
	if err := os.WriteFile(tomlPath, tomlConfig, 0o644); err != nil {
		t.Fatalf("write toml config: %v", err)
	}

	// Provide a local YAML config overriding the TOML file.
	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	yamlConfig := []byte(`addr: 127.0.0.1:6500
cors:
  allowed_origins:
    - http://localhost:3000
des:
  padding: zero
`)
	if err := os.WriteFile(filepath.Join(workDir, "cipherlab.yml"), yamlConfig, 0o644); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	// Ensure env overrides beat file configuration.
	t.Setenv("CIPHERLAB_RATE_LIMIT_BURST", "40")
	t.Setenv("CIPHERLAB_ANALYSIS_WORKERS", "2")
	t.Setenv("CIPHERLAB_GRPC_ADDR", "")

	chdir(t, workDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Addr != "127.0.0.1:6500" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
	if cfg.AuditLogPath != "/var/log/cipherlab.log" {
		t.Fatalf("expected TOML audit log path, got %s", cfg.AuditLogPath)
	}
	if cfg.ShutdownTimeout != 9*time.Second {
		t.Fatalf("expected TOML shutdown timeout, got %s", cfg.ShutdownTimeout)
	}
	if cfg.Caesar.DefaultShift != 7 {
		t.Fatalf("expected TOML default shift, got %d", cfg.Caesar.DefaultShift)
	}
	if cfg.RateLimit.RPS != 10.5 || cfg.RateLimit.Burst != 40 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Padding() != cipher.PaddingZero {
		t.Fatalf("expected zero padding from YAML, got %s", cfg.Padding())
	}
	if cfg.Analysis.Workers != 2 {
		t.Fatalf("expected env workers override, got %d", cfg.Analysis.Workers)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("expected empty env value to disable gRPC, got %q", cfg.GRPCAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	chdir(t, tempDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := Default()
	if cfg.Addr != def.Addr || cfg.GRPCAddr != def.GRPCAddr || cfg.MaxBodyBytes != def.MaxBodyBytes {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("shutdown_timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	if err := LoadFile(&cfg, path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"shift out of range", func(c *Config) { c.Caesar.DefaultShift = 256 }},
		{"unknown padding", func(c *Config) { c.DES.Padding = "ansi" }},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }},
		{"rps without burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
