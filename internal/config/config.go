package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/cipherlab/internal/cipher"
)

// Config captures the cipherlab configuration resolved from defaults,
// optional files, and environment overrides.
type Config struct {
	Addr            string          `yaml:"addr" toml:"addr"`
	GRPCAddr        string          `yaml:"grpc_addr" toml:"grpc_addr"`
	AuditLogPath    string          `yaml:"audit_log_path" toml:"audit_log_path"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" toml:"max_body_bytes"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors" toml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Caesar          CaesarConfig    `yaml:"caesar" toml:"caesar"`
	DES             DESConfig       `yaml:"des" toml:"des"`
	Analysis        AnalysisConfig  `yaml:"analysis" toml:"analysis"`
}

// CORSConfig lists the browser origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// RateLimitConfig bounds request throughput per server. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" toml:"rps"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// CaesarConfig holds Caesar defaults.
type CaesarConfig struct {
	DefaultShift int `yaml:"default_shift" toml:"default_shift"`
}

// DESConfig holds DES defaults.
type DESConfig struct {
	Padding string `yaml:"padding" toml:"padding"`
}

// AnalysisConfig tunes the attack endpoints. Workers 0 means GOMAXPROCS.
type AnalysisConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// Default returns the built-in cipherlab configuration.
func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8000",
		GRPCAddr:        "127.0.0.1:50051",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 5 * time.Second,
		CORS:            CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit:       RateLimitConfig{RPS: 50, Burst: 100},
		Caesar:          CaesarConfig{DefaultShift: 3},
		DES:             DESConfig{Padding: string(cipher.PaddingPKCS7)},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in this order, later ones winning:
//  1. ~/.cipherlab/config.toml (TOML)
//  2. ./cipherlab.yml (YAML)
//
// Environment variables prefixed with CIPHERLAB_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// LoadFile applies one explicit configuration file on top of cfg. The format
// follows the extension: .toml, or .yml/.yaml.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(home, ".cipherlab", "config.toml"), "toml")
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(wd, "cipherlab.yml"), "yaml")
}

func loadOptional(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// fileConfig mirrors Config with pointers so fields absent from a file keep
// the values resolved so far.
type fileConfig struct {
	Addr            *string              `yaml:"addr" toml:"addr"`
	GRPCAddr        *string              `yaml:"grpc_addr" toml:"grpc_addr"`
	AuditLogPath    *string              `yaml:"audit_log_path" toml:"audit_log_path"`
	MaxBodyBytes    *int64               `yaml:"max_body_bytes" toml:"max_body_bytes"`
	ShutdownTimeout *string              `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	CORS            *fileCORSConfig      `yaml:"cors" toml:"cors"`
	RateLimit       *fileRateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Caesar          *fileCaesarConfig    `yaml:"caesar" toml:"caesar"`
	DES             *fileDESConfig       `yaml:"des" toml:"des"`
	Analysis        *fileAnalysisConfig  `yaml:"analysis" toml:"analysis"`
}

type fileCORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

type fileRateLimitConfig struct {
	RPS   *float64 `yaml:"rps" toml:"rps"`
	Burst *int     `yaml:"burst" toml:"burst"`
}

type fileCaesarConfig struct {
	DefaultShift *int `yaml:"default_shift" toml:"default_shift"`
}

type fileDESConfig struct {
	Padding *string `yaml:"padding" toml:"padding"`
}

type fileAnalysisConfig struct {
	Workers *int `yaml:"workers" toml:"workers"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return err
		}
	case "toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if fc.Addr != nil {
		cfg.Addr = strings.TrimSpace(*fc.Addr)
	}
	if fc.GRPCAddr != nil {
		cfg.GRPCAddr = strings.TrimSpace(*fc.GRPCAddr)
	}
	if fc.AuditLogPath != nil {
		cfg.AuditLogPath = strings.TrimSpace(*fc.AuditLogPath)
	}
	if fc.MaxBodyBytes != nil {
		cfg.MaxBodyBytes = *fc.MaxBodyBytes
	}
	if fc.ShutdownTimeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*fc.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if fc.CORS != nil && fc.CORS.AllowedOrigins != nil {
		cfg.CORS.AllowedOrigins = cleanList(fc.CORS.AllowedOrigins)
	}
	if fc.RateLimit != nil {
		if fc.RateLimit.RPS != nil {
			cfg.RateLimit.RPS = *fc.RateLimit.RPS
		}
		if fc.RateLimit.Burst != nil {
			cfg.RateLimit.Burst = *fc.RateLimit.Burst
		}
	}
	if fc.Caesar != nil && fc.Caesar.DefaultShift != nil {
		cfg.Caesar.DefaultShift = *fc.Caesar.DefaultShift
	}
	if fc.DES != nil && fc.DES.Padding != nil {
		cfg.DES.Padding = strings.TrimSpace(*fc.DES.Padding)
	}
	if fc.Analysis != nil && fc.Analysis.Workers != nil {
		cfg.Analysis.Workers = *fc.Analysis.Workers
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if val := env("CIPHERLAB_ADDR"); val != "" {
		cfg.Addr = val
	}
	if val, ok := os.LookupEnv("CIPHERLAB_GRPC_ADDR"); ok {
		// An explicitly empty value disables the gRPC listener.
		cfg.GRPCAddr = strings.TrimSpace(val)
	}
	if val := env("CIPHERLAB_AUDIT_LOG"); val != "" {
		cfg.AuditLogPath = val
	}
	if val := env("CIPHERLAB_MAX_BODY_BYTES"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxBodyBytes = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_MAX_BODY_BYTES=%q: %v", val, err)
		}
	}
	if val := env("CIPHERLAB_SHUTDOWN_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.ShutdownTimeout = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_SHUTDOWN_TIMEOUT=%q: %v", val, err)
		}
	}
	if val := env("CIPHERLAB_CORS_ORIGINS"); val != "" {
		cfg.CORS.AllowedOrigins = cleanList(strings.Split(val, ","))
	}
	if val := env("CIPHERLAB_RATE_LIMIT_RPS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.RateLimit.RPS = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_RATE_LIMIT_RPS=%q: %v", val, err)
		}
	}
	if val := env("CIPHERLAB_RATE_LIMIT_BURST"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.RateLimit.Burst = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_RATE_LIMIT_BURST=%q: %v", val, err)
		}
	}
	if val := env("CIPHERLAB_CAESAR_DEFAULT_SHIFT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Caesar.DefaultShift = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_CAESAR_DEFAULT_SHIFT=%q: %v", val, err)
		}
	}
	if val := env("CIPHERLAB_DES_PADDING"); val != "" {
		cfg.DES.Padding = val
	}
	if val := env("CIPHERLAB_ANALYSIS_WORKERS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Analysis.Workers = parsed
		} else {
			log.Printf("ignoring CIPHERLAB_ANALYSIS_WORKERS=%q: %v", val, err)
		}
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate reports the first setting that cannot be served.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative, got %s", c.ShutdownTimeout)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst == 0 {
		return errors.New("rate_limit.burst must be at least 1 when rps is set")
	}
	if err := cipher.ValidateShift(c.Caesar.DefaultShift); err != nil {
		return fmt.Errorf("caesar.default_shift: %w", err)
	}
	if _, err := cipher.ParsePadding(c.DES.Padding); err != nil {
		return fmt.Errorf("des.padding: %w", err)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers)
	}
	return nil
}

// Padding returns the configured DES padding. Call Validate first.
func (c Config) Padding() cipher.Padding {
	p, err := cipher.ParsePadding(c.DES.Padding)
	if err != nil {
		return cipher.PaddingPKCS7
	}
	return p
}
