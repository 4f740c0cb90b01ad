package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataDir         string
	CatalogFile     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DecodeWorkers bounds how many container files are decoded at once.
	DecodeWorkers int

	// Data endpoint rate limiting. A zero limit disables it.
	DataRateLimit float64
	DataRateBurst int

	// Audit settings.
	AuditLogFile      string
	AuditLogMaxAge    int // days
	AuditKafkaBrokers []string
	AuditKafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	workers, err := parseIntRange("DECODE_WORKERS", "1", 1, 32)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DATA_RATE_LIMIT", "0"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid DATA_RATE_LIMIT")
	}

	rateBurst, err := parseIntRange("DATA_RATE_BURST", "10", 1, 10000)
	if err != nil {
		return nil, err
	}

	maxAge, err := parseIntRange("AUDIT_LOG_MAX_AGE", "30", 0, 3650)
	if err != nil {
		return nil, err
	}

	dataDir, err := expandHome(sharedcfg.EnvOrDefault("PSWS_DATA_DIR", "data"))
	if err != nil {
		return nil, fmt.Errorf("invalid PSWS_DATA_DIR: %w", err)
	}

	auditLog, err := expandHome(os.Getenv("AUDIT_LOG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_LOG_FILE: %w", err)
	}

	cfg := &Config{
		DataDir:         dataDir,
		CatalogFile:     sharedcfg.EnvOrDefault("CATALOG_FILE", "catalog.yaml"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DecodeWorkers:   workers,
		DataRateLimit:   rateLimit,
		DataRateBurst:   rateBurst,

		AuditLogFile:      auditLog,
		AuditLogMaxAge:    maxAge,
		AuditKafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("AUDIT_KAFKA_BROKERS")),
		AuditKafkaTopic:   sharedcfg.EnvOrDefault("AUDIT_KAFKA_TOPIC", "psws-audit-findings"),
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat)
	}

	return cfg, nil
}

func parseIntRange(key, def string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
