package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Naming policies for passengers derived from seeded invoices. "ticket"
// normalizes the invoice Name field; "synthetic" always uses "INV <pnr>".
const (
	NamePolicyTicket    = "ticket"
	NamePolicySynthetic = "synthetic"
)

type Config struct {
	DBPath      string
	InvoicesDir string
	OutputDir   string
	ServerAddr  string

	NamePolicy            string
	SummaryIncludeUnknown bool
	HighValueThreshold    float64

	PortalDocFormat string
	PortalLatencyMs int
	PortalStrict    bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		InvoicesDir: getEnv("INVOICES_DIR", filepath.Join(cwd, "data", "invoices")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		ServerAddr:  getEnv("SERVER_ADDR", ":8000"),

		NamePolicy:            getEnv("NAME_POLICY", NamePolicyTicket),
		SummaryIncludeUnknown: getEnvBool("SUMMARY_INCLUDE_UNKNOWN", true),
		HighValueThreshold:    getEnvFloat("HIGH_VALUE_THRESHOLD", 10000),

		PortalDocFormat: getEnv("PORTAL_DOC_FORMAT", "pdf"),
		PortalLatencyMs: getEnvInt("PORTAL_LATENCY_MS", 200),
		PortalStrict:    getEnvBool("PORTAL_STRICT", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
