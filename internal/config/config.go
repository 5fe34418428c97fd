package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application level configuration. Values come from an optional
// YAML file (CASHCUE_CONFIG) overridden by environment variables.
type Config struct {
	// DatabaseURL selects the postgres ledger when set.
	DatabaseURL string `yaml:"database_url"`
	// SQLitePath selects a local sqlite ledger when DatabaseURL is empty.
	SQLitePath string `yaml:"sqlite_path"`
	// With neither set, an in-memory store is used and data resets on exit.
	Environment string `yaml:"environment"`
	LogFile     string `yaml:"log_file"`
	// Workers bounds per-account parallelism in batch runs.
	Workers int `yaml:"workers"`
}

// Load reads configuration. A .env file is loaded if present to simplify
// local development; we look next to the binary and in the working directory.
func Load() (Config, error) {
	loadDotEnv()

	cfg := Config{
		Environment: "local",
		Workers:     4,
	}
	if path := os.Getenv("CASHCUE_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.DatabaseURL = getString("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getString("CASHCUE_SQLITE", cfg.SQLitePath)
	cfg.Environment = getString("ENVIRONMENT", cfg.Environment)
	cfg.LogFile = getString("LOG_FILE", cfg.LogFile)
	cfg.Workers = getInt("CASHCUE_WORKERS", cfg.Workers)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func loadDotEnv() {
	candidates := []string{
		filepath.Join("bin", ".env"),
		".env",
	}
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append([]string{
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "bin", ".env"),
		}, candidates...)
	}
	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
