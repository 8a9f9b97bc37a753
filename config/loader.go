package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file and applies it over DefaultConfig. Keys absent from
// the file keep their defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

// EnvInt returns the integer value of key, whether it was set, and a parse
// error for malformed values.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}
