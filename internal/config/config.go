// Package config loads and validates the server's startup configuration:
// the client TCP port, the admin/metrics HTTP address, log level, key
// bounds, and the housekeeping interval. Grounded on the teacher's
// pkg/schema/validate.go (schema-validated JSON via
// santhosh-tekuri/jsonschema) and cmd/cc-backend/main.go's ProgramConfig.
package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchemaFile
}

// Config is the server's startup configuration.
type Config struct {
	Addr                 string `json:"addr"`
	Port                 int    `json:"port"`
	LogLevel             string `json:"log-level"`
	MaxNameLen           int    `json:"max-name-len"`
	MaxValueLen          int    `json:"max-value-len"`
	HousekeepingInterval string `json:"housekeeping-interval"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		Addr:                 ":9090",
		Port:                 9000,
		LogLevel:             "info",
		MaxNameLen:           256,
		MaxValueLen:          256,
		HousekeepingInterval: "30s",
	}
}

// Load reads and schema-validates a JSON config file at path, overlaying
// it onto Default(). An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := validate(raw); err != nil {
		return Config{}, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

func validate(raw []byte) error {
	s, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}

	return s.Validate(v)
}

// HousekeepingPeriod parses HousekeepingInterval, falling back to 30s on
// a malformed or empty value.
func (c Config) HousekeepingPeriod() time.Duration {
	d, err := time.ParseDuration(c.HousekeepingInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
