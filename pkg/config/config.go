// Package config loads Tornado configuration. Sources are layered in
// increasing priority: built-in defaults, an optional YAML file, then
// TORNADO_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"bytes"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
	"github.com/cjrt007/Tornado.Ai/pkg/logging"
)

// Environment variable names.
const (
	EnvServerHost   = "TORNADO_SERVER_HOST"
	EnvServerPort   = "TORNADO_SERVER_PORT"
	EnvCORSEnabled  = "TORNADO_CORS_ENABLED"
	EnvLogLevel     = "TORNADO_LOG_LEVEL"
	EnvLogPretty    = "TORNADO_LOG_PRETTY"
	EnvSeedFile     = "TORNADO_SEED_FILE"
	EnvAuditLog     = "TORNADO_AUDIT_LOG"
	EnvOTLPEndpoint = "TORNADO_OTLP_ENDPOINT"
	EnvOTLPInsecure = "TORNADO_OTLP_INSECURE"
	EnvAPIURL       = "TORNADO_API_URL"
)

// Config holds every runtime option.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Control   Control   `yaml:"control"`
	Telemetry Telemetry `yaml:"telemetry"`
	Client    Client    `yaml:"client"`
}

// Server configures the HTTP listener.
type Server struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	CORSEnabled bool   `yaml:"corsEnabled"`
	// CORSOrigins restricts allowed origins; empty allows any origin.
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Control configures the control store.
type Control struct {
	// SeedFile replaces the built-in seed surface when set.
	SeedFile string `yaml:"seedFile,omitempty"`
	// AuditLog is the JSONL file control changes are appended to. Empty
	// disables the audit trail.
	AuditLog string `yaml:"auditLog,omitempty"`
}

// Telemetry configures OpenTelemetry export.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"serviceName"`
}

// Client configures the control client used by the CLI.
type Client struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Host:        defaults.ServerHost,
			Port:        defaults.ServerPort,
			CORSEnabled: true,
		},
		Logging: Logging{Level: defaults.LogLevel},
		Telemetry: Telemetry{
			ServiceName: defaults.ServiceName,
		},
		Client: Client{
			BaseURL: defaults.ClientBaseURL,
			Timeout: duration.HTTPAPI,
		},
	}
}

// Load layers defaults, the YAML file at path (skipped when empty) and
// the environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvServerHost); ok {
		c.Server.Host = v
	}
	if v, ok := lookup(EnvServerPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvServerPort, v)
		}
		c.Server.Port = port
	}
	if err := envBool(lookup, EnvCORSEnabled, &c.Server.CORSEnabled); err != nil {
		return err
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if err := envBool(lookup, EnvLogPretty, &c.Logging.Pretty); err != nil {
		return err
	}
	if v, ok := lookup(EnvSeedFile); ok {
		c.Control.SeedFile = v
	}
	if v, ok := lookup(EnvAuditLog); ok {
		c.Control.AuditLog = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok {
		c.Telemetry.OTLPEndpoint = v
	}
	if err := envBool(lookup, EnvOTLPInsecure, &c.Telemetry.Insecure); err != nil {
		return err
	}
	if v, ok := lookup(EnvAPIURL); ok {
		c.Client.BaseURL = v
	}
	return nil
}

func envBool(lookup func(string) (string, bool), key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
	}
	*dst = b
	return nil
}

// Validate checks ranges and formats.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range 1-65535", ErrInvalidConfig, c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	if c.Client.BaseURL == "" {
		return fmt.Errorf("%w: client.baseURL", ErrMissingRequired)
	}
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: client.baseURL %q must be an http(s) URL", ErrInvalidConfig, c.Client.BaseURL)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("%w: client.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Write stores c as YAML at path. It refuses to overwrite unless force.
func Write(path string, c Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s already exists", ErrInvalidConfig, path)
		}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
