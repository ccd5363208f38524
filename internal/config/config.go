package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/villekr/wsgate/internal/subprotocol"
)

// CurrentVersion is the only configuration file version understood.
const CurrentVersion = 1

// Config represents the entire configuration file.
type Config struct {
	Version      int                 `yaml:"version"`
	Server       *ServerConfig       `yaml:"server"`
	Subprotocols *SubprotocolsConfig `yaml:"subprotocols"`
	Capture      *CaptureConfig      `yaml:"capture,omitempty"`
	Logging      *LoggingConfig      `yaml:"logging,omitempty"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Path         string `yaml:"path"`                    // URL path prefix for connections
	CertPath     string `yaml:"cert_path,omitempty"`     // TLS certificate (PEM)
	KeyPath      string `yaml:"key_path,omitempty"`      // TLS private key (PEM)
	GenerateCert bool   `yaml:"generate_cert,omitempty"` // Self-signed in-memory certificate
	MetricsPath  string `yaml:"metrics_path,omitempty"`  // Prometheus endpoint, empty disables it
	Announce     string `yaml:"announce,omitempty"`      // mDNS instance name, empty disables it
	ReadLimit    int64  `yaml:"read_limit,omitempty"`    // Maximum inbound message size in bytes
}

// SubprotocolsConfig selects the negotiation policy.
type SubprotocolsConfig struct {
	Policy    string   `yaml:"policy"`             // "required" or "preferred"
	Required  string   `yaml:"required,omitempty"` // Identifier demanded by the required policy
	Supported []string `yaml:"supported"`          // Ordered list for the preferred policy
}

// CaptureConfig enables recording of received messages.
type CaptureConfig struct {
	Dir string    `yaml:"dir"`          // Directory for capture-<timestamp>.jsonl files
	S3  *S3Config `yaml:"s3,omitempty"` // Archive the capture file on shutdown
}

// S3Config names the archive destination. Credentials come from the
// environment.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // S3-compatible endpoint (MinIO, R2)
}

// LoggingConfig sets the log level ("debug", "info", "warn", "error").
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: &ServerConfig{
			Port:        9000,
			Path:        "/",
			MetricsPath: "/metrics",
		},
		Subprotocols: &SubprotocolsConfig{
			Policy:    subprotocol.PolicyRequired,
			Required:  subprotocol.OCPP201,
			Supported: append([]string(nil), subprotocol.DefaultSupported...),
		},
		Logging: &LoggingConfig{Level: "info"},
	}
}

// fillDefaults replaces missing sections with their defaults.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Server == nil {
		c.Server = d.Server
	}
	if c.Server.Path == "" {
		c.Server.Path = "/"
	}
	if c.Subprotocols == nil {
		c.Subprotocols = d.Subprotocols
	}
	if c.Subprotocols.Policy == "" {
		c.Subprotocols.Policy = subprotocol.PolicyRequired
	}
	if c.Subprotocols.Policy == subprotocol.PolicyRequired && c.Subprotocols.Required == "" {
		c.Subprotocols.Required = subprotocol.OCPP201
	}
	if len(c.Subprotocols.Supported) == 0 {
		c.Subprotocols.Supported = d.Subprotocols.Supported
	}
	if c.Logging == nil {
		c.Logging = d.Logging
	}
}

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found,
// joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version != CurrentVersion {
		add("version", "unsupported config version %d (expected %d)", c.Version, CurrentVersion)
	}

	if c.Server == nil {
		add("server", "section is missing")
	} else {
		if c.Server.Port < 0 || c.Server.Port > 65535 {
			add("server.port", "%d is out of range", c.Server.Port)
		}
		if !strings.HasPrefix(c.Server.Path, "/") {
			add("server.path", "%q must start with /", c.Server.Path)
		}
		if c.Server.MetricsPath != "" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
			add("server.metrics_path", "%q must start with /", c.Server.MetricsPath)
		}
		if (c.Server.CertPath == "") != (c.Server.KeyPath == "") {
			add("server.cert_path", "cert_path and key_path must be set together")
		}
		if c.Server.ReadLimit < 0 {
			add("server.read_limit", "must not be negative")
		}
	}

	if c.Subprotocols == nil {
		add("subprotocols", "section is missing")
	} else if _, err := c.Subprotocols.Selector(); err != nil {
		add("subprotocols", "%v", err)
	}

	if c.Capture != nil {
		if c.Capture.Dir == "" {
			add("capture.dir", "is required when capture is enabled")
		}
		if c.Capture.S3 != nil && c.Capture.S3.Bucket == "" {
			add("capture.s3.bucket", "is required when S3 archiving is enabled")
		}
	}

	if c.Logging != nil {
		switch c.Logging.Level {
		case "", "debug", "info", "warn", "error":
		default:
			add("logging.level", "unknown level %q", c.Logging.Level)
		}
	}

	return errors.Join(errs...)
}

// Selector builds the subprotocol selector described by the section.
func (s *SubprotocolsConfig) Selector() (subprotocol.Selector, error) {
	return subprotocol.New(s.Policy, s.Required, s.Supported)
}

// Advertised returns the identifiers announced to peers: the required one
// under the required policy, the supported list otherwise.
func (s *SubprotocolsConfig) Advertised() []string {
	if s.Policy == subprotocol.PolicyPreferred {
		return append([]string(nil), s.Supported...)
	}
	return []string{s.Required}
}
