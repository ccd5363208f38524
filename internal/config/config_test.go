package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/villekr/wsgate/internal/subprotocol"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "wsgate") {
		t.Errorf("GetConfigDir() = %v, should contain 'wsgate'", configDir)
	}

	if runtime.GOOS == "linux" && os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
		t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
	}
}

func TestGetConfigDirHonoursXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only used on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join(dir, "wsgate"); got != want {
		t.Errorf("GetConfigDir() = %v, want %v", got, want)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.Subprotocols.Policy != subprotocol.PolicyRequired || cfg.Subprotocols.Required != subprotocol.OCPP201 {
		t.Errorf("Subprotocols = %+v, want required %s", cfg.Subprotocols, subprotocol.OCPP201)
	}
	if got := cfg.Subprotocols.Advertised(); !reflect.DeepEqual(got, []string{subprotocol.OCPP201}) {
		t.Errorf("Advertised() = %v", got)
	}

	selector, err := cfg.Subprotocols.Selector()
	if err != nil {
		t.Fatalf("Selector() error = %v", err)
	}
	if got, err := selector.Select([]string{subprotocol.OCPP16, subprotocol.OCPP201}); err != nil || got != subprotocol.OCPP201 {
		t.Errorf("Select() = %q, %v", got, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() of a missing file = %+v, want defaults", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 8443
	cfg.Server.Announce = "wsgate-lab"
	cfg.Subprotocols = &SubprotocolsConfig{
		Policy:    subprotocol.PolicyPreferred,
		Supported: []string{subprotocol.OCPP201, subprotocol.OCPP16},
	}
	cfg.Capture = &CaptureConfig{
		Dir: "/var/lib/wsgate/captures",
		S3:  &S3Config{Bucket: "captures", Prefix: "lab/"},
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# wsgate Configuration File") {
		t.Errorf("saved file should start with the header comment")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file should not remain after save")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFillsMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Version != CurrentVersion || cfg.Server.Port != 9100 || cfg.Server.Path != "/" {
		t.Errorf("Load() = %+v / %+v", cfg, cfg.Server)
	}
	if cfg.Subprotocols == nil || cfg.Subprotocols.Required != subprotocol.OCPP201 {
		t.Errorf("Subprotocols = %+v, want defaults", cfg.Subprotocols)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid YAML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 2 }, "version"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"relative path", func(c *Config) { c.Server.Path = "ocpp" }, "server.path"},
		{"relative metrics path", func(c *Config) { c.Server.MetricsPath = "metrics" }, "server.metrics_path"},
		{"cert without key", func(c *Config) { c.Server.CertPath = "/etc/wsgate/cert.pem" }, "server.cert_path"},
		{"negative read limit", func(c *Config) { c.Server.ReadLimit = -1 }, "server.read_limit"},
		{"unknown policy", func(c *Config) { c.Subprotocols.Policy = "first" }, "subprotocols"},
		{"preferred without list", func(c *Config) {
			c.Subprotocols.Policy = subprotocol.PolicyPreferred
			c.Subprotocols.Supported = nil
		}, "subprotocols"},
		{"capture without dir", func(c *Config) { c.Capture = &CaptureConfig{} }, "capture.dir"},
		{"s3 without bucket", func(c *Config) { c.Capture = &CaptureConfig{Dir: "/tmp", S3: &S3Config{}} }, "capture.s3.bucket"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}
