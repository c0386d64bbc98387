package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loom-ui/loom/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Telemetry.Namespace != DefaultNamespace {
		t.Errorf("Telemetry.Namespace = %q, want %q", cfg.Telemetry.Namespace, DefaultNamespace)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Loading a directory without loom.json fails with E100.
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "E100") {
		t.Errorf("expected E100 error, got: %v", err)
	}

	configJSON := `{
  "name": "dashboard",
  "server": {
    "addr": "127.0.0.1:9000",
    "maxSessions": 500,
    "readTimeout": "45s",
    "heartbeatInterval": "15s",
    "allowedOrigins": ["https://app.example.com"]
  },
  "loop": {
    "frameBudget": "4ms",
    "aging": "250ms"
  },
  "journal": {
    "capacity": 64,
    "archive": {
      "enabled": true,
      "bucket": "loom-journal",
      "region": "eu-west-1"
    }
  },
  "telemetry": {
    "namespace": "dashboard",
    "tracing": true
  },
  "log": {
    "level": "debug",
    "format": "json"
  }
}
`
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "dashboard" {
		t.Errorf("Name = %q, want %q", cfg.Name, "dashboard")
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:9000")
	}
	if cfg.Server.MaxSessions != 500 {
		t.Errorf("Server.MaxSessions = %d, want %d", cfg.Server.MaxSessions, 500)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins len = %d, want %d", len(cfg.Server.AllowedOrigins), 1)
	}
	if cfg.Journal.Capacity != 64 {
		t.Errorf("Journal.Capacity = %d, want %d", cfg.Journal.Capacity, 64)
	}
	if !cfg.Journal.Archive.Enabled {
		t.Error("Journal.Archive.Enabled should be true")
	}
	if cfg.Journal.Archive.Bucket != "loom-journal" {
		t.Errorf("Archive.Bucket = %q, want %q", cfg.Journal.Archive.Bucket, "loom-journal")
	}
	if cfg.Journal.Archive.Region != "eu-west-1" {
		t.Errorf("Archive.Region = %q, want %q", cfg.Journal.Archive.Region, "eu-west-1")
	}
	if cfg.Telemetry.Namespace != "dashboard" {
		t.Errorf("Telemetry.Namespace = %q, want %q", cfg.Telemetry.Namespace, "dashboard")
	}
	if !cfg.Telemetry.Tracing {
		t.Error("Telemetry.Tracing should be true")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("{\n  \"server\": {\n    \"addr\": ,\n  }\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E080") {
		t.Errorf("expected E080 error, got: %v", err)
	}

	// The syntax error offset becomes a file location.
	var le *errors.LoomError
	if !stderrors.As(err, &le) {
		t.Fatalf("expected *errors.LoomError, got %T", err)
	}
	if le.Location == nil {
		t.Fatal("expected a location from the syntax error offset")
	}
	if le.Location.File != configPath {
		t.Errorf("Location.File = %q, want %q", le.Location.File, configPath)
	}
	if le.Location.Line != 3 {
		t.Errorf("Location.Line = %d, want %d", le.Location.Line, 3)
	}
}

func TestDefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	// A sparse file inherits defaults for everything it omits.
	if err := os.WriteFile(configPath, []byte(`{"server": {"maxSessions": 10}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.MaxSessions != 10 {
		t.Errorf("Server.MaxSessions = %d, want %d", cfg.Server.MaxSessions, 10)
	}
	if cfg.Telemetry.Namespace != DefaultNamespace {
		t.Errorf("Telemetry.Namespace = %q, want %q", cfg.Telemetry.Namespace, DefaultNamespace)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Server.MaxSessions = 250
	cfg.Journal.Capacity = 32

	// Save should fail without a path set.
	if err := cfg.Save(); err == nil {
		t.Error("expected error when saving without path")
	}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Server.MaxSessions != 250 {
		t.Errorf("Server.MaxSessions = %d, want %d", loaded.Server.MaxSessions, 250)
	}
	if loaded.Journal.Capacity != 32 {
		t.Errorf("Journal.Capacity = %d, want %d", loaded.Journal.Capacity, 32)
	}

	// Save after a load writes back to the same file.
	loaded.Server.MaxSessions = 300
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	reloaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if reloaded.Server.MaxSessions != 300 {
		t.Errorf("Server.MaxSessions = %d, want %d", reloaded.Server.MaxSessions, 300)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:     "bare port address",
			mutate:   func(c *Config) { c.Server.Addr = "8080" },
			wantCode: "E081",
		},
		{
			name:     "unparseable frame budget",
			mutate:   func(c *Config) { c.Loop.FrameBudget = "fast" },
			wantCode: "E082",
		},
		{
			name:     "negative frame budget",
			mutate:   func(c *Config) { c.Loop.FrameBudget = "-2ms" },
			wantCode: "E082",
		},
		{
			name: "heartbeat not shorter than read timeout",
			mutate: func(c *Config) {
				c.Server.HeartbeatInterval = "2m"
				c.Server.ReadTimeout = "1m"
			},
			wantCode: "E084",
		},
		{
			name:     "negative journal capacity",
			mutate:   func(c *Config) { c.Journal.Capacity = -1 },
			wantCode: "E085",
		},
		{
			name:     "archive without bucket",
			mutate:   func(c *Config) { c.Journal.Archive.Enabled = true },
			wantCode: "E083",
		},
		{
			name:     "namespace starting with digit",
			mutate:   func(c *Config) { c.Telemetry.Namespace = "9loom" },
			wantCode: "E086",
		},
		{
			name:     "unknown log level",
			mutate:   func(c *Config) { c.Log.Level = "loud" },
			wantCode: "",
		},
		{
			name:     "unknown log format",
			mutate:   func(c *Config) { c.Log.Format = "yaml" },
			wantCode: "",
		},
		{
			name:     "bad server duration",
			mutate:   func(c *Config) { c.Server.ReadTimeout = "soon" },
			wantCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.wantCode != "" && !strings.Contains(err.Error(), tt.wantCode) {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestValidateAcceptsArchiveWithBucket(t *testing.T) {
	cfg := New()
	cfg.Journal.Archive.Enabled = true
	cfg.Journal.Archive.Bucket = "loom-journal"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := New()
	cfg.Server.ReadTimeout = "45s"
	cfg.Server.HeartbeatInterval = "15s"
	cfg.Loop.FrameBudget = "4ms"
	cfg.Loop.Aging = "250ms"

	if got := cfg.ReadTimeout(); got != 45*time.Second {
		t.Errorf("ReadTimeout() = %v, want %v", got, 45*time.Second)
	}
	if got := cfg.HeartbeatInterval(); got != 15*time.Second {
		t.Errorf("HeartbeatInterval() = %v, want %v", got, 15*time.Second)
	}
	if got := cfg.FrameBudget(); got != 4*time.Millisecond {
		t.Errorf("FrameBudget() = %v, want %v", got, 4*time.Millisecond)
	}
	if got := cfg.Aging(); got != 250*time.Millisecond {
		t.Errorf("Aging() = %v, want %v", got, 250*time.Millisecond)
	}

	// Unset durations report zero so the runtime default applies.
	if got := cfg.WriteTimeout(); got != 0 {
		t.Errorf("WriteTimeout() = %v, want 0", got)
	}
	if got := cfg.IdleTimeout(); got != 0 {
		t.Errorf("IdleTimeout() = %v, want 0", got)
	}
	if got := cfg.ShutdownTimeout(); got != 0 {
		t.Errorf("ShutdownTimeout() = %v, want 0", got)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := New()
		cfg.Log.Level = tt.level
		if got := cfg.LogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://localhost:9000"},
		{"example.com:9000", "http://example.com:9000"},
	}

	for _, tt := range tests {
		cfg := New()
		cfg.Server.Addr = tt.addr
		if got := cfg.URL(); got != tt.want {
			t.Errorf("URL() with addr %q = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should be false for empty directory")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should be true after creating config")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Fails when no config exists anywhere up the tree.
	if _, err := FindProjectRoot(nestedDir); err == nil {
		t.Error("FindProjectRoot should fail when no config exists")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nestedDir)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}

	root, err = FindProjectRoot(filepath.Join(tmpDir, "a"))
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Telemetry.Namespace != DefaultNamespace {
		t.Errorf("Telemetry.Namespace = %q, want %q", cfg.Telemetry.Namespace, DefaultNamespace)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want info/text", cfg.Log)
	}
}
