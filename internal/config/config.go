package config

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/loom-ui/loom/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "loom.json"

	// DefaultAddr is the default server listen address.
	DefaultAddr = ":8080"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "loom"
)

// Config represents the complete loom.json configuration.
//
// Duration fields are Go duration strings such as "30s" or "8ms". An
// empty duration keeps the runtime default for that setting.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Server contains listener and session settings.
	Server ServerConfig `json:"server,omitempty"`

	// Loop contains render loop settings shared by every session.
	Loop LoopConfig `json:"loop,omitempty"`

	// Journal contains patch journal and archive settings.
	Journal JournalConfig `json:"journal,omitempty"`

	// Telemetry contains metrics and tracing settings.
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains listener and session settings.
type ServerConfig struct {
	// Addr is the host:port to listen on.
	Addr string `json:"addr,omitempty"`

	// MaxSessions caps concurrent sessions. Zero means no limit.
	MaxSessions int `json:"maxSessions,omitempty"`

	// ReadTimeout is the maximum quiet time on a connection.
	// Runtime default: 60s.
	ReadTimeout string `json:"readTimeout,omitempty"`

	// WriteTimeout is the maximum time to send one message.
	// Runtime default: 10s.
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// HeartbeatInterval is the time between server pings. Must stay
	// shorter than ReadTimeout. Runtime default: 30s.
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`

	// IdleTimeout is how long a detached session stays resumable.
	// Runtime default: 5m.
	IdleTimeout string `json:"idleTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown. Runtime default: 30s.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists origins accepted on WebSocket upgrade.
	// Empty allows all origins.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// LoopConfig contains render loop settings.
type LoopConfig struct {
	// FrameBudget is the render slice each loop runs before yielding
	// back to its inbox.
	FrameBudget string `json:"frameBudget,omitempty"`

	// Aging promotes starved low-priority work after this long in
	// queue. Empty disables aging.
	Aging string `json:"aging,omitempty"`
}

// JournalConfig contains patch journal settings.
type JournalConfig struct {
	// Capacity is the number of recent frames each session retains
	// for resync. Zero selects the default ring size.
	Capacity int `json:"capacity,omitempty"`

	// Archive streams evicted frames to object storage.
	Archive ArchiveConfig `json:"archive,omitempty"`
}

// ArchiveConfig contains journal archive settings.
type ArchiveConfig struct {
	// Enabled turns frame archiving on.
	Enabled bool `json:"enabled,omitempty"`

	// Bucket is the object storage bucket. Required when Enabled.
	Bucket string `json:"bucket,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the storage endpoint, for S3-compatible
	// stores such as MinIO.
	Endpoint string `json:"endpoint,omitempty"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Tracing enables span emission around renders and commits.
	Tracing bool `json:"tracing,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Server: ServerConfig{
			Addr: DefaultAddr,
		},
		Telemetry: TelemetryConfig{
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for loom.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No loom.json found at " + path).
				WithSuggestion("Create loom.json in the project root or pass --config")
		}
		return nil, errors.New("E080").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		le := errors.New("E080").
			Wrap(err).
			WithSuggestion("Check that loom.json is valid JSON")
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case stderrors.As(err, &syn):
			le.WithLocationFromOffset(path, data, syn.Offset)
		case stderrors.As(err, &typ):
			le.WithLocationFromOffset(path, data, typ.Offset)
		}
		return nil, le
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadFromWorkingDir loads configuration from the nearest project root
// above the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E080").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E080").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultNamespace
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// namespaceRE matches valid metric namespaces.
var namespaceRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Validate checks the configuration for mistakes that would only
// surface at runtime.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errors.New("E081").
			WithDetail("Cannot listen on " + c.Server.Addr + ": " + err.Error()).
			WithExample(`"addr": ":8080"`)
	}

	for _, f := range []struct {
		name  string
		value string
	}{
		{"server.readTimeout", c.Server.ReadTimeout},
		{"server.writeTimeout", c.Server.WriteTimeout},
		{"server.heartbeatInterval", c.Server.HeartbeatInterval},
		{"server.idleTimeout", c.Server.IdleTimeout},
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
	} {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil || d <= 0 {
			return errors.Newf(errors.CategoryConfig, "invalid %s %q", f.name, f.value).
				WithSuggestion(`Use a positive Go duration such as "30s"`)
		}
	}

	if c.Loop.FrameBudget != "" {
		d, err := time.ParseDuration(c.Loop.FrameBudget)
		if err != nil || d <= 0 {
			return errors.New("E082").
				WithDetail("Cannot use loop.frameBudget " + c.Loop.FrameBudget).
				WithExample(`"frameBudget": "8ms"`)
		}
	}
	if c.Loop.Aging != "" {
		d, err := time.ParseDuration(c.Loop.Aging)
		if err != nil || d < 0 {
			return errors.Newf(errors.CategoryConfig, "invalid loop.aging %q", c.Loop.Aging).
				WithSuggestion(`Use a Go duration such as "100ms", or omit it to disable aging`)
		}
	}

	if hb, rt := c.HeartbeatInterval(), c.ReadTimeout(); hb > 0 && rt > 0 && hb >= rt {
		return errors.New("E084").
			WithDetail("heartbeatInterval " + c.Server.HeartbeatInterval +
				" is not shorter than readTimeout " + c.Server.ReadTimeout)
	}

	if c.Journal.Capacity < 0 {
		return errors.New("E085")
	}
	if c.Journal.Archive.Enabled && c.Journal.Archive.Bucket == "" {
		return errors.New("E083").
			WithExample(`"archive": {"enabled": true, "bucket": "loom-journal"}`)
	}

	if !namespaceRE.MatchString(c.Telemetry.Namespace) {
		return errors.New("E086").
			WithDetail("Cannot use telemetry.namespace " + c.Telemetry.Namespace)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CategoryConfig, "invalid log.level %q", c.Log.Level).
			WithSuggestion(`Use "debug", "info", "warn" or "error"`)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Newf(errors.CategoryConfig, "invalid log.format %q", c.Log.Format).
			WithSuggestion(`Use "text" or "json"`)
	}

	return nil
}

// parseDuration parses a duration string, returning zero for empty or
// invalid input. Validate reports invalid durations; after it passes,
// zero only means unset.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// ReadTimeout returns the parsed read timeout. Zero keeps the server
// default.
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout)
}

// WriteTimeout returns the parsed write timeout. Zero keeps the server
// default.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout)
}

// HeartbeatInterval returns the parsed heartbeat interval. Zero keeps
// the server default.
func (c *Config) HeartbeatInterval() time.Duration {
	return parseDuration(c.Server.HeartbeatInterval)
}

// IdleTimeout returns the parsed idle timeout. Zero keeps the server
// default.
func (c *Config) IdleTimeout() time.Duration {
	return parseDuration(c.Server.IdleTimeout)
}

// ShutdownTimeout returns the parsed shutdown timeout. Zero keeps the
// server default.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout)
}

// FrameBudget returns the parsed frame budget. Zero keeps the loop
// default.
func (c *Config) FrameBudget() time.Duration {
	return parseDuration(c.Loop.FrameBudget)
}

// Aging returns the parsed aging threshold. Zero disables aging.
func (c *Config) Aging() time.Duration {
	return parseDuration(c.Loop.Aging)
}

// LogLevel maps the configured level onto slog.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ListenAddr returns the configured listen address.
func (c *Config) ListenAddr() string {
	if c.Server.Addr == "" {
		return DefaultAddr
	}
	return c.Server.Addr
}

// URL returns a browsable URL for the configured listen address.
func (c *Config) URL() string {
	host, port, err := net.SplitHostPort(c.ListenAddr())
	if err != nil {
		return "http://" + c.ListenAddr()
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing loom.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No loom.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
