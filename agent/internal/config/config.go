package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultMaxStacks      = 1000
	DefaultDepthMode      = "auto"
	DefaultHTTPPort       = 8080
	DefaultGRPCPort       = 50051
	DefaultStreamInterval = 5 * time.Second
	DefaultAuthHeader     = "x-api-key"
	DefaultDemoInterval   = time.Second
	DefaultDemoFanout     = 3
)

// Config is the top-level agent configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Server  ServerConfig  `yaml:"server"`
	Demo    DemoConfig    `yaml:"demo"`
}

// CaptureConfig controls the capture store.
type CaptureConfig struct {
	// Enabled turns capturing on. Applied on hot reload.
	Enabled bool `yaml:"enabled"`

	// Debug logs every store operation and raises the log level. Applied on
	// hot reload.
	Debug bool `yaml:"debug"`

	// MaxStacks bounds the number of retained snapshots. Restart required.
	MaxStacks int `yaml:"max_stacks"`

	// DepthMode selects how InsertEnter measures stack depth:
	// auto | callers | frames.
	DepthMode string `yaml:"depth_mode"`

	// PruneInterval is how often entries for collected objects are swept.
	// Zero disables the sweep.
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// ServerConfig holds the query surfaces' settings.
type ServerConfig struct {
	// HTTPPort serves the REST API, the WebSocket stream and /metrics.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the stack query service and gRPC health.
	GRPCPort int `yaml:"grpc_port"`

	// StreamInterval is how often the WebSocket hub pushes the stack list.
	StreamInterval time.Duration `yaml:"stream_interval"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures API key authentication for HTTP and gRPC.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header and gRPC metadata key carrying the key.
	Header string `yaml:"header"`
}

// Key returns the API key resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns Header, or DefaultAuthHeader when it is empty.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return DefaultAuthHeader
	}
	return a.Header
}

// DemoConfig drives the built-in instrumented workload.
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval between workload rounds.
	Interval time.Duration `yaml:"interval"`

	// Fanout is the number of async hand-offs per round.
	Fanout int `yaml:"fanout"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Capture: CaptureConfig{
			Enabled:   true,
			MaxStacks: DefaultMaxStacks,
			DepthMode: DefaultDepthMode,
		},
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			GRPCPort:       DefaultGRPCPort,
			StreamInterval: DefaultStreamInterval,
			Auth: AuthConfig{
				Mode:   "none",
				Header: DefaultAuthHeader,
			},
		},
		Demo: DemoConfig{
			Interval: DefaultDemoInterval,
			Fanout:   DefaultDemoFanout,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Capture.MaxStacks <= 0 {
		return fmt.Errorf("capture.max_stacks must be positive")
	}
	switch cfg.Capture.DepthMode {
	case "auto", "callers", "frames":
	default:
		return fmt.Errorf("capture.depth_mode: unknown mode %q", cfg.Capture.DepthMode)
	}
	if cfg.Capture.PruneInterval < 0 {
		return fmt.Errorf("capture.prune_interval must not be negative")
	}
	if err := validPort("server.http_port", cfg.Server.HTTPPort); err != nil {
		return err
	}
	if err := validPort("server.grpc_port", cfg.Server.GRPCPort); err != nil {
		return err
	}
	if cfg.Server.HTTPPort == cfg.Server.GRPCPort {
		return fmt.Errorf("server.http_port and server.grpc_port must differ")
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required when mode is apikey")
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}
	if cfg.Demo.Enabled {
		if cfg.Demo.Interval <= 0 {
			return fmt.Errorf("demo.interval must be positive")
		}
		if cfg.Demo.Fanout <= 0 {
			return fmt.Errorf("demo.fanout must be positive")
		}
	}
	return nil
}

func validPort(field string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s %d out of range", field, port)
	}
	return nil
}

// RestartRequired lists the fields that differ between old and updated but
// are only read at startup.
func RestartRequired(old, updated *Config) []string {
	var fields []string
	if old.Capture.MaxStacks != updated.Capture.MaxStacks {
		fields = append(fields, "capture.max_stacks")
	}
	if old.Capture.DepthMode != updated.Capture.DepthMode {
		fields = append(fields, "capture.depth_mode")
	}
	if old.Capture.PruneInterval != updated.Capture.PruneInterval {
		fields = append(fields, "capture.prune_interval")
	}
	if old.Server != updated.Server {
		fields = append(fields, "server")
	}
	if old.Demo != updated.Demo {
		fields = append(fields, "demo")
	}
	return fields
}
