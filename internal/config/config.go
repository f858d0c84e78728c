package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8090
	DefaultSweepInterval  = time.Minute
	DefaultStreamInterval = 5 * time.Second
	DefaultEvalInterval   = 30 * time.Second
	DefaultNamespace      = "contexthub"
)

// Config is the configuration tree parsed from config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub, and /metrics listen on
	// (default 8090).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how incoming HTTP clients are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// Store controls context store maintenance.
	Store StoreConfig `yaml:"store"`

	// Stream controls the WebSocket stats broadcast.
	Stream StreamConfig `yaml:"stream"`

	// Metrics controls the Prometheus exposition.
	Metrics MetricsConfig `yaml:"metrics"`

	// Watchdog holds rule definitions and webhook delivery targets.
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StoreConfig controls context store maintenance.
type StoreConfig struct {
	// SweepInterval is how often the background sweep evicts expired contexts.
	// 0 disables the sweep; stale entries then persist until the next open
	// resets them. Default: 60s.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// StreamConfig controls the WebSocket stats broadcast.
type StreamConfig struct {
	// Interval is the broadcast cadence. Default: 5s.
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	// Namespace prefixes every metric name. Default: "contexthub".
	Namespace string `yaml:"namespace"`
}

// WatchdogConfig holds rule definitions and webhook delivery targets.
type WatchdogConfig struct {
	// EvaluationInterval is how often rules are evaluated against the store
	// statistics. Default: 30s.
	EvaluationInterval time.Duration `yaml:"evaluation_interval"`

	Rules    []WatchRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WatchRule defines one threshold-based watchdog condition.
type WatchRule struct {
	// Name is the human-readable rule identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over store statistics:
	// "stale_pct > 50", "entries > 100000", "open_rate > 500".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Defaults to warning.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after the rule fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Store: StoreConfig{
				SweepInterval: DefaultSweepInterval,
			},
			Stream: StreamConfig{
				Interval: DefaultStreamInterval,
			},
			Metrics: MetricsConfig{
				Namespace: DefaultNamespace,
			},
			Watchdog: WatchdogConfig{
				EvaluationInterval: DefaultEvalInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
// Rule condition syntax is checked by the watchdog when rules are installed,
// not here.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Store.SweepInterval < 0 {
		return fmt.Errorf("server.store.sweep_interval must not be negative")
	}
	if cfg.Server.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive")
	}
	if cfg.Server.Metrics.Namespace == "" {
		return fmt.Errorf("server.metrics.namespace must not be empty")
	}
	if cfg.Server.Watchdog.EvaluationInterval <= 0 {
		return fmt.Errorf("server.watchdog.evaluation_interval must be positive")
	}
	for i, r := range cfg.Server.Watchdog.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.watchdog.rules[%d]: name must not be empty", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.watchdog.rules[%d] %q: condition must not be empty", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("server.watchdog.rules[%d] %q: severity %q unknown: want critical|warning|info",
				i, r.Name, r.Severity)
		}
		if r.Cooldown < 0 {
			return fmt.Errorf("server.watchdog.rules[%d] %q: cooldown must not be negative", i, r.Name)
		}
	}
	for i, w := range cfg.Server.Watchdog.Webhooks {
		switch w.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("server.watchdog.webhooks[%d]: type %q unknown: want teams|slack|pagerduty|http",
				i, w.Type)
		}
		if w.URLEnv == "" {
			return fmt.Errorf("server.watchdog.webhooks[%d]: url_env must not be empty", i)
		}
	}
	return nil
}
