package domain

import "time"

// Config is the validated runtime configuration for the daemon.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Database      DatabaseConfig      `yaml:"database"`
	Inbox         InboxConfig         `yaml:"inbox"`
	Realtime      RealtimeConfig      `yaml:"realtime"`
	Branches      []string            `yaml:"branches"`
}

// HTTPConfig covers the public API listener.
type HTTPConfig struct {
	ListenAddress string `yaml:"listenAddress"`
}

// ObservabilityConfig covers the metrics/health listener.
type ObservabilityConfig struct {
	ListenAddress  string `yaml:"listenAddress"`
	MetricsEnabled bool   `yaml:"metricsEnabled"`
	HealthzEnabled bool   `yaml:"healthzEnabled"`
}

// DatabaseConfig covers the member row store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// InboxConfig covers the notification log store.
type InboxConfig struct {
	Path string `yaml:"path"`
}

// RealtimeConfig covers the fan-out core.
type RealtimeConfig struct {
	HeartbeatSeconds int `yaml:"heartbeatSeconds"`
	FeedBuffer       int `yaml:"feedBuffer"`
	StreamBuffer     int `yaml:"streamBuffer"`
}

// HeartbeatInterval converts the configured seconds into a duration.
func (c RealtimeConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}
