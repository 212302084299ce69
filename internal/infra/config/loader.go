// Package config loads and validates the daemon's YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Loader reads the YAML config file into a validated domain.Config.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config")}
}

func newRuntimeViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metricsEnabled", true)
	v.SetDefault("observability.healthzEnabled", true)
	v.SetDefault("database.path", domain.DefaultDatabasePath)
	v.SetDefault("inbox.path", domain.DefaultInboxPath)
	v.SetDefault("realtime.heartbeatSeconds", domain.DefaultHeartbeatSeconds)
	v.SetDefault("realtime.feedBuffer", domain.DefaultFeedBuffer)
	v.SetDefault("realtime.streamBuffer", domain.DefaultStreamBuffer)
	v.SetDefault("branches", domain.DefaultBranches())
}

type rawConfig struct {
	HTTP          rawHTTPConfig          `mapstructure:"http"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Database      rawDatabaseConfig      `mapstructure:"database"`
	Inbox         rawInboxConfig         `mapstructure:"inbox"`
	Realtime      rawRealtimeConfig      `mapstructure:"realtime"`
	Branches      []string               `mapstructure:"branches"`
}

type rawHTTPConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawObservabilityConfig struct {
	ListenAddress  string `mapstructure:"listenAddress"`
	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	HealthzEnabled bool   `mapstructure:"healthzEnabled"`
}

type rawDatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type rawInboxConfig struct {
	Path string `mapstructure:"path"`
}

type rawRealtimeConfig struct {
	HeartbeatSeconds int `mapstructure:"heartbeatSeconds"`
	FeedBuffer       int `mapstructure:"feedBuffer"`
	StreamBuffer     int `mapstructure:"streamBuffer"`
}

// Load reads the file at path. A missing file is not an error: the defaults
// stand in, the way a fresh deployment starts.
func (l *Loader) Load(path string) (domain.Config, error) {
	v := newRuntimeViper()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		l.logger.Info("config file absent, using defaults", zap.String("path", path))
	case err != nil:
		return domain.Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return domain.Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decoding config %s: %w", path, err)
	}

	cfg := domain.Config{
		HTTP: domain.HTTPConfig{ListenAddress: raw.HTTP.ListenAddress},
		Observability: domain.ObservabilityConfig{
			ListenAddress:  raw.Observability.ListenAddress,
			MetricsEnabled: raw.Observability.MetricsEnabled,
			HealthzEnabled: raw.Observability.HealthzEnabled,
		},
		Database: domain.DatabaseConfig{Path: raw.Database.Path},
		Inbox:    domain.InboxConfig{Path: raw.Inbox.Path},
		Realtime: domain.RealtimeConfig{
			HeartbeatSeconds: raw.Realtime.HeartbeatSeconds,
			FeedBuffer:       raw.Realtime.FeedBuffer,
			StreamBuffer:     raw.Realtime.StreamBuffer,
		},
		Branches: raw.Branches,
	}

	if err := validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

func validate(cfg domain.Config) error {
	if cfg.Realtime.HeartbeatSeconds <= 0 {
		return fmt.Errorf("realtime.heartbeatSeconds must be positive, got %d", cfg.Realtime.HeartbeatSeconds)
	}
	if cfg.Realtime.FeedBuffer <= 0 {
		return fmt.Errorf("realtime.feedBuffer must be positive, got %d", cfg.Realtime.FeedBuffer)
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Inbox.Path == "" {
		return fmt.Errorf("inbox.path is required")
	}
	if len(cfg.Branches) == 0 {
		return fmt.Errorf("at least one branch is required")
	}
	seen := make(map[string]struct{}, len(cfg.Branches))
	for _, branch := range cfg.Branches {
		if branch == "" {
			return fmt.Errorf("branch names must be non-empty")
		}
		if _, dup := seen[branch]; dup {
			return fmt.Errorf("duplicate branch %q", branch)
		}
		seen[branch] = struct{}{}
	}
	return nil
}
