package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/sketchroom/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Database      DatabaseConfig `mapstructure:"database" yaml:"database"`
	HTTP          HTTPConfig     `mapstructure:"http" yaml:"http"`
	Socket        SocketConfig   `mapstructure:"socket" yaml:"socket"`
	Auth          AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Engine        EngineConfig   `mapstructure:"engine" yaml:"engine"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// DatabaseConfig locates the SQLite chatlog database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
}

// SocketConfig configures the room broadcast socket server.
type SocketConfig struct {
	Addr           string `mapstructure:"addr" yaml:"addr"`
	ReadLimitBytes int64  `mapstructure:"read_limit_bytes" yaml:"read_limit_bytes"`
	SendBuffer     int    `mapstructure:"send_buffer" yaml:"send_buffer"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	TokenSecret   string `mapstructure:"token_secret" yaml:"token_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours" yaml:"token_ttl_hours"`
}

// EngineConfig tunes the client-side drawing engine.
type EngineConfig struct {
	HitThreshold    float64 `mapstructure:"hit_threshold" yaml:"hit_threshold"`
	MinShapeSize    float64 `mapstructure:"min_shape_size" yaml:"min_shape_size"`
	DefaultFontSize float64 `mapstructure:"default_font_size" yaml:"default_font_size"`
}

// ToSchema converts the engine section to the schema config.
func (e EngineConfig) ToSchema() schema.EngineConfig {
	return schema.EngineConfig{
		HitThreshold:    e.HitThreshold,
		MinShapeSize:    e.MinShapeSize,
		DefaultFontSize: e.DefaultFontSize,
	}
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".sketchroom", "sketchroom.db"),
		},
		HTTP: HTTPConfig{
			Addr:         ":27490",
			HistoryLimit: 1000,
		},
		Socket: SocketConfig{
			Addr:           ":27491",
			ReadLimitBytes: 1 << 20,
			SendBuffer:     64,
		},
		Auth: AuthConfig{
			TokenSecret:   "",
			TokenTTLHours: 24,
		},
		Engine: EngineConfig{
			HitThreshold:    schema.DefaultHitThreshold,
			MinShapeSize:    schema.DefaultMinShapeSize,
			DefaultFontSize: 16,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sketchroom", "config.yaml"), nil
}
