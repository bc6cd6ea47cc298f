package schema

import "errors"

// EngineConfig defines limits and thresholds for the client-side engine.
type EngineConfig struct {
	// HitThreshold pads every shape's hit geometry, in canvas units.
	HitThreshold float64
	// MinShapeSize is the floor a resize can shrink a box shape to.
	MinShapeSize float64
	// DefaultFontSize applies to text shapes created without an explicit size.
	DefaultFontSize float64
}

// DefaultHitThreshold matches the proximity used by every shape kind.
const DefaultHitThreshold = 15.0

// DefaultMinShapeSize keeps resized boxes from collapsing or inverting.
const DefaultMinShapeSize = 10.0

// NormalizeEngineConfig applies defaults and validates the config.
func NormalizeEngineConfig(cfg EngineConfig) (EngineConfig, error) {
	if cfg.HitThreshold == 0 {
		cfg.HitThreshold = DefaultHitThreshold
	}
	if cfg.MinShapeSize == 0 {
		cfg.MinShapeSize = DefaultMinShapeSize
	}
	if cfg.DefaultFontSize == 0 {
		cfg.DefaultFontSize = 16
	}
	if cfg.HitThreshold < 0 || cfg.MinShapeSize < 0 || cfg.DefaultFontSize <= 0 {
		return EngineConfig{}, errors.New("engine thresholds must be positive")
	}
	return cfg, nil
}
