package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Recognised wave heuristic modes. The reference joint for the wave test is
// fixed at configuration time, not per call.
const (
	WaveHeuristicShoulder = "shoulder"
	WaveHeuristicHead     = "head"
)

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be used
// for both startup configuration and runtime inspection.
type TuningConfig struct {
	// Joint localisation params
	ProbabilityThreshold *float64 `json:"probability_threshold,omitempty"`
	ROIPaddingPx         *float64 `json:"roi_padding_px,omitempty"`

	// Skeleton params
	LinkLengthThreshold *float64 `json:"link_length_threshold,omitempty"` // metres

	// Gesture params
	WaveHeuristic     *string  `json:"wave_heuristic,omitempty"` // "shoulder" or "head"
	ArmNormThreshold  *float64 `json:"arm_norm_threshold,omitempty"`
	NeckNormThreshold *float64 `json:"neck_norm_threshold,omitempty"`

	// Detection service params
	DetectTimeout *string `json:"detect_timeout,omitempty"` // duration string like "2s"

	// Pipeline params
	MaxFrameRate *float64 `json:"max_frame_rate,omitempty"` // frames/sec, 0 = unlimited
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/vision/*
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.ProbabilityThreshold != nil {
		if *c.ProbabilityThreshold < 0 || *c.ProbabilityThreshold > 1 {
			return fmt.Errorf("probability_threshold must be between 0 and 1, got %f", *c.ProbabilityThreshold)
		}
	}

	if c.ROIPaddingPx != nil && *c.ROIPaddingPx < 0 {
		return fmt.Errorf("roi_padding_px must be non-negative, got %f", *c.ROIPaddingPx)
	}

	if c.LinkLengthThreshold != nil && *c.LinkLengthThreshold <= 0 {
		return fmt.Errorf("link_length_threshold must be positive, got %f", *c.LinkLengthThreshold)
	}

	if c.WaveHeuristic != nil {
		switch *c.WaveHeuristic {
		case WaveHeuristicShoulder, WaveHeuristicHead:
		default:
			return fmt.Errorf("wave_heuristic must be %q or %q, got %q",
				WaveHeuristicShoulder, WaveHeuristicHead, *c.WaveHeuristic)
		}
	}

	if c.ArmNormThreshold != nil && (*c.ArmNormThreshold < 0 || *c.ArmNormThreshold > 1) {
		return fmt.Errorf("arm_norm_threshold must be between 0 and 1, got %f", *c.ArmNormThreshold)
	}

	if c.NeckNormThreshold != nil && (*c.NeckNormThreshold < 0 || *c.NeckNormThreshold > 1) {
		return fmt.Errorf("neck_norm_threshold must be between 0 and 1, got %f", *c.NeckNormThreshold)
	}

	// Validate DetectTimeout can be parsed if set
	if c.DetectTimeout != nil && *c.DetectTimeout != "" {
		if _, err := time.ParseDuration(*c.DetectTimeout); err != nil {
			return fmt.Errorf("invalid detect_timeout '%s': %w", *c.DetectTimeout, err)
		}
	}

	if c.MaxFrameRate != nil && *c.MaxFrameRate < 0 {
		return fmt.Errorf("max_frame_rate must be non-negative, got %f", *c.MaxFrameRate)
	}

	return nil
}

// GetProbabilityThreshold returns the probability_threshold value or the default.
func (c *TuningConfig) GetProbabilityThreshold() float64 {
	if c.ProbabilityThreshold == nil {
		return 0.2
	}
	return *c.ProbabilityThreshold
}

// GetROIPaddingPx returns the roi_padding_px value or the default.
func (c *TuningConfig) GetROIPaddingPx() float64 {
	if c.ROIPaddingPx == nil {
		return 2.0
	}
	return *c.ROIPaddingPx
}

// GetLinkLengthThreshold returns the link_length_threshold value or the default.
func (c *TuningConfig) GetLinkLengthThreshold() float64 {
	if c.LinkLengthThreshold == nil {
		return 0.5 // metres
	}
	return *c.LinkLengthThreshold
}

// GetWaveHeuristic returns the wave_heuristic value or the default.
func (c *TuningConfig) GetWaveHeuristic() string {
	if c.WaveHeuristic == nil {
		return WaveHeuristicShoulder
	}
	return *c.WaveHeuristic
}

// GetArmNormThreshold returns the arm_norm_threshold value or the default.
func (c *TuningConfig) GetArmNormThreshold() float64 {
	if c.ArmNormThreshold == nil {
		return 0.5
	}
	return *c.ArmNormThreshold
}

// GetNeckNormThreshold returns the neck_norm_threshold value or the default.
func (c *TuningConfig) GetNeckNormThreshold() float64 {
	if c.NeckNormThreshold == nil {
		return 0.7
	}
	return *c.NeckNormThreshold
}

// GetDetectTimeout parses and returns the DetectTimeout as a time.Duration.
func (c *TuningConfig) GetDetectTimeout() time.Duration {
	if c.DetectTimeout == nil || *c.DetectTimeout == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.DetectTimeout)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetMaxFrameRate returns the max_frame_rate value or the default.
func (c *TuningConfig) GetMaxFrameRate() float64 {
	if c.MaxFrameRate == nil {
		return 0 // default: process every frame
	}
	return *c.MaxFrameRate
}
