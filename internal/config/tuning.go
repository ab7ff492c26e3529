package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Fail-safe defaults: with these values clustering admits only exact
// overlaps and nothing is merged across tracks or events.
const (
	DefaultRadius                = 1e-9
	DefaultMinPoints             = 1
	DefaultSidebandTimeTolerance = 0.0
	DefaultJumpTimeTolerance     = 0.0
	DefaultDistanceBackend       = "dense"
	DefaultEventStrategy         = "sweep"
	DefaultMaxIndexGap           = 0 // unbounded
	DefaultFlushWorkers          = 1
)

// Event strategies.
const (
	EventStrategySweep  = "sweep"
	EventStrategyDBSCAN = "dbscan"
)

// TuningConfig holds every recognised option. Unset fields are nil and
// the Get* accessors fall back to the defaults above, so partial files
// are safe. Keys match the option names of the command line front end.
type TuningConfig struct {
	// Track clustering: per-axis tolerance (time seconds, frequency Hz).
	// Set either Radius (both axes) or Radii, never both.
	Radius    *float64  `json:"radius,omitempty" yaml:"radius,omitempty"`
	Radii     []float64 `json:"radii,omitempty" yaml:"radii,omitempty"`
	MinPoints *int      `json:"min-points,omitempty" yaml:"min-points,omitempty"`

	DistanceBackend *string `json:"distance-backend,omitempty" yaml:"distance-backend,omitempty"`
	MaxIndexGap     *int    `json:"max-index-gap,omitempty" yaml:"max-index-gap,omitempty"`

	// Multi-peak and event assembly (seconds).
	SidebandTimeTolerance *float64 `json:"sideband-time-tolerance,omitempty" yaml:"sideband-time-tolerance,omitempty"`
	JumpTimeTolerance     *float64 `json:"jump-time-tolerance,omitempty" yaml:"jump-time-tolerance,omitempty"`

	// Event strategy "sweep" (default) or "dbscan". The dbscan strategy
	// clusters track bounding boxes with EventRadii
	// (startTime, startFreq, endTime, endFreq) and EventMinPoints.
	EventStrategy  *string   `json:"event-strategy,omitempty" yaml:"event-strategy,omitempty"`
	EventRadii     []float64 `json:"event-radii,omitempty" yaml:"event-radii,omitempty"`
	EventMinPoints *int      `json:"event-min-points,omitempty" yaml:"event-min-points,omitempty"`

	// FlushWorkers bounds how many components are flushed concurrently.
	FlushWorkers *int `json:"flush-workers,omitempty" yaml:"flush-workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Radii:                 []float64{DefaultRadius, DefaultRadius},
		MinPoints:             ptrInt(DefaultMinPoints),
		DistanceBackend:       ptrString(DefaultDistanceBackend),
		MaxIndexGap:           ptrInt(DefaultMaxIndexGap),
		SidebandTimeTolerance: ptrFloat64(DefaultSidebandTimeTolerance),
		JumpTimeTolerance:     ptrFloat64(DefaultJumpTimeTolerance),
		EventStrategy:         ptrString(DefaultEventStrategy),
		EventRadii:            []float64{DefaultRadius, DefaultRadius, DefaultRadius, DefaultRadius},
		EventMinPoints:        ptrInt(DefaultMinPoints),
		FlushWorkers:          ptrInt(DefaultFlushWorkers),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml, or .yml file
// and validates it. Configuration errors are reported before any data is
// processed.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
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

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/spectral/pipeline/
		"../../../../" + DefaultConfigPath,    // deeper packages
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), spectral.ErrInvalidConfig)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Validate checks that the configuration values are valid and
// dimensionally consistent.
func (c *TuningConfig) Validate() error {
	if c.Radius != nil && c.Radii != nil {
		return invalid("radius and radii are mutually exclusive")
	}
	if c.Radius != nil && !positiveFinite(*c.Radius) {
		return invalid("radius must be positive, got %v", *c.Radius)
	}
	if c.Radii != nil {
		if len(c.Radii) != 2 {
			return invalid("radii must have 2 values (time, frequency), got %d", len(c.Radii))
		}
		for i, r := range c.Radii {
			if !positiveFinite(r) {
				return invalid("radii[%d] must be positive, got %v", i, r)
			}
		}
	}
	if c.MinPoints != nil && *c.MinPoints < 1 {
		return invalid("min-points must be >= 1, got %d", *c.MinPoints)
	}
	if c.MaxIndexGap != nil && *c.MaxIndexGap < 0 {
		return invalid("max-index-gap must be non-negative, got %d", *c.MaxIndexGap)
	}
	if c.SidebandTimeTolerance != nil && (*c.SidebandTimeTolerance < 0 || math.IsNaN(*c.SidebandTimeTolerance)) {
		return invalid("sideband-time-tolerance must be non-negative, got %v", *c.SidebandTimeTolerance)
	}
	if c.JumpTimeTolerance != nil && (*c.JumpTimeTolerance < 0 || math.IsNaN(*c.JumpTimeTolerance)) {
		return invalid("jump-time-tolerance must be non-negative, got %v", *c.JumpTimeTolerance)
	}

	backend := c.GetDistanceBackend()
	switch backend {
	case "dense", "sparse", "kdtree":
	default:
		return invalid("unknown distance-backend %q", backend)
	}

	switch c.GetEventStrategy() {
	case EventStrategySweep:
	case EventStrategyDBSCAN:
		if backend == "kdtree" {
			return invalid("event-strategy dbscan needs the dense or sparse backend")
		}
	default:
		return invalid("unknown event-strategy %q", c.GetEventStrategy())
	}

	if c.EventRadii != nil {
		if len(c.EventRadii) != 4 {
			return invalid("event-radii must have 4 values, got %d", len(c.EventRadii))
		}
		for i, r := range c.EventRadii {
			if !positiveFinite(r) {
				return invalid("event-radii[%d] must be positive, got %v", i, r)
			}
		}
	}
	if c.EventMinPoints != nil && *c.EventMinPoints < 1 {
		return invalid("event-min-points must be >= 1, got %d", *c.EventMinPoints)
	}
	if c.FlushWorkers != nil && *c.FlushWorkers < 1 {
		return invalid("flush-workers must be >= 1, got %d", *c.FlushWorkers)
	}

	return nil
}

// GetRadii returns the (time, frequency) clustering tolerances.
func (c *TuningConfig) GetRadii() [2]float64 {
	if c.Radii != nil && len(c.Radii) == 2 {
		return [2]float64{c.Radii[0], c.Radii[1]}
	}
	if c.Radius != nil {
		return [2]float64{*c.Radius, *c.Radius}
	}
	return [2]float64{DefaultRadius, DefaultRadius}
}

// GetMinPoints returns the min-points value or the default.
func (c *TuningConfig) GetMinPoints() int {
	if c.MinPoints == nil {
		return DefaultMinPoints
	}
	return *c.MinPoints
}

// GetDistanceBackend returns the distance-backend value or the default.
func (c *TuningConfig) GetDistanceBackend() string {
	if c.DistanceBackend == nil || *c.DistanceBackend == "" {
		return DefaultDistanceBackend
	}
	return *c.DistanceBackend
}

// GetMaxIndexGap returns the max-index-gap value or the default.
func (c *TuningConfig) GetMaxIndexGap() int {
	if c.MaxIndexGap == nil {
		return DefaultMaxIndexGap
	}
	return *c.MaxIndexGap
}

// GetSidebandTimeTolerance returns the sideband-time-tolerance value or the default.
func (c *TuningConfig) GetSidebandTimeTolerance() float64 {
	if c.SidebandTimeTolerance == nil {
		return DefaultSidebandTimeTolerance
	}
	return *c.SidebandTimeTolerance
}

// GetJumpTimeTolerance returns the jump-time-tolerance value or the default.
func (c *TuningConfig) GetJumpTimeTolerance() float64 {
	if c.JumpTimeTolerance == nil {
		return DefaultJumpTimeTolerance
	}
	return *c.JumpTimeTolerance
}

// GetEventStrategy returns the event-strategy value or the default.
func (c *TuningConfig) GetEventStrategy() string {
	if c.EventStrategy == nil || *c.EventStrategy == "" {
		return DefaultEventStrategy
	}
	return *c.EventStrategy
}

// GetEventRadii returns the four event clustering tolerances.
func (c *TuningConfig) GetEventRadii() [4]float64 {
	if len(c.EventRadii) == 4 {
		return [4]float64{c.EventRadii[0], c.EventRadii[1], c.EventRadii[2], c.EventRadii[3]}
	}
	return [4]float64{DefaultRadius, DefaultRadius, DefaultRadius, DefaultRadius}
}

// GetEventMinPoints returns the event-min-points value or the default.
func (c *TuningConfig) GetEventMinPoints() int {
	if c.EventMinPoints == nil {
		return DefaultMinPoints
	}
	return *c.EventMinPoints
}

// GetFlushWorkers returns the flush-workers value or the default.
func (c *TuningConfig) GetFlushWorkers() int {
	if c.FlushWorkers == nil {
		return DefaultFlushWorkers
	}
	return *c.FlushWorkers
}
