package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical segmentation defaults file.
const DefaultConfigPath = "config/segmentation.defaults.json"

// Built-in defaults, used when a field is absent from the loaded JSON.
const (
	defaultCellSize        = 0.5
	defaultMinTreeHeight   = 2.0
	defaultMaxCrownRadius  = 15.0
	defaultGrowthDistance  = 1.5
	defaultGrowthAngleDeg  = 60.0
	defaultGroundThreshold = 0.5
	defaultWindowSize      = 3
	defaultMaxIterations   = 20
	defaultUseSpatialIndex = true
)

// SegmentationConfig holds the tunable parameters of a segmentation run.
// Nil fields fall back to the built-in defaults through the Get* methods,
// so partial JSON files are safe.
type SegmentationConfig struct {
	// Raster and tree-top detection
	CellSize      *float64 `json:"cell_size,omitempty"`
	MinTreeHeight *float64 `json:"min_tree_height,omitempty"`
	WindowSize    *int     `json:"window_size,omitempty"`

	// Region growing
	MaxCrownRadius *float64 `json:"max_crown_radius,omitempty"`
	GrowthDistance *float64 `json:"growth_distance,omitempty"`
	GrowthAngleDeg *float64 `json:"growth_angle_deg,omitempty"`
	MaxIterations  *int     `json:"max_iterations,omitempty"`

	// Ground classification
	GroundThreshold *float64 `json:"ground_threshold,omitempty"`

	// Neighbor queries: R-tree when true, linear scan otherwise
	UseSpatialIndex *bool `json:"use_spatial_index,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptySegmentationConfig returns a config with every field unset.
func EmptySegmentationConfig() *SegmentationConfig {
	return &SegmentationConfig{}
}

// DefaultSegmentationConfig returns a config with every field set to its
// built-in default.
func DefaultSegmentationConfig() *SegmentationConfig {
	return &SegmentationConfig{
		CellSize:        ptrFloat64(defaultCellSize),
		MinTreeHeight:   ptrFloat64(defaultMinTreeHeight),
		WindowSize:      ptrInt(defaultWindowSize),
		MaxCrownRadius:  ptrFloat64(defaultMaxCrownRadius),
		GrowthDistance:  ptrFloat64(defaultGrowthDistance),
		GrowthAngleDeg:  ptrFloat64(defaultGrowthAngleDeg),
		MaxIterations:   ptrInt(defaultMaxIterations),
		GroundThreshold: ptrFloat64(defaultGroundThreshold),
		UseSpatialIndex: ptrBool(defaultUseSpatialIndex),
	}
}

// LoadSegmentationConfig loads a SegmentationConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSegmentationConfig(path string) (*SegmentationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptySegmentationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *SegmentationConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/forest/pipeline/
		"../../../../" + DefaultConfigPath,    // deeper packages
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadSegmentationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Merge copies every field set in other over c and returns c.
func (c *SegmentationConfig) Merge(other *SegmentationConfig) *SegmentationConfig {
	if other == nil {
		return c
	}
	if other.CellSize != nil {
		c.CellSize = ptrFloat64(*other.CellSize)
	}
	if other.MinTreeHeight != nil {
		c.MinTreeHeight = ptrFloat64(*other.MinTreeHeight)
	}
	if other.WindowSize != nil {
		c.WindowSize = ptrInt(*other.WindowSize)
	}
	if other.MaxCrownRadius != nil {
		c.MaxCrownRadius = ptrFloat64(*other.MaxCrownRadius)
	}
	if other.GrowthDistance != nil {
		c.GrowthDistance = ptrFloat64(*other.GrowthDistance)
	}
	if other.GrowthAngleDeg != nil {
		c.GrowthAngleDeg = ptrFloat64(*other.GrowthAngleDeg)
	}
	if other.MaxIterations != nil {
		c.MaxIterations = ptrInt(*other.MaxIterations)
	}
	if other.GroundThreshold != nil {
		c.GroundThreshold = ptrFloat64(*other.GroundThreshold)
	}
	if other.UseSpatialIndex != nil {
		c.UseSpatialIndex = ptrBool(*other.UseSpatialIndex)
	}
	return c
}

// Validate checks that the configuration values are valid.
func (c *SegmentationConfig) Validate() error {
	if c.CellSize != nil && *c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %f", *c.CellSize)
	}
	if c.MinTreeHeight != nil && *c.MinTreeHeight < 0 {
		return fmt.Errorf("min_tree_height must be non-negative, got %f", *c.MinTreeHeight)
	}
	if c.WindowSize != nil && *c.WindowSize < 0 {
		return fmt.Errorf("window_size must be non-negative, got %d", *c.WindowSize)
	}
	if c.MaxCrownRadius != nil && *c.MaxCrownRadius <= 0 {
		return fmt.Errorf("max_crown_radius must be positive, got %f", *c.MaxCrownRadius)
	}
	if c.GrowthDistance != nil && *c.GrowthDistance <= 0 {
		return fmt.Errorf("growth_distance must be positive, got %f", *c.GrowthDistance)
	}
	if c.GrowthAngleDeg != nil {
		if *c.GrowthAngleDeg < 0 || *c.GrowthAngleDeg > 90 {
			return fmt.Errorf("growth_angle_deg must be between 0 and 90, got %f", *c.GrowthAngleDeg)
		}
	}
	if c.MaxIterations != nil && *c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative, got %d", *c.MaxIterations)
	}
	return nil
}

// GetCellSize returns the cell_size value or the default.
func (c *SegmentationConfig) GetCellSize() float64 {
	if c.CellSize == nil {
		return defaultCellSize
	}
	return *c.CellSize
}

// GetMinTreeHeight returns the min_tree_height value or the default.
func (c *SegmentationConfig) GetMinTreeHeight() float64 {
	if c.MinTreeHeight == nil {
		return defaultMinTreeHeight
	}
	return *c.MinTreeHeight
}

// GetWindowSize returns the window_size value or the default.
func (c *SegmentationConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return defaultWindowSize
	}
	return *c.WindowSize
}

// GetMaxCrownRadius returns the max_crown_radius value or the default.
func (c *SegmentationConfig) GetMaxCrownRadius() float64 {
	if c.MaxCrownRadius == nil {
		return defaultMaxCrownRadius
	}
	return *c.MaxCrownRadius
}

// GetGrowthDistance returns the growth_distance value or the default.
func (c *SegmentationConfig) GetGrowthDistance() float64 {
	if c.GrowthDistance == nil {
		return defaultGrowthDistance
	}
	return *c.GrowthDistance
}

// GetGrowthAngleDeg returns the growth_angle_deg value or the default.
func (c *SegmentationConfig) GetGrowthAngleDeg() float64 {
	if c.GrowthAngleDeg == nil {
		return defaultGrowthAngleDeg
	}
	return *c.GrowthAngleDeg
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *SegmentationConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return defaultMaxIterations
	}
	return *c.MaxIterations
}

// GetGroundThreshold returns the ground_threshold value or the default.
func (c *SegmentationConfig) GetGroundThreshold() float64 {
	if c.GroundThreshold == nil {
		return defaultGroundThreshold
	}
	return *c.GroundThreshold
}

// GetUseSpatialIndex returns the use_spatial_index value or the default.
func (c *SegmentationConfig) GetUseSpatialIndex() bool {
	if c.UseSpatialIndex == nil {
		return defaultUseSpatialIndex
	}
	return *c.UseSpatialIndex
}

// JSON returns the config as indented JSON, with unset fields omitted.
func (c *SegmentationConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
