// Package config loads the JSON tuning configuration shared by the CLI and
// the monitor. Fields are pointers so a partial file only overrides what it
// names; the Get* accessors fall back to defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fusion-imaging/sitsi/internal/invert"
	"github.com/fusion-imaging/sitsi/internal/video/filters"
)

// InversionConfig is the root tuning configuration.
type InversionConfig struct {
	// Filter params
	HXRThreshold  *float64 `json:"hxr_threshold,omitempty"`
	ArtifactSigma *float64 `json:"artifact_sigma,omitempty"`

	// Inversion params
	Method *string `json:"method,omitempty"` // "standard", "diff" or "svd"

	// Frame subset applied before inversion (row offset, column offset,
	// rows, columns). All four must be present together.
	SubsetX *int `json:"subset_x,omitempty"`
	SubsetY *int `json:"subset_y,omitempty"`
	SubsetW *int `json:"subset_w,omitempty"`
	SubsetH *int `json:"subset_h,omitempty"`

	// TrueMaximum outlier rejection
	TrueMaxThreshold *float64 `json:"true_max_threshold,omitempty"`
	TrueMaxOrder     *int     `json:"true_max_order,omitempty"`
}

// Load reads an InversionConfig from a JSON file. Omitted fields keep their
// defaults, so partial configs are safe.
func Load(path string) (*InversionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &InversionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field consistency.
func (c *InversionConfig) Validate() error {
	if c.HXRThreshold != nil && (*c.HXRThreshold <= 0 || *c.HXRThreshold >= 1) {
		return fmt.Errorf("hxr_threshold must be in (0,1), got %v", *c.HXRThreshold)
	}
	if c.ArtifactSigma != nil && *c.ArtifactSigma <= 0 {
		return fmt.Errorf("artifact_sigma must be positive, got %v", *c.ArtifactSigma)
	}
	if c.Method != nil {
		switch invert.Method(*c.Method) {
		case invert.MethodStandard, invert.MethodDiff, invert.MethodSVD:
		default:
			return fmt.Errorf("method must be standard, diff or svd, got %q", *c.Method)
		}
	}
	if c.TrueMaxThreshold != nil && *c.TrueMaxThreshold <= 0 {
		return fmt.Errorf("true_max_threshold must be positive, got %v", *c.TrueMaxThreshold)
	}
	if c.TrueMaxOrder != nil && *c.TrueMaxOrder < 1 {
		return fmt.Errorf("true_max_order must be at least 1, got %d", *c.TrueMaxOrder)
	}

	set := 0
	for _, p := range []*int{c.SubsetX, c.SubsetY, c.SubsetW, c.SubsetH} {
		if p != nil {
			set++
		}
	}
	if set != 0 && set != 4 {
		return fmt.Errorf("subset requires all of subset_x, subset_y, subset_w, subset_h")
	}
	if set == 4 && (*c.SubsetW <= 0 || *c.SubsetH <= 0) {
		return fmt.Errorf("subset_w and subset_h must be positive")
	}
	return nil
}

// GetHXRThreshold returns the configured HXR threshold or the default.
func (c *InversionConfig) GetHXRThreshold() float64 {
	if c.HXRThreshold != nil {
		return *c.HXRThreshold
	}
	return filters.DefaultHXRThreshold
}

// GetArtifactSigma returns the configured artifact smoothing width or the
// default.
func (c *InversionConfig) GetArtifactSigma() float64 {
	if c.ArtifactSigma != nil {
		return *c.ArtifactSigma
	}
	return filters.DefaultArtifactSigma
}

// GetMethod returns the configured inversion method or the default.
func (c *InversionConfig) GetMethod() invert.Method {
	if c.Method != nil {
		return invert.Method(*c.Method)
	}
	return invert.MethodStandard
}

// Subset returns the configured frame subset, or ok=false when unset.
func (c *InversionConfig) Subset() (x, y, w, h int, ok bool) {
	if c.SubsetX == nil {
		return 0, 0, 0, 0, false
	}
	return *c.SubsetX, *c.SubsetY, *c.SubsetW, *c.SubsetH, true
}
