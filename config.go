// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a texture format that reads and writes as its WebGPU name in
// config files.
type Format gputypes.TextureFormat

var formatNames = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatUndefined:           "undefined",
	gputypes.TextureFormatRGBA8Unorm:          "rgba8unorm",
	gputypes.TextureFormatBGRA8Unorm:          "bgra8unorm",
	gputypes.TextureFormatR8Unorm:             "r8unorm",
	gputypes.TextureFormatDepth24PlusStencil8: "depth24plus-stencil8",
}

// TextureFormat returns the backend format.
func (f Format) TextureFormat() gputypes.TextureFormat { return gputypes.TextureFormat(f) }

// String returns the WebGPU name of the format.
func (f Format) String() string {
	if name, ok := formatNames[f.TextureFormat()]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	name, ok := formatNames[f.TextureFormat()]
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %d", ErrInvalidConfig, int(f))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Names are case-insensitive.
func (f *Format) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for format, n := range formatNames {
		if n == name {
			*f = Format(format)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, text)
}

// GPUConfig configures the caps of a GPU.
type GPUConfig struct {
	StencilFormat  Format `toml:"stencil_format" yaml:"stencil_format"`
	MaxSampleCount uint32 `toml:"max_sample_count" yaml:"max_sample_count"`
}

// Caps returns DefaultCaps built from the config.
func (c GPUConfig) Caps() *DefaultCaps {
	return &DefaultCaps{
		Stencil:        c.StencilFormat.TextureFormat(),
		MaxSampleCount: c.MaxSampleCount,
	}
}

// TargetConfig describes one owning render target.
type TargetConfig struct {
	Name        string `toml:"name" yaml:"name"`
	Width       uint32 `toml:"width" yaml:"width"`
	Height      uint32 `toml:"height" yaml:"height"`
	SampleCount uint32 `toml:"sample_count" yaml:"sample_count"`
	Format      Format `toml:"format" yaml:"format"`
	Stencil     bool   `toml:"stencil" yaml:"stencil"`
}

// Dimensions returns the configured size.
func (t TargetConfig) Dimensions() Dimensions {
	return Dimensions{Width: t.Width, Height: t.Height}
}

// Config is a set of render targets on one GPU, loaded from TOML or YAML.
//
// Example (TOML):
//
//	[gpu]
//	stencil_format = "depth24plus-stencil8"
//	max_sample_count = 4
//
//	[[targets]]
//	name = "main"
//	width = 256
//	height = 256
//	sample_count = 4
//	format = "bgra8unorm"
//	stencil = true
type Config struct {
	GPU     GPUConfig      `toml:"gpu" yaml:"gpu"`
	Targets []TargetConfig `toml:"targets" yaml:"targets"`
}

// DefaultConfig returns the GPU defaults of NewDefaultCaps and no targets.
func DefaultConfig() *Config {
	caps := NewDefaultCaps()
	return &Config{
		GPU: GPUConfig{
			StencilFormat:  Format(caps.Stencil),
			MaxSampleCount: caps.MaxSampleCount,
		},
	}
}

// LoadConfig reads a config file. The extension selects the decoder:
// .toml, or .yaml/.yml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data as TOML or YAML depending on ext. Fields missing
// from data keep the values of DefaultConfig.
func ParseConfig(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		err = toml.Unmarshal(data, cfg)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks every target against caps. A nil caps uses the GPU section.
func (c *Config) Validate(caps Caps) error {
	if caps == nil {
		caps = c.GPU.Caps()
	}
	var errs []error
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("targets[%d]", i)
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", name))
		}
		seen[name] = true
		if t.Dimensions().IsEmpty() {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrInvalidDimensions))
		}
		if !caps.IsFormatRenderable(t.Format.TextureFormat(), 1) {
			errs = append(errs, fmt.Errorf("%s: %w: %s", name, ErrUnsupportedFormat, t.Format))
			continue
		}
		if !caps.IsFormatRenderable(t.Format.TextureFormat(), t.SampleCount) {
			errs = append(errs, fmt.Errorf("%s: %w: %d", name, ErrInvalidSampleCount, t.SampleCount))
		}
		if t.Stencil && caps.StencilFormat() == gputypes.TextureFormatUndefined {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrStencilUnavailable))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
