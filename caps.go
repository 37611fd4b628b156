// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import "github.com/gogpu/gputypes"

// Dimensions is the size of a render target in pixels.
type Dimensions struct {
	Width  uint32
	Height uint32
}

// IsEmpty reports whether either side is zero.
func (d Dimensions) IsEmpty() bool { return d.Width == 0 || d.Height == 0 }

// Caps answers backend format capability queries.
type Caps interface {
	// StencilFormat returns the depth/stencil format used for stencil
	// attachments, or TextureFormatUndefined when stencil is unsupported.
	StencilFormat() gputypes.TextureFormat

	// IsFormatRenderable reports whether format can be a color attachment
	// with the given sample count.
	IsFormatRenderable(format gputypes.TextureFormat, samples uint32) bool

	// BytesPerPixel returns the size of one sample of format, or 0 if unknown.
	BytesPerPixel(format gputypes.TextureFormat) uint64
}

// ComputeSize returns the memory used by an image of format and dims with
// the given number of samples, without mipmaps.
func ComputeSize(caps Caps, format gputypes.TextureFormat, dims Dimensions, samples uint32) uint64 {
	return uint64(dims.Width) * uint64(dims.Height) * caps.BytesPerPixel(format) * uint64(samples)
}

// DefaultCaps is a Caps for the formats gogpu renders with.
type DefaultCaps struct {
	// Stencil is the stencil attachment format. Undefined disables stencil.
	Stencil gputypes.TextureFormat

	// MaxSampleCount bounds the MSAA sample count. Zero means 1.
	MaxSampleCount uint32
}

// NewDefaultCaps returns caps with Depth24PlusStencil8 stencil and 4x MSAA.
func NewDefaultCaps() *DefaultCaps {
	return &DefaultCaps{
		Stencil:        gputypes.TextureFormatDepth24PlusStencil8,
		MaxSampleCount: 4,
	}
}

// StencilFormat implements Caps.
func (c *DefaultCaps) StencilFormat() gputypes.TextureFormat { return c.Stencil }

// IsFormatRenderable implements Caps.
func (c *DefaultCaps) IsFormatRenderable(format gputypes.TextureFormat, samples uint32) bool {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatR8Unorm:
	default:
		return false
	}
	maxSamples := c.MaxSampleCount
	if maxSamples == 0 {
		maxSamples = 1
	}
	// Sample counts are powers of two.
	return samples != 0 && samples&(samples-1) == 0 && samples <= maxSamples
}

// BytesPerPixel implements Caps.
func (c *DefaultCaps) BytesPerPixel(format gputypes.TextureFormat) uint64 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	default:
		return 0
	}
}

var _ Caps = (*DefaultCaps)(nil)
