// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtcache/internal/resource"
)

// Device is the subset of hal.Device rtcache allocates attachments with.
// Any hal.Device satisfies it.
type Device = resource.Device

// Image is a reference-counted backend texture.
type Image = resource.Image

// View is a reference-counted backend texture view.
type View = resource.View

// GPU is the context handle passed to the render target factories. It ties
// a device to the format caps and the shared ResourceProvider.
type GPU struct {
	alloc    *resource.Allocator
	caps     Caps
	provider *ResourceProvider
}

// GPUOption configures a GPU during creation.
type GPUOption func(*gpuOptions)

type gpuOptions struct {
	caps     Caps
	provider *ResourceProvider
}

func defaultGPUOptions() gpuOptions {
	return gpuOptions{
		caps: NewDefaultCaps(),
	}
}

// WithCaps sets the format capability source. Defaults to NewDefaultCaps().
func WithCaps(c Caps) GPUOption {
	return func(o *gpuOptions) {
		if c != nil {
			o.caps = c
		}
	}
}

// WithResourceProvider shares an existing provider, for example between
// two GPU handles on the same device.
func WithResourceProvider(p *ResourceProvider) GPUOption {
	return func(o *gpuOptions) {
		o.provider = p
	}
}

// NewGPU creates a GPU from a host device provider. The provider must also
// implement HalDevice() any returning a hal.Device, as gogpu's providers do.
func NewGPU(provider gpucontext.DeviceProvider, opts ...GPUOption) (*GPU, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	hp, ok := provider.(interface {
		HalDevice() any
	})
	if !ok {
		return nil, ErrNoHalDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNoHalDevice
	}
	return NewGPUWithDevice(device, opts...)
}

// NewGPUWithDevice creates a GPU directly on a device.
func NewGPUWithDevice(device Device, opts ...GPUOption) (*GPU, error) {
	alloc, err := resource.NewAllocator(device)
	if err != nil {
		return nil, fmt.Errorf("new gpu: %w", err)
	}
	o := defaultGPUOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = NewResourceProvider()
	}
	return &GPU{
		alloc:    alloc,
		caps:     o.caps,
		provider: o.provider,
	}, nil
}

// Device returns the device attachments are allocated on.
func (g *GPU) Device() Device { return g.alloc.Device() }

// Caps returns the format capability source.
func (g *GPU) Caps() Caps { return g.caps }

// ResourceProvider returns the shared render pass store.
func (g *GPU) ResourceProvider() *ResourceProvider { return g.provider }
