// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtcache"
)

const hostUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc

// run builds every configured target on device, prints one line per target
// and a provider summary, then releases the targets.
func run(w io.Writer, cfg *rtcache.Config, device rtcache.Device) error {
	if err := cfg.Validate(nil); err != nil {
		return err
	}
	gpu, err := rtcache.NewGPUWithDevice(device, rtcache.WithCaps(cfg.GPU.Caps()))
	if err != nil {
		return err
	}
	provider := gpu.ResourceProvider()
	defer provider.Destroy(false)

	var targets []*rtcache.RenderTarget
	defer func() {
		for _, rt := range targets {
			rt.Release()
		}
	}()

	var total uint64
	for _, t := range cfg.Targets {
		rt, err := makeTarget(gpu, device, t)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
		targets = append(targets, rt)

		stencil := t.Stencil && rt.RequestStencilAttachment()
		fb, err := rt.GetFramebuffer(stencil)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
		handle, err := rt.CompatibleRenderPassHandle(stencil)
		if err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}

		size := rt.GPUMemorySize()
		total += size
		fmt.Fprintf(w, "%-12s %5dx%-5d samples=%d format=%s stencil=%-5t bytes=%-9d pass=%s set=%v\n",
			t.Name, t.Width, t.Height, rt.SampleCount(), t.Format, stencil, size,
			fb.RenderPass(), handle.IsValid())
	}

	hits, misses := provider.Stats()
	fmt.Fprintf(w, "targets=%d bytes=%d compatible_sets=%d hits=%d misses=%d\n",
		len(targets), total, provider.CompatibleSetCount(), hits, misses)
	return nil
}

// makeTarget creates the host color texture for t and an owning target
// that takes ownership of it.
func makeTarget(gpu *rtcache.GPU, device rtcache.Device, t rtcache.TargetConfig) (*rtcache.RenderTarget, error) {
	format := t.Format.TextureFormat()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: t.Name,
		Size: hal.Extent3D{
			Width:              t.Width,
			Height:             t.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         hostUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create host texture: %w", err)
	}

	rt, err := rtcache.MakeOwning(gpu, t.Dimensions(), t.SampleCount, rtcache.ImageInfo{
		Texture:     tex,
		Format:      format,
		SampleCount: 1,
		Usage:       hostUsage,
		Ownership:   rtcache.OwnershipOwned,
		Label:       t.Name,
	}, nil)
	if err != nil {
		device.DestroyTexture(tex)
		return nil, err
	}
	return rt, nil
}
