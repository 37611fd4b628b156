// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DrawableInfo describes the host-owned drawable a wrapped target records into.
type DrawableInfo struct {
	// RenderPass is the pass the host began the encoder with. Required.
	// Build it with NewExternalRenderPass.
	RenderPass *RenderPass

	// Format is the color format of the host attachment. It must match the
	// host pass; Undefined takes the pass's format.
	Format gputypes.TextureFormat

	// ColorAttachmentIndex is the color attachment slot draws target. It
	// must match the host pass.
	ColorAttachmentIndex uint32
}

// wrapState is the identity of a target created by MakeExternalWrap.
// The host pass lives in the non-stencil slot of the target's pass cache.
type wrapState struct {
	encoder hal.RenderPassEncoder
	info    DrawableInfo
	retire  ResourceRetireList
}
