// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtcache/internal/resource"
)

// Framebuffer binds a render target's attachment views to a render pass.
//
// A Framebuffer holds references on its views and its pass, so the
// attachments outlive any render target that hands the framebuffer to a
// command buffer.
type Framebuffer struct {
	resource.Managed

	pass    *RenderPass
	color   *View
	resolve *View
	stencil *View
	dims    Dimensions
}

func newFramebuffer(pass *RenderPass, dims Dimensions, color, resolve, stencil *View) *Framebuffer {
	fb := &Framebuffer{
		pass:    pass,
		color:   color,
		resolve: resolve,
		stencil: stencil,
		dims:    dims,
	}
	pass.Ref()
	for _, v := range fb.views() {
		v.Ref()
	}
	fb.Init(fb.free)
	return fb
}

func (fb *Framebuffer) views() []*View {
	views := make([]*View, 0, 3)
	for _, v := range []*View{fb.color, fb.resolve, fb.stencil} {
		if v != nil {
			views = append(views, v)
		}
	}
	return views
}

func (fb *Framebuffer) free(abandon bool) {
	for _, v := range fb.views() {
		if abandon {
			v.UnrefAndAbandon()
		} else {
			v.Unref()
		}
	}
	if abandon {
		fb.pass.UnrefAndAbandon()
	} else {
		fb.pass.Unref()
	}
}

// RenderPass returns the pass the framebuffer was built for.
func (fb *Framebuffer) RenderPass() *RenderPass { return fb.pass }

// ColorView returns the color attachment view (the MSAA view when multisampled).
func (fb *Framebuffer) ColorView() *View { return fb.color }

// ResolveView returns the resolve view, or nil without MSAA.
func (fb *Framebuffer) ResolveView() *View { return fb.resolve }

// StencilView returns the stencil view, or nil for non-stencil framebuffers.
func (fb *Framebuffer) StencilView() *View { return fb.stencil }

// Dimensions returns the framebuffer size.
func (fb *Framebuffer) Dimensions() Dimensions { return fb.dims }

// RenderPassDescriptor builds the descriptor used to begin pass on this
// framebuffer. A nil pass selects the framebuffer's own pass. The pass must
// be compatible with the framebuffer's pass; its load/store ops are used.
//
// The stencil aspect uses the pass's stencil ops; the depth aspect is
// cleared to 1.0 and discarded.
func (fb *Framebuffer) RenderPassDescriptor(pass *RenderPass, clear gputypes.Color) (*hal.RenderPassDescriptor, error) {
	if pass == nil {
		pass = fb.pass
	}
	if !pass.IsCompatibleWith(fb.pass) {
		return nil, fmt.Errorf("%w: %s with framebuffer for %s", ErrIncompatibleRenderPass, pass, fb.pass)
	}

	color := hal.RenderPassColorAttachment{
		View:       fb.color.Raw(),
		LoadOp:     pass.colorOps.Load,
		StoreOp:    pass.colorOps.Store,
		ClearValue: clear,
	}
	if fb.resolve != nil {
		color.ResolveTarget = fb.resolve.Raw()
	}

	desc := &hal.RenderPassDescriptor{
		Label:            "rtcache_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if fb.stencil != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              fb.stencil.Raw(),
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   1.0,
			StencilLoadOp:     pass.stencilOps.Load,
			StencilStoreOp:    pass.stencilOps.Store,
			StencilClearValue: 0,
		}
	}
	return desc, nil
}

// framebufferCache holds a target's framebuffers, one per stencil flag.
type framebufferCache struct {
	slots map[bool]*Framebuffer
}

func (c *framebufferCache) lookup(withStencil bool) (*Framebuffer, bool) {
	fb, ok := c.slots[withStencil]
	return fb, ok
}

func (c *framebufferCache) store(withStencil bool, fb *Framebuffer) {
	if c.slots == nil {
		c.slots = make(map[bool]*Framebuffer, 2)
	}
	c.slots[withStencil] = fb
}

func (c *framebufferCache) drop(abandon bool) {
	for _, fb := range c.slots {
		if abandon {
			fb.UnrefAndAbandon()
		} else {
			fb.Unref()
		}
	}
	c.slots = nil
}
