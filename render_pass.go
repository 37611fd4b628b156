// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rtcache/internal/resource"
)

// AttachmentDesc describes one attachment slot of a render pass.
type AttachmentDesc struct {
	Format  gputypes.TextureFormat
	Samples uint32
	Usage   gputypes.TextureUsage
}

// AttachmentsDescriptor is the structural signature of a render pass. Two
// passes with equal descriptors and flags are compatible: pipelines built
// against one can be used with the other.
//
// AttachmentsDescriptor is comparable and is used directly as a map key.
type AttachmentsDescriptor struct {
	Color   AttachmentDesc
	Resolve AttachmentDesc
	Stencil AttachmentDesc
}

// AttachmentFlags says which slots of an AttachmentsDescriptor are in use.
type AttachmentFlags uint8

const (
	// AttachmentHasColor marks a color attachment.
	AttachmentHasColor AttachmentFlags = 1 << iota

	// AttachmentHasResolve marks an MSAA resolve attachment.
	AttachmentHasResolve

	// AttachmentHasStencil marks a depth/stencil attachment.
	AttachmentHasStencil

	// AttachmentExternal marks a pass owned by the host.
	AttachmentExternal
)

// Has reports whether all bits of x are set.
func (f AttachmentFlags) Has(x AttachmentFlags) bool { return f&x == x }

// String returns the set flags joined by "|".
func (f AttachmentFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, e := range []struct {
		flag AttachmentFlags
		name string
	}{
		{AttachmentHasColor, "Color"},
		{AttachmentHasResolve, "Resolve"},
		{AttachmentHasStencil, "Stencil"},
		{AttachmentExternal, "External"},
	} {
		if f.Has(e.flag) {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}

// LoadStoreOps are the load and store operations of one attachment.
type LoadStoreOps struct {
	Load  gputypes.LoadOp
	Store gputypes.StoreOp
}

// LoadStore preserves previous contents and keeps the results. It is the
// op pair of simple render passes.
var LoadStore = LoadStoreOps{Load: gputypes.LoadOpLoad, Store: gputypes.StoreOpStore}

// ClearStore clears at the start of the pass and keeps the results.
var ClearStore = LoadStoreOps{Load: gputypes.LoadOpClear, Store: gputypes.StoreOpStore}

// ClearDiscard clears at the start and discards at the end. Used for
// transient stencil contents.
var ClearDiscard = LoadStoreOps{Load: gputypes.LoadOpClear, Store: gputypes.StoreOpDiscard}

// RenderPass describes the attachment layout and load/store behavior a draw
// sequence expects. WebGPU has no render pass objects; a RenderPass is
// turned into a hal.RenderPassDescriptor by a Framebuffer when the pass begins.
//
// RenderPass is reference counted. The pass that a ResourceProvider or a
// RenderTarget hands out carries a reference owned by the receiver.
type RenderPass struct {
	resource.Managed

	desc       AttachmentsDescriptor
	flags      AttachmentFlags
	colorOps   LoadStoreOps
	stencilOps LoadStoreOps

	// colorAttachmentIndex is the index of the color attachment inside an
	// external pass. Zero for passes built here.
	colorAttachmentIndex uint32
}

func newRenderPass(desc AttachmentsDescriptor, flags AttachmentFlags, colorOps, stencilOps LoadStoreOps) *RenderPass {
	rp := &RenderPass{
		desc:       desc,
		flags:      flags,
		colorOps:   colorOps,
		stencilOps: stencilOps,
	}
	rp.Init(rp.free)
	return rp
}

// NewExternalRenderPass describes a render pass the host has begun. The
// returned pass holds one reference owned by the caller; MakeExternalWrap
// takes its own.
func NewExternalRenderPass(format gputypes.TextureFormat, samples uint32, colorAttachmentIndex uint32) *RenderPass {
	if samples == 0 {
		samples = 1
	}
	rp := newRenderPass(AttachmentsDescriptor{
		Color: AttachmentDesc{
			Format:  format,
			Samples: samples,
			Usage:   gputypes.TextureUsageRenderAttachment,
		},
	}, AttachmentHasColor|AttachmentExternal, LoadStore, LoadStoreOps{})
	rp.colorAttachmentIndex = colorAttachmentIndex
	return rp
}

func (rp *RenderPass) free(abandon bool) {
	Logger().Debug("rtcache: render pass freed",
		slog.String("flags", rp.flags.String()),
		slog.Bool("abandon", abandon))
}

// Descriptor returns the attachment signature.
func (rp *RenderPass) Descriptor() AttachmentsDescriptor { return rp.desc }

// Flags returns the attachment flags.
func (rp *RenderPass) Flags() AttachmentFlags { return rp.flags }

// ColorOps returns the color attachment load/store ops.
func (rp *RenderPass) ColorOps() LoadStoreOps { return rp.colorOps }

// StencilOps returns the stencil attachment load/store ops.
func (rp *RenderPass) StencilOps() LoadStoreOps { return rp.stencilOps }

// HasStencilAttachment reports whether the pass includes a stencil attachment.
func (rp *RenderPass) HasStencilAttachment() bool { return rp.flags.Has(AttachmentHasStencil) }

// IsExternal reports whether the pass belongs to the host.
func (rp *RenderPass) IsExternal() bool { return rp.flags.Has(AttachmentExternal) }

// ColorAttachmentIndex returns the color attachment index of an external pass.
func (rp *RenderPass) ColorAttachmentIndex() uint32 { return rp.colorAttachmentIndex }

// IsCompatible reports whether the pass matches desc and flags, ignoring
// load/store ops.
func (rp *RenderPass) IsCompatible(desc AttachmentsDescriptor, flags AttachmentFlags) bool {
	return rp.desc == desc && rp.flags == flags
}

// IsCompatibleWith reports whether two passes can be substituted for each other.
func (rp *RenderPass) IsCompatibleWith(other *RenderPass) bool {
	return other != nil && rp.IsCompatible(other.desc, other.flags)
}

func (rp *RenderPass) equalOps(colorOps, stencilOps LoadStoreOps) bool {
	return rp.colorOps == colorOps && rp.stencilOps == stencilOps
}

// String returns a short description for logs.
func (rp *RenderPass) String() string {
	return fmt.Sprintf("RenderPass[%s samples=%d]", rp.flags, rp.desc.Color.Samples)
}

// CompatibleRenderPassHandle names a compatible set in a ResourceProvider.
// The zero value is invalid.
type CompatibleRenderPassHandle struct {
	id int
}

// IsValid reports whether the handle names a compatible set.
func (h CompatibleRenderPassHandle) IsValid() bool { return h.id > 0 }

// cachedPass is one slot of a renderPassCache.
type cachedPass struct {
	pass   *RenderPass
	handle CompatibleRenderPassHandle
}

// renderPassCache holds a target's simple passes, one per stencil flag.
type renderPassCache struct {
	slots map[bool]cachedPass
}

func (c *renderPassCache) lookup(withStencil bool) (cachedPass, bool) {
	cp, ok := c.slots[withStencil]
	return cp, ok
}

func (c *renderPassCache) store(withStencil bool, cp cachedPass) {
	if c.slots == nil {
		c.slots = make(map[bool]cachedPass, 2)
	}
	c.slots[withStencil] = cp
}

// drop unrefs every cached pass and empties the cache.
func (c *renderPassCache) drop(abandon bool) {
	for _, cp := range c.slots {
		if abandon {
			cp.pass.UnrefAndAbandon()
		} else {
			cp.pass.Unref()
		}
	}
	c.slots = nil
}
