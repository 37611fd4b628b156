// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// State is the lifecycle state of a RenderTarget.
type State int

const (
	// StateConstructed means the target is usable.
	StateConstructed State = iota

	// StateAbandoned means the target was torn down without GPU synchronization.
	StateAbandoned

	// StateReleased means the target was torn down after GPU synchronization.
	StateReleased
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateAbandoned:
		return "Abandoned"
	case StateReleased:
		return "Released"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// owningState is the identity of a target created by MakeOwning.
type owningState struct {
	attachments  *AttachmentSet
	framebuffers framebufferCache
	info         ImageInfo
}

// RenderTarget is a render target in one of two fixed modes: owning its
// attachments, or wrapping a host encoder. Exactly one of owning and wrap is
// set for the target's whole life.
//
// State Machine:
//
//	Constructed -> Abandon() -> Abandoned
//	Constructed -> Release() -> Released
//
// Every method panics once the target has left Constructed.
type RenderTarget struct {
	gpu     *GPU
	dims    Dimensions
	samples uint32
	format  gputypes.TextureFormat
	label   string
	state   State
	mutable *MutableState

	passes renderPassCache

	owning *owningState
	wrap   *wrapState

	onRelease func()
}

// BackendRenderTarget is a snapshot of an owning target's backend description.
type BackendRenderTarget struct {
	Dimensions   Dimensions
	SampleCount  uint32
	Format       gputypes.TextureFormat
	Image        ImageInfo
	MutableState *MutableState
}

// MakeOwning creates a render target drawing into the host color image
// described by info. With sampleCount > 1 an MSAA image is allocated and
// info's image becomes its resolve target. A nil state creates a fresh
// MutableState from info.Usage.
func MakeOwning(
	gpu *GPU,
	dims Dimensions,
	sampleCount uint32,
	info ImageInfo,
	state *MutableState,
	opts ...Option,
) (*RenderTarget, error) {
	if gpu == nil {
		return nil, ErrNilGPU
	}
	if dims.IsEmpty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, dims.Width, dims.Height)
	}
	if info.Texture == nil {
		return nil, ErrNilTexture
	}
	if info.SampleCount > 1 {
		return nil, fmt.Errorf("%w: host image has %d samples, want 1", ErrInvalidSampleCount, info.SampleCount)
	}
	if !gpu.caps.IsFormatRenderable(info.Format, 1) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, info.Format)
	}
	if sampleCount == 0 || !gpu.caps.IsFormatRenderable(info.Format, sampleCount) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, sampleCount)
	}

	o := defaultOptions()
	if info.Label != "" {
		o.label = info.Label
	}
	for _, opt := range opts {
		opt(&o)
	}
	if state == nil {
		state = NewMutableState(info.Usage, 0)
	}

	as, err := newAttachmentSet(gpu, dims, sampleCount, info, o.label)
	if err != nil {
		return nil, fmt.Errorf("make owning %q: %w", o.label, err)
	}

	Logger().Debug("rtcache: owning render target created",
		slog.String("label", o.label),
		slog.Uint64("width", uint64(dims.Width)),
		slog.Uint64("height", uint64(dims.Height)),
		slog.Uint64("samples", uint64(sampleCount)))

	return &RenderTarget{
		gpu:       gpu,
		dims:      dims,
		samples:   sampleCount,
		format:    info.Format,
		label:     o.label,
		mutable:   state,
		owning:    &owningState{attachments: as, info: info},
		onRelease: o.onRelease,
	}, nil
}

// MakeExternalWrap creates a render target that records into encoder, a
// render pass the host has begun and will submit itself. The host pass in
// info fills the target's non-stencil pass slot; the target takes its own
// reference on it.
func MakeExternalWrap(
	gpu *GPU,
	dims Dimensions,
	encoder hal.RenderPassEncoder,
	info DrawableInfo,
	opts ...Option,
) (*RenderTarget, error) {
	if gpu == nil {
		return nil, ErrNilGPU
	}
	if dims.IsEmpty() {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, dims.Width, dims.Height)
	}
	if encoder == nil {
		return nil, ErrNilCommandEncoder
	}
	if info.RenderPass == nil {
		return nil, ErrNilExternalPass
	}
	if !info.RenderPass.IsExternal() || info.RenderPass.HasStencilAttachment() {
		return nil, fmt.Errorf("%w: host pass must be external without stencil", ErrIncompatibleRenderPass)
	}
	passFormat := info.RenderPass.Descriptor().Color.Format
	if info.Format == gputypes.TextureFormatUndefined {
		info.Format = passFormat
	}
	if info.Format != passFormat || info.ColorAttachmentIndex != info.RenderPass.ColorAttachmentIndex() {
		return nil, fmt.Errorf("%w: drawable %v at index %d, host pass %v at index %d",
			ErrIncompatibleRenderPass, info.Format, info.ColorAttachmentIndex,
			passFormat, info.RenderPass.ColorAttachmentIndex())
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	info.RenderPass.Ref()
	rt := &RenderTarget{
		gpu:       gpu,
		dims:      dims,
		samples:   info.RenderPass.Descriptor().Color.Samples,
		format:    info.Format,
		label:     o.label,
		mutable:   NewMutableState(gputypes.TextureUsageRenderAttachment, 0),
		wrap:      &wrapState{encoder: encoder, info: info},
		onRelease: o.onRelease,
	}
	rt.passes.store(false, cachedPass{pass: info.RenderPass})

	Logger().Debug("rtcache: external render target wrapped",
		slog.String("label", o.label),
		slog.Uint64("width", uint64(dims.Width)),
		slog.Uint64("height", uint64(dims.Height)))

	return rt, nil
}

func (rt *RenderTarget) checkLive() {
	precondition(rt.state == StateConstructed, "render target %q used after teardown (%s)", rt.label, rt.state)
}

func (rt *RenderTarget) owningMode(op string) *owningState {
	rt.checkLive()
	precondition(rt.owning != nil, "%s requires an owning render target", op)
	return rt.owning
}

func (rt *RenderTarget) wrapMode(op string) *wrapState {
	rt.checkLive()
	precondition(rt.wrap != nil, "%s requires an external wrap render target", op)
	return rt.wrap
}

// Dimensions returns the target size.
func (rt *RenderTarget) Dimensions() Dimensions { return rt.dims }

// SampleCount returns the color sample count.
func (rt *RenderTarget) SampleCount() uint32 { return rt.samples }

// Format returns the backend color format.
func (rt *RenderTarget) Format() gputypes.TextureFormat { return rt.format }

// Label returns the debug label.
func (rt *RenderTarget) Label() string { return rt.label }

// State returns the lifecycle state. Valid in every state.
func (rt *RenderTarget) State() State { return rt.state }

// MutableState returns the shared layout/queue state.
func (rt *RenderTarget) MutableState() *MutableState {
	rt.checkLive()
	return rt.mutable
}

// WrapsExternal reports whether the target wraps a host encoder.
func (rt *RenderTarget) WrapsExternal() bool {
	rt.checkLive()
	return rt.wrap != nil
}

// CanAttemptStencilAttachment reports whether a stencil attachment may be
// requested. The stencil state of a host pass is unknown, so wrapped targets
// assume they have none.
func (rt *RenderTarget) CanAttemptStencilAttachment() bool {
	rt.checkLive()
	return rt.wrap == nil
}

// AttachmentSet returns the owned attachments. Owning mode only.
func (rt *RenderTarget) AttachmentSet() *AttachmentSet {
	return rt.owningMode("AttachmentSet").attachments
}

// ColorAttachmentView returns the view draws write to, or nil for a wrapped target.
func (rt *RenderTarget) ColorAttachmentView() *View {
	rt.checkLive()
	if rt.owning == nil {
		return nil
	}
	return rt.owning.attachments.ColorAttachmentView()
}

// MSAAImage returns the multisample image, or nil without MSAA or for a
// wrapped target.
func (rt *RenderTarget) MSAAImage() *Image {
	rt.checkLive()
	if rt.owning == nil {
		return nil
	}
	return rt.owning.attachments.MSAAImage()
}

// ResolveAttachmentView returns the resolve view, or nil without MSAA or for
// a wrapped target.
func (rt *RenderTarget) ResolveAttachmentView() *View {
	rt.checkLive()
	if rt.owning == nil {
		return nil
	}
	return rt.owning.attachments.ResolveAttachmentView()
}

// StencilAttachmentView returns the stencil view, or nil if none was created
// or the target is wrapped.
func (rt *RenderTarget) StencilAttachmentView() *View {
	rt.checkLive()
	if rt.owning == nil {
		return nil
	}
	return rt.owning.attachments.StencilAttachmentView()
}

// RequestStencilAttachment creates the stencil attachment on first call.
// Later calls return true without allocating. False means the target keeps
// working without stencil. Owning mode only.
func (rt *RenderTarget) RequestStencilAttachment() bool {
	return rt.owningMode("RequestStencilAttachment").attachments.requestStencil()
}

// GPUMemorySize returns the memory used by the color attachments: the
// color sample count, plus one for the resolve image when multisampled.
// Owning mode only.
func (rt *RenderTarget) GPUMemorySize() uint64 {
	return rt.owningMode("GPUMemorySize").attachments.memorySize()
}

// GetAttachmentsDescriptor returns the signature used to find compatible
// passes. The stencil slot is filled only when withStencil is set and the
// stencil attachment exists. Owning mode only.
func (rt *RenderTarget) GetAttachmentsDescriptor(withStencil bool) (AttachmentsDescriptor, AttachmentFlags) {
	as := rt.owningMode("GetAttachmentsDescriptor").attachments

	desc := AttachmentsDescriptor{
		Color: AttachmentDesc{
			Format:  rt.format,
			Samples: rt.samples,
			Usage:   gputypes.TextureUsageRenderAttachment,
		},
	}
	flags := AttachmentHasColor
	if as.resolveView != nil {
		desc.Resolve = AttachmentDesc{
			Format:  rt.format,
			Samples: 1,
			Usage:   gputypes.TextureUsageRenderAttachment,
		}
		flags |= AttachmentHasResolve
	}
	if withStencil && as.stencilImage != nil {
		desc.Stencil = AttachmentDesc{
			Format:  as.stencilImage.Format(),
			Samples: as.stencilImage.SampleCount(),
			Usage:   gputypes.TextureUsageRenderAttachment,
		}
		flags |= AttachmentHasStencil
	}
	return desc, flags
}

// GetSimpleRenderPass returns the load/store render pass compatible with the
// target, building it on the first call per stencil flag. Requesting the
// stencil pass creates the stencil attachment if needed.
//
// The target keeps the reference on the returned pass; Ref it to keep it
// past the target's teardown.
//
// A wrapped target returns the host pass; asking it for a stencil pass panics.
func (rt *RenderTarget) GetSimpleRenderPass(withStencil bool) (*RenderPass, error) {
	rt.checkLive()
	if rt.wrap != nil {
		precondition(!withStencil, "stencil render pass requested on wrapped target %q", rt.label)
		cp, _ := rt.passes.lookup(false)
		return cp.pass, nil
	}
	cp, err := rt.simplePass(withStencil)
	if err != nil {
		return nil, err
	}
	return cp.pass, nil
}

// CompatibleRenderPassHandle returns the provider handle of the simple pass
// for the stencil flag, building the pass if needed. Owning mode only.
func (rt *RenderTarget) CompatibleRenderPassHandle(withStencil bool) (CompatibleRenderPassHandle, error) {
	rt.owningMode("CompatibleRenderPassHandle")
	cp, err := rt.simplePass(withStencil)
	if err != nil {
		return CompatibleRenderPassHandle{}, err
	}
	return cp.handle, nil
}

func (rt *RenderTarget) simplePass(withStencil bool) (cachedPass, error) {
	if cp, ok := rt.passes.lookup(withStencil); ok {
		return cp, nil
	}
	if withStencil && !rt.RequestStencilAttachment() {
		return cachedPass{}, fmt.Errorf("render pass for %q: %w", rt.label, ErrStencilUnavailable)
	}

	desc, flags := rt.GetAttachmentsDescriptor(withStencil)
	pass, handle, err := rt.gpu.provider.FindCompatibleRenderPass(desc, flags)
	if err != nil {
		return cachedPass{}, fmt.Errorf("render pass for %q: %w", rt.label, err)
	}
	precondition(pass.HasStencilAttachment() == withStencil, "cached pass stencil mismatch")

	cp := cachedPass{pass: pass, handle: handle}
	rt.passes.store(withStencil, cp)

	Logger().Debug("rtcache: simple render pass cached",
		slog.String("label", rt.label),
		slog.Bool("stencil", withStencil))
	return cp, nil
}

// GetFramebuffer returns the framebuffer binding the target's views to its
// simple pass for the stencil flag, building it on first use. Attachments
// never change, so a cached framebuffer is never rebuilt. The target keeps
// the reference on the returned framebuffer. Owning mode only.
func (rt *RenderTarget) GetFramebuffer(withStencil bool) (*Framebuffer, error) {
	o := rt.owningMode("GetFramebuffer")
	if fb, ok := o.framebuffers.lookup(withStencil); ok {
		return fb, nil
	}

	cp, err := rt.simplePass(withStencil)
	if err != nil {
		return nil, err
	}

	as := o.attachments
	var stencil *View
	if withStencil {
		stencil = as.stencilView
	}
	fb := newFramebuffer(cp.pass, rt.dims, as.colorView, as.resolveView, stencil)
	o.framebuffers.store(withStencil, fb)

	Logger().Debug("rtcache: framebuffer cached",
		slog.String("label", rt.label),
		slog.Bool("stencil", withStencil))
	return fb, nil
}

// ExternalRenderPass returns the host pass. Wrap mode only.
func (rt *RenderTarget) ExternalRenderPass() *RenderPass {
	rt.wrapMode("ExternalRenderPass")
	cp, _ := rt.passes.lookup(false)
	return cp.pass
}

// ExternalCommandEncoder returns the host encoder. Wrap mode only.
func (rt *RenderTarget) ExternalCommandEncoder() hal.RenderPassEncoder {
	return rt.wrapMode("ExternalCommandEncoder").encoder
}

// DrawableInfo returns the host drawable description. Wrap mode only.
func (rt *RenderTarget) DrawableInfo() DrawableInfo {
	return rt.wrapMode("DrawableInfo").info
}

// NewCommandBuffer starts a recording against the host encoder. Pass it to
// RecordResource when recording is done. Wrap mode only.
func (rt *RenderTarget) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{encoder: rt.wrapMode("NewCommandBuffer").encoder}
}

// RecordResource transfers r to the target, which keeps it until teardown.
// Wrap mode only.
func (rt *RenderTarget) RecordResource(r RecordedResource) {
	w := rt.wrapMode("RecordResource")
	precondition(r != nil, "nil recorded resource")
	if cb, ok := r.(*CommandBuffer); ok {
		precondition(cb != nil && !cb.recorded && !cb.done, "command buffer nil, recorded twice or released")
		cb.recorded = true
	}
	w.retire.Append(r)
}

// RetiredCount returns the number of resources waiting for teardown. Zero
// for owning targets.
func (rt *RenderTarget) RetiredCount() int {
	rt.checkLive()
	if rt.wrap == nil {
		return 0
	}
	return rt.wrap.retire.Len()
}

// AddResources makes cb reference everything commands drawn to this target
// use: the framebuffer and attachments for an owning target, the host pass
// for a wrapped one.
func (rt *RenderTarget) AddResources(cb *CommandBuffer, withStencil bool) error {
	rt.checkLive()
	if rt.wrap != nil {
		precondition(!withStencil, "stencil resources requested on wrapped target %q", rt.label)
		cp, _ := rt.passes.lookup(false)
		cb.Track(cp.pass)
		return nil
	}

	fb, err := rt.GetFramebuffer(withStencil)
	if err != nil {
		return err
	}
	cb.Track(fb)

	as := rt.owning.attachments
	cb.Track(as.colorView)
	cb.Track(as.colorImage)
	if as.msaaImage != nil {
		cb.Track(as.msaaImage)
	}
	if as.resolveView != nil {
		cb.Track(as.resolveView)
	}
	if withStencil {
		cb.Track(as.stencilView)
		cb.Track(as.stencilImage)
	}
	return nil
}

// BackendRenderTarget describes the host image and state. Owning mode only.
func (rt *RenderTarget) BackendRenderTarget() BackendRenderTarget {
	o := rt.owningMode("BackendRenderTarget")
	return BackendRenderTarget{
		Dimensions:   rt.dims,
		SampleCount:  rt.samples,
		Format:       rt.format,
		Image:        o.info,
		MutableState: rt.mutable,
	}
}

// Abandon tears the target down without assuming GPU synchronization, for
// example after device loss. No device calls are made.
func (rt *RenderTarget) Abandon() { rt.teardown(true) }

// Release tears the target down. The caller guarantees the GPU has finished
// every submission that used the target, including host submissions of
// wrapped recordings.
func (rt *RenderTarget) Release() { rt.teardown(false) }

func (rt *RenderTarget) teardown(abandon bool) {
	rt.checkLive()
	if abandon {
		rt.state = StateAbandoned
	} else {
		rt.state = StateReleased
	}

	if rt.owning != nil {
		rt.owning.framebuffers.drop(abandon)
	}
	rt.passes.drop(abandon)
	if rt.wrap != nil {
		rt.wrap.retire.drain(abandon)
		rt.wrap.encoder = nil
	}
	if rt.owning != nil {
		rt.owning.attachments.release(abandon)
	}

	Logger().Debug("rtcache: render target torn down",
		slog.String("label", rt.label),
		slog.String("state", rt.state.String()))

	if fn := rt.onRelease; fn != nil {
		rt.onRelease = nil
		fn()
	}
}
