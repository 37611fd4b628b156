// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rtcache/internal/resource/resourcetest"
)

const testFormat = gputypes.TextureFormatBGRA8Unorm

const testUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding

// newTestGPU returns a GPU with default caps on a counting device.
func newTestGPU(t *testing.T, opts ...GPUOption) (*GPU, *resourcetest.Device) {
	t.Helper()
	dev := &resourcetest.Device{}
	gpu, err := NewGPUWithDevice(dev, opts...)
	require.NoError(t, err)
	return gpu, dev
}

// hostImage creates a host color texture on dev.
func hostImage(t *testing.T, dev *resourcetest.Device, dims Dimensions, ownership Ownership) ImageInfo {
	t.Helper()
	tex, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "host",
		Size:          hal.Extent3D{Width: dims.Width, Height: dims.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        testFormat,
		Usage:         testUsage,
	})
	require.NoError(t, err)
	return ImageInfo{
		Texture:     tex,
		Format:      testFormat,
		SampleCount: 1,
		Usage:       testUsage,
		Ownership:   ownership,
	}
}

// newOwning creates an owning target that owns a fresh host texture.
func newOwning(t *testing.T, gpu *GPU, dev *resourcetest.Device, dims Dimensions, samples uint32, opts ...Option) *RenderTarget {
	t.Helper()
	rt, err := MakeOwning(gpu, dims, samples, hostImage(t, dev, dims, OwnershipOwned), nil, opts...)
	require.NoError(t, err)
	return rt
}

// fakeEncoder is a host render pass encoder that is never called.
type fakeEncoder struct {
	hal.RenderPassEncoder
}

// newWrap creates a wrapped target over a fresh host pass. The caller keeps
// the host reference on the returned pass.
func newWrap(t *testing.T, gpu *GPU, opts ...Option) (*RenderTarget, *RenderPass) {
	t.Helper()
	pass := NewExternalRenderPass(testFormat, 1, 0)
	rt, err := MakeExternalWrap(gpu, Dimensions{Width: 64, Height: 64}, &fakeEncoder{}, DrawableInfo{
		RenderPass: pass,
		Format:     testFormat,
	}, opts...)
	require.NoError(t, err)
	return rt, pass
}

// assertPrecondition checks that fn panics with an ErrPrecondition error.
func assertPrecondition(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrPrecondition) {
			t.Errorf("panic = %v, want ErrPrecondition", r)
		}
	}()
	fn()
}

// countingResource records how it was torn down.
type countingResource struct {
	released  int
	abandoned int
}

func (r *countingResource) Release() { r.released++ }
func (r *countingResource) Abandon() { r.abandoned++ }

func TestSimpleRenderPassIsCached(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 256, Height: 256}, 4)
	defer rt.Release()

	first, err := rt.GetSimpleRenderPass(false)
	require.NoError(t, err)
	for range 100 {
		got, err := rt.GetSimpleRenderPass(false)
		require.NoError(t, err)
		require.Same(t, first, got)
	}

	hits, misses := gpu.ResourceProvider().Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)
	assert.False(t, first.HasStencilAttachment())
	assert.True(t, first.Flags().Has(AttachmentHasResolve))
	assert.Equal(t, LoadStore, first.ColorOps())
}

func TestStencilRenderPassCreatesStencil(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 256, Height: 256}, 4)
	defer rt.Release()

	assert.Nil(t, rt.StencilAttachmentView())

	plain, err := rt.GetSimpleRenderPass(false)
	require.NoError(t, err)
	stencilPass, err := rt.GetSimpleRenderPass(true)
	require.NoError(t, err)
	plainHandle, err := rt.CompatibleRenderPassHandle(false)
	require.NoError(t, err)
	stencilHandle, err := rt.CompatibleRenderPassHandle(true)
	require.NoError(t, err)
	assert.NotEqual(t, plainHandle, stencilHandle)

	for range 100 {
		for _, tc := range []struct {
			stencil bool
			pass    *RenderPass
			handle  CompatibleRenderPassHandle
		}{
			{false, plain, plainHandle},
			{true, stencilPass, stencilHandle},
		} {
			got, err := rt.GetSimpleRenderPass(tc.stencil)
			require.NoError(t, err)
			require.Same(t, tc.pass, got)
			h, err := rt.CompatibleRenderPassHandle(tc.stencil)
			require.NoError(t, err)
			require.Equal(t, tc.handle, h)
		}
	}
	_, misses := gpu.ResourceProvider().Stats()
	assert.Equal(t, uint64(2), misses)

	assert.True(t, stencilPass.HasStencilAttachment())
	assert.False(t, plain.HasStencilAttachment())
	assert.NotSame(t, stencilPass, plain)
	require.NotNil(t, rt.StencilAttachmentView())
	assert.Equal(t, uint32(4), rt.StencilAttachmentView().Image().SampleCount())
	assert.Equal(t, gputypes.TextureFormatDepth24PlusStencil8, rt.StencilAttachmentView().Image().Format())
	assert.Equal(t, LoadStore, stencilPass.StencilOps())
}

func TestRequestStencilAttachmentIsIdempotent(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 16, Height: 16}, 1)
	defer rt.Release()

	before := dev.TexturesCreated
	require.True(t, rt.RequestStencilAttachment())
	view := rt.StencilAttachmentView()
	require.True(t, rt.RequestStencilAttachment())

	assert.Equal(t, before+1, dev.TexturesCreated)
	assert.Same(t, view, rt.StencilAttachmentView())
}

func TestRequestStencilAttachmentFailureIsNotCached(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 16, Height: 16}, 1)
	defer rt.Release()

	dev.FailTexture = func(*hal.TextureDescriptor) bool { return true }
	assert.False(t, rt.RequestStencilAttachment())
	assert.Nil(t, rt.StencilAttachmentView())

	_, err := rt.GetSimpleRenderPass(true)
	assert.ErrorIs(t, err, ErrStencilUnavailable)
	_, err = rt.GetFramebuffer(true)
	assert.ErrorIs(t, err, ErrStencilUnavailable)

	// The non-stencil path keeps working.
	_, err = rt.GetFramebuffer(false)
	require.NoError(t, err)

	dev.FailTexture = nil
	assert.True(t, rt.RequestStencilAttachment())
	pass, err := rt.GetSimpleRenderPass(true)
	require.NoError(t, err)
	assert.True(t, pass.HasStencilAttachment())
}

func TestStencilUnsupportedByCaps(t *testing.T) {
	gpu, dev := newTestGPU(t, WithCaps(&DefaultCaps{
		Stencil:        gputypes.TextureFormatUndefined,
		MaxSampleCount: 4,
	}))
	rt := newOwning(t, gpu, dev, Dimensions{Width: 16, Height: 16}, 4)
	defer rt.Release()

	before := dev.TexturesCreated
	assert.True(t, rt.CanAttemptStencilAttachment())
	assert.False(t, rt.RequestStencilAttachment())
	assert.Equal(t, before, dev.TexturesCreated)

	_, err := rt.GetSimpleRenderPass(true)
	assert.ErrorIs(t, err, ErrStencilUnavailable)
}

func TestGPUMemorySize(t *testing.T) {
	tests := []struct {
		name    string
		dims    Dimensions
		samples uint32
		want    uint64
	}{
		{"single sample", Dimensions{Width: 256, Height: 256}, 1, 256 * 256 * 4},
		{"2x msaa", Dimensions{Width: 100, Height: 50}, 2, 100 * 50 * 4 * 3},
		{"4x msaa", Dimensions{Width: 256, Height: 256}, 4, 256 * 256 * 4 * 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, dev := newTestGPU(t)
			rt := newOwning(t, gpu, dev, tt.dims, tt.samples)
			defer rt.Release()

			assert.Equal(t, tt.want, rt.GPUMemorySize())

			// Stencil does not count toward the color footprint.
			require.True(t, rt.RequestStencilAttachment())
			assert.Equal(t, tt.want, rt.GPUMemorySize())
		})
	}
}

func TestOwningAttachmentLayout(t *testing.T) {
	t.Run("single sample", func(t *testing.T) {
		gpu, dev := newTestGPU(t)
		info := hostImage(t, dev, Dimensions{Width: 8, Height: 8}, OwnershipOwned)
		rt, err := MakeOwning(gpu, Dimensions{Width: 8, Height: 8}, 1, info, nil)
		require.NoError(t, err)
		defer rt.Release()

		assert.Nil(t, rt.MSAAImage())
		assert.Nil(t, rt.ResolveAttachmentView())
		require.NotNil(t, rt.ColorAttachmentView())
		assert.Equal(t, info.Texture, rt.ColorAttachmentView().Image().Texture())
		assert.Equal(t, 1, dev.TexturesCreated)
	})

	t.Run("msaa", func(t *testing.T) {
		gpu, dev := newTestGPU(t)
		info := hostImage(t, dev, Dimensions{Width: 8, Height: 8}, OwnershipOwned)
		rt, err := MakeOwning(gpu, Dimensions{Width: 8, Height: 8}, 4, info, nil)
		require.NoError(t, err)
		defer rt.Release()

		require.NotNil(t, rt.MSAAImage())
		assert.Equal(t, uint32(4), rt.MSAAImage().SampleCount())
		assert.Same(t, rt.MSAAImage(), rt.ColorAttachmentView().Image())
		require.NotNil(t, rt.ResolveAttachmentView())
		assert.Equal(t, info.Texture, rt.ResolveAttachmentView().Image().Texture())
		assert.Equal(t, 2, dev.TexturesCreated)
	})
}

func TestMakeOwningValidation(t *testing.T) {
	gpu, dev := newTestGPU(t)
	dims := Dimensions{Width: 8, Height: 8}
	valid := hostImage(t, dev, dims, OwnershipBorrowed)

	depth := valid
	depth.Format = gputypes.TextureFormatDepth24PlusStencil8
	noTexture := valid
	noTexture.Texture = nil
	multisampled := valid
	multisampled.SampleCount = 4

	tests := []struct {
		name    string
		gpu     *GPU
		dims    Dimensions
		samples uint32
		info    ImageInfo
		wantErr error
	}{
		{"nil gpu", nil, dims, 1, valid, ErrNilGPU},
		{"zero width", gpu, Dimensions{Height: 8}, 1, valid, ErrInvalidDimensions},
		{"nil texture", gpu, dims, 1, noTexture, ErrNilTexture},
		{"zero samples", gpu, dims, 0, valid, ErrInvalidSampleCount},
		{"non power of two", gpu, dims, 3, valid, ErrInvalidSampleCount},
		{"above max", gpu, dims, 8, valid, ErrInvalidSampleCount},
		{"depth color format", gpu, dims, 1, depth, ErrUnsupportedFormat},
		{"multisampled host image", gpu, dims, 4, multisampled, ErrInvalidSampleCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := MakeOwning(tt.gpu, tt.dims, tt.samples, tt.info, nil)
			assert.Nil(t, rt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 1, dev.TexturesCreated, "failed validation allocates nothing")
}

func TestMakeOwningMSAAFailureKeepsHostTexture(t *testing.T) {
	gpu, dev := newTestGPU(t)
	dims := Dimensions{Width: 8, Height: 8}
	info := hostImage(t, dev, dims, OwnershipOwned)

	dev.FailTexture = func(desc *hal.TextureDescriptor) bool { return desc.SampleCount > 1 }
	rt, err := MakeOwning(gpu, dims, 4, info, nil)
	require.Nil(t, rt)
	require.ErrorIs(t, err, ErrMSAAUnavailable)
	assert.ErrorIs(t, err, resourcetest.ErrInjected)

	assert.Empty(t, dev.Destroyed, "host texture must survive a failed construction")
	assert.Zero(t, dev.LiveViews())
}

func TestMakeOwningViewFailure(t *testing.T) {
	gpu, dev := newTestGPU(t)
	dims := Dimensions{Width: 8, Height: 8}
	info := hostImage(t, dev, dims, OwnershipOwned)

	dev.FailView = func(label string) bool { return label == "render_target_msaa_view" }
	_, err := MakeOwning(gpu, dims, 4, info, nil)
	require.ErrorIs(t, err, ErrMSAAUnavailable)

	require.Equal(t, 1, dev.TexturesDestroyed, "only the msaa texture is destroyed")
	assert.NotEqual(t, info.Texture, dev.Destroyed[0])
	assert.Zero(t, dev.LiveViews())
}

func TestOwnershipOnRelease(t *testing.T) {
	tests := []struct {
		name        string
		ownership   Ownership
		wantDestroy bool
	}{
		{"owned", OwnershipOwned, true},
		{"borrowed", OwnershipBorrowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, dev := newTestGPU(t)
			dims := Dimensions{Width: 8, Height: 8}
			info := hostImage(t, dev, dims, tt.ownership)
			rt, err := MakeOwning(gpu, dims, 4, info, nil)
			require.NoError(t, err)
			require.True(t, rt.RequestStencilAttachment())
			_, err = rt.GetFramebuffer(true)
			require.NoError(t, err)

			rt.Release()

			assert.Equal(t, StateReleased, rt.State())
			assert.Zero(t, dev.LiveViews())
			assert.Equal(t, tt.wantDestroy, containsTexture(dev.Destroyed, info.Texture))
			// msaa and stencil are always ours.
			assert.GreaterOrEqual(t, dev.TexturesDestroyed, 2)
		})
	}
}

func containsTexture(list []hal.Texture, tex hal.Texture) bool {
	for _, x := range list {
		if x == tex {
			return true
		}
	}
	return false
}

func TestAbandonMakesNoDeviceCalls(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 4)
	_, err := rt.GetFramebuffer(true)
	require.NoError(t, err)

	rt.Abandon()

	assert.Equal(t, StateAbandoned, rt.State())
	assert.Zero(t, dev.TexturesDestroyed)
	assert.Zero(t, dev.ViewsDestroyed)
}

func TestFramebufferIsCached(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 64, Height: 32}, 4)
	defer rt.Release()

	fb, err := rt.GetFramebuffer(false)
	require.NoError(t, err)
	again, err := rt.GetFramebuffer(false)
	require.NoError(t, err)
	assert.Same(t, fb, again)

	pass, err := rt.GetSimpleRenderPass(false)
	require.NoError(t, err)
	assert.Same(t, pass, fb.RenderPass())
	assert.Equal(t, Dimensions{Width: 64, Height: 32}, fb.Dimensions())
	assert.Same(t, rt.ColorAttachmentView(), fb.ColorView())
	assert.Same(t, rt.ResolveAttachmentView(), fb.ResolveView())
	assert.Nil(t, fb.StencilView())

	withStencil, err := rt.GetFramebuffer(true)
	require.NoError(t, err)
	assert.NotSame(t, fb, withStencil)
	assert.Same(t, rt.StencilAttachmentView(), withStencil.StencilView())
}

func TestFramebufferRenderPassDescriptor(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 16, Height: 16}, 4)
	defer rt.Release()

	fb, err := rt.GetFramebuffer(true)
	require.NoError(t, err)

	desc, err := fb.RenderPassDescriptor(nil, gputypes.Color{})
	require.NoError(t, err)
	require.Len(t, desc.ColorAttachments, 1)
	color := desc.ColorAttachments[0]
	assert.Equal(t, rt.ColorAttachmentView().Raw(), color.View)
	assert.Equal(t, rt.ResolveAttachmentView().Raw(), color.ResolveTarget)
	assert.Equal(t, gputypes.LoadOpLoad, color.LoadOp)
	assert.Equal(t, gputypes.StoreOpStore, color.StoreOp)
	require.NotNil(t, desc.DepthStencilAttachment)
	assert.Equal(t, rt.StencilAttachmentView().Raw(), desc.DepthStencilAttachment.View)
	assert.Equal(t, gputypes.LoadOpLoad, desc.DepthStencilAttachment.StencilLoadOp)

	// A clearing variant from the same compatible set drives the ops.
	handle, err := rt.CompatibleRenderPassHandle(true)
	require.NoError(t, err)
	clearing, err := gpu.ResourceProvider().FindRenderPass(handle, ClearStore, ClearDiscard)
	require.NoError(t, err)
	defer clearing.Unref()

	desc, err = fb.RenderPassDescriptor(clearing, gputypes.Color{R: 1, A: 1})
	require.NoError(t, err)
	assert.Equal(t, gputypes.LoadOpClear, desc.ColorAttachments[0].LoadOp)
	assert.Equal(t, gputypes.StoreOpDiscard, desc.DepthStencilAttachment.StencilStoreOp)

	// The non-stencil pass is not compatible with a stencil framebuffer.
	plain, err := rt.GetSimpleRenderPass(false)
	require.NoError(t, err)
	_, err = fb.RenderPassDescriptor(plain, gputypes.Color{})
	assert.ErrorIs(t, err, ErrIncompatibleRenderPass)
}

func TestTargetsShareCompatiblePasses(t *testing.T) {
	gpu, dev := newTestGPU(t)
	a := newOwning(t, gpu, dev, Dimensions{Width: 64, Height: 64}, 4)
	defer a.Release()
	b := newOwning(t, gpu, dev, Dimensions{Width: 128, Height: 32}, 4)
	defer b.Release()
	c := newOwning(t, gpu, dev, Dimensions{Width: 64, Height: 64}, 1)
	defer c.Release()

	pa, err := a.GetSimpleRenderPass(false)
	require.NoError(t, err)
	pb, err := b.GetSimpleRenderPass(false)
	require.NoError(t, err)
	pc, err := c.GetSimpleRenderPass(false)
	require.NoError(t, err)

	assert.Same(t, pa, pb)
	assert.NotSame(t, pa, pc)

	ha, err := a.CompatibleRenderPassHandle(false)
	require.NoError(t, err)
	hb, err := b.CompatibleRenderPassHandle(false)
	require.NoError(t, err)
	assert.True(t, ha.IsValid())
	assert.Equal(t, ha, hb)

	hits, misses := gpu.ResourceProvider().Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestPassOutlivesReleasedTarget(t *testing.T) {
	gpu, dev := newTestGPU(t)
	a := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 1)
	pass, err := a.GetSimpleRenderPass(false)
	require.NoError(t, err)

	// Provider plus target.
	assert.Equal(t, int32(2), pass.RefCount())
	a.Release()
	assert.Equal(t, int32(1), pass.RefCount())

	b := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 1)
	defer b.Release()
	again, err := b.GetSimpleRenderPass(false)
	require.NoError(t, err)
	assert.Same(t, pass, again)
}

func TestAddResourcesKeepsAttachmentsAlive(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 4)

	cb := &CommandBuffer{}
	require.NoError(t, rt.AddResources(cb, true))
	// framebuffer, color view, color image, msaa image, resolve view, stencil view and image
	assert.Equal(t, 7, cb.TrackedCount())

	rt.Release()
	assert.NotZero(t, dev.LiveViews(), "command buffer still references the views")

	cb.Release()
	assert.Zero(t, dev.LiveViews())
	assert.Zero(t, dev.LiveTextures())
}

func TestMutableState(t *testing.T) {
	gpu, dev := newTestGPU(t)
	dims := Dimensions{Width: 8, Height: 8}

	rt := newOwning(t, gpu, dev, dims, 1)
	defer rt.Release()
	assert.Equal(t, testUsage, rt.MutableState().Usage())
	assert.Equal(t, uint32(0), rt.MutableState().QueueFamilyIndex())

	shared := NewMutableState(gputypes.TextureUsageRenderAttachment, 2)
	other, err := MakeOwning(gpu, dims, 1, hostImage(t, dev, dims, OwnershipOwned), shared)
	require.NoError(t, err)
	defer other.Release()
	assert.Same(t, shared, other.MutableState())

	shared.SetQueueFamilyIndex(3)
	assert.Equal(t, uint32(3), other.BackendRenderTarget().MutableState.QueueFamilyIndex())
}

func TestBackendRenderTarget(t *testing.T) {
	gpu, dev := newTestGPU(t)
	dims := Dimensions{Width: 20, Height: 10}
	info := hostImage(t, dev, dims, OwnershipBorrowed)
	rt, err := MakeOwning(gpu, dims, 2, info, nil, WithLabel("scene"))
	require.NoError(t, err)
	defer rt.Release()

	brt := rt.BackendRenderTarget()
	assert.Equal(t, dims, brt.Dimensions)
	assert.Equal(t, uint32(2), brt.SampleCount)
	assert.Equal(t, testFormat, brt.Format)
	assert.Equal(t, info.Texture, brt.Image.Texture)
	assert.Equal(t, "scene", rt.Label())
	assert.Equal(t, "scene_msaa", rt.MSAAImage().Desc().Label)
}

func TestWrapReturnsHostPass(t *testing.T) {
	gpu, _ := newTestGPU(t)
	rt, host := newWrap(t, gpu)

	pass, err := rt.GetSimpleRenderPass(false)
	require.NoError(t, err)
	assert.Same(t, host, pass)
	assert.Same(t, host, rt.ExternalRenderPass())
	assert.True(t, rt.WrapsExternal())
	assert.False(t, rt.CanAttemptStencilAttachment())
	assert.Nil(t, rt.ColorAttachmentView())
	assert.Nil(t, rt.MSAAImage())
	assert.Nil(t, rt.ResolveAttachmentView())
	assert.Nil(t, rt.StencilAttachmentView())
	assert.NotNil(t, rt.ExternalCommandEncoder())
	assert.Equal(t, 0, gpu.ResourceProvider().CompatibleSetCount())

	assert.Equal(t, int32(2), host.RefCount())
	rt.Release()
	assert.Equal(t, int32(1), host.RefCount(), "host keeps its own reference")
}

func TestWrapContractViolationsPanic(t *testing.T) {
	gpu, _ := newTestGPU(t)
	rt, _ := newWrap(t, gpu)
	defer rt.Abandon()

	calls := map[string]func(){
		"stencil pass":      func() { _, _ = rt.GetSimpleRenderPass(true) },
		"request stencil":   func() { rt.RequestStencilAttachment() },
		"framebuffer":       func() { _, _ = rt.GetFramebuffer(false) },
		"memory size":       func() { rt.GPUMemorySize() },
		"handle":            func() { _, _ = rt.CompatibleRenderPassHandle(false) },
		"attachment set":    func() { rt.AttachmentSet() },
		"descriptor":        func() { rt.GetAttachmentsDescriptor(false) },
		"backend target":    func() { rt.BackendRenderTarget() },
		"stencil resources": func() { _ = rt.AddResources(&CommandBuffer{}, true) },
	}
	for name, fn := range calls {
		t.Run(name, func(t *testing.T) {
			assertPrecondition(t, fn)
		})
	}
}

func TestOwningContractViolationsPanic(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 1)
	defer rt.Release()

	calls := map[string]func(){
		"external pass":   func() { rt.ExternalRenderPass() },
		"encoder":         func() { rt.ExternalCommandEncoder() },
		"drawable info":   func() { rt.DrawableInfo() },
		"command buffer":  func() { rt.NewCommandBuffer() },
		"record resource": func() { rt.RecordResource(&countingResource{}) },
	}
	for name, fn := range calls {
		t.Run(name, func(t *testing.T) {
			assertPrecondition(t, fn)
		})
	}
}

func TestMakeExternalWrapValidation(t *testing.T) {
	gpu, _ := newTestGPU(t)
	dims := Dimensions{Width: 8, Height: 8}
	host := NewExternalRenderPass(testFormat, 1, 0)

	ownPass, _, err := gpu.ResourceProvider().FindCompatibleRenderPass(AttachmentsDescriptor{
		Color: AttachmentDesc{Format: testFormat, Samples: 1, Usage: gputypes.TextureUsageRenderAttachment},
	}, AttachmentHasColor)
	require.NoError(t, err)

	tests := []struct {
		name    string
		gpu     *GPU
		dims    Dimensions
		encoder hal.RenderPassEncoder
		info    DrawableInfo
		wantErr error
	}{
		{"nil gpu", nil, dims, &fakeEncoder{}, DrawableInfo{RenderPass: host, Format: testFormat}, ErrNilGPU},
		{"zero height", gpu, Dimensions{Width: 8}, &fakeEncoder{}, DrawableInfo{RenderPass: host, Format: testFormat}, ErrInvalidDimensions},
		{"nil encoder", gpu, dims, nil, DrawableInfo{RenderPass: host, Format: testFormat}, ErrNilCommandEncoder},
		{"nil pass", gpu, dims, &fakeEncoder{}, DrawableInfo{Format: testFormat}, ErrNilExternalPass},
		{"non-external pass", gpu, dims, &fakeEncoder{}, DrawableInfo{RenderPass: ownPass, Format: testFormat}, ErrIncompatibleRenderPass},
		{"format mismatch", gpu, dims, &fakeEncoder{},
			DrawableInfo{RenderPass: host, Format: gputypes.TextureFormatRGBA8Unorm}, ErrIncompatibleRenderPass},
		{"attachment index mismatch", gpu, dims, &fakeEncoder{},
			DrawableInfo{RenderPass: host, Format: testFormat, ColorAttachmentIndex: 1}, ErrIncompatibleRenderPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := MakeExternalWrap(tt.gpu, tt.dims, tt.encoder, tt.info)
			assert.Nil(t, rt)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int32(1), host.RefCount(), "failed wrap takes no reference")
}

func TestMakeExternalWrapTakesPassFormat(t *testing.T) {
	gpu, _ := newTestGPU(t)
	host := NewExternalRenderPass(gputypes.TextureFormatRGBA8Unorm, 4, 2)

	rt, err := MakeExternalWrap(gpu, Dimensions{Width: 8, Height: 8}, &fakeEncoder{}, DrawableInfo{
		RenderPass:           host,
		ColorAttachmentIndex: 2,
	})
	require.NoError(t, err)
	defer rt.Release()

	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, rt.Format())
	assert.Equal(t, gputypes.TextureFormatRGBA8Unorm, rt.DrawableInfo().Format)
	assert.Equal(t, uint32(4), rt.SampleCount())
	assert.Equal(t, uint32(2), rt.DrawableInfo().ColorAttachmentIndex)
}

func TestRecordedResourcesTornDownOnce(t *testing.T) {
	tests := []struct {
		name          string
		teardown      func(*RenderTarget)
		wantReleased  int
		wantAbandoned int
	}{
		{"abandon", (*RenderTarget).Abandon, 0, 1},
		{"release", (*RenderTarget).Release, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, _ := newTestGPU(t)
			rt, _ := newWrap(t, gpu)

			resources := []*countingResource{{}, {}, {}}
			for _, r := range resources {
				rt.RecordResource(r)
			}
			assert.Equal(t, 3, rt.RetiredCount())

			tt.teardown(rt)

			for i, r := range resources {
				assert.Equal(t, tt.wantReleased, r.released, "resource %d released", i)
				assert.Equal(t, tt.wantAbandoned, r.abandoned, "resource %d abandoned", i)
			}
		})
	}
}

func TestWrapCommandBufferKeepsHostPass(t *testing.T) {
	gpu, _ := newTestGPU(t)
	rt, host := newWrap(t, gpu)

	cb := rt.NewCommandBuffer()
	assert.NotNil(t, cb.Encoder())
	require.NoError(t, rt.AddResources(cb, false))
	assert.Equal(t, 1, cb.TrackedCount())
	assert.Equal(t, int32(3), host.RefCount())

	rt.RecordResource(cb)
	rt.Release()

	assert.Equal(t, int32(1), host.RefCount())
	assert.Nil(t, cb.Encoder())
	assertPrecondition(t, func() { cb.Track(host) })
}

func TestRecordCommandBufferTwicePanics(t *testing.T) {
	gpu, _ := newTestGPU(t)
	calls := 0
	rt, host := newWrap(t, gpu, WithReleaseCallback(func() { calls++ }))

	cb := rt.NewCommandBuffer()
	rt.RecordResource(cb)
	assertPrecondition(t, func() { rt.RecordResource(cb) })
	assert.Equal(t, 1, rt.RetiredCount())

	rt.Release()
	assert.Equal(t, StateReleased, rt.State())
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(1), host.RefCount())

	// A buffer finished by another target cannot be recorded again.
	other, _ := newWrap(t, gpu)
	defer other.Release()
	assertPrecondition(t, func() { other.RecordResource(cb) })
	assert.Zero(t, other.RetiredCount())
}

func TestReleaseCallbackRunsOnce(t *testing.T) {
	for _, abandon := range []bool{false, true} {
		gpu, dev := newTestGPU(t)
		calls := 0
		rt := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 1,
			WithReleaseCallback(func() { calls++ }))

		if abandon {
			rt.Abandon()
		} else {
			rt.Release()
		}
		assert.Equal(t, 1, calls, "abandon=%v", abandon)
	}
}

func TestUseAfterTeardownPanics(t *testing.T) {
	gpu, dev := newTestGPU(t)
	rt := newOwning(t, gpu, dev, Dimensions{Width: 8, Height: 8}, 1)
	rt.Release()

	assertPrecondition(t, func() { rt.Release() })
	assertPrecondition(t, func() { rt.Abandon() })
	assertPrecondition(t, func() { _, _ = rt.GetSimpleRenderPass(false) })
	assertPrecondition(t, func() { rt.ColorAttachmentView() })
	assertPrecondition(t, func() { rt.WrapsExternal() })

	// Plain properties stay readable.
	assert.Equal(t, StateReleased, rt.State())
	assert.Equal(t, Dimensions{Width: 8, Height: 8}, rt.Dimensions())
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConstructed, "Constructed"},
		{StateAbandoned, "Abandoned"},
		{StateReleased, "Released"},
		{State(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
