// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtcache/internal/resource"
)

// Ownership says whether a render target may destroy the host's color texture.
type Ownership = resource.Ownership

const (
	// OwnershipBorrowed leaves the texture to the host.
	OwnershipBorrowed = resource.Borrowed

	// OwnershipOwned transfers the texture; it is destroyed on release.
	OwnershipOwned = resource.Owned
)

// ImageInfo describes the host color image an owning render target draws into.
//
// SampleCount must be 0 or 1; with MSAA the host image is the resolve target.
type ImageInfo struct {
	Texture     hal.Texture
	Format      gputypes.TextureFormat
	SampleCount uint32
	Usage       gputypes.TextureUsage
	Ownership   Ownership
	Label       string
}

// Attachments exposes the attachment views of a render target. A wrapped
// RenderTarget reports none.
type Attachments interface {
	ColorAttachmentView() *View
	MSAAImage() *Image
	ResolveAttachmentView() *View
	StencilAttachmentView() *View
}

var (
	_ Attachments = (*AttachmentSet)(nil)
	_ Attachments = (*RenderTarget)(nil)
)

// AttachmentSet holds the images and views of an owning render target.
//
// With one sample, the color attachment view is a view of the host image and
// there is no resolve view. With N > 1 samples, the set allocates an N-sample
// image, the color attachment view is a view of it, and the host image is
// the resolve target.
type AttachmentSet struct {
	alloc   *resource.Allocator
	caps    Caps
	dims    Dimensions
	format  gputypes.TextureFormat
	samples uint32
	label   string

	colorImage  *Image
	colorView   *View
	msaaImage   *Image
	resolveView *View

	stencilImage *Image
	stencilView  *View
}

func newAttachmentSet(gpu *GPU, dims Dimensions, samples uint32, info ImageInfo, label string) (*AttachmentSet, error) {
	as := &AttachmentSet{
		alloc:   gpu.alloc,
		caps:    gpu.caps,
		dims:    dims,
		format:  info.Format,
		samples: samples,
		label:   label,
	}

	img, err := gpu.alloc.WrapImage(info.Texture, resource.ImageDesc{
		Label:       label + "_color",
		Width:       dims.Width,
		Height:      dims.Height,
		SampleCount: 1,
		Format:      info.Format,
		Usage:       info.Usage,
	}, info.Ownership)
	if err != nil {
		return nil, fmt.Errorf("wrap color image: %w", err)
	}
	as.colorImage = img

	view, err := gpu.alloc.CreateView(img, label+"_color_view")
	if err != nil {
		as.unwind()
		return nil, fmt.Errorf("create color view: %w", err)
	}

	if samples == 1 {
		as.colorView = view
		return as, nil
	}

	as.resolveView = view
	msaa, msaaView, err := gpu.alloc.CreateImageWithView(resource.ImageDesc{
		Label:       label + "_msaa",
		Width:       dims.Width,
		Height:      dims.Height,
		SampleCount: samples,
		Format:      info.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		Logger().Warn("rtcache: msaa attachment unavailable",
			slog.String("label", label),
			slog.Uint64("samples", uint64(samples)),
			slog.Any("err", err))
		as.unwind()
		return nil, fmt.Errorf("%w: %w", ErrMSAAUnavailable, err)
	}
	as.msaaImage = msaa
	as.colorView = msaaView
	return as, nil
}

// ColorAttachmentView returns the view draws write to.
func (as *AttachmentSet) ColorAttachmentView() *View { return as.colorView }

// ColorImage returns the host image.
func (as *AttachmentSet) ColorImage() *Image { return as.colorImage }

// MSAAImage returns the multisample image, or nil with one sample.
func (as *AttachmentSet) MSAAImage() *Image { return as.msaaImage }

// ResolveAttachmentView returns the view of the host image used as resolve
// target, or nil with one sample.
func (as *AttachmentSet) ResolveAttachmentView() *View { return as.resolveView }

// StencilImage returns the stencil image, or nil before a successful
// stencil request.
func (as *AttachmentSet) StencilImage() *Image { return as.stencilImage }

// StencilAttachmentView returns the stencil view, or nil before a successful
// stencil request.
func (as *AttachmentSet) StencilAttachmentView() *View { return as.stencilView }

// HasStencil reports whether the stencil attachment exists.
func (as *AttachmentSet) HasStencil() bool { return as.stencilView != nil }

// SampleCount returns the color sample count.
func (as *AttachmentSet) SampleCount() uint32 { return as.samples }

// requestStencil creates the stencil attachment once. It reports false,
// leaving the set without stencil, when the caps have no stencil format or
// allocation fails.
func (as *AttachmentSet) requestStencil() bool {
	if as.stencilView != nil {
		return true
	}
	format := as.caps.StencilFormat()
	if format == gputypes.TextureFormatUndefined {
		return false
	}

	img, view, err := as.alloc.CreateImageWithView(resource.ImageDesc{
		Label:       as.label + "_stencil",
		Width:       as.dims.Width,
		Height:      as.dims.Height,
		SampleCount: as.samples,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		Logger().Warn("rtcache: stencil attachment unavailable",
			slog.String("label", as.label),
			slog.Any("err", err))
		return false
	}
	as.stencilImage = img
	as.stencilView = view
	return true
}

// memorySize returns the color footprint: the color sample count, plus one
// image for the resolve target when multisampled.
func (as *AttachmentSet) memorySize() uint64 {
	n := as.samples
	if n > 1 {
		n++
	}
	return ComputeSize(as.caps, as.format, as.dims, n)
}

// unwind undoes a failed construction. The host keeps its texture even
// when ownership was about to be transferred.
func (as *AttachmentSet) unwind() {
	img := as.colorImage
	as.colorImage = nil
	as.release(false)
	if img != nil {
		img.UnrefAndAbandon()
	}
}

// release drops every image and view reference the set holds.
func (as *AttachmentSet) release(abandon bool) {
	unref := func(r interface {
		Unref()
		UnrefAndAbandon()
	}) {
		if abandon {
			r.UnrefAndAbandon()
		} else {
			r.Unref()
		}
	}
	if as.stencilView != nil {
		unref(as.stencilView)
		unref(as.stencilImage)
	}
	if as.msaaImage != nil {
		unref(as.msaaImage)
	}
	if as.colorView != nil {
		unref(as.colorView)
	}
	if as.resolveView != nil {
		unref(as.resolveView)
	}
	if as.colorImage != nil {
		unref(as.colorImage)
	}
	as.stencilView, as.stencilImage = nil, nil
	as.msaaImage, as.colorView, as.resolveView, as.colorImage = nil, nil, nil, nil
}
