// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Image errors.
var (
	// ErrNilDevice is returned when creating an allocator without a device.
	ErrNilDevice = errors.New("resource: device is nil")

	// ErrNilTexture is returned when wrapping or viewing a nil texture.
	ErrNilTexture = errors.New("resource: texture is nil")

	// ErrInvalidImageSize is returned when image dimensions are zero.
	ErrInvalidImageSize = errors.New("resource: invalid image size")
)

// Device is the subset of hal.Device used to allocate attachments.
type Device interface {
	CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error)
	DestroyTexture(texture hal.Texture)
	CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error)
	DestroyTextureView(view hal.TextureView)
}

// hal.Device must keep satisfying Device.
var _ Device = hal.Device(nil)

// Ownership says who destroys a wrapped texture.
type Ownership int

const (
	// Borrowed textures belong to the host and are never destroyed here.
	Borrowed Ownership = iota

	// Owned textures are destroyed when the last reference is released.
	Owned
)

// String returns the string representation of Ownership.
func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "Borrowed"
	case Owned:
		return "Owned"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// ImageDesc describes a 2D single-mip image.
type ImageDesc struct {
	Label       string
	Width       uint32
	Height      uint32
	SampleCount uint32
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage
}

// Image is a reference-counted hal.Texture.
type Image struct {
	Managed

	device    Device
	texture   hal.Texture
	desc      ImageDesc
	ownership Ownership
}

// Texture returns the backend texture. Nil once the image is freed.
func (img *Image) Texture() hal.Texture {
	if img.IsFreed() {
		return nil
	}
	return img.texture
}

// Desc returns the image description.
func (img *Image) Desc() ImageDesc { return img.desc }

// Ownership returns who destroys the backend texture.
func (img *Image) Ownership() Ownership { return img.ownership }

// SampleCount returns the number of samples per pixel.
func (img *Image) SampleCount() uint32 { return img.desc.SampleCount }

// Format returns the texture format.
func (img *Image) Format() gputypes.TextureFormat { return img.desc.Format }

func (img *Image) freeGPUData(abandon bool) {
	if !abandon && img.ownership == Owned {
		img.device.DestroyTexture(img.texture)
	}
	slogger().Debug("resource: image freed",
		slog.String("label", img.desc.Label),
		slog.Bool("abandon", abandon),
		slog.String("ownership", img.ownership.String()))
}

// View is a reference-counted hal.TextureView. A view keeps its image alive.
type View struct {
	Managed

	device Device
	view   hal.TextureView
	image  *Image
	label  string
}

// Raw returns the backend view. Nil once the view is freed.
func (v *View) Raw() hal.TextureView {
	if v.IsFreed() {
		return nil
	}
	return v.view
}

// Image returns the image this view was created from.
func (v *View) Image() *Image { return v.image }

// Label returns the debug label.
func (v *View) Label() string { return v.label }

func (v *View) freeGPUData(abandon bool) {
	if abandon {
		v.image.UnrefAndAbandon()
		return
	}
	v.device.DestroyTextureView(v.view)
	v.image.Unref()
}

// Allocator creates images and views on a Device.
type Allocator struct {
	device Device
}

// NewAllocator returns an allocator for the device.
func NewAllocator(device Device) (*Allocator, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Allocator{device: device}, nil
}

// Device returns the allocator's device.
func (a *Allocator) Device() Device { return a.device }

// CreateImage allocates a new owned 2D image.
func (a *Allocator) CreateImage(desc ImageDesc) (*Image, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, desc.Width, desc.Height)
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}

	tex, err := a.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   desc.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	slogger().Debug("resource: image created",
		slog.String("label", desc.Label),
		slog.Uint64("width", uint64(desc.Width)),
		slog.Uint64("height", uint64(desc.Height)),
		slog.Uint64("samples", uint64(desc.SampleCount)))

	return a.newImage(tex, desc, Owned), nil
}

// WrapImage wraps an existing texture. Borrowed textures are never destroyed.
func (a *Allocator) WrapImage(tex hal.Texture, desc ImageDesc, ownership Ownership) (*Image, error) {
	if tex == nil {
		return nil, ErrNilTexture
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	return a.newImage(tex, desc, ownership), nil
}

func (a *Allocator) newImage(tex hal.Texture, desc ImageDesc, ownership Ownership) *Image {
	img := &Image{
		device:    a.device,
		texture:   tex,
		desc:      desc,
		ownership: ownership,
	}
	img.Init(img.freeGPUData)
	return img
}

// CreateView creates a default view of img. The view takes its own
// reference on img.
func (a *Allocator) CreateView(img *Image, label string) (*View, error) {
	if img == nil || img.Texture() == nil {
		return nil, ErrNilTexture
	}
	hv, err := a.device.CreateTextureView(img.texture, &hal.TextureViewDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture view %q: %w", label, err)
	}
	img.Ref()
	v := &View{
		device: a.device,
		view:   hv,
		image:  img,
		label:  label,
	}
	v.Init(v.freeGPUData)
	return v, nil
}

// CreateImageWithView allocates an owned image and its default view. The
// returned image carries only the creator's reference; on view failure the
// image is destroyed before returning.
func (a *Allocator) CreateImageWithView(desc ImageDesc) (*Image, *View, error) {
	img, err := a.CreateImage(desc)
	if err != nil {
		return nil, nil, err
	}
	view, err := a.CreateView(img, desc.Label+"_view")
	if err != nil {
		img.Unref()
		return nil, nil, err
	}
	return img, view, nil
}
