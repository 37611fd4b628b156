// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resourcetest provides a counting test double for resource.Device.
package resourcetest

import (
	"errors"

	"github.com/gogpu/wgpu/hal"
)

// ErrInjected is returned by Device when a failure hook fires.
var ErrInjected = errors.New("resourcetest: injected failure")

// Texture is a fake hal.Texture. Methods the code under test never calls are
// left to the embedded nil interface.
type Texture struct {
	hal.Texture

	ID   int
	Desc hal.TextureDescriptor
}

// TextureView is a fake hal.TextureView.
type TextureView struct {
	hal.TextureView

	ID      int
	Texture hal.Texture
	Label   string
}

// Device is a test double for resource.Device. It counts creates and
// destroys and can fail selected calls.
type Device struct {
	// FailTexture, when non-nil, is consulted before every texture creation.
	FailTexture func(desc *hal.TextureDescriptor) bool

	// FailView, when non-nil, is consulted before every view creation.
	FailView func(label string) bool

	TexturesCreated   int
	ViewsCreated      int
	TexturesDestroyed int
	ViewsDestroyed    int

	// Destroyed records destroyed textures in order.
	Destroyed []hal.Texture

	nextID int
}

// CreateTexture implements resource.Device.
func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.FailTexture != nil && d.FailTexture(desc) {
		return nil, ErrInjected
	}
	d.TexturesCreated++
	d.nextID++
	return &Texture{ID: d.nextID, Desc: *desc}, nil
}

// DestroyTexture implements resource.Device.
func (d *Device) DestroyTexture(texture hal.Texture) {
	d.TexturesDestroyed++
	d.Destroyed = append(d.Destroyed, texture)
}

// CreateTextureView implements resource.Device.
func (d *Device) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if d.FailView != nil && d.FailView(desc.Label) {
		return nil, ErrInjected
	}
	d.ViewsCreated++
	d.nextID++
	return &TextureView{ID: d.nextID, Texture: texture, Label: desc.Label}, nil
}

// DestroyTextureView implements resource.Device.
func (d *Device) DestroyTextureView(_ hal.TextureView) {
	d.ViewsDestroyed++
}

// LiveTextures returns textures created and not yet destroyed.
func (d *Device) LiveTextures() int { return d.TexturesCreated - d.TexturesDestroyed }

// LiveViews returns views created and not yet destroyed.
func (d *Device) LiveViews() int { return d.ViewsCreated - d.ViewsDestroyed }
