// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"errors"
	"fmt"

	"github.com/gogpu/rtcache/internal/resource"
)

// Errors returned by rtcache.
var (
	// ErrPrecondition is the panic value wrapped for contract violations:
	// wrong-mode calls, stencil passes on wrapped targets and use after teardown.
	ErrPrecondition = errors.New("rtcache: precondition violated")

	// ErrNilGPU is returned when a factory is called without a GPU.
	ErrNilGPU = errors.New("rtcache: gpu is nil")

	// ErrNilProvider is returned by NewGPU for a nil device provider.
	ErrNilProvider = errors.New("rtcache: device provider is nil")

	// ErrNoHalDevice is returned when a device provider does not expose a hal.Device.
	ErrNoHalDevice = errors.New("rtcache: provider does not expose a hal.Device")

	// ErrNilTexture is returned by MakeOwning when ImageInfo has no texture.
	ErrNilTexture = resource.ErrNilTexture

	// ErrInvalidDimensions is returned for zero width or height.
	ErrInvalidDimensions = errors.New("rtcache: invalid dimensions")

	// ErrInvalidSampleCount is returned for a zero sample count or one the
	// caps do not support for the color format.
	ErrInvalidSampleCount = errors.New("rtcache: invalid sample count")

	// ErrUnsupportedFormat is returned for color formats the caps cannot render to.
	ErrUnsupportedFormat = errors.New("rtcache: unsupported format")

	// ErrMSAAUnavailable is returned when the multisample image cannot be built.
	ErrMSAAUnavailable = errors.New("rtcache: msaa attachment unavailable")

	// ErrStencilUnavailable is returned when a stencil pass or framebuffer is
	// requested and the stencil attachment cannot be created.
	ErrStencilUnavailable = errors.New("rtcache: stencil attachment unavailable")

	// ErrNilCommandEncoder is returned by MakeExternalWrap without a host encoder.
	ErrNilCommandEncoder = errors.New("rtcache: host command encoder is nil")

	// ErrNilExternalPass is returned by MakeExternalWrap without a host render pass.
	ErrNilExternalPass = errors.New("rtcache: external render pass is nil")

	// ErrInvalidHandle is returned when a CompatibleRenderPassHandle does not
	// name a compatible set of the provider.
	ErrInvalidHandle = errors.New("rtcache: invalid compatible render pass handle")

	// ErrProviderDestroyed is returned by a ResourceProvider after Destroy.
	ErrProviderDestroyed = errors.New("rtcache: resource provider destroyed")

	// ErrIncompatibleRenderPass is returned when a framebuffer is paired with
	// a pass that is not compatible with the one it was built for.
	ErrIncompatibleRenderPass = errors.New("rtcache: incompatible render pass")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("rtcache: invalid config")
)

// precondition panics with an ErrPrecondition error when cond is false.
func precondition(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...)))
	}
}
