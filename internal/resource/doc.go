// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource provides reference-counted wrappers around wgpu/hal
// textures and texture views.
//
// Every wrapper embeds [Managed], which tracks a reference count and runs a
// free function when the last reference is dropped. The free function is told
// whether the drop happened on the release path or the abandon path:
//
//   - Release: the caller guarantees the GPU has finished with the object,
//     so backend handles are destroyed through the [Device].
//   - Abandon: the device is lost or otherwise unusable. References are
//     dropped without calling into the device.
//
// Images created by an [Allocator] are owned and destroyed on release.
// Images wrapped from a host texture may be borrowed, in which case only the
// views the allocator created are destroyed and the texture is left to the host.
//
// This package is not safe for concurrent use; the owning rendering context
// serializes all access.
package resource
