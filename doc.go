// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rtcache manages GPU render-target attachments and the render
// passes and framebuffers built from them.
//
// # Overview
//
// A [RenderTarget] is created in one of two modes and never changes mode:
//
//   - Owning ([MakeOwning]): the target references a host color image and
//     owns the views it creates on it, an optional multisample (MSAA) image
//     whose output is resolved into the host image, and a depth/stencil
//     attachment created lazily by [RenderTarget.RequestStencilAttachment].
//   - External wrap ([MakeExternalWrap]): the target owns no images. It holds
//     a hal.RenderPassEncoder the host has already begun, plus the host's
//     [RenderPass]. Commands recorded here are submitted by the host, so the
//     target cannot see GPU completion.
//
// # Caches
//
// Render passes and framebuffers are keyed by an [AttachmentsDescriptor]
// and a with/without stencil flag. Each target keeps at most one pass and one
// framebuffer per flag; the first request builds, later requests return the
// same pointer. Passes are shared across targets through the GPU-wide
// [ResourceProvider], which also resolves a [CompatibleRenderPassHandle] to
// load/store variants of a compatible pass.
//
// # Lifetime
//
// Every GPU object is reference counted. A target ends in exactly one of two
// terminal states:
//
//   - [RenderTarget.Release]: the caller has synchronized with the GPU;
//     backend objects whose count drops to zero are destroyed.
//   - [RenderTarget.Abandon]: the device is lost; references are dropped and
//     the device is not touched.
//
// In external wrap mode, resources recorded through [RenderTarget.RecordResource]
// sit in a retire list until one of these calls. The host must only tear the
// target down after the GPU has finished its submitted work.
//
// # Contract Violations
//
// Calling an owning-only operation on a wrapped target, asking a wrapped
// target for a stencil pass, or using a target after teardown panics with an
// error wrapping [ErrPrecondition].
//
// # Thread Safety
//
// Nothing in this package is internally synchronized. The owning rendering
// context serializes all calls.
//
// # Logging
//
// Logging is silent by default. Call [SetLogger] to enable it.
package rtcache
