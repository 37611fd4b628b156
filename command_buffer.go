// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import "github.com/gogpu/wgpu/hal"

// Resource is a reference-counted object a CommandBuffer can track.
// Images, views, render passes and framebuffers all implement it.
type Resource interface {
	Ref()
	Unref()
	UnrefAndAbandon()
}

// CommandBuffer is a recording against a wrapped target's host encoder. It
// references every resource the recorded commands use until it is released.
//
// A CommandBuffer implements RecordedResource; hand it to
// RenderTarget.RecordResource once recording is done so it lives until
// the host has finished with the GPU work. The zero value tracks resources
// without an encoder, which is how owning targets use it.
type CommandBuffer struct {
	encoder hal.RenderPassEncoder
	tracked []Resource

	recorded bool
	done     bool
}

// Encoder returns the host encoder commands are recorded into.
func (cb *CommandBuffer) Encoder() hal.RenderPassEncoder { return cb.encoder }

// Track adds a reference on r, held until the command buffer is released.
func (cb *CommandBuffer) Track(r Resource) {
	precondition(!cb.done, "track on finished command buffer")
	r.Ref()
	cb.tracked = append(cb.tracked, r)
}

// TrackedCount returns the number of tracked references.
func (cb *CommandBuffer) TrackedCount() int { return len(cb.tracked) }

// Release drops every tracked reference. It implements RecordedResource.
func (cb *CommandBuffer) Release() { cb.finish(false) }

// Abandon drops every tracked reference without touching the device.
// It implements RecordedResource.
func (cb *CommandBuffer) Abandon() { cb.finish(true) }

func (cb *CommandBuffer) finish(abandon bool) {
	precondition(!cb.done, "command buffer finished twice")
	cb.done = true
	for _, r := range cb.tracked {
		if abandon {
			r.UnrefAndAbandon()
		} else {
			r.Unref()
		}
	}
	cb.tracked = nil
	cb.encoder = nil
}

var _ RecordedResource = (*CommandBuffer)(nil)
