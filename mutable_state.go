// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import "github.com/gogpu/gputypes"

// MutableState is the layout and queue ownership of an image, shared between
// a render target and any texture wrapper the host pairs with it. The host
// updates it when it transitions the image outside this package.
type MutableState struct {
	usage       gputypes.TextureUsage
	queueFamily uint32
}

// NewMutableState returns a state with the given current usage and owning
// queue family.
func NewMutableState(usage gputypes.TextureUsage, queueFamily uint32) *MutableState {
	return &MutableState{usage: usage, queueFamily: queueFamily}
}

// Usage returns the usage the image was last transitioned to.
func (s *MutableState) Usage() gputypes.TextureUsage { return s.usage }

// SetUsage records a transition.
func (s *MutableState) SetUsage(u gputypes.TextureUsage) { s.usage = u }

// QueueFamilyIndex returns the queue family that owns the image.
func (s *MutableState) QueueFamilyIndex() uint32 { return s.queueFamily }

// SetQueueFamilyIndex records an ownership transfer.
func (s *MutableState) SetQueueFamilyIndex(i uint32) { s.queueFamily = i }
