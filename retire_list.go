// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

// RecordedResource is a resource recorded against an externally driven
// target. The target owns it once recorded and calls exactly one of the two
// methods, exactly once, when the target is torn down.
type RecordedResource interface {
	// Release frees the resource after the host has synchronized with the GPU.
	Release()

	// Abandon drops the resource without touching the device.
	Abandon()
}

// ResourceRetireList keeps recorded resources alive until teardown.
//
// Only the host knows when the GPU has consumed commands recorded against a
// wrapped target, so entries are never removed early. Teardown drains the
// list in recording order.
type ResourceRetireList struct {
	resources []RecordedResource
}

// Append takes ownership of r.
func (l *ResourceRetireList) Append(r RecordedResource) {
	l.resources = append(l.resources, r)
}

// Len returns the number of retained resources.
func (l *ResourceRetireList) Len() int { return len(l.resources) }

// drain releases or abandons every entry once and empties the list.
func (l *ResourceRetireList) drain(abandon bool) {
	for i, r := range l.resources {
		if abandon {
			r.Abandon()
		} else {
			r.Release()
		}
		l.resources[i] = nil
	}
	l.resources = nil
}
