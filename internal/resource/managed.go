// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrRefCount is the panic value for reference count misuse: a Ref on a freed
// object or an Unref past zero.
var ErrRefCount = errors.New("resource: reference count misuse")

// Managed is an intrusive reference count for GPU objects.
//
// The zero value is not usable; call Init before handing the object out.
// A freshly initialized Managed holds one reference owned by its creator.
type Managed struct {
	refs atomic.Int32
	free func(abandon bool)
}

// Init sets the initial reference count to one and records the function run
// when the count drops to zero.
func (m *Managed) Init(free func(abandon bool)) {
	m.refs.Store(1)
	m.free = free
}

// Ref adds a reference.
func (m *Managed) Ref() {
	if m.refs.Add(1) <= 1 {
		panic(fmt.Errorf("%w: ref on freed object", ErrRefCount))
	}
}

// Unref drops a reference. The last Unref destroys backend objects.
func (m *Managed) Unref() { m.unref(false) }

// UnrefAndAbandon drops a reference. The last drop forgets backend objects
// without calling into the device.
func (m *Managed) UnrefAndAbandon() { m.unref(true) }

// RefCount returns the current reference count.
func (m *Managed) RefCount() int32 { return m.refs.Load() }

// IsFreed reports whether the last reference has been dropped.
func (m *Managed) IsFreed() bool { return m.refs.Load() <= 0 }

func (m *Managed) unref(abandon bool) {
	n := m.refs.Add(-1)
	if n < 0 {
		panic(fmt.Errorf("%w: unref past zero", ErrRefCount))
	}
	if n == 0 && m.free != nil {
		m.free(abandon)
	}
}
