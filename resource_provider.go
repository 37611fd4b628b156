// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

import (
	"fmt"
	"log/slog"
)

// compatKey is the structural key of a compatible set.
type compatKey struct {
	desc  AttachmentsDescriptor
	flags AttachmentFlags
}

// compatibleSet holds every load/store variant of one structural pass.
// passes[0] is the simple (load/store) variant.
type compatibleSet struct {
	key    compatKey
	passes []*RenderPass
}

// ResourceProvider is the GPU-wide store of render passes. Render targets
// with equal attachment signatures share passes through it.
//
// The provider keeps one reference on every pass it created; callers receive
// their own reference. Not safe for concurrent use.
type ResourceProvider struct {
	sets  []*compatibleSet
	index map[compatKey]int

	hits   uint64
	misses uint64

	destroyed bool
}

// NewResourceProvider creates an empty provider.
func NewResourceProvider() *ResourceProvider {
	return &ResourceProvider{
		index: make(map[compatKey]int),
	}
}

// FindCompatibleRenderPass returns the simple pass compatible with desc and
// flags, creating the compatible set on first use, and the handle that names
// the set. The returned pass carries a reference owned by the caller.
func (p *ResourceProvider) FindCompatibleRenderPass(
	desc AttachmentsDescriptor,
	flags AttachmentFlags,
) (*RenderPass, CompatibleRenderPassHandle, error) {
	if p.destroyed {
		return nil, CompatibleRenderPassHandle{}, ErrProviderDestroyed
	}
	if flags.Has(AttachmentExternal) {
		return nil, CompatibleRenderPassHandle{}, fmt.Errorf("%w: external passes are owned by the host", ErrIncompatibleRenderPass)
	}

	key := compatKey{desc: desc, flags: flags}
	if i, ok := p.index[key]; ok {
		p.hits++
		rp := p.sets[i].passes[0]
		rp.Ref()
		return rp, CompatibleRenderPassHandle{id: i + 1}, nil
	}

	stencilOps := LoadStoreOps{}
	if flags.Has(AttachmentHasStencil) {
		stencilOps = LoadStore
	}
	rp := newRenderPass(desc, flags, LoadStore, stencilOps)
	p.sets = append(p.sets, &compatibleSet{key: key, passes: []*RenderPass{rp}})
	i := len(p.sets) - 1
	p.index[key] = i
	p.misses++

	Logger().Debug("rtcache: compatible render pass created",
		slog.Int("set", i),
		slog.String("flags", flags.String()),
		slog.Uint64("samples", uint64(desc.Color.Samples)))

	rp.Ref()
	return rp, CompatibleRenderPassHandle{id: i + 1}, nil
}

// FindRenderPass returns the variant of the compatible set named by h with
// the given load/store ops, creating it on first use. The returned pass is
// compatible with every other pass of the set and carries a reference owned
// by the caller.
func (p *ResourceProvider) FindRenderPass(
	h CompatibleRenderPassHandle,
	colorOps, stencilOps LoadStoreOps,
) (*RenderPass, error) {
	if p.destroyed {
		return nil, ErrProviderDestroyed
	}
	if !h.IsValid() || h.id > len(p.sets) {
		return nil, ErrInvalidHandle
	}
	set := p.sets[h.id-1]
	if !set.key.flags.Has(AttachmentHasStencil) {
		stencilOps = LoadStoreOps{}
	}

	for _, rp := range set.passes {
		if rp.equalOps(colorOps, stencilOps) {
			p.hits++
			rp.Ref()
			return rp, nil
		}
	}

	rp := newRenderPass(set.key.desc, set.key.flags, colorOps, stencilOps)
	set.passes = append(set.passes, rp)
	p.misses++
	rp.Ref()
	return rp, nil
}

// Stats returns the number of lookups served from existing passes and the
// number that created one.
func (p *ResourceProvider) Stats() (hits, misses uint64) {
	return p.hits, p.misses
}

// CompatibleSetCount returns the number of distinct pass signatures.
func (p *ResourceProvider) CompatibleSetCount() int { return len(p.sets) }

// Destroy drops the provider's references. Passes still referenced by
// render targets stay alive until those targets are torn down. Calling
// Destroy more than once is a no-op.
func (p *ResourceProvider) Destroy(abandon bool) {
	if p.destroyed {
		return
	}
	for _, set := range p.sets {
		for _, rp := range set.passes {
			if abandon {
				rp.UnrefAndAbandon()
			} else {
				rp.Unref()
			}
		}
	}
	p.sets = nil
	p.index = nil
	p.destroyed = true
}
