// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rtcache

// Option configures a RenderTarget during creation.
//
// Example:
//
//	rt, err := rtcache.MakeOwning(gpu, dims, 4, info, state,
//	    rtcache.WithLabel("main"),
//	    rtcache.WithReleaseCallback(func() { pool.Put(info.Texture) }))
type Option func(*options)

// options holds optional configuration for RenderTarget creation.
type options struct {
	label     string
	onRelease func()
}

// defaultOptions returns the default render target options.
func defaultOptions() options {
	return options{
		label: "render_target",
	}
}

// WithLabel sets the debug label used for allocated images and views.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithReleaseCallback registers fn to run once after the target is torn
// down, on either the release or the abandon path. Hosts use it to learn
// when the target no longer references their image.
func WithReleaseCallback(fn func()) Option {
	return func(o *options) {
		o.onRelease = fn
	}
}
