// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command rtinspect builds the render targets described by a config file on
// a noop device and prints their attachments, memory footprint and the
// render pass sharing of the resource provider.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rtcache"
)

func main() {
	if err := runMain(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("rtinspect: %v", err)
	}
}

// runMain parses args, inspects the configured targets on a noop device and
// writes the report to stdout. Verbose logging goes to stderr.
func runMain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("rtinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		config  = fs.String("config", "", "config file (.toml, .yaml or .yml); built-in demo targets if empty")
		verbose = fs.Bool("v", false, "log cache activity to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		rtcache.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
		defer rtcache.SetLogger(nil)
	}

	cfg := demoConfig()
	if *config != "" {
		var err error
		if cfg, err = rtcache.LoadConfig(*config); err != nil {
			return err
		}
	}

	device, cleanup, err := createNoopDevice()
	if err != nil {
		return err
	}
	defer cleanup()

	return run(stdout, cfg, device)
}

// createNoopDevice opens the first adapter of the noop backend.
func createNoopDevice() (hal.Device, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, fmt.Errorf("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, cleanup, nil
}

// demoConfig returns two targets sharing a signature and one that does not.
func demoConfig() *rtcache.Config {
	cfg := rtcache.DefaultConfig()
	bgra := rtcache.Format(gputypes.TextureFormatBGRA8Unorm)
	cfg.Targets = []rtcache.TargetConfig{
		{Name: "main", Width: 256, Height: 256, SampleCount: 4, Format: bgra, Stencil: true},
		{Name: "overlay", Width: 512, Height: 128, SampleCount: 4, Format: bgra},
		{Name: "mask", Width: 256, Height: 256, SampleCount: 1, Format: rtcache.Format(gputypes.TextureFormatR8Unorm)},
	}
	return cfg
}
