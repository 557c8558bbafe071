// Command nxtinfo lists the registered backends, opens a device and runs a
// buffer copy round trip through it.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func main() {
	var (
		backend = flag.String("backend", "", "backend name (default: highest priority)")
		budget  = flag.Uint64("budget", 0, "memory budget in bytes, 0 for unlimited")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		nxt.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	fmt.Println("backends:", nxt.Backends())

	dev, err := nxt.NewDevice(nil,
		nxt.WithBackend(*backend),
		nxt.WithMemoryBudget(*budget),
		nxt.WithLabel("nxtinfo"),
	)
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	defer dev.Release()

	var failed bool
	dev.SetErrorCallback(func(msg string) {
		log.Printf("device error: %s", msg)
		failed = true
	})

	info := dev.HALAdapterInfo()
	fmt.Printf("adapter:  %s (%s, %v)\n", info.Name, info.Vendor, info.DeviceType)
	fmt.Printf("driver:   %s %s\n", info.Driver, info.DriverInfo)
	limits := dev.Limits()
	fmt.Printf("limits:   %d bind groups, %d-texel 2D textures\n",
		limits.MaxBindGroups, limits.MaxTextureDimension2D)

	got, err := roundTrip(dev, []byte("nxtinfo round trip"))
	switch {
	case err != nil:
		log.Fatalf("round trip: %v", err)
	case failed:
		os.Exit(1)
	}
	fmt.Printf("readback: %q\n", got)

	s := dev.MemoryStats()
	fmt.Printf("memory:   %d bytes used, %d peak, %d allocations\n", s.UsedBytes, s.PeakBytes, s.Allocations)
}

// roundTrip uploads data, copies it into a readback buffer on the GPU and
// maps the result.
func roundTrip(dev *nxt.Device, data []byte) ([]byte, error) {
	size := uint64(len(data)+3) &^ 3

	src := dev.CreateBufferBuilder().
		SetSize(size).
		SetAllowedUsage(gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst).
		SetInitialUsage(gputypes.BufferUsageCopyDst).
		GetResult()
	dst := dev.CreateBufferBuilder().
		SetSize(size).
		SetAllowedUsage(gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst).
		SetInitialUsage(gputypes.BufferUsageCopyDst).
		GetResult()
	if src == nil || dst == nil {
		return nil, fmt.Errorf("buffer creation failed")
	}
	defer src.Release()
	defer dst.Release()

	src.SetSubData(0, data)
	src.TransitionUsage(gputypes.BufferUsageCopySrc)

	cb := dev.CreateCommandBufferBuilder().
		CopyBufferToBuffer(src, 0, dst, 0, size).
		TransitionBufferUsage(dst, gputypes.BufferUsageMapRead).
		GetResult()
	if cb == nil {
		return nil, fmt.Errorf("command buffer creation failed")
	}
	queue := dev.CreateQueue()
	defer queue.Release()
	queue.Submit(cb)
	cb.Release()

	var (
		result []byte
		status nxt.BufferMapAsyncStatus
		done   bool
	)
	dst.MapReadAsync(0, size, func(s nxt.BufferMapAsyncStatus, p []byte) {
		status, done = s, true
		if s == nxt.BufferMapAsyncStatusSuccess {
			result = bytes.Clone(p[:len(data)])
		}
	})
	for i := 0; !done && i < 16; i++ {
		dev.Tick()
	}
	switch {
	case !done:
		return nil, fmt.Errorf("map did not complete")
	case status != nxt.BufferMapAsyncStatusSuccess:
		return nil, fmt.Errorf("map failed with status %v", status)
	}
	dst.Unmap()
	return result, nil
}
