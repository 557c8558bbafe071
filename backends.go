package nxt

import (
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend names accepted by DeviceDescriptor.Backend.
const (
	BackendVulkan = "vulkan"
	BackendMetal  = "metal"
	BackendDX12   = "dx12"
	BackendGL     = "gl"
	BackendNoop   = "noop"
)

// backendPriority orders automatic backend selection; the noop backend
// only wins when nothing else is registered.
var backendPriority = []string{BackendVulkan, BackendMetal, BackendDX12, BackendGL, BackendNoop}

var backendNames = map[gputypes.Backend]string{
	gputypes.BackendVulkan: BackendVulkan,
	gputypes.BackendMetal:  BackendMetal,
	gputypes.BackendDX12:   BackendDX12,
	gputypes.BackendGL:     BackendGL,
	gputypes.BackendEmpty:  BackendNoop,
}

// backendRegistry snapshots the HAL backends registered by the blank
// imports of the program (for example github.com/gogpu/wgpu/hal/allbackends).
func backendRegistry() *gpucontext.Registry[hal.Backend] {
	r := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(backendPriority...))
	for _, variant := range hal.AvailableBackends() {
		name, ok := backendNames[variant]
		if !ok {
			continue
		}
		b, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		r.Register(name, func() hal.Backend { return b })
	}
	return r
}

// Backends returns the names of the registered backends in priority order.
func Backends() []string {
	names := backendRegistry().Available()
	slices.SortFunc(names, func(a, b string) int {
		return backendRank(a) - backendRank(b)
	})
	return names
}

func backendRank(name string) int {
	if i := slices.Index(backendPriority, name); i >= 0 {
		return i
	}
	return len(backendPriority)
}
