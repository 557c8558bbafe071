package nxt

import "github.com/gogpu/gputypes"

// DeviceDescriptor configures NewDevice and NewDeviceFromHAL.
type DeviceDescriptor struct {
	// Label names the device in log output.
	Label string

	// Backend selects a backend by name ("vulkan", "metal", "dx12", "gl",
	// "noop"). Empty picks the highest-priority registered backend.
	Backend string

	// RequiredFeatures must all be exposed by the chosen adapter.
	RequiredFeatures gputypes.Features

	// Limits requested from the adapter. The zero value requests
	// gputypes.DefaultLimits.
	Limits gputypes.Limits

	// MemoryBudget caps the bytes of buffer and texture memory the device
	// may hold. Zero means unlimited.
	MemoryBudget uint64

	// DisableValidation installs the non-validating proc table.
	DisableValidation bool
}

// DeviceOption configures a DeviceDescriptor.
//
// Example:
//
//	dev, err := nxt.NewDevice(nil,
//	    nxt.WithBackend("vulkan"),
//	    nxt.WithMemoryBudget(256<<20),
//	)
type DeviceOption func(*DeviceDescriptor)

// WithBackend selects the backend by name.
func WithBackend(name string) DeviceOption {
	return func(d *DeviceDescriptor) {
		d.Backend = name
	}
}

// WithMemoryBudget sets the device memory budget in bytes.
func WithMemoryBudget(bytes uint64) DeviceOption {
	return func(d *DeviceDescriptor) {
		d.MemoryBudget = bytes
	}
}

// WithoutValidation skips argument range checks and the per-method extra
// validators. Only for callers that already validated their calls.
func WithoutValidation() DeviceOption {
	return func(d *DeviceDescriptor) {
		d.DisableValidation = true
	}
}

// WithFeatures adds required adapter features.
func WithFeatures(features gputypes.Features) DeviceOption {
	return func(d *DeviceDescriptor) {
		d.RequiredFeatures |= features
	}
}

// WithLabel sets the device label.
func WithLabel(label string) DeviceOption {
	return func(d *DeviceDescriptor) {
		d.Label = label
	}
}

// resolveDescriptor copies desc (nil means defaults) and applies opts.
func resolveDescriptor(desc *DeviceDescriptor, opts []DeviceOption) DeviceDescriptor {
	var d DeviceDescriptor
	if desc != nil {
		d = *desc
	}
	for _, opt := range opts {
		opt(&d)
	}
	if d.Limits == (gputypes.Limits{}) {
		d.Limits = gputypes.DefaultLimits()
	}
	return d
}
