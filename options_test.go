package nxt

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestResolveDescriptorDefaults(t *testing.T) {
	d := resolveDescriptor(nil, nil)
	if d.Backend != "" || d.MemoryBudget != 0 || d.DisableValidation {
		t.Errorf("resolveDescriptor(nil) = %+v", d)
	}
	if d.Limits != gputypes.DefaultLimits() {
		t.Error("zero limits were not replaced by the defaults")
	}
}

func TestDeviceOptions(t *testing.T) {
	base := &DeviceDescriptor{Label: "base", Backend: "vulkan"}
	d := resolveDescriptor(base, []DeviceOption{
		WithBackend("noop"),
		WithMemoryBudget(1 << 20),
		WithoutValidation(),
		WithLabel("options"),
	})

	tests := []struct {
		name string
		ok   bool
	}{
		{"backend", d.Backend == "noop"},
		{"budget", d.MemoryBudget == 1<<20},
		{"validation", d.DisableValidation},
		{"label", d.Label == "options"},
	}
	for _, tt := range tests {
		if !tt.ok {
			t.Errorf("%s option not applied: %+v", tt.name, d)
		}
	}
	if base.Backend != "vulkan" || base.Label != "base" {
		t.Errorf("options modified the caller's descriptor: %+v", base)
	}
}

func TestWithFeaturesAccumulates(t *testing.T) {
	a := gputypes.Features(1 << 2)
	b := gputypes.Features(1 << 5)
	d := resolveDescriptor(nil, []DeviceOption{WithFeatures(a), WithFeatures(b)})
	if d.RequiredFeatures != a|b {
		t.Errorf("RequiredFeatures = %v, want %v", d.RequiredFeatures, a|b)
	}
}

func TestCustomLimitsKept(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxBindGroups = 2
	d := resolveDescriptor(&DeviceDescriptor{Limits: limits}, nil)
	if d.Limits.MaxBindGroups != 2 {
		t.Errorf("MaxBindGroups = %d, want 2", d.Limits.MaxBindGroups)
	}
}
