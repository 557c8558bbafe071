package submit

import (
	"errors"
	"strings"
	"testing"
)

func TestMemoryBudget(t *testing.T) {
	m := NewMemory(100)

	if err := m.Allocate(60); err != nil {
		t.Fatalf("Allocate(60): %v", err)
	}
	if err := m.Allocate(50); !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("Allocate(50) error = %v, want ErrMemoryBudgetExceeded", err)
	}

	m.FreeWhenUnused(60, 2)
	m.Tick(1)
	if s := m.Stats(); s.UsedBytes != 60 || s.PendingFreeBytes != 60 {
		t.Errorf("before serial: used=%d pending=%d, want 60/60", s.UsedBytes, s.PendingFreeBytes)
	}

	m.Tick(2)
	s := m.Stats()
	if s.UsedBytes != 0 || s.PendingFreeBytes != 0 || s.Allocations != 0 {
		t.Errorf("after serial: %+v", s)
	}
	if s.PeakBytes != 60 {
		t.Errorf("PeakBytes = %d, want 60", s.PeakBytes)
	}
	if err := m.Allocate(100); err != nil {
		t.Errorf("Allocate(100) after free: %v", err)
	}
}

func TestMemoryUnlimited(t *testing.T) {
	m := NewMemory(0)
	for range 4 {
		if err := m.Allocate(1 << 40); err != nil {
			t.Fatalf("Allocate: %v", err)
		}
	}
	m.Free(1 << 40)
	s := m.Stats()
	if s.Allocations != 3 || s.Utilization != 0 {
		t.Errorf("stats = %+v", s)
	}
	if !strings.Contains(s.String(), "3 allocations") {
		t.Errorf("String() = %q", s.String())
	}
}

func TestMemoryStatsString(t *testing.T) {
	m := NewMemory(4096)
	if err := m.Allocate(1024); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got := m.Stats().String(); !strings.Contains(got, "25.0% used") {
		t.Errorf("String() = %q, want 25.0%% used", got)
	}
}
