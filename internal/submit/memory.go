package submit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/nxt/internal/serial"
)

// ErrMemoryBudgetExceeded is returned when an allocation would exceed the budget.
var ErrMemoryBudgetExceeded = errors.New("submit: memory budget exceeded")

// MemoryStats contains GPU memory accounting statistics.
type MemoryStats struct {
	// BudgetBytes is the memory budget in bytes. Zero means unlimited.
	BudgetBytes uint64

	// UsedBytes is the currently allocated memory, including frees that are
	// waiting for their serial.
	UsedBytes uint64

	// PendingFreeBytes is the part of UsedBytes released but still in use
	// by the GPU.
	PendingFreeBytes uint64

	// PeakBytes is the highest UsedBytes observed.
	PeakBytes uint64

	// Allocations is the number of live allocations.
	Allocations int

	// Utilization is the fraction of the budget used (0.0 to 1.0).
	// Always zero for an unlimited budget.
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%d KB used, %d KB pending free, %d KB peak, %d allocations]",
			s.UsedBytes/1024, s.PendingFreeBytes/1024, s.PeakBytes/1024, s.Allocations)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d KB pending free, %d allocations]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.BudgetBytes/1024,
		s.PendingFreeBytes/1024,
		s.Allocations)
}

// Memory tracks buffer and texture allocations against a byte budget.
// Frees are deferred until the GPU passes the serial at which the resource
// was released.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	budgetBytes  uint64
	usedBytes    uint64
	pendingBytes uint64
	peakBytes    uint64
	allocations  int

	pending serial.Queue[uint64]
}

// NewMemory creates memory accounting with the given budget in bytes.
// A zero budget is unlimited.
func NewMemory(budget uint64) *Memory {
	return &Memory{budgetBytes: budget}
}

// Allocate reserves size bytes. It fails with ErrMemoryBudgetExceeded when
// the reservation would exceed the budget.
func (m *Memory) Allocate(size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.budgetBytes != 0 && m.usedBytes+size > m.budgetBytes {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, size, m.budgetBytes-m.usedBytes)
	}
	m.usedBytes += size
	m.allocations++
	if m.usedBytes > m.peakBytes {
		m.peakBytes = m.usedBytes
	}
	return nil
}

// Free returns size bytes to the budget immediately. Used when the GPU never
// saw the allocation.
func (m *Memory) Free(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(size)
}

// FreeWhenUnused returns size bytes to the budget once serial s has passed.
func (m *Memory) FreeWhenUnused(size uint64, s serial.Serial) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.Enqueue(size, s)
	m.pendingBytes += size
}

// Tick applies every deferred free whose serial is at most completed.
func (m *Memory) Tick(completed serial.Serial) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.IterateUpTo(completed, func(size uint64, _ serial.Serial) {
		m.pendingBytes -= size
		m.release(size)
	})
	m.pending.ClearUpTo(completed)
}

// Stats returns current memory statistics.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		BudgetBytes:      m.budgetBytes,
		UsedBytes:        m.usedBytes,
		PendingFreeBytes: m.pendingBytes,
		PeakBytes:        m.peakBytes,
		Allocations:      m.allocations,
		Utilization:      utilization,
	}
}

// release must be called with mu held.
func (m *Memory) release(size uint64) {
	m.usedBytes -= size
	m.allocations--
}
