package submit

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/nxt/internal/serial"
)

func TestSerialAdvanceWithoutWork(t *testing.T) {
	e, _, _ := newTestEngine(t, false)

	if e.NextSerial() != 1 || e.CompletedSerial() != 0 {
		t.Fatalf("initial serials = %d/%d, want 1/0", e.NextSerial(), e.CompletedSerial())
	}
	for i := 1; i <= 2; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if got, want := e.NextSerial(), serial.Serial(1+i); got != want {
			t.Errorf("after %d ticks NextSerial = %d, want %d", i, got, want)
		}
		if got, want := e.CompletedSerial(), serial.Serial(i); got != want {
			t.Errorf("after %d ticks CompletedSerial = %d, want %d", i, got, want)
		}
	}
}

func TestSubmitStampsNextSerial(t *testing.T) {
	e, _, q := newTestEngine(t, false)
	q.hold()

	submitWork(t, e)
	if e.NextSerial() != 2 || e.FencesInFlight() != 1 {
		t.Fatalf("after submit next=%d fences=%d, want 2 and 1", e.NextSerial(), e.FencesInFlight())
	}
	if e.HasPendingCommands() {
		t.Error("pending commands still recording after submit")
	}

	// Work in flight blocks the artificial advance.
	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if e.CompletedSerial() != 0 || e.NextSerial() != 2 {
		t.Errorf("gated tick serials = %d/%d, want 0/2", e.CompletedSerial(), e.NextSerial())
	}

	q.releaseAll()
	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if e.FencesInFlight() != 0 {
		t.Errorf("fences in flight = %d, want 0", e.FencesInFlight())
	}
	// Fence for serial 1 passed, then nothing in flight: advance to 3/2.
	if e.CompletedSerial() != 2 || e.NextSerial() != 3 {
		t.Errorf("released tick serials = %d/%d, want 2/3", e.CompletedSerial(), e.NextSerial())
	}
}

func TestSubmitWithoutPendingIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	if err := e.SubmitPendingCommands(); err != nil {
		t.Fatalf("SubmitPendingCommands: %v", err)
	}
	if e.NextSerial() != 1 || e.FencesInFlight() != 0 {
		t.Errorf("next=%d fences=%d, want 1 and 0", e.NextSerial(), e.FencesInFlight())
	}
}

func TestPendingCommandsReused(t *testing.T) {
	e, _, _ := newTestEngine(t, false)
	a, err := e.PendingCommands()
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	b, err := e.PendingCommands()
	if err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if a != b {
		t.Error("PendingCommands returned a different encoder while recording")
	}
}

func TestCommandPoolsRecycled(t *testing.T) {
	e, dev, q := newTestEngine(t, false)
	q.hold()

	submitWork(t, e)
	submitWork(t, e)
	if dev.encoders != 2 {
		t.Fatalf("encoders = %d, want 2 while both pools are in flight", dev.encoders)
	}

	q.releaseAll()
	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	submitWork(t, e)
	submitWork(t, e)
	if dev.encoders != 2 {
		t.Errorf("encoders = %d, want 2 after recycling", dev.encoders)
	}
}

func TestFencedDeleteOrdering(t *testing.T) {
	e, dev, q := newTestEngine(t, false)
	q.hold()
	submitWork(t, e)

	a := createTexture(t, dev)
	b := createTexture(t, dev)
	s := e.NextSerial()
	e.Deleter().DeleteTexture(a)
	e.Deleter().DeleteTexture(b)

	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(dev.destroyed) != 0 {
		t.Fatalf("destroyed before serial %d passed: %v", s, dev.destroyed)
	}
	if e.Deleter().Pending() != 2 {
		t.Errorf("Pending = %d, want 2", e.Deleter().Pending())
	}

	q.releaseAll()
	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if e.CompletedSerial() < s {
		t.Fatalf("CompletedSerial = %d, want >= %d", e.CompletedSerial(), s)
	}
	if want := []string{"texture 1", "texture 2"}; !slices.Equal(dev.destroyed, want) {
		t.Errorf("destroyed = %v, want %v", dev.destroyed, want)
	}
}

func TestWaitFencesDeletedAfterSubmit(t *testing.T) {
	e, dev, _ := newTestEngine(t, false)
	f, err := dev.CreateFence()
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	e.AddWaitFence(f)
	submitWork(t, e)

	if dev.fences != 0 {
		t.Fatal("wait fence destroyed at submit")
	}
	if err := e.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if dev.fences != 1 {
		t.Errorf("destroyed fences = %d, want 1", dev.fences)
	}
}

func TestShutdown(t *testing.T) {
	e, dev, q := newTestEngine(t, false)
	q.hold()
	submitWork(t, e)

	var statuses []MapStatus
	record := func(s MapStatus) { statuses = append(statuses, s) }
	e.Maps().Track(e.CompletedSerial(), record)
	e.Maps().Track(e.NextSerial(), record)
	e.Maps().Track(e.NextSerial()+10, record)
	e.Deleter().DeleteTexture(createTexture(t, dev))

	e.Shutdown()

	// Only the request whose serial already passed succeeds.
	if want := []MapStatus{MapSuccess, MapUnknown, MapUnknown}; !slices.Equal(statuses, want) {
		t.Errorf("map statuses = %v, want %v", statuses, want)
	}
	if len(dev.destroyed) != 1 {
		t.Errorf("destroyed = %v, want one texture", dev.destroyed)
	}
	if _, err := e.PendingCommands(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("PendingCommands after Shutdown error = %v, want ErrEngineClosed", err)
	}
	if err := e.Tick(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Tick after Shutdown error = %v, want ErrEngineClosed", err)
	}
	// Second shutdown (from t.Cleanup) is a no-op.
	e.Shutdown()
}
