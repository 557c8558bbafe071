package submit

import (
	"slices"
	"testing"
)

func TestMapTrackerFiresOnce(t *testing.T) {
	m := newMapTracker()
	var got []MapStatus
	m.Track(2, func(s MapStatus) { got = append(got, s) })

	m.Tick(1)
	if len(got) != 0 {
		t.Fatalf("fired before serial passed: %v", got)
	}
	m.Tick(2)
	m.Tick(3)
	m.Drain()
	if want := []MapStatus{MapSuccess}; !slices.Equal(got, want) {
		t.Errorf("statuses = %v, want %v", got, want)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestMapTrackerCancel(t *testing.T) {
	m := newMapTracker()
	var got []MapStatus
	ticket := m.Track(1, func(s MapStatus) { got = append(got, s) })

	if !m.Cancel(ticket) {
		t.Fatal("Cancel returned false for a live request")
	}
	if m.Cancel(ticket) {
		t.Error("second Cancel returned true")
	}
	m.Tick(1)
	if want := []MapStatus{MapUnknown}; !slices.Equal(got, want) {
		t.Errorf("statuses = %v, want %v", got, want)
	}
}

func TestMapTrackerOrderAndReentry(t *testing.T) {
	m := newMapTracker()
	var order []int
	m.Track(1, func(MapStatus) {
		order = append(order, 1)
		// A callback may issue a new request.
		m.Track(5, func(s MapStatus) {
			if s != MapUnknown {
				t.Errorf("drained request status = %v, want Unknown", s)
			}
			order = append(order, 3)
		})
	})
	m.Track(2, func(MapStatus) { order = append(order, 2) })

	m.Tick(2)
	m.Drain()
	if want := []int{1, 2, 3}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestMapStatusString(t *testing.T) {
	tests := []struct {
		s    MapStatus
		want string
	}{
		{MapSuccess, "Success"},
		{MapError, "Error"},
		{MapUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
