package publish

import (
	"testing"
)

func TestLegalTransitions(t *testing.T) {
	sequences := [][]State{
		{StateValidating, StateCreatingRecord, StateUploadingPhotos, StatePublished},
		{StateValidating, StateFailed},
		{StateValidating, StateCreatingRecord, StateFailed},
		{StateValidating, StateCreatingRecord, StateUploadingPhotos, StateRollingBack, StateFailed},
	}

	for _, seq := range sequences {
		tr := newTracker("t", NopNotifier{})
		for _, next := range seq {
			if err := tr.to(next); err != nil {
				t.Fatalf("transition to %s in %v: %v", next, seq, err)
			}
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		walk []State
		next State
	}{
		{nil, StatePublished},
		{nil, StateUploadingPhotos},
		{[]State{StateValidating}, StatePublished},
		{[]State{StateValidating, StateCreatingRecord}, StateRollingBack},
		{[]State{StateValidating, StateCreatingRecord, StateUploadingPhotos, StatePublished}, StateValidating},
		{[]State{StateValidating, StateFailed}, StateValidating},
	}

	for _, tc := range cases {
		tr := newTracker("t", NopNotifier{})
		for _, s := range tc.walk {
			if err := tr.to(s); err != nil {
				t.Fatalf("setup walk %v: %v", tc.walk, err)
			}
		}
		if err := tr.to(tc.next); err == nil {
			t.Fatalf("transition %v -> %s should be rejected", tc.walk, tc.next)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := map[State]bool{
		StatePublished: true,
		StateFailed:    true,
	}
	for _, s := range []State{StateIdle, StateValidating, StateCreatingRecord, StateUploadingPhotos, StateRollingBack, StatePublished, StateFailed} {
		if got := s.Terminal(); got != terminal[s] {
			t.Fatalf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}
