package publish

import (
	"fmt"
	"time"
)

// State is the phase of a single publish attempt.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateCreatingRecord  State = "creating_record"
	StateUploadingPhotos State = "uploading_photos"
	StatePublished       State = "published"
	StateRollingBack     State = "rolling_back"
	StateFailed          State = "failed"
)

// transitions lists the legal next states per state. Published and Failed
// are terminal for an attempt; a retry is a fresh attempt starting at Idle.
var transitions = map[State][]State{
	StateIdle:            {StateValidating},
	StateValidating:      {StateCreatingRecord, StateFailed},
	StateCreatingRecord:  {StateUploadingPhotos, StateFailed},
	StateUploadingPhotos: {StatePublished, StateRollingBack},
	StateRollingBack:     {StateFailed},
}

// Terminal reports whether the state ends an attempt
func (s State) Terminal() bool {
	return s == StatePublished || s == StateFailed
}

// Event is one state transition of a publish attempt, delivered to
// progress subscribers.
type Event struct {
	AttemptID string    `json:"attempt_id"`
	State     State     `json:"state"`
	At        time.Time `json:"at"`
}

// Notifier receives attempt state transitions
type Notifier interface {
	Notify(Event)
}

// NopNotifier discards events
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// tracker walks one attempt through the state machine, publishing every
// transition.
type tracker struct {
	attemptID string
	state     State
	notifier  Notifier
}

func newTracker(attemptID string, notifier Notifier) *tracker {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &tracker{attemptID: attemptID, state: StateIdle, notifier: notifier}
}

func (t *tracker) to(next State) error {
	for _, allowed := range transitions[t.state] {
		if next == allowed {
			t.state = next
			t.notifier.Notify(Event{
				AttemptID: t.attemptID,
				State:     next,
				At:        time.Now(),
			})
			return nil
		}
	}
	return fmt.Errorf("illegal publish transition %s -> %s", t.state, next)
}
