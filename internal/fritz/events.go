package fritz

import "time"

// EventType tells data events from error events.
type EventType int

const (
	EventData EventType = iota
	EventError
)

func (t EventType) String() string {
	if t == EventError {
		return "ERROR"
	}
	return "DATA"
}

// Kind names the operation an event belongs to.
type Kind string

const (
	KindGraph Kind = "GRAPH"
	KindInfo  Kind = "INFO"
	KindToken Kind = "TOKEN"
)

// Event is handed to observers right before an operation returns.
type Event struct {
	Type      EventType
	Kind      Kind
	At        time.Time
	Err       error
	Bandwidth *Bandwidth
	OSVersion string
}

// Observer receives events synchronously. It must not block for long and
// cannot change the outcome of the operation that emitted the event.
type Observer func(Event)

// Observers fans an event out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	return func(ev Event) {
		for _, o := range obs {
			if o != nil {
				o(ev)
			}
		}
	}
}

func (o Observer) emit(ev Event) {
	if o != nil {
		o(ev)
	}
}
