package sim

import "math"

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec float64

// Priorities used by the library itself. Lower values are served first among
// events scheduled for the same time.
const (
	PriorityEndReplication = math.MinInt32
	PriorityTimedUpdate    = 3
	PriorityWarmUp         = 5
	PriorityDefault        = 10
)

// A Handler defines the action that runs when an event fires.
type Handler interface {
	Handle(evt *Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(evt *Event) error

// Handle calls f(evt).
func (f HandlerFunc) Handle(evt *Event) error {
	return f(evt)
}

type eventState int

const (
	eventScheduled eventState = iota
	eventCancelled
	eventExecuted
)

// An Event is something going to happen in the future.
//
// The ordering key (time, priority, sequence) is fixed once the event is
// scheduled. The only mutation allowed afterwards is cancellation.
type Event struct {
	time     VTimeInSec
	priority int
	seq      uint64
	handler  Handler
	message  any
	name     string
	state    eventState
}

// Time returns the time that the event is going to happen.
func (e *Event) Time() VTimeInSec {
	return e.time
}

// Priority returns the tie-break priority of the event.
func (e *Event) Priority() int {
	return e.priority
}

// Seq returns the creation order of the event within its executive.
func (e *Event) Seq() uint64 {
	return e.seq
}

// Handler returns the handler to handle the event.
func (e *Event) Handler() Handler {
	return e.handler
}

// Message returns the payload attached to the event, if any.
func (e *Event) Message() any {
	return e.message
}

// Name returns the name of the event.
func (e *Event) Name() string {
	return e.name
}

// IsCancelled tells if the event has been cancelled before it fired.
func (e *Event) IsCancelled() bool {
	return e.state == eventCancelled
}

// IsExecuted tells if the event has already been handled.
func (e *Event) IsExecuted() bool {
	return e.state == eventExecuted
}

// IsPending tells if the event is still waiting in a calendar.
func (e *Event) IsPending() bool {
	return e.state == eventScheduled
}

// drop marks a pending event as cancelled when its calendar is cleared.
func (e *Event) drop() {
	if e.state == eventScheduled {
		e.state = eventCancelled
	}
}

// before returns true if e must be served before other.
func (e *Event) before(other *Event) bool {
	if e.time != other.time {
		return e.time < other.time
	}

	if e.priority != other.priority {
		return e.priority < other.priority
	}

	return e.seq < other.seq
}

// EventOption customizes an event when it is scheduled.
type EventOption func(e *Event)

// WithPriority sets the priority of the event.
func WithPriority(p int) EventOption {
	return func(e *Event) {
		e.priority = p
	}
}

// WithMessage attaches a payload to the event.
func WithMessage(msg any) EventOption {
	return func(e *Event) {
		e.message = msg
	}
}

// WithName sets the name of the event.
func WithName(name string) EventOption {
	return func(e *Event) {
		e.name = name
	}
}
