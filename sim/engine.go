package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// DurationSource provides the delays of stochastic events. Any random
// variable that can produce a next value qualifies.
type DurationSource interface {
	NextValue() float64
}

// EventScheduler can be used to schedule and cancel future events.
type EventScheduler interface {
	TimeTeller

	// Schedule registers an event to happen after the given delay.
	Schedule(h Handler, delay VTimeInSec, opts ...EventOption) *Event

	// ScheduleFrom registers an event whose delay is drawn from src.
	ScheduleFrom(h Handler, src DurationSource, opts ...EventOption) *Event

	// Cancel prevents a scheduled event from firing.
	Cancel(evt *Event)
}

// An EndHandler is a handler that is called after the executive ends.
type EndHandler interface {
	Handle(now VTimeInSec, reason EndReason)
}

// EndHandlerFunc adapts a function into an EndHandler.
type EndHandlerFunc func(now VTimeInSec, reason EndReason)

// Handle calls f(now, reason).
func (f EndHandlerFunc) Handle(now VTimeInSec, reason EndReason) {
	f(now, reason)
}
