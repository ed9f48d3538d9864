package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ExecutiveState is the lifecycle state of an Executive.
type ExecutiveState int

// Executive states.
const (
	ExecutiveUninitialized ExecutiveState = iota
	ExecutiveInitialized
	ExecutiveRunning
	ExecutiveEnded
)

func (s ExecutiveState) String() string {
	switch s {
	case ExecutiveUninitialized:
		return "Uninitialized"
	case ExecutiveInitialized:
		return "Initialized"
	case ExecutiveRunning:
		return "Running"
	case ExecutiveEnded:
		return "Ended"
	default:
		return fmt.Sprintf("ExecutiveState(%d)", int(s))
	}
}

// EndReason tells why an Executive stopped.
type EndReason int

// Reasons for an executive to end.
const (
	EndReasonNone EndReason = iota
	// EndReasonCompleted means that the calendar ran out of events.
	EndReasonCompleted
	// EndReasonTimedOut means that the wall-clock budget was exceeded.
	EndReasonTimedOut
	// EndReasonEndConditionMet means that the end condition returned true.
	EndReasonEndConditionMet
	// EndReasonUnfinished means that the run was stopped with events left,
	// either by the end time or by a call to Stop.
	EndReasonUnfinished
	// EndReasonAborted means that an event handler returned an error.
	EndReasonAborted
)

func (r EndReason) String() string {
	switch r {
	case EndReasonNone:
		return "None"
	case EndReasonCompleted:
		return "Completed"
	case EndReasonTimedOut:
		return "TimedOut"
	case EndReasonEndConditionMet:
		return "EndConditionMet"
	case EndReasonUnfinished:
		return "Unfinished"
	case EndReasonAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("EndReason(%d)", int(r))
	}
}

const defaultWallClockCheckInterval = 1024

// An Executive owns the simulation clock and the event calendar. It runs the
// events one after another in calendar order.
type Executive struct {
	HookableBase

	now      VTimeInSec
	calendar EventCalendar
	state    ExecutiveState
	reason   EndReason
	nextSeq  uint64

	endTime       VTimeInSec
	endCondition  func() bool
	maxWallClock  time.Duration
	checkInterval uint64
	stopRequested bool
	runStart      time.Time

	numScheduled uint64
	numExecuted  uint64
	numCancelled uint64

	endHandlers []EndHandler
}

// NewExecutive creates an Executive that uses a HeapCalendar.
func NewExecutive() *Executive {
	return NewExecutiveWithCalendar(NewHeapCalendar())
}

// NewExecutiveWithCalendar creates an Executive that uses the given calendar.
func NewExecutiveWithCalendar(c EventCalendar) *Executive {
	if c == nil {
		panic(NewConfigError("executive calendar must not be nil"))
	}

	e := new(Executive)
	e.calendar = c
	e.endTime = VTimeInSec(math.Inf(1))
	e.checkInterval = defaultWallClockCheckInterval

	return e
}

// Initialize prepares the executive for a new run. It clears the calendar
// and rewinds the clock to zero.
func (e *Executive) Initialize() error {
	if e.state == ExecutiveRunning || e.state == ExecutiveInitialized {
		return NewIllegalStateError("Initialize", e.state)
	}

	e.calendar.Clear()
	e.now = 0
	e.nextSeq = 0
	e.reason = EndReasonNone
	e.stopRequested = false
	e.numScheduled = 0
	e.numExecuted = 0
	e.numCancelled = 0
	e.state = ExecutiveInitialized

	return nil
}

// State returns the lifecycle state of the executive.
func (e *Executive) State() ExecutiveState {
	return e.state
}

// EndReason returns why the executive ended. It is EndReasonNone unless the
// executive is in the Ended state.
func (e *Executive) EndReason() EndReason {
	return e.reason
}

// CurrentTime returns the time of the event being or last processed.
func (e *Executive) CurrentTime() VTimeInSec {
	return e.now
}

// EndTime returns the time at which the run is cut.
func (e *Executive) EndTime() VTimeInSec {
	return e.endTime
}

// NumEventsScheduled returns how many events were scheduled since the last
// initialization.
func (e *Executive) NumEventsScheduled() uint64 {
	return e.numScheduled
}

// NumEventsExecuted returns how many events were handled since the last
// initialization.
func (e *Executive) NumEventsExecuted() uint64 {
	return e.numExecuted
}

// NumEventsCancelled returns how many events were cancelled since the last
// initialization.
func (e *Executive) NumEventsCancelled() uint64 {
	return e.numCancelled
}

// NumPendingEvents returns the number of active events in the calendar.
func (e *Executive) NumPendingEvents() int {
	return e.calendar.Len()
}

// SetEndTime sets the time at which the run stops. Events scheduled at or
// after the end time never fire.
func (e *Executive) SetEndTime(t VTimeInSec) {
	if t <= 0 || math.IsNaN(float64(t)) {
		panic(NewConfigError("end time must be positive, got %v", t))
	}

	e.endTime = t
}

// SetEndCondition registers a predicate evaluated after every event. The run
// ends when it returns true. A nil predicate removes the condition.
func (e *Executive) SetEndCondition(cond func() bool) {
	e.endCondition = cond
}

// SetMaxWallClockTime bounds the real time a run may take. Zero means no
// limit.
func (e *Executive) SetMaxWallClockTime(d time.Duration) {
	if d < 0 {
		panic(NewConfigError("wall-clock budget must not be negative, got %s", d))
	}

	e.maxWallClock = d
}

// SetWallClockCheckInterval sets how many events are executed between two
// checks of the wall-clock budget.
func (e *Executive) SetWallClockCheckInterval(n uint64) {
	if n == 0 {
		panic(NewConfigError("wall-clock check interval must be positive"))
	}

	e.checkInterval = n
}

// RegisterEndHandler registers a handler that is invoked when the executive
// ends.
func (e *Executive) RegisterEndHandler(h EndHandler) {
	e.endHandlers = append(e.endHandlers, h)
}

// Schedule registers an event to happen after the given delay.
func (e *Executive) Schedule(
	h Handler,
	delay VTimeInSec,
	opts ...EventOption,
) *Event {
	if delay < 0 || math.IsNaN(float64(delay)) {
		panic(NewConfigError("event delay must not be negative, got %v", delay))
	}

	return e.ScheduleAt(h, e.now+delay, opts...)
}

// ScheduleFrom registers an event whose delay is sampled from src.
func (e *Executive) ScheduleFrom(
	h Handler,
	src DurationSource,
	opts ...EventOption,
) *Event {
	if src == nil {
		panic(NewConfigError("duration source must not be nil"))
	}

	return e.Schedule(h, VTimeInSec(src.NextValue()), opts...)
}

// ScheduleAt registers an event to happen at an absolute time.
func (e *Executive) ScheduleAt(
	h Handler,
	t VTimeInSec,
	opts ...EventOption,
) *Event {
	if h == nil {
		panic(NewConfigError("event handler must not be nil"))
	}

	if t < e.now {
		panic(NewConfigError(
			"cannot schedule event at %.10f, earlier than now %.10f", t, e.now))
	}

	if e.state != ExecutiveInitialized && e.state != ExecutiveRunning {
		panic(NewIllegalStateError("Schedule", e.state))
	}

	evt := &Event{
		time:     t,
		priority: PriorityDefault,
		handler:  h,
	}

	for _, opt := range opts {
		opt(evt)
	}

	evt.seq = e.nextSeq
	e.nextSeq++
	e.numScheduled++

	e.calendar.Insert(evt)

	return evt
}

// Cancel prevents a pending event from firing. Cancelling an event that has
// already fired or been cancelled does nothing.
func (e *Executive) Cancel(evt *Event) {
	if evt == nil || !evt.IsPending() {
		return
	}

	e.calendar.Cancel(evt)
	e.numCancelled++
}

// Stop asks the executive to end after the current event.
func (e *Executive) Stop() {
	e.stopRequested = true
}

// Run processes the events until the executive ends. The error returned by
// an event handler aborts the run and is returned wrapped.
func (e *Executive) Run() error {
	err := e.start()
	if err != nil {
		return err
	}

	for e.state == ExecutiveRunning {
		err = e.step()
		if err != nil {
			return err
		}
	}

	return nil
}

// Step processes a single event. It starts the run if needed and returns
// false once the executive has ended.
func (e *Executive) Step() (bool, error) {
	if e.state == ExecutiveInitialized {
		err := e.start()
		if err != nil {
			return false, err
		}
	}

	if e.state != ExecutiveRunning {
		return false, NewIllegalStateError("Step", e.state)
	}

	err := e.step()

	return e.state == ExecutiveRunning, err
}

func (e *Executive) start() error {
	if e.state != ExecutiveInitialized {
		return NewIllegalStateError("Run", e.state)
	}

	if !math.IsInf(float64(e.endTime), 1) {
		e.ScheduleAt(HandlerFunc(e.handleEndTime), e.endTime,
			WithPriority(PriorityEndReplication),
			WithName("EndReplication"))
	}

	e.state = ExecutiveRunning
	e.runStart = time.Now()

	logrus.Debugf("executive started, end time %v", e.endTime)

	return nil
}

func (e *Executive) step() error {
	evt := e.calendar.Pop()
	if evt == nil {
		e.end(EndReasonCompleted)
		return nil
	}

	if evt.time < e.now {
		panic(fmt.Sprintf(
			"cannot run event in the past, evt %s @ %.10f, now %.10f",
			evt.name, evt.time, e.now,
		))
	}

	e.now = evt.time
	evt.state = eventExecuted

	hookCtx := HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	err := evt.handler.Handle(evt)
	e.numExecuted++

	if err != nil {
		e.end(EndReasonAborted)
		return fmt.Errorf("event %q at %.10f: %w", evt.name, evt.time, err)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	e.checkTermination()

	return nil
}

func (e *Executive) handleEndTime(_ *Event) error {
	e.Stop()
	return nil
}

func (e *Executive) checkTermination() {
	if e.state != ExecutiveRunning {
		return
	}

	switch {
	case e.stopRequested:
		if e.calendar.IsEmpty() {
			e.end(EndReasonCompleted)
		} else {
			e.end(EndReasonUnfinished)
		}
	case e.endCondition != nil && e.endCondition():
		e.end(EndReasonEndConditionMet)
	case e.wallClockExceeded():
		logrus.Warnf("executive exceeded wall-clock budget %s at %.10f",
			e.maxWallClock, e.now)
		e.end(EndReasonTimedOut)
	}
}

func (e *Executive) wallClockExceeded() bool {
	if e.maxWallClock == 0 || e.numExecuted%e.checkInterval != 0 {
		return false
	}

	return time.Since(e.runStart) > e.maxWallClock
}

func (e *Executive) end(reason EndReason) {
	e.state = ExecutiveEnded
	e.reason = reason

	logrus.Debugf("executive ended at %.10f: %s, %d events executed",
		e.now, reason, e.numExecuted)

	for _, h := range e.endHandlers {
		h.Handle(e.now, reason)
	}
}
