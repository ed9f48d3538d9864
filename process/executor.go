// Package process provides process-interaction modeling on top of events.
//
// A process is an ordered list of commands executed one after another for an
// entity. Commands that need simulated time to pass schedule a resume event
// and suspend the executor. The executor then returns to the event loop and
// continues from the next command when the resume event fires.
package process

import (
	"fmt"

	"github.com/sarchlab/desim/sim"
	"github.com/sirupsen/logrus"
)

// ExecutorState is the state of an Executor.
type ExecutorState int

// Executor states.
const (
	ExecutorCreated ExecutorState = iota
	ExecutorInitialized
	ExecutorExecuting
	ExecutorSuspended
	ExecutorTerminated
)

func (s ExecutorState) String() string {
	switch s {
	case ExecutorCreated:
		return "Created"
	case ExecutorInitialized:
		return "Initialized"
	case ExecutorExecuting:
		return "Executing"
	case ExecutorSuspended:
		return "Suspended"
	case ExecutorTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("ExecutorState(%d)", int(s))
	}
}

// HookPosStateChange is fired after every state change of an executor. The
// Detail of the hook context is the StateChange.
var HookPosStateChange = &sim.HookPos{Name: "ProcessStateChange"}

// StateChange describes a transition of an executor.
type StateChange struct {
	From ExecutorState
	To   ExecutorState
}

// An Executor drives one entity through the commands of one process
// description.
type Executor struct {
	sim.HookableBase

	scheduler   sim.EventScheduler
	description *Description
	entity      *Entity
	parent      *Executor

	state       ExecutorState
	index       int
	jumped      bool
	resumeEvent *sim.Event
	waitingFor  *Resource

	terminationHandlers []func(x *Executor)
}

// NewExecutor creates an executor in the Created state.
func NewExecutor(
	scheduler sim.EventScheduler,
	description *Description,
	entity *Entity,
) *Executor {
	if scheduler == nil {
		panic(sim.NewConfigError("executor scheduler must not be nil"))
	}

	if description == nil {
		panic(sim.NewConfigError("executor description must not be nil"))
	}

	if entity == nil {
		panic(sim.NewConfigError("executor entity must not be nil"))
	}

	return &Executor{
		scheduler:   scheduler,
		description: description,
		entity:      entity,
		index:       -1,
	}
}

// State returns the state of the executor.
func (x *Executor) State() ExecutorState {
	return x.state
}

// Index returns the index of the current command.
func (x *Executor) Index() int {
	return x.index
}

// Entity returns the entity the executor drives.
func (x *Executor) Entity() *Entity {
	return x.entity
}

// Description returns the process description.
func (x *Executor) Description() *Description {
	return x.description
}

// Parent returns the executor that created this one as a sub-process, or
// nil.
func (x *Executor) Parent() *Executor {
	return x.parent
}

// Now returns the current simulated time.
func (x *Executor) Now() sim.VTimeInSec {
	return x.scheduler.CurrentTime()
}

// PendingResume returns the scheduled resume event, or nil.
func (x *Executor) PendingResume() *sim.Event {
	return x.resumeEvent
}

// OnTermination registers a function called when the executor terminates.
func (x *Executor) OnTermination(f func(x *Executor)) {
	x.terminationHandlers = append(x.terminationHandlers, f)
}

// Initialize prepares the executor to start. It is legal from Created and
// Terminated.
func (x *Executor) Initialize() error {
	if x.state != ExecutorCreated && x.state != ExecutorTerminated {
		return sim.NewIllegalStateError("Initialize", x.state)
	}

	x.index = -1
	x.jumped = false
	x.resumeEvent = nil
	x.waitingFor = nil
	x.setState(ExecutorInitialized)

	return nil
}

// Start executes the process from its first command.
func (x *Executor) Start() error {
	return x.StartAt(0)
}

// StartAt executes the process from the given command.
func (x *Executor) StartAt(idx int) error {
	if x.state != ExecutorInitialized {
		return sim.NewIllegalStateError("Start", x.state)
	}

	x.setIndex(idx)
	x.jumped = false
	x.setState(ExecutorExecuting)

	return x.execute()
}

// JumpTo makes the given command the next one to execute. It is only legal
// from within a command.
func (x *Executor) JumpTo(idx int) error {
	if x.state != ExecutorExecuting {
		return sim.NewIllegalStateError("JumpTo", x.state)
	}

	x.setIndex(idx)
	x.jumped = true

	return nil
}

// Suspend stops the command loop. The executor keeps its position and waits
// for Resume.
func (x *Executor) Suspend() error {
	if x.state != ExecutorExecuting {
		return sim.NewIllegalStateError("Suspend", x.state)
	}

	x.setState(ExecutorSuspended)

	return nil
}

// Resume continues a suspended process from the given command.
func (x *Executor) Resume(idx int) error {
	if x.state != ExecutorSuspended {
		return sim.NewIllegalStateError("Resume", x.state)
	}

	x.setIndex(idx)
	x.jumped = false
	x.setState(ExecutorExecuting)

	return x.execute()
}

// Terminate ends the process. A pending resume event is cancelled and a
// pending seize request is withdrawn from its resource.
func (x *Executor) Terminate() error {
	if x.state != ExecutorExecuting && x.state != ExecutorSuspended {
		return sim.NewIllegalStateError("Terminate", x.state)
	}

	x.CancelResume()
	x.setState(ExecutorTerminated)

	if r := x.waitingFor; r != nil {
		x.waitingFor = nil

		err := r.withdraw(x)
		if err != nil {
			return err
		}
	}

	for _, h := range x.terminationHandlers {
		h(x)
	}

	return nil
}

// ScheduleResume schedules an event that resumes the executor at the command
// after the current one. The executor must be suspended by the time the
// event fires.
func (x *Executor) ScheduleResume(delay sim.VTimeInSec) (*sim.Event, error) {
	if x.state != ExecutorExecuting && x.state != ExecutorSuspended {
		return nil, sim.NewIllegalStateError("ScheduleResume", x.state)
	}

	if x.resumeEvent != nil {
		return nil, sim.NewIllegalStateError("ScheduleResume", x.state)
	}

	x.resumeEvent = x.scheduler.Schedule(
		sim.HandlerFunc(x.handleResume), delay,
		sim.WithMessage(x.index+1),
		sim.WithName("Resume "+x.description.Name()),
	)

	return x.resumeEvent, nil
}

// CancelResume cancels the pending resume event, if any.
func (x *Executor) CancelResume() {
	if x.resumeEvent == nil {
		return
	}

	x.scheduler.Cancel(x.resumeEvent)
	x.resumeEvent = nil
}

// CreateSubProcessExecutor creates an executor that runs another description
// for the same entity.
func (x *Executor) CreateSubProcessExecutor(d *Description) *Executor {
	sub := NewExecutor(x.scheduler, d, x.entity)
	sub.parent = x

	return sub
}

func (x *Executor) handleResume(evt *sim.Event) error {
	x.resumeEvent = nil
	return x.Resume(evt.Message().(int))
}

func (x *Executor) execute() error {
	for x.state == ExecutorExecuting {
		cmd, found := x.description.command(x.index)
		if !found {
			return x.Terminate()
		}

		err := cmd.Execute(x)
		if err != nil {
			return fmt.Errorf("process %s, command %d: %w",
				x.description.Name(), x.index, err)
		}

		if x.state != ExecutorExecuting {
			break
		}

		if x.jumped {
			x.jumped = false
			continue
		}

		x.setIndex(x.index + 1)
	}

	return nil
}

func (x *Executor) setIndex(idx int) {
	if idx < 0 {
		panic(sim.NewConfigError(
			"process %s: command index %d is negative",
			x.description.Name(), idx))
	}

	if idx == x.index {
		panic(sim.NewConfigError(
			"process %s: command index is already %d",
			x.description.Name(), idx))
	}

	x.index = idx
}

func (x *Executor) setState(s ExecutorState) {
	change := StateChange{From: x.state, To: s}
	x.state = s

	logrus.Debugf("process %s, entity %s: %s -> %s at %.10f",
		x.description.Name(), x.entity.Name(), change.From, change.To, x.Now())

	if x.NumHooks() == 0 {
		return
	}

	x.InvokeHook(sim.HookCtx{
		Domain: x,
		Pos:    HookPosStateChange,
		Item:   x.entity,
		Detail: change,
	})
}
