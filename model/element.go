// Package model provides the tree of simulation components and the lifecycle
// protocol that drives it across experiments and replications.
package model

import (
	"github.com/sarchlab/desim/sim"
)

// An Element is a node of the model tree. Every simulation component, such
// as a queue, a resource, a generator or a statistic, is an Element.
//
// Concrete elements embed *ElementBase, which provides no-op lifecycle
// hooks, and override only the hooks they need.
type Element interface {
	sim.Hookable

	Name() string
	ID() int
	Parent() Element
	Children() []Element
	Model() *Model
	ObserverState() ObserverState

	// BeforeExperiment is called once before the first replication.
	BeforeExperiment()

	// BeforeReplication resets the per-replication state.
	BeforeReplication()

	// Initialize schedules the first events of the replication.
	Initialize()

	// WarmUp is called when the warm-up period ends.
	WarmUp()

	// TimedUpdate is called periodically during a replication.
	TimedUpdate()

	// MonteCarlo is called after initialization in Monte Carlo experiments.
	MonteCarlo()

	// ReplicationEnded is called as soon as the executive ends.
	ReplicationEnded()

	// AfterReplication collects the results of the replication.
	AfterReplication()

	// AfterExperiment is called once after the last replication.
	AfterExperiment()

	// RemovedFromModel is called when the element is detached from the
	// model.
	RemovedFromModel()

	elementBase() *ElementBase
}

// ElementBase holds the tree bookkeeping shared by all elements.
type ElementBase struct {
	sim.HookableBase

	name     string
	id       int
	self     Element
	parent   Element
	children []Element
	model    *Model
	state    ObserverState
}

// NewElementBase creates an ElementBase with the given name. An empty name
// is replaced by a generated one when the element joins a model.
func NewElementBase(name string) *ElementBase {
	return &ElementBase{
		name: name,
		id:   -1,
	}
}

func (b *ElementBase) elementBase() *ElementBase {
	return b
}

// Name returns the name of the element.
func (b *ElementBase) Name() string {
	return b.name
}

// ID returns the model-local id of the element, or -1 if the element is not
// part of a model.
func (b *ElementBase) ID() int {
	return b.id
}

// Parent returns the parent of the element, or nil for a subtree root.
func (b *ElementBase) Parent() Element {
	return b.parent
}

// Children returns the children of the element in insertion order.
func (b *ElementBase) Children() []Element {
	out := make([]Element, len(b.children))
	copy(out, b.children)
	return out
}

// NumChildren returns the number of children.
func (b *ElementBase) NumChildren() int {
	return len(b.children)
}

// Model returns the model that the element belongs to.
func (b *ElementBase) Model() *Model {
	return b.model
}

// ObserverState returns the last lifecycle phase the element went through.
func (b *ElementBase) ObserverState() ObserverState {
	return b.state
}

// Executive returns the executive that runs the model.
func (b *ElementBase) Executive() *sim.Executive {
	if b.model == nil {
		panic(sim.NewConfigError(
			"element %q is not attached to a model", b.name))
	}

	return b.model.executive
}

// Now returns the current simulated time.
func (b *ElementBase) Now() sim.VTimeInSec {
	return b.Executive().CurrentTime()
}

// Schedule schedules an event on the executive of the model.
func (b *ElementBase) Schedule(
	h sim.Handler,
	delay sim.VTimeInSec,
	opts ...sim.EventOption,
) *sim.Event {
	return b.Executive().Schedule(h, delay, opts...)
}

// ScheduleFrom schedules an event whose delay is drawn from src.
func (b *ElementBase) ScheduleFrom(
	h sim.Handler,
	src sim.DurationSource,
	opts ...sim.EventOption,
) *sim.Event {
	return b.Executive().ScheduleFrom(h, src, opts...)
}

// Cancel cancels a pending event.
func (b *ElementBase) Cancel(evt *sim.Event) {
	b.Executive().Cancel(evt)
}

// NotifyUpdate tells the observers of the element that its value changed.
// The detail is passed as the Detail of the hook context.
func (b *ElementBase) NotifyUpdate(detail any) {
	b.state = ObserverStateUpdate

	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b.self,
		Pos:    HookPosUpdate,
		Item:   b.self,
		Detail: detail,
	})
}

// BeforeExperiment does nothing by default.
func (b *ElementBase) BeforeExperiment() {}

// BeforeReplication does nothing by default.
func (b *ElementBase) BeforeReplication() {}

// Initialize does nothing by default.
func (b *ElementBase) Initialize() {}

// WarmUp does nothing by default.
func (b *ElementBase) WarmUp() {}

// TimedUpdate does nothing by default.
func (b *ElementBase) TimedUpdate() {}

// MonteCarlo does nothing by default.
func (b *ElementBase) MonteCarlo() {}

// ReplicationEnded does nothing by default.
func (b *ElementBase) ReplicationEnded() {}

// AfterReplication does nothing by default.
func (b *ElementBase) AfterReplication() {}

// AfterExperiment does nothing by default.
func (b *ElementBase) AfterExperiment() {}

// RemovedFromModel does nothing by default.
func (b *ElementBase) RemovedFromModel() {}
