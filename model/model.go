package model

import (
	"fmt"

	"github.com/sarchlab/desim/sim"
	"github.com/sirupsen/logrus"
)

// Model is the root of the element tree. It owns the executive and the name
// index of all the elements.
type Model struct {
	*ElementBase

	executive   *sim.Executive
	elements    map[string]Element
	nextID      int
	running     bool
	replication int
}

// NewModel creates a model root that runs on the given executive.
func NewModel(name string, executive *sim.Executive) *Model {
	if executive == nil {
		panic(sim.NewConfigError("model executive must not be nil"))
	}

	if name == "" {
		name = "Model"
	}

	m := &Model{
		ElementBase: NewElementBase(name),
		executive:   executive,
		elements:    make(map[string]Element),
	}
	m.self = m
	m.model = m
	m.id = m.nextID
	m.nextID++
	m.elements[name] = m

	return m
}

// Executive returns the executive that runs the model.
func (m *Model) Executive() *sim.Executive {
	return m.executive
}

// ElementByName looks up an element of the model.
func (m *Model) ElementByName(name string) (Element, bool) {
	e, found := m.elements[name]
	return e, found
}

// NumElements returns the number of elements in the model, including the
// root.
func (m *Model) NumElements() int {
	return len(m.elements)
}

// Elements returns all the elements of the model in pre-order.
func (m *Model) Elements() []Element {
	out := make([]Element, 0, len(m.elements))
	walkPreOrder(m, func(e Element) {
		out = append(out, e)
	})

	return out
}

// IsRunning tells if an experiment is running on the model.
func (m *Model) IsRunning() bool {
	return m.running
}

// SetRunning marks the model as running an experiment. The structure of a
// running model cannot change.
func (m *Model) SetRunning(running bool) {
	m.running = running
}

// CurrentReplication returns the 1-based number of the current replication,
// or 0 before the first one.
func (m *Model) CurrentReplication() int {
	return m.replication
}

// SetCurrentReplication records the number of the replication about to run.
func (m *Model) SetCurrentReplication(n int) {
	m.replication = n
}

// Propagate moves the whole tree into a lifecycle phase. Setup phases visit
// a parent before its children. Teardown phases visit the children first.
func (m *Model) Propagate(state ObserverState) {
	if state.HookPos() == nil || state == ObserverStateUpdate {
		panic(sim.NewConfigError("cannot propagate observer state %s", state))
	}

	logrus.Debugf("model %s: %s at %.10f",
		m.name, state, m.executive.CurrentTime())

	visit := func(e Element) {
		notify(e, state, m.executive.CurrentTime())
	}

	if state.IsTeardown() {
		walkPostOrder(m, visit)
	} else {
		walkPreOrder(m, visit)
	}
}

func notify(e Element, state ObserverState, now sim.VTimeInSec) {
	b := e.elementBase()
	b.state = state

	switch state {
	case ObserverStateBeforeExperiment:
		e.BeforeExperiment()
	case ObserverStateInitialized:
		e.Initialize()
	case ObserverStateBeforeReplication:
		e.BeforeReplication()
	case ObserverStateWarmUp:
		e.WarmUp()
	case ObserverStateTimedUpdate:
		e.TimedUpdate()
	case ObserverStateMonteCarlo:
		e.MonteCarlo()
	case ObserverStateReplicationEnded:
		e.ReplicationEnded()
	case ObserverStateAfterReplication:
		e.AfterReplication()
	case ObserverStateAfterExperiment:
		e.AfterExperiment()
	case ObserverStateRemovedFromModel:
		e.RemovedFromModel()
	}

	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    state.HookPos(),
		Item:   e,
		Detail: now,
	})
}

func walkPreOrder(e Element, f func(Element)) {
	f(e)
	for _, c := range e.elementBase().children {
		walkPreOrder(c, f)
	}
}

func walkPostOrder(e Element, f func(Element)) {
	for _, c := range e.elementBase().children {
		walkPostOrder(c, f)
	}
	f(e)
}

// Attach adds child as the last child of parent. If the parent belongs to a
// model, the whole subtree of the child joins the model: it gets ids, and
// its names must not be used by other elements of the model.
func Attach(parent, child Element) {
	if parent == nil || child == nil {
		panic(sim.NewConfigError("cannot attach nil elements"))
	}

	pb := parent.elementBase()
	cb := child.elementBase()

	if cb.parent != nil {
		panic(sim.NewConfigError("element %q already has parent %q",
			cb.name, cb.parent.Name()))
	}

	if _, isModel := child.(*Model); isModel {
		panic(sim.NewConfigError("cannot attach model %q", cb.name))
	}

	for p := parent; p != nil; p = p.elementBase().parent {
		if p.elementBase() == cb {
			panic(sim.NewConfigError(
				"attaching %q to %q creates a cycle", cb.name, pb.name))
		}
	}

	m := pb.model
	if m != nil && m.running {
		panic(sim.NewIllegalStateError("Attach", m.ObserverState()))
	}

	if pb.self == nil {
		pb.self = parent
	}
	cb.self = child

	if m != nil {
		m.checkNames(child)
	}

	cb.parent = parent
	pb.children = append(pb.children, child)

	if m != nil {
		walkPreOrder(child, m.register)
	}
}

// Detach removes the child from its parent. Every element of the detached
// subtree is notified with RemovedFromModel and leaves the model.
func Detach(child Element) {
	if child == nil {
		panic(sim.NewConfigError("cannot detach a nil element"))
	}

	cb := child.elementBase()
	if cb.parent == nil {
		panic(sim.NewConfigError("element %q has no parent", cb.name))
	}

	m := cb.model
	if m != nil && m.running {
		panic(sim.NewIllegalStateError("Detach", m.ObserverState()))
	}

	pb := cb.parent.elementBase()
	for i, c := range pb.children {
		if c.elementBase() == cb {
			pb.children = append(pb.children[:i], pb.children[i+1:]...)
			break
		}
	}
	cb.parent = nil

	if m == nil {
		return
	}

	walkPostOrder(child, func(e Element) {
		notify(e, ObserverStateRemovedFromModel, m.executive.CurrentTime())
		m.unregister(e)
	})
}

func (m *Model) checkNames(subtree Element) {
	seen := make(map[string]bool)

	walkPreOrder(subtree, func(e Element) {
		b := e.elementBase()
		if b.model != nil {
			panic(sim.NewConfigError(
				"element %q already belongs to model %q", b.name, b.model.name))
		}

		if b.name == "" {
			return
		}

		if _, found := m.elements[b.name]; found || seen[b.name] {
			panic(sim.NewConfigError(
				"element name %q is already used in model %q", b.name, m.name))
		}

		seen[b.name] = true
	})
}

func (m *Model) register(e Element) {
	b := e.elementBase()
	if b.self == nil {
		b.self = e
	}

	b.id = m.nextID
	m.nextID++
	b.model = m

	if b.name == "" {
		b.name = fmt.Sprintf("Element_%d", b.id)
		for _, found := m.elements[b.name]; found; _, found = m.elements[b.name] {
			b.name += "_"
		}
	}

	m.elements[b.name] = e
}

func (m *Model) unregister(e Element) {
	b := e.elementBase()
	delete(m.elements, b.name)
	b.model = nil
	b.id = -1
}
