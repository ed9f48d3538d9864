package model

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/sim"
	"go.uber.org/mock/gomock"
)

type tracingElement struct {
	*ElementBase
	trace *[]string
}

func newTracingElement(name string, trace *[]string) *tracingElement {
	return &tracingElement{
		ElementBase: NewElementBase(name),
		trace:       trace,
	}
}

func (e *tracingElement) record(phase string) {
	*e.trace = append(*e.trace, e.Name()+"."+phase)
}

func (e *tracingElement) BeforeExperiment()  { e.record("BeforeExperiment") }
func (e *tracingElement) Initialize()        { e.record("Initialize") }
func (e *tracingElement) AfterReplication()  { e.record("AfterReplication") }
func (e *tracingElement) RemovedFromModel()  { e.record("RemovedFromModel") }
func (e *tracingElement) BeforeReplication() { e.record("BeforeReplication") }

var _ = Describe("Model", func() {
	var (
		mockCtrl  *gomock.Controller
		executive *sim.Executive
		m         *Model
		trace     []string
		a, a1, a2 *tracingElement
		b         *tracingElement
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		executive = sim.NewExecutive()
		Expect(executive.Initialize()).To(Succeed())
		m = NewModel("M", executive)

		trace = nil
		a = newTracingElement("A", &trace)
		a1 = newTracingElement("A1", &trace)
		a2 = newTracingElement("A2", &trace)
		b = newTracingElement("B", &trace)

		Attach(m, a)
		Attach(a, a1)
		Attach(a, a2)
		Attach(m, b)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should build the tree", func() {
		Expect(m.Children()).To(Equal([]Element{a, b}))
		Expect(a.Children()).To(Equal([]Element{a1, a2}))
		Expect(a1.Parent()).To(BeIdenticalTo(a))
		Expect(a1.Model()).To(BeIdenticalTo(m))
		Expect(m.NumElements()).To(Equal(5))
		Expect(m.Elements()).To(Equal([]Element{m, a, a1, a2, b}))
	})

	It("should assign sequential ids", func() {
		Expect(m.ID()).To(Equal(0))
		Expect(a.ID()).To(Equal(1))
		Expect(a1.ID()).To(Equal(2))
		Expect(a2.ID()).To(Equal(3))
		Expect(b.ID()).To(Equal(4))
	})

	It("should find elements by name", func() {
		e, found := m.ElementByName("A2")
		Expect(found).To(BeTrue())
		Expect(e).To(BeIdenticalTo(a2))

		_, found = m.ElementByName("C")
		Expect(found).To(BeFalse())
	})

	It("should name unnamed elements", func() {
		c := newTracingElement("", &trace)
		Attach(b, c)

		Expect(c.Name()).To(Equal("Element_5"))

		e, found := m.ElementByName("Element_5")
		Expect(found).To(BeTrue())
		Expect(e).To(BeIdenticalTo(c))
	})

	It("should visit parents first in setup phases", func() {
		m.Propagate(ObserverStateBeforeExperiment)

		Expect(trace).To(Equal([]string{
			"A.BeforeExperiment",
			"A1.BeforeExperiment",
			"A2.BeforeExperiment",
			"B.BeforeExperiment",
		}))
		Expect(a1.ObserverState()).To(Equal(ObserverStateBeforeExperiment))
	})

	It("should visit children first in teardown phases", func() {
		m.Propagate(ObserverStateAfterReplication)

		Expect(trace).To(Equal([]string{
			"A1.AfterReplication",
			"A2.AfterReplication",
			"A.AfterReplication",
			"B.AfterReplication",
		}))
	})

	It("should notify observers after the hook", func() {
		hook := NewMockHook(mockCtrl)
		hook.EXPECT().Func(sim.HookCtx{
			Domain: a1,
			Pos:    HookPosInitialized,
			Item:   a1,
			Detail: sim.VTimeInSec(0),
		}).Do(func(sim.HookCtx) {
			Expect(trace).To(ContainElement("A1.Initialize"))
		})
		a1.AcceptHook(hook)

		m.Propagate(ObserverStateInitialized)
	})

	It("should notify observers of updates", func() {
		hook := NewMockHook(mockCtrl)
		hook.EXPECT().Func(sim.HookCtx{
			Domain: b,
			Pos:    HookPosUpdate,
			Item:   b,
			Detail: 42.0,
		})
		b.AcceptHook(hook)

		b.NotifyUpdate(42.0)

		Expect(b.ObserverState()).To(Equal(ObserverStateUpdate))
	})

	It("should not propagate updates", func() {
		Expect(func() { m.Propagate(ObserverStateUpdate) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should reject duplicated names", func() {
		dup := newTracingElement("A1", &trace)

		Expect(func() { Attach(b, dup) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
		Expect(b.NumChildren()).To(Equal(0))
	})

	It("should reject cycles", func() {
		Expect(func() { Attach(a1, a) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should reject attaching an element twice", func() {
		Expect(func() { Attach(b, a1) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should join the model with a prebuilt subtree", func() {
		c := newTracingElement("C", &trace)
		c1 := newTracingElement("C1", &trace)
		Attach(c, c1)

		Expect(c1.Model()).To(BeNil())
		Expect(c1.ID()).To(Equal(-1))

		Attach(b, c)

		Expect(c.Model()).To(BeIdenticalTo(m))
		Expect(c1.Model()).To(BeIdenticalTo(m))
		Expect(c1.ID()).To(Equal(6))
	})

	It("should detach a subtree", func() {
		Detach(a)

		Expect(trace).To(Equal([]string{
			"A1.RemovedFromModel",
			"A2.RemovedFromModel",
			"A.RemovedFromModel",
		}))
		Expect(m.Children()).To(Equal([]Element{b}))
		Expect(a.Parent()).To(BeNil())
		Expect(a1.Model()).To(BeNil())
		Expect(m.NumElements()).To(Equal(2))

		_, found := m.ElementByName("A1")
		Expect(found).To(BeFalse())
	})

	It("should not change structure while running", func() {
		m.SetRunning(true)
		m.Propagate(ObserverStateBeforeExperiment)

		c := newTracingElement("C", &trace)

		Expect(func() { Attach(b, c) }).To(PanicWith(And(
			BeAssignableToTypeOf(&sim.IllegalStateError{}),
			HaveField("Op", "Attach"),
			HaveField("State", "BeforeExperiment"),
		)))

		Expect(func() { Detach(a1) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.IllegalStateError{})))
	})

	It("should schedule events through the model executive", func() {
		fired := false
		a.Schedule(sim.HandlerFunc(func(*sim.Event) error {
			fired = true
			Expect(a.Now()).To(Equal(sim.VTimeInSec(2)))
			return nil
		}), 2)

		Expect(executive.Run()).To(Succeed())
		Expect(fired).To(BeTrue())
	})

	It("should panic when scheduling on a detached element", func() {
		c := newTracingElement("C", &trace)

		Expect(func() { c.Now() }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should track the replication number", func() {
		Expect(m.CurrentReplication()).To(Equal(0))
		m.SetCurrentReplication(3)
		Expect(m.CurrentReplication()).To(Equal(3))
	})
})
