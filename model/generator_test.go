package model

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/sim"
	"go.uber.org/mock/gomock"
)

type fixedDelay float64

func (d fixedDelay) NextValue() float64 {
	return float64(d)
}

var _ = Describe("Generator", func() {
	var (
		mockCtrl  *gomock.Controller
		executive *sim.Executive
		m         *Model
		action    *MockGeneratorAction
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		executive = sim.NewExecutive()
		m = NewModel("M", executive)
		action = NewMockGeneratorAction(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	startReplication := func() {
		Expect(executive.Initialize()).To(Succeed())
		m.Propagate(ObserverStateBeforeReplication)
		m.Propagate(ObserverStateInitialized)
	}

	It("should generate arrivals until the end of the run", func() {
		g := MakeGeneratorBuilder().
			WithFirstArrival(fixedDelay(0)).
			WithInterArrival(fixedDelay(2)).
			Build("Arrivals", action)
		Attach(m, g)

		times := []sim.VTimeInSec{}
		action.EXPECT().Generate(g).DoAndReturn(func(g *Generator) error {
			times = append(times, g.Now())
			return nil
		}).Times(5)

		startReplication()
		executive.SetEndTime(10)
		Expect(executive.Run()).To(Succeed())

		Expect(times).To(Equal([]sim.VTimeInSec{0, 2, 4, 6, 8}))
		Expect(g.NumArrivals()).To(Equal(5))
	})

	It("should use the inter-arrival time for the first arrival", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(3)).
			WithMaxArrivals(1).
			Build("Arrivals", action)
		Attach(m, g)

		action.EXPECT().Generate(g).DoAndReturn(func(g *Generator) error {
			Expect(g.Now()).To(Equal(sim.VTimeInSec(3)))
			return nil
		})

		startReplication()
		Expect(executive.Run()).To(Succeed())
		Expect(g.IsOn()).To(BeFalse())
	})

	It("should stop at the maximum number of arrivals", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(1)).
			WithMaxArrivals(3).
			Build("Arrivals", action)
		Attach(m, g)

		action.EXPECT().Generate(g).Return(nil).Times(3)

		startReplication()
		Expect(executive.Run()).To(Succeed())
		Expect(executive.EndReason()).To(Equal(sim.EndReasonCompleted))
	})

	It("should stop after the ending time", func() {
		g := MakeGeneratorBuilder().
			WithFirstArrival(fixedDelay(0)).
			WithInterArrival(fixedDelay(2)).
			WithEndTime(5).
			Build("Arrivals", action)
		Attach(m, g)

		action.EXPECT().Generate(g).Return(nil).Times(3)

		startReplication()
		Expect(executive.Run()).To(Succeed())
		Expect(executive.CurrentTime()).To(Equal(sim.VTimeInSec(4)))
	})

	It("should stop when turned off by its action", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(1)).
			Build("Arrivals", action)
		Attach(m, g)

		action.EXPECT().Generate(g).DoAndReturn(func(g *Generator) error {
			if g.NumArrivals() == 2 {
				g.TurnOff()
			}
			return nil
		}).Times(2)

		startReplication()
		Expect(executive.Run()).To(Succeed())
	})

	It("should wait for a manual start", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(1)).
			WithMaxArrivals(1).
			WithManualStart().
			Build("Arrivals", action)
		Attach(m, g)

		startReplication()
		Expect(executive.NumPendingEvents()).To(Equal(0))

		action.EXPECT().Generate(g).Return(nil)
		g.TurnOn()
		Expect(executive.Run()).To(Succeed())
	})

	It("should restart in every replication", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(1)).
			WithMaxArrivals(2).
			Build("Arrivals", action)
		Attach(m, g)

		action.EXPECT().Generate(g).Return(nil).Times(4)

		startReplication()
		Expect(executive.Run()).To(Succeed())
		startReplication()
		Expect(executive.Run()).To(Succeed())

		Expect(g.NumArrivals()).To(Equal(2))
	})

	It("should abort the run when the action fails", func() {
		g := MakeGeneratorBuilder().
			WithInterArrival(fixedDelay(1)).
			Build("Arrivals", action)
		Attach(m, g)

		failure := errors.New("no more customers")
		action.EXPECT().Generate(g).Return(failure)

		startReplication()
		err := executive.Run()

		Expect(err).To(MatchError(failure))
		Expect(err.Error()).To(ContainSubstring("Arrivals"))
	})

	It("should require an inter-arrival time", func() {
		Expect(func() {
			MakeGeneratorBuilder().Build("Arrivals", action)
		}).To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})
})
