package stats

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/sim"
)

var _ = Describe("Response", func() {
	var (
		m *model.Model
		r *Response
	)

	BeforeEach(func() {
		executive := sim.NewExecutive()
		Expect(executive.Initialize()).To(Succeed())
		m = model.NewModel("M", executive)
		r = NewResponse("WaitTime")
		model.Attach(m, r)
	})

	It("should start empty", func() {
		Expect(r.Count()).To(Equal(uint64(0)))
		Expect(math.IsNaN(r.Average())).To(BeTrue())
		Expect(math.IsInf(r.Min(), 1)).To(BeTrue())
		Expect(math.IsInf(r.Max(), -1)).To(BeTrue())
	})

	It("should tally observations", func() {
		r.Collect(1)
		r.Collect(5)
		r.Collect(3)

		Expect(r.Count()).To(Equal(uint64(3)))
		Expect(r.Sum()).To(Equal(9.0))
		Expect(r.Average()).To(Equal(3.0))
		Expect(r.Min()).To(Equal(1.0))
		Expect(r.Max()).To(Equal(5.0))
	})

	It("should notify observers of each observation", func() {
		values := []float64{}
		r.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos == model.HookPosUpdate {
				values = append(values, ctx.Detail.(float64))
			}
		}))

		r.Collect(2)
		r.Collect(4)

		Expect(values).To(Equal([]float64{2, 4}))
	})

	It("should discard observations made before the warm-up", func() {
		r.Collect(100)

		m.Propagate(model.ObserverStateWarmUp)

		Expect(r.Count()).To(Equal(uint64(0)))

		r.Collect(2)
		Expect(r.Average()).To(Equal(2.0))
	})

	It("should keep the average of every replication", func() {
		m.Propagate(model.ObserverStateBeforeExperiment)

		m.Propagate(model.ObserverStateBeforeReplication)
		r.Collect(2)
		r.Collect(4)
		m.Propagate(model.ObserverStateAfterReplication)

		m.Propagate(model.ObserverStateBeforeReplication)
		Expect(r.Count()).To(Equal(uint64(0)))
		r.Collect(10)
		m.Propagate(model.ObserverStateAfterReplication)

		Expect(r.ReplicationAverages()).To(Equal([]float64{3, 10}))

		m.Propagate(model.ObserverStateBeforeExperiment)
		Expect(r.ReplicationAverages()).To(BeEmpty())
	})
})

var _ = Describe("Counter", func() {
	var (
		m *model.Model
		c *Counter
	)

	BeforeEach(func() {
		executive := sim.NewExecutive()
		Expect(executive.Initialize()).To(Succeed())
		m = model.NewModel("M", executive)
		c = NewCounter("Served")
		model.Attach(m, c)
	})

	It("should count", func() {
		c.Increment()
		c.IncrementBy(2)
		c.Collect(0.5)

		Expect(c.Value()).To(Equal(3.5))
	})

	It("should reset at the warm-up", func() {
		c.Increment()
		m.Propagate(model.ObserverStateWarmUp)

		Expect(c.Value()).To(BeZero())
	})

	It("should keep the total of every replication", func() {
		m.Propagate(model.ObserverStateBeforeExperiment)
		for i := 1; i <= 3; i++ {
			m.Propagate(model.ObserverStateBeforeReplication)
			c.IncrementBy(float64(i))
			m.Propagate(model.ObserverStateAfterReplication)
		}

		Expect(c.ReplicationTotals()).To(Equal([]float64{1, 2, 3}))
	})
})
