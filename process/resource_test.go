package process

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/stats"
)

var _ = Describe("Resource", func() {
	var (
		executive *sim.Executive
		server    *Resource
		wait      *stats.Response
		desc      *Description
	)

	BeforeEach(func() {
		executive = sim.NewExecutive()
		Expect(executive.Initialize()).To(Succeed())
		server = NewResource("Server", 1)
		wait = stats.NewResponse("TimeInSystem")
		desc = NewDescription("Service",
			NewSeize(server, 1),
			NewDelay(fixedDelay(2)),
			NewRelease(server, 1),
			NewTerminate(wait),
		)
	})

	start := func() *Executor {
		x := NewExecutor(executive, desc, NewEntity("", executive.CurrentTime()))
		Expect(x.Initialize()).To(Succeed())
		Expect(x.Start()).To(Succeed())
		return x
	}

	It("should reject non-positive capacity", func() {
		Expect(func() { NewResource("Bad", 0) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should reject seizing more than the capacity", func() {
		Expect(func() { NewSeize(server, 2) }).
			To(PanicWith(BeAssignableToTypeOf(&sim.ConfigError{})))
	})

	It("should serve waiting entities in order", func() {
		x1 := start()
		x2 := start()
		x3 := start()

		Expect(x1.State()).To(Equal(ExecutorSuspended))
		Expect(x2.State()).To(Equal(ExecutorSuspended))
		Expect(server.NumBusy()).To(Equal(1))
		Expect(server.NumWaiting()).To(Equal(2))

		Expect(executive.Run()).To(Succeed())

		Expect(x3.State()).To(Equal(ExecutorTerminated))
		Expect(executive.CurrentTime()).To(Equal(sim.VTimeInSec(6)))
		Expect(wait.Sum()).To(Equal(2.0 + 4.0 + 6.0))
		Expect(server.NumBusy()).To(Equal(0))
		Expect(server.NumWaiting()).To(Equal(0))
		Expect(server.NumSeizes()).To(Equal(uint64(3)))
	})

	It("should skip waiting entities that terminated", func() {
		start()
		x2 := start()
		Expect(x2.Terminate()).To(Succeed())

		Expect(executive.Run()).To(Succeed())

		Expect(executive.CurrentTime()).To(Equal(sim.VTimeInSec(2)))
		Expect(server.NumBusy()).To(Equal(0))
		Expect(server.NumWaiting()).To(Equal(0))
	})

	It("should grant several units at once", func() {
		pool := NewResource("Pool", 3)
		big := NewDescription("Big",
			NewSeize(pool, 3), NewDelay(fixedDelay(1)), NewRelease(pool, 3))
		small := NewDescription("Small",
			NewSeize(pool, 1), NewDelay(fixedDelay(1)), NewRelease(pool, 1))

		xs := NewExecutor(executive, small, NewEntity("", 0))
		xb := NewExecutor(executive, big, NewEntity("", 0))
		Expect(xs.Initialize()).To(Succeed())
		Expect(xb.Initialize()).To(Succeed())

		Expect(xs.Start()).To(Succeed())
		Expect(xb.Start()).To(Succeed())
		Expect(pool.NumAvailable()).To(Equal(2))
		Expect(pool.NumWaiting()).To(Equal(1))

		Expect(executive.Run()).To(Succeed())

		Expect(xb.State()).To(Equal(ExecutorTerminated))
		Expect(executive.CurrentTime()).To(Equal(sim.VTimeInSec(2)))
	})

	It("should withdraw the request of a terminated waiter", func() {
		pool := NewResource("Pool", 2)
		hold := func(name string, amount int, d float64) *Executor {
			proc := NewDescription(name,
				NewSeize(pool, amount),
				NewDelay(fixedDelay(d)),
				NewRelease(pool, amount))
			x := NewExecutor(executive, proc, NewEntity("", 0))
			Expect(x.Initialize()).To(Succeed())
			Expect(x.Start()).To(Succeed())
			return x
		}

		long := hold("Long", 1, 100)
		big := hold("Big", 2, 1)
		Expect(big.State()).To(Equal(ExecutorSuspended))
		Expect(pool.NumWaiting()).To(Equal(1))

		Expect(big.Terminate()).To(Succeed())
		Expect(pool.NumWaiting()).To(Equal(0))

		small := hold("Small", 1, 1)
		Expect(small.State()).To(Equal(ExecutorSuspended))
		Expect(pool.NumAvailable()).To(Equal(0))
		Expect(pool.NumWaiting()).To(Equal(0))

		finished := sim.VTimeInSec(-1)
		small.OnTermination(func(x *Executor) { finished = x.Now() })

		Expect(executive.Run()).To(Succeed())

		Expect(finished).To(Equal(sim.VTimeInSec(1)))
		Expect(long.State()).To(Equal(ExecutorTerminated))
		Expect(pool.NumBusy()).To(Equal(0))
	})

	It("should reset before every replication", func() {
		m := model.NewModel("M", executive)
		model.Attach(m, server)
		start()
		start()

		m.Propagate(model.ObserverStateBeforeReplication)

		Expect(server.NumBusy()).To(Equal(0))
		Expect(server.NumWaiting()).To(Equal(0))
		Expect(server.NumSeizes()).To(Equal(uint64(0)))
	})

	It("should give entities distinct ids", func() {
		e1 := NewEntity("", 0)
		e2 := NewEntity("", 0)

		Expect(e1.ID()).NotTo(Equal(e2.ID()))
		Expect(e1.Name()).To(Equal("Entity_" + e1.ID()))
	})
})
