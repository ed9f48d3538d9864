package sim

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
)

func makeTestEvent(t VTimeInSec, priority int, seq uint64) *Event {
	return &Event{
		time:     t,
		priority: priority,
		seq:      seq,
		handler:  HandlerFunc(func(*Event) error { return nil }),
	}
}

func calendarSpecs(newCalendar func() EventCalendar) {
	var calendar EventCalendar

	BeforeEach(func() {
		calendar = newCalendar()
	})

	It("should return nil when empty", func() {
		Expect(calendar.IsEmpty()).To(BeTrue())
		Expect(calendar.Peek()).To(BeNil())
		Expect(calendar.Pop()).To(BeNil())
	})

	It("should pop in time, priority, sequence order", func() {
		numEvents := 500
		for i := 0; i < numEvents; i++ {
			t := VTimeInSec(rand.Intn(20))
			p := rand.Intn(3)
			calendar.Insert(makeTestEvent(t, p, uint64(i)))
		}

		Expect(calendar.Len()).To(Equal(numEvents))

		prev := calendar.Pop()
		for i := 1; i < numEvents; i++ {
			evt := calendar.Pop()
			Expect(prev.before(evt)).To(BeTrue())
			prev = evt
		}

		Expect(calendar.IsEmpty()).To(BeTrue())
	})

	It("should serve lower priority values first at the same time", func() {
		evt1 := makeTestEvent(5, 2, 0)
		evt2 := makeTestEvent(5, 1, 1)

		calendar.Insert(evt1)
		calendar.Insert(evt2)

		Expect(calendar.Pop()).To(BeIdenticalTo(evt2))
		Expect(calendar.Pop()).To(BeIdenticalTo(evt1))
	})

	It("should keep FIFO order for same time and priority", func() {
		events := make([]*Event, 10)
		for i := range events {
			events[i] = makeTestEvent(1, PriorityDefault, uint64(i))
			calendar.Insert(events[i])
		}

		for i := range events {
			Expect(calendar.Pop()).To(BeIdenticalTo(events[i]))
		}
	})

	It("should peek without removing", func() {
		evt := makeTestEvent(3, 0, 0)
		calendar.Insert(evt)

		Expect(calendar.Peek()).To(BeIdenticalTo(evt))
		Expect(calendar.Len()).To(Equal(1))
	})

	It("should skip cancelled events", func() {
		evt1 := makeTestEvent(1, 0, 0)
		evt2 := makeTestEvent(2, 0, 1)
		calendar.Insert(evt1)
		calendar.Insert(evt2)

		calendar.Cancel(evt1)

		Expect(calendar.Len()).To(Equal(1))
		Expect(calendar.Peek()).To(BeIdenticalTo(evt2))
		Expect(calendar.Pop()).To(BeIdenticalTo(evt2))
		Expect(calendar.Pop()).To(BeNil())
	})

	It("should ignore repeated cancellation", func() {
		evt := makeTestEvent(1, 0, 0)
		calendar.Insert(evt)

		calendar.Cancel(evt)
		calendar.Cancel(evt)

		Expect(evt.IsCancelled()).To(BeTrue())
		Expect(calendar.Len()).To(Equal(0))
		Expect(calendar.IsEmpty()).To(BeTrue())
	})

	It("should clear all events", func() {
		calendar.Insert(makeTestEvent(1, 0, 0))
		calendar.Insert(makeTestEvent(2, 0, 1))

		calendar.Clear()

		Expect(calendar.IsEmpty()).To(BeTrue())
		Expect(calendar.Pop()).To(BeNil())
	})

	It("should not count events dropped by a clear", func() {
		stale := makeTestEvent(5, 0, 0)
		calendar.Insert(stale)
		calendar.Clear()

		Expect(stale.IsCancelled()).To(BeTrue())

		fresh := makeTestEvent(1, 0, 0)
		calendar.Insert(fresh)
		calendar.Cancel(stale)

		Expect(calendar.Len()).To(Equal(1))
		Expect(calendar.Pop()).To(BeIdenticalTo(fresh))
	})
}

var _ = Describe("HeapCalendar", func() {
	calendarSpecs(func() EventCalendar { return NewHeapCalendar() })

	It("measure insertion and removal speed", func() {
		experiment := gmeasure.NewExperiment("Heap Calendar Throughput")
		AddReportEntry(experiment.Name, experiment)

		experiment.MeasureDuration("runtime", func() {
			calendar := NewHeapCalendar()
			for i := 0; i < 10000; i++ {
				t := VTimeInSec(float64(rand.Uint64()%100) * 0.01)
				calendar.Insert(makeTestEvent(t, PriorityDefault, uint64(i)))
			}

			for !calendar.IsEmpty() {
				calendar.Pop()
			}
		})
	})
})

var _ = Describe("ListCalendar", func() {
	calendarSpecs(func() EventCalendar { return NewListCalendar() })

	It("should agree with the heap calendar", func() {
		heapCal := NewHeapCalendar()
		listCal := NewListCalendar()

		for i := 0; i < 200; i++ {
			evt := makeTestEvent(
				VTimeInSec(rand.Intn(10)), rand.Intn(4), uint64(i))
			heapCal.Insert(evt)
			listCal.Insert(evt)
		}

		for !heapCal.IsEmpty() {
			Expect(listCal.Pop()).To(BeIdenticalTo(heapCal.Pop()))
		}
	})
})
