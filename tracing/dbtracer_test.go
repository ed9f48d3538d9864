package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/process"
	"github.com/sarchlab/desim/random"
	"github.com/sarchlab/desim/sim"
)

var _ = Describe("DBTracer", func() {
	var (
		executive *sim.Executive
		m         *model.Model
		service   *process.Description
		path      string
		recorder  datarecording.DataRecorder
		tracer    *DBTracer
	)

	BeforeEach(func() {
		executive = sim.NewExecutive()
		Expect(executive.Initialize()).To(Succeed())
		m = model.NewModel("M", executive)

		teller := process.NewResource("Teller", 1)
		model.Attach(m, teller)

		service = process.NewDescription("Service",
			process.NewSeize(teller, 1),
			process.NewDelay(random.Constant(2)),
			process.NewRelease(teller, 1),
			process.NewTerminate(nil),
		)

		path = filepath.Join(GinkgoT().TempDir(), "trace")
		recorder = datarecording.NewDataRecorder(path)
		tracer = NewDBTracer(m, recorder)
	})

	AfterEach(func() {
		Expect(recorder.Close()).To(Succeed())
	})

	arriveAtZero := func(names ...string) {
		executive.Schedule(sim.HandlerFunc(func(*sim.Event) error {
			for _, name := range names {
				x := process.NewExecutor(executive, service,
					process.NewEntity(name, executive.CurrentTime()))
				x.AcceptHook(tracer)
				Expect(x.Initialize()).To(Succeed())
				Expect(x.Start()).To(Succeed())
			}
			return nil
		}), 0)
	}

	readTasks := func() []*Task {
		tracer.Terminate()

		reader := datarecording.NewReader(path + ".sqlite3")
		defer reader.Close()

		reader.MapTable(TaskTable, Task{})
		results, _, err := reader.Query(context.Background(), TaskTable,
			datarecording.QueryParams{OrderBy: "EndTime"})
		Expect(err).NotTo(HaveOccurred())

		tasks := make([]*Task, len(results))
		for i, r := range results {
			tasks[i] = r.(*Task)
		}

		return tasks
	}

	It("should record a task per process", func() {
		arriveAtZero("A", "B")

		Expect(executive.Run()).To(Succeed())

		Expect(tracer.NumTasks()).To(Equal(2))
		Expect(tracer.NumTracingTasks()).To(Equal(0))

		tasks := readTasks()
		Expect(tasks).To(HaveLen(2))
		Expect(tasks[0].Entity).To(Equal("A"))
		Expect(tasks[0].Process).To(Equal("Service"))
		Expect(tasks[0].StartTime).To(Equal(0.0))
		Expect(tasks[0].EndTime).To(Equal(2.0))
		Expect(tasks[0].SuspendedTime).To(Equal(2.0))
		Expect(tasks[1].Entity).To(Equal("B"))
		Expect(tasks[1].EndTime).To(Equal(4.0))
		Expect(tasks[1].SuspendedTime).To(Equal(4.0))
	})

	It("should skip the tasks that end after the time range", func() {
		tracer.SetTimeRange(0, 3)
		arriveAtZero("A", "B")

		Expect(executive.Run()).To(Succeed())

		Expect(tracer.NumTasks()).To(Equal(1))
		Expect(readTasks()).To(HaveLen(1))
	})

	It("should drop unfinished tasks", func() {
		executive.SetEndTime(1)
		arriveAtZero("A")

		Expect(executive.Run()).To(Succeed())

		Expect(tracer.NumTracingTasks()).To(Equal(1))
		Expect(readTasks()).To(BeEmpty())
		Expect(tracer.NumTracingTasks()).To(Equal(0))
	})

	It("should drop unfinished tasks when the replication ends", func() {
		executive.SetEndTime(1)
		arriveAtZero("A", "B")

		Expect(executive.Run()).To(Succeed())
		Expect(tracer.NumTracingTasks()).To(Equal(2))

		m.Propagate(model.ObserverStateReplicationEnded)

		Expect(tracer.NumTracingTasks()).To(Equal(0))
		Expect(tracer.NumTasks()).To(Equal(0))
	})

	It("should ignore other hook positions", func() {
		tracer.Func(sim.HookCtx{Pos: sim.HookPosAfterEvent})

		Expect(tracer.NumTracingTasks()).To(Equal(0))
	})
})
