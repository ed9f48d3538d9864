// Package tracing records the life of the processes that run in a model.
package tracing

import (
	"github.com/sarchlab/desim/datarecording"
	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/process"
	"github.com/sarchlab/desim/sim"
)

// TaskTable is the name of the table that DBTracers write into.
const TaskTable = "process_task"

// A Task is the run of one process for one entity, from its first command to
// its termination. SuspendedTime sums the time the process spent waiting,
// whether for a resource or for a delay to pass.
type Task struct {
	ID            string
	Replication   int
	Entity        string
	Process       string
	StartTime     float64
	EndTime       float64
	SuspendedTime float64
}

type tracingTask struct {
	task        Task
	suspendedAt sim.VTimeInSec
}

// DBTracer is a hook that stores the tasks of the executors it is attached to
// into a data recorder.
type DBTracer struct {
	model   *model.Model
	backend datarecording.DataRecorder

	startTime, endTime sim.VTimeInSec

	tracingTasks map[*process.Executor]*tracingTask
	numTasks     int
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	m *model.Model,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	if m == nil || dataRecorder == nil {
		panic(sim.NewConfigError("tracer requires a model and a data recorder"))
	}

	dataRecorder.CreateTable(TaskTable, Task{})

	t := &DBTracer{
		model:        m,
		backend:      dataRecorder,
		tracingTasks: make(map[*process.Executor]*tracingTask),
	}
	m.AcceptHook(t)

	return t
}

// SetTimeRange limits the tracer to the tasks that start at or after
// startTime and end at or before endTime. A zero endTime means no limit.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInSec) {
	t.startTime = startTime
	t.endTime = endTime
}

// NumTasks returns how many tasks have been written.
func (t *DBTracer) NumTasks() int {
	return t.numTasks
}

// NumTracingTasks returns how many tasks have started but not ended.
func (t *DBTracer) NumTracingTasks() int {
	return len(t.tracingTasks)
}

// Func follows the state changes of an executor. Tasks still open when a
// replication ends are dropped.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case model.HookPosReplicationEnded, model.HookPosBeforeReplication:
		if ctx.Domain == sim.Hookable(t.model) {
			t.dropUnfinished()
		}

		return
	case process.HookPosStateChange:
	default:
		return
	}

	x, ok := ctx.Domain.(*process.Executor)
	if !ok {
		return
	}

	change := ctx.Detail.(process.StateChange)
	now := t.model.Executive().CurrentTime()

	switch change.To {
	case process.ExecutorExecuting:
		if change.From == process.ExecutorInitialized {
			t.startTask(x, now)
			return
		}

		t.resumeTask(x, now)
	case process.ExecutorSuspended:
		if tt, found := t.tracingTasks[x]; found {
			tt.suspendedAt = now
		}
	case process.ExecutorTerminated:
		if change.From == process.ExecutorSuspended {
			t.resumeTask(x, now)
		}

		t.endTask(x, now)
	}
}

func (t *DBTracer) startTask(x *process.Executor, now sim.VTimeInSec) {
	if now < t.startTime {
		return
	}

	t.tracingTasks[x] = &tracingTask{
		task: Task{
			ID:          sim.GetIDGenerator().Generate(),
			Replication: t.model.CurrentReplication(),
			Entity:      x.Entity().Name(),
			Process:     x.Description().Name(),
			StartTime:   float64(now),
		},
	}
}

func (t *DBTracer) resumeTask(x *process.Executor, now sim.VTimeInSec) {
	tt, found := t.tracingTasks[x]
	if !found {
		return
	}

	tt.task.SuspendedTime += float64(now - tt.suspendedAt)
}

func (t *DBTracer) endTask(x *process.Executor, now sim.VTimeInSec) {
	tt, found := t.tracingTasks[x]
	if !found {
		return
	}

	delete(t.tracingTasks, x)

	if t.endTime > 0 && now > t.endTime {
		return
	}

	tt.task.EndTime = float64(now)
	t.backend.InsertData(TaskTable, tt.task)
	t.numTasks++
}

func (t *DBTracer) dropUnfinished() {
	t.tracingTasks = make(map[*process.Executor]*tracingTask)
}

// Terminate drops the unfinished tasks and flushes the data recorder.
func (t *DBTracer) Terminate() {
	t.dropUnfinished()
	t.backend.Flush()
}
