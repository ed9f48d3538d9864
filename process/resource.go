package process

import (
	"fmt"

	"github.com/sarchlab/desim/model"
	"github.com/sarchlab/desim/sim"
)

type seizeRequest struct {
	executor *Executor
	amount   int
}

// A Resource has a number of units that entities seize and release.
// Requests that cannot be served wait in FIFO order.
type Resource struct {
	*model.ElementBase

	capacity int
	busy     int
	waiting  []seizeRequest

	numSeizes uint64
}

// NewResource creates a Resource with the given capacity.
func NewResource(name string, capacity int) *Resource {
	if capacity <= 0 {
		panic(sim.NewConfigError(
			"resource %q capacity must be positive, got %d", name, capacity))
	}

	return &Resource{
		ElementBase: model.NewElementBase(name),
		capacity:    capacity,
	}
}

// Capacity returns the number of units of the resource.
func (r *Resource) Capacity() int {
	return r.capacity
}

// NumBusy returns the number of units seized.
func (r *Resource) NumBusy() int {
	return r.busy
}

// NumAvailable returns the number of idle units.
func (r *Resource) NumAvailable() int {
	return r.capacity - r.busy
}

// NumWaiting returns the number of requests waiting for units.
func (r *Resource) NumWaiting() int {
	return len(r.waiting)
}

// NumSeizes returns how many requests were served in the current
// replication.
func (r *Resource) NumSeizes() uint64 {
	return r.numSeizes
}

// BeforeReplication idles all the units and drops the waiting requests.
func (r *Resource) BeforeReplication() {
	r.busy = 0
	r.waiting = nil
	r.numSeizes = 0
}

// WarmUp resets the seize counter.
func (r *Resource) WarmUp() {
	r.numSeizes = 0
}

// seize allocates units to the executor if no one is waiting and enough units
// are idle. Otherwise the request is queued and false is returned.
func (r *Resource) seize(x *Executor, amount int) bool {
	if len(r.waiting) == 0 && r.NumAvailable() >= amount {
		r.allocate(x.entity, amount)
		return true
	}

	r.waiting = append(r.waiting, seizeRequest{executor: x, amount: amount})
	x.waitingFor = r

	return false
}

// withdraw removes the requests of the executor from the wait queue and
// serves the requests behind them that now fit.
func (r *Resource) withdraw(x *Executor) error {
	kept := r.waiting[:0]
	for _, req := range r.waiting {
		if req.executor != x {
			kept = append(kept, req)
		}
	}
	r.waiting = kept

	return r.serveWaiting()
}

func (r *Resource) allocate(e *Entity, amount int) {
	r.busy += amount
	r.numSeizes++
	e.held[r] += amount

	r.NotifyUpdate(r.busy)
}

// release returns units held by the entity and serves the waiting requests
// that fit.
func (r *Resource) release(e *Entity, amount int) error {
	held := e.held[r]
	if held < amount {
		return &sim.IllegalStateError{
			Op:    fmt.Sprintf("Release(%s, %d)", r.Name(), amount),
			State: fmt.Sprintf("Holding(%d)", held),
		}
	}

	if held == amount {
		delete(e.held, r)
	} else {
		e.held[r] = held - amount
	}

	r.busy -= amount
	r.NotifyUpdate(r.busy)

	return r.serveWaiting()
}

func (r *Resource) serveWaiting() error {
	for len(r.waiting) > 0 {
		req := r.waiting[0]

		if req.executor.State() != ExecutorSuspended {
			r.waiting = r.waiting[1:]
			continue
		}

		if r.NumAvailable() < req.amount {
			return nil
		}

		r.waiting = r.waiting[1:]
		req.executor.waitingFor = nil
		r.allocate(req.executor.entity, req.amount)

		_, err := req.executor.ScheduleResume(0)
		if err != nil {
			return err
		}
	}

	return nil
}
