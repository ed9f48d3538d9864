package process

import (
	"github.com/sarchlab/desim/sim"
	"github.com/sarchlab/desim/stats"
	"github.com/sirupsen/logrus"
)

// A Command is one step of a process. The set of commands is closed: Seize,
// Delay, Release, Assign, Record, Terminate, JumpIf and SubProcess.
type Command interface {
	// Execute runs the command for the executor. A command that needs time
	// to pass suspends the executor before returning.
	Execute(x *Executor) error

	isCommand()
}

// An Expression computes a value in the context of an executor.
type Expression interface {
	Evaluate(x *Executor) float64
}

// ExpressionFunc adapts a function into an Expression.
type ExpressionFunc func(x *Executor) float64

// Evaluate calls f(x).
func (f ExpressionFunc) Evaluate(x *Executor) float64 {
	return f(x)
}

// Value is an Expression that always evaluates to the same number.
type Value float64

// Evaluate returns the value.
func (v Value) Evaluate(_ *Executor) float64 {
	return float64(v)
}

// AttributeOf is an Expression that reads an attribute of the entity. A
// missing attribute evaluates to 0.
type AttributeOf string

// Evaluate returns the attribute of the current entity.
func (a AttributeOf) Evaluate(x *Executor) float64 {
	v, _ := x.entity.Attribute(string(a))
	return v
}

// TimeInSystem evaluates to the time elapsed since the entity was created.
var TimeInSystem Expression = ExpressionFunc(func(x *Executor) float64 {
	return float64(x.Now() - x.entity.CreateTime())
})

// A Settable is something that an Assign command can write to.
type Settable interface {
	SetValue(value float64)
}

// SettableFunc adapts a function into a Settable.
type SettableFunc func(value float64)

// SetValue calls f(value).
func (f SettableFunc) SetValue(value float64) {
	f(value)
}

// Seize acquires units of a resource. The process waits until the units are
// granted.
type Seize struct {
	resource *Resource
	amount   int
}

// NewSeize creates a Seize command.
func NewSeize(r *Resource, amount int) *Seize {
	if r == nil {
		panic(sim.NewConfigError("seize resource must not be nil"))
	}

	if amount <= 0 || amount > r.Capacity() {
		panic(sim.NewConfigError(
			"seize amount %d out of range for resource %q with capacity %d",
			amount, r.Name(), r.Capacity()))
	}

	return &Seize{resource: r, amount: amount}
}

func (*Seize) isCommand() {}

// Execute seizes the units or suspends the process until they are granted.
func (c *Seize) Execute(x *Executor) error {
	if c.resource.seize(x, c.amount) {
		return nil
	}

	return x.Suspend()
}

// Delay makes the process wait for a duration.
type Delay struct {
	duration sim.DurationSource
}

// NewDelay creates a Delay command.
func NewDelay(duration sim.DurationSource) *Delay {
	if duration == nil {
		panic(sim.NewConfigError("delay duration must not be nil"))
	}

	return &Delay{duration: duration}
}

func (*Delay) isCommand() {}

// Execute schedules the resume of the process and suspends it.
func (c *Delay) Execute(x *Executor) error {
	_, err := x.ScheduleResume(sim.VTimeInSec(c.duration.NextValue()))
	if err != nil {
		return err
	}

	return x.Suspend()
}

// Release returns units of a resource held by the entity.
type Release struct {
	resource *Resource
	amount   int
}

// NewRelease creates a Release command.
func NewRelease(r *Resource, amount int) *Release {
	if r == nil {
		panic(sim.NewConfigError("release resource must not be nil"))
	}

	if amount <= 0 {
		panic(sim.NewConfigError(
			"release amount must be positive, got %d", amount))
	}

	return &Release{resource: r, amount: amount}
}

func (*Release) isCommand() {}

// Execute releases the units. It fails if the entity does not hold them.
func (c *Release) Execute(x *Executor) error {
	return c.resource.release(x.entity, c.amount)
}

// Assign evaluates an expression and writes the result to a target or to an
// attribute of the entity.
type Assign struct {
	target    Settable
	attribute string
	value     Expression
}

// NewAssign creates an Assign command that writes to a target.
func NewAssign(target Settable, value Expression) *Assign {
	if target == nil {
		panic(sim.NewConfigError("assign target must not be nil"))
	}

	if value == nil {
		panic(sim.NewConfigError("assign value must not be nil"))
	}

	return &Assign{target: target, value: value}
}

// NewAssignAttribute creates an Assign command that writes to an attribute
// of the entity.
func NewAssignAttribute(attribute string, value Expression) *Assign {
	if attribute == "" {
		panic(sim.NewConfigError("assign attribute must not be empty"))
	}

	if value == nil {
		panic(sim.NewConfigError("assign value must not be nil"))
	}

	return &Assign{attribute: attribute, value: value}
}

func (*Assign) isCommand() {}

// Execute performs the assignment.
func (c *Assign) Execute(x *Executor) error {
	v := c.value.Evaluate(x)

	if c.target != nil {
		c.target.SetValue(v)
		return nil
	}

	x.entity.SetAttribute(c.attribute, v)

	return nil
}

// Record collects the value of an expression.
type Record struct {
	collector stats.Collector
	value     Expression
}

// NewRecord creates a Record command.
func NewRecord(collector stats.Collector, value Expression) *Record {
	if collector == nil {
		panic(sim.NewConfigError("record collector must not be nil"))
	}

	if value == nil {
		panic(sim.NewConfigError("record value must not be nil"))
	}

	return &Record{collector: collector, value: value}
}

func (*Record) isCommand() {}

// Execute collects the value.
func (c *Record) Execute(x *Executor) error {
	c.collector.Collect(c.value.Evaluate(x))
	return nil
}

// Terminate ends the process. It can record the time the entity spent in
// the system first.
type Terminate struct {
	timeInSystem stats.Collector
}

// NewTerminate creates a Terminate command. The collector may be nil.
func NewTerminate(timeInSystem stats.Collector) *Terminate {
	return &Terminate{timeInSystem: timeInSystem}
}

func (*Terminate) isCommand() {}

// Execute terminates the executor.
func (c *Terminate) Execute(x *Executor) error {
	if c.timeInSystem != nil {
		c.timeInSystem.Collect(TimeInSystem.Evaluate(x))
	}

	return x.Terminate()
}

// JumpIf continues the process at another command when a condition holds.
type JumpIf struct {
	condition func(x *Executor) bool
	target    int
}

// NewJumpIf creates a JumpIf command.
func NewJumpIf(condition func(x *Executor) bool, target int) *JumpIf {
	if condition == nil {
		panic(sim.NewConfigError("jump condition must not be nil"))
	}

	if target < 0 {
		panic(sim.NewConfigError("jump target %d is negative", target))
	}

	return &JumpIf{condition: condition, target: target}
}

func (*JumpIf) isCommand() {}

// Execute jumps if the condition holds.
func (c *JumpIf) Execute(x *Executor) error {
	if !c.condition(x) {
		return nil
	}

	return x.JumpTo(c.target)
}

// SubProcess runs another description for the same entity and continues
// once it terminates.
type SubProcess struct {
	description *Description
}

// NewSubProcess creates a SubProcess command.
func NewSubProcess(d *Description) *SubProcess {
	if d == nil {
		panic(sim.NewConfigError("sub-process description must not be nil"))
	}

	return &SubProcess{description: d}
}

func (*SubProcess) isCommand() {}

// Execute starts the sub-process. If the sub-process suspends, the parent
// suspends too and resumes after the sub-process terminates.
func (c *SubProcess) Execute(x *Executor) error {
	sub := x.CreateSubProcessExecutor(c.description)

	err := sub.Initialize()
	if err != nil {
		return err
	}

	err = sub.Start()
	if err != nil {
		return err
	}

	if sub.State() == ExecutorTerminated {
		return nil
	}

	sub.OnTermination(func(*Executor) {
		if x.State() != ExecutorSuspended {
			return
		}

		_, err := x.ScheduleResume(0)
		if err != nil {
			logrus.Panicf("process %s cannot resume after sub-process %s: %v",
				x.Description().Name(), c.description.Name(), err)
		}
	})

	return x.Suspend()
}
