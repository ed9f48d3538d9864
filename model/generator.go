package model

import (
	"math"

	"github.com/sarchlab/desim/sim"
)

// GeneratorAction is what a Generator does on every arrival.
type GeneratorAction interface {
	Generate(g *Generator) error
}

// GeneratorActionFunc adapts a function into a GeneratorAction.
type GeneratorActionFunc func(g *Generator) error

// Generate calls f(g).
func (f GeneratorActionFunc) Generate(g *Generator) error {
	return f(g)
}

// A Generator is an element that produces arrivals. The first arrival
// happens after a time drawn from its first-arrival source, and then after
// every inter-arrival time, until the maximum number of arrivals or the
// ending time is reached.
type Generator struct {
	*ElementBase

	action       GeneratorAction
	firstArrival sim.DurationSource
	interArrival sim.DurationSource
	maxArrivals  int
	endTime      sim.VTimeInSec
	autoStart    bool

	numArrivals int
	on          bool
	nextEvent   *sim.Event
}

// NumArrivals returns the number of arrivals in the current replication.
func (g *Generator) NumArrivals() int {
	return g.numArrivals
}

// IsOn tells if the generator is producing arrivals.
func (g *Generator) IsOn() bool {
	return g.on
}

// BeforeReplication resets the arrival count.
func (g *Generator) BeforeReplication() {
	g.numArrivals = 0
	g.on = false
	g.nextEvent = nil
}

// Initialize starts the generator if it starts automatically.
func (g *Generator) Initialize() {
	if g.autoStart {
		g.TurnOn()
	}
}

// TurnOn schedules the first arrival. It does nothing if the generator is
// already on.
func (g *Generator) TurnOn() {
	if g.on {
		return
	}

	g.on = true
	g.scheduleNext(g.firstArrival)
}

// TurnOff cancels the pending arrival.
func (g *Generator) TurnOff() {
	g.on = false
	if g.nextEvent != nil {
		g.Cancel(g.nextEvent)
		g.nextEvent = nil
	}
}

func (g *Generator) scheduleNext(src sim.DurationSource) {
	delay := sim.VTimeInSec(src.NextValue())
	if g.Now()+delay > g.endTime {
		g.on = false
		return
	}

	g.nextEvent = g.Schedule(sim.HandlerFunc(g.handleArrival), delay,
		sim.WithName(g.Name()))
}

func (g *Generator) handleArrival(_ *sim.Event) error {
	g.nextEvent = nil
	g.numArrivals++

	err := g.action.Generate(g)
	if err != nil {
		return err
	}

	if !g.on {
		return nil
	}

	if g.maxArrivals > 0 && g.numArrivals >= g.maxArrivals {
		g.on = false
		return nil
	}

	g.scheduleNext(g.interArrival)

	return nil
}

// GeneratorBuilder creates Generators.
type GeneratorBuilder struct {
	firstArrival sim.DurationSource
	interArrival sim.DurationSource
	maxArrivals  int
	endTime      sim.VTimeInSec
	manualStart  bool
}

// MakeGeneratorBuilder returns a GeneratorBuilder with default settings.
func MakeGeneratorBuilder() GeneratorBuilder {
	return GeneratorBuilder{
		endTime: sim.VTimeInSec(math.Inf(1)),
	}
}

// WithInterArrival sets the source of the time between two arrivals.
func (b GeneratorBuilder) WithInterArrival(
	src sim.DurationSource,
) GeneratorBuilder {
	b.interArrival = src
	return b
}

// WithFirstArrival sets the source of the time until the first arrival. It
// defaults to the inter-arrival source.
func (b GeneratorBuilder) WithFirstArrival(
	src sim.DurationSource,
) GeneratorBuilder {
	b.firstArrival = src
	return b
}

// WithMaxArrivals limits the number of arrivals per replication. Zero means
// no limit.
func (b GeneratorBuilder) WithMaxArrivals(n int) GeneratorBuilder {
	b.maxArrivals = n
	return b
}

// WithEndTime stops the arrivals after the given time.
func (b GeneratorBuilder) WithEndTime(t sim.VTimeInSec) GeneratorBuilder {
	b.endTime = t
	return b
}

// WithManualStart leaves the generator off until TurnOn is called.
func (b GeneratorBuilder) WithManualStart() GeneratorBuilder {
	b.manualStart = true
	return b
}

// Build creates a Generator.
func (b GeneratorBuilder) Build(
	name string,
	action GeneratorAction,
) *Generator {
	if action == nil {
		panic(sim.NewConfigError("generator %q has no action", name))
	}

	if b.interArrival == nil {
		panic(sim.NewConfigError("generator %q has no inter-arrival time", name))
	}

	if b.maxArrivals < 0 {
		panic(sim.NewConfigError(
			"generator %q max arrivals must not be negative", name))
	}

	first := b.firstArrival
	if first == nil {
		first = b.interArrival
	}

	return &Generator{
		ElementBase:  NewElementBase(name),
		action:       action,
		firstArrival: first,
		interArrival: b.interArrival,
		maxArrivals:  b.maxArrivals,
		endTime:      b.endTime,
		autoStart:    !b.manualStart,
	}
}
