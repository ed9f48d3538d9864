// Package random provides the duration sources that drive stochastic events.
//
// Only the plumbing lives here: constant values, uniform and exponential
// draws, adapters and the MRG32k3a streams that every stochastic source draws
// from. Other probability distributions are expected to be built on top of
// Stream.
package random

import (
	"math"

	"github.com/sarchlab/desim/sim"
)

// Source produces successive values of a random variable.
type Source interface {
	sim.DurationSource
}

// Constant is a Source that always returns the same value.
type Constant float64

// NextValue returns the constant.
func (c Constant) NextValue() float64 {
	return float64(c)
}

// Func adapts a function into a Source.
type Func func() float64

// NextValue returns f().
func (f Func) NextValue() float64 {
	return f()
}

// Sequence is a Source that replays a fixed list of values, starting over
// when the list is exhausted.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence. It panics if no value is given.
func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		panic(sim.NewConfigError("sequence must contain at least one value"))
	}

	return &Sequence{values: values}
}

// NextValue returns the next value of the list.
func (s *Sequence) NextValue() float64 {
	v := s.values[s.next]
	s.next = (s.next + 1) % len(s.values)
	return v
}

// Reset starts the sequence over.
func (s *Sequence) Reset() {
	s.next = 0
}

// Uniform draws values uniformly from [lower, upper).
type Uniform struct {
	lower  float64
	upper  float64
	stream *Stream
}

// NewUniform creates a Uniform source. It panics if lower is not strictly
// less than upper or if the stream is nil.
func NewUniform(lower, upper float64, stream *Stream) *Uniform {
	if lower >= upper {
		panic(sim.NewConfigError(
			"uniform lower bound %v must be less than upper bound %v",
			lower, upper))
	}

	if stream == nil {
		panic(sim.NewConfigError("uniform stream must not be nil"))
	}

	return &Uniform{lower: lower, upper: upper, stream: stream}
}

// NextValue draws a value.
func (u *Uniform) NextValue() float64 {
	return u.lower + (u.upper-u.lower)*u.stream.RandU01()
}

// Stream returns the stream the source draws from.
func (u *Uniform) Stream() *Stream {
	return u.stream
}

// Exponential draws values from an exponential distribution by inversion.
type Exponential struct {
	mean   float64
	stream *Stream
}

// NewExponential creates an Exponential source with the given mean.
func NewExponential(mean float64, stream *Stream) *Exponential {
	if math.IsNaN(mean) || mean <= 0 {
		panic(sim.NewConfigError(
			"exponential mean must be positive, got %v", mean))
	}

	if stream == nil {
		panic(sim.NewConfigError("exponential stream must not be nil"))
	}

	return &Exponential{mean: mean, stream: stream}
}

// Mean returns the mean of the distribution.
func (e *Exponential) Mean() float64 {
	return e.mean
}

// NextValue draws a value.
func (e *Exponential) NextValue() float64 {
	return -e.mean * math.Log(1-e.stream.RandU01())
}
