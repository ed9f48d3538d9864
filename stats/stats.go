// Package stats provides minimal statistical collaborators that observe the
// model lifecycle. They keep within-replication tallies and the value of each
// finished replication.
package stats

import (
	"math"

	"github.com/sarchlab/desim/model"
)

// A Collector receives observations.
type Collector interface {
	Collect(value float64)
}

// Response tallies the observations of a response variable within a
// replication. The tally is cleared at the start of every replication and
// when the warm-up period ends.
type Response struct {
	*model.ElementBase

	count uint64
	sum   float64
	min   float64
	max   float64

	replicationAverages []float64
}

// NewResponse creates a Response.
func NewResponse(name string) *Response {
	r := &Response{
		ElementBase: model.NewElementBase(name),
	}
	r.reset()

	return r
}

// Collect records an observation.
func (r *Response) Collect(value float64) {
	r.count++
	r.sum += value
	r.min = math.Min(r.min, value)
	r.max = math.Max(r.max, value)

	r.NotifyUpdate(value)
}

func (r *Response) reset() {
	r.count = 0
	r.sum = 0
	r.min = math.Inf(1)
	r.max = math.Inf(-1)
}

// Count returns the number of observations.
func (r *Response) Count() uint64 {
	return r.count
}

// Sum returns the sum of the observations.
func (r *Response) Sum() float64 {
	return r.sum
}

// Min returns the smallest observation, or +Inf without observations.
func (r *Response) Min() float64 {
	return r.min
}

// Max returns the largest observation, or -Inf without observations.
func (r *Response) Max() float64 {
	return r.max
}

// Average returns the mean of the observations, or NaN without
// observations.
func (r *Response) Average() float64 {
	if r.count == 0 {
		return math.NaN()
	}

	return r.sum / float64(r.count)
}

// ReplicationAverages returns the average of every finished replication.
func (r *Response) ReplicationAverages() []float64 {
	out := make([]float64, len(r.replicationAverages))
	copy(out, r.replicationAverages)
	return out
}

// BeforeExperiment clears the replication values.
func (r *Response) BeforeExperiment() {
	r.replicationAverages = nil
}

// BeforeReplication clears the tally.
func (r *Response) BeforeReplication() {
	r.reset()
}

// WarmUp discards the observations made during the warm-up period.
func (r *Response) WarmUp() {
	r.reset()
}

// AfterReplication keeps the average of the replication.
func (r *Response) AfterReplication() {
	r.replicationAverages = append(r.replicationAverages, r.Average())
}

// Counter counts occurrences within a replication.
type Counter struct {
	*model.ElementBase

	value             float64
	replicationTotals []float64
}

// NewCounter creates a Counter.
func NewCounter(name string) *Counter {
	return &Counter{
		ElementBase: model.NewElementBase(name),
	}
}

// Increment adds one to the counter.
func (c *Counter) Increment() {
	c.IncrementBy(1)
}

// IncrementBy adds n to the counter.
func (c *Counter) IncrementBy(n float64) {
	c.value += n
	c.NotifyUpdate(c.value)
}

// Collect makes a Counter usable as a Collector. Every observation adds its
// value to the counter.
func (c *Counter) Collect(value float64) {
	c.IncrementBy(value)
}

// Value returns the current count.
func (c *Counter) Value() float64 {
	return c.value
}

// ReplicationTotals returns the final count of every finished replication.
func (c *Counter) ReplicationTotals() []float64 {
	out := make([]float64, len(c.replicationTotals))
	copy(out, c.replicationTotals)
	return out
}

// BeforeExperiment clears the replication totals.
func (c *Counter) BeforeExperiment() {
	c.replicationTotals = nil
}

// BeforeReplication resets the count.
func (c *Counter) BeforeReplication() {
	c.value = 0
}

// WarmUp discards the counts made during the warm-up period.
func (c *Counter) WarmUp() {
	c.value = 0
}

// AfterReplication keeps the final count of the replication.
func (c *Counter) AfterReplication() {
	c.replicationTotals = append(c.replicationTotals, c.value)
}
