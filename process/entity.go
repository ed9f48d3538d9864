package process

import (
	"github.com/sarchlab/desim/sim"
)

// An Entity is the object that flows through processes, such as a customer
// or a job.
type Entity struct {
	id         string
	name       string
	createTime sim.VTimeInSec
	attributes map[string]float64
	held       map[*Resource]int
}

// NewEntity creates an entity at the given time. The entity gets an id from
// the global id generator.
func NewEntity(name string, createTime sim.VTimeInSec) *Entity {
	id := sim.GetIDGenerator().Generate()
	if name == "" {
		name = "Entity_" + id
	}

	return &Entity{
		id:         id,
		name:       name,
		createTime: createTime,
		attributes: make(map[string]float64),
		held:       make(map[*Resource]int),
	}
}

// ID returns the unique id of the entity.
func (e *Entity) ID() string {
	return e.id
}

// Name returns the name of the entity.
func (e *Entity) Name() string {
	return e.name
}

// CreateTime returns the time the entity was created.
func (e *Entity) CreateTime() sim.VTimeInSec {
	return e.createTime
}

// Attribute returns the value of an attribute.
func (e *Entity) Attribute(name string) (float64, bool) {
	v, found := e.attributes[name]
	return v, found
}

// SetAttribute sets the value of an attribute.
func (e *Entity) SetAttribute(name string, value float64) {
	e.attributes[name] = value
}

// NumHeld returns the number of units of the resource that the entity
// holds.
func (e *Entity) NumHeld(r *Resource) int {
	return e.held[r]
}
