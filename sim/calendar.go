package sim

import (
	"container/heap"
	"container/list"
)

// EventCalendar holds the events that have not fired yet, ordered by time,
// then priority, then scheduling order.
type EventCalendar interface {
	// Insert adds an event to the calendar.
	Insert(evt *Event)

	// Peek returns the earliest active event without removing it, or nil.
	Peek() *Event

	// Pop removes and returns the earliest active event, or nil.
	Pop() *Event

	// Cancel marks an event as inactive. The event stays in the calendar
	// until it reaches the front, where it is dropped.
	Cancel(evt *Event)

	// Len returns the number of active events.
	Len() int

	// IsEmpty tells if there is no active event left.
	IsEmpty() bool

	// Clear removes all the events.
	Clear()
}

// HeapCalendar is an EventCalendar backed by a binary heap.
type HeapCalendar struct {
	events eventHeap
	active int
}

// NewHeapCalendar creates and returns a newly created HeapCalendar.
func NewHeapCalendar() *HeapCalendar {
	c := new(HeapCalendar)
	c.events = make([]*Event, 0)
	heap.Init(&c.events)
	return c
}

// Insert adds an event to the calendar.
func (c *HeapCalendar) Insert(evt *Event) {
	heap.Push(&c.events, evt)
	c.active++
}

// Peek returns the earliest active event without removing it from the
// calendar.
func (c *HeapCalendar) Peek() *Event {
	c.dropCancelledHead()

	if len(c.events) == 0 {
		return nil
	}

	return c.events[0]
}

// Pop returns the earliest active event and removes it from the calendar.
func (c *HeapCalendar) Pop() *Event {
	c.dropCancelledHead()

	if len(c.events) == 0 {
		return nil
	}

	c.active--

	return heap.Pop(&c.events).(*Event)
}

func (c *HeapCalendar) dropCancelledHead() {
	for len(c.events) > 0 && c.events[0].IsCancelled() {
		heap.Pop(&c.events)
	}
}

// Cancel marks an event as inactive. Cancelling twice is a no-op.
func (c *HeapCalendar) Cancel(evt *Event) {
	if !evt.IsPending() {
		return
	}

	evt.state = eventCancelled
	c.active--
}

// Len returns the number of active events in the calendar.
func (c *HeapCalendar) Len() int {
	return c.active
}

// IsEmpty tells if there is no active event left.
func (c *HeapCalendar) IsEmpty() bool {
	return c.active == 0
}

// Clear removes all the events from the calendar.
func (c *HeapCalendar) Clear() {
	for _, evt := range c.events {
		evt.drop()
	}

	c.events = make([]*Event, 0)
	c.active = 0
}

type eventHeap []*Event

// Len returns the length of the event heap
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	return h[i].before(h[j])
}

// Swap changes the position of two events in the event heap
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event heap
func (h *eventHeap) Push(x interface{}) {
	event := x.(*Event)
	*h = append(*h, event)
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return event
}

// ListCalendar is an EventCalendar that keeps its events in a sorted linked
// list. Insertion is linear, which is fine for models with few pending
// events.
type ListCalendar struct {
	l      *list.List
	active int
}

// NewListCalendar returns a new ListCalendar
func NewListCalendar() *ListCalendar {
	c := new(ListCalendar)
	c.l = list.New()
	return c
}

// Insert adds an event after every event that is not served later than it.
func (c *ListCalendar) Insert(evt *Event) {
	var ele *list.Element

	for ele = c.l.Back(); ele != nil; ele = ele.Prev() {
		if !evt.before(ele.Value.(*Event)) {
			break
		}
	}

	if ele != nil {
		c.l.InsertAfter(evt, ele)
	} else {
		c.l.PushFront(evt)
	}

	c.active++
}

// Peek returns the earliest active event without removing it.
func (c *ListCalendar) Peek() *Event {
	c.dropCancelledHead()

	front := c.l.Front()
	if front == nil {
		return nil
	}

	return front.Value.(*Event)
}

// Pop returns the earliest active event, and removes it from the calendar.
func (c *ListCalendar) Pop() *Event {
	c.dropCancelledHead()

	front := c.l.Front()
	if front == nil {
		return nil
	}

	c.active--

	return c.l.Remove(front).(*Event)
}

func (c *ListCalendar) dropCancelledHead() {
	for front := c.l.Front(); front != nil; front = c.l.Front() {
		if !front.Value.(*Event).IsCancelled() {
			return
		}

		c.l.Remove(front)
	}
}

// Cancel marks an event as inactive. Cancelling twice is a no-op.
func (c *ListCalendar) Cancel(evt *Event) {
	if !evt.IsPending() {
		return
	}

	evt.state = eventCancelled
	c.active--
}

// Len return the number of active events in the calendar.
func (c *ListCalendar) Len() int {
	return c.active
}

// IsEmpty tells if there is no active event left.
func (c *ListCalendar) IsEmpty() bool {
	return c.active == 0
}

// Clear removes all the events.
func (c *ListCalendar) Clear() {
	for ele := c.l.Front(); ele != nil; ele = ele.Next() {
		ele.Value.(*Event).drop()
	}

	c.l.Init()
	c.active = 0
}
