package sequencer

import (
	"sort"
	"sync"
)

// Queue holds pending events ordered by tick. Events on the same tick keep
// the order they were added in. It is safe for concurrent use.
type Queue struct {
	events []Event
	mu     sync.Mutex
	sorted bool
}

func NewQueue() *Queue {
	return &Queue{
		events: make([]Event, 0, 128),
		sorted: true,
	}
}

func (q *Queue) Add(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n := len(q.events); n > 0 && q.events[n-1].Tick() > event.Tick() {
		q.sorted = false
	}
	q.events = append(q.events, event)
}

func (q *Queue) AddMultiple(events []Event) {
	for _, e := range events {
		q.Add(e)
	}
}

// Due removes and returns the events whose tick is at or before tick.
func (q *Queue) Due(tick int64) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.sorted {
		q.sortEvents()
	}

	n := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].Tick() > tick
	})
	if n == 0 {
		return nil
	}

	due := make([]Event, n)
	copy(due, q.events[:n])
	copy(q.events, q.events[n:])
	for i := len(q.events) - n; i < len(q.events); i++ {
		q.events[i] = nil
	}
	q.events = q.events[:len(q.events)-n]
	return due
}

// Peek returns the earliest pending tick.
func (q *Queue) Peek() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return 0, false
	}
	if !q.sorted {
		q.sortEvents()
	}
	return q.events[0].Tick(), true
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.events)
	q.events = q.events[:0]
	q.sorted = true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue) sortEvents() {
	sort.SliceStable(q.events, func(i, j int) bool {
		return q.events[i].Tick() < q.events[j].Tick()
	})
	q.sorted = true
}
