package engine

import "container/heap"

type (
	// timerQueue is a priority queue of deferred actions keyed by audio-clock
	// time. Every deferred action (note-off, voice cleanup) is tracked by a
	// cancellable handle and must be cancelled before being superseded, so a
	// stale callback can never act on a since-replaced voice.
	timerQueue struct {
		events timedEvents
		order  uint64
	}

	timedEvent struct {
		when   float64
		order  uint64 // insertion order breaks ties deterministically
		fn     func(now float64)
		handle *TimerHandle
	}

	timedEvents []timedEvent

	// TimerHandle cancels a deferred action. Cancelling an already-fired or
	// already-cancelled handle is a no-op.
	TimerHandle struct {
		cancelled bool
	}
)

func (h *TimerHandle) Cancel() { h.cancelled = true }

func (q *timerQueue) AfterAt(when float64, fn func(now float64)) *TimerHandle {
	h := &TimerHandle{}
	q.order++
	heap.Push(&q.events, timedEvent{when: when, order: q.order, fn: fn, handle: h})
	return h
}

// Run fires every due, non-cancelled action. Actions run in time order; ties
// fire in insertion order.
func (q *timerQueue) Run(now float64) {
	for len(q.events) > 0 && q.events[0].when <= now {
		ev := heap.Pop(&q.events).(timedEvent)
		if ev.handle.cancelled {
			continue
		}
		ev.fn(now)
	}
}

func (q *timerQueue) Len() int {
	n := 0
	for _, ev := range q.events {
		if !ev.handle.cancelled {
			n++
		}
	}
	return n
}

func (t timedEvents) Len() int { return len(t) }
func (t timedEvents) Less(i, j int) bool {
	if t[i].when != t[j].when {
		return t[i].when < t[j].when
	}
	return t[i].order < t[j].order
}
func (t timedEvents) Swap(i, j int) { t[i], t[j] = t[j], t[i] }

func (t *timedEvents) Push(x any) { *t = append(*t, x.(timedEvent)) }
func (t *timedEvents) Pop() any {
	old := *t
	n := len(old)
	ev := old[n-1]
	*t = old[:n-1]
	return ev
}
