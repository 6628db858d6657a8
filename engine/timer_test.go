package engine

import "testing"

func TestTimerQueueFiresInTimeOrder(t *testing.T) {
	var q timerQueue
	var fired []int
	q.AfterAt(3.0, func(now float64) { fired = append(fired, 3) })
	q.AfterAt(1.0, func(now float64) { fired = append(fired, 1) })
	q.AfterAt(2.0, func(now float64) { fired = append(fired, 2) })
	q.Run(2.5)
	if len(fired) != 2 || fired[0] != 1 || fired[1] != 2 {
		t.Errorf("fired %v, want [1 2]", fired)
	}
	q.Run(5)
	if len(fired) != 3 || fired[2] != 3 {
		t.Errorf("fired %v, want [1 2 3]", fired)
	}
}

func TestTimerQueueTiesFireInInsertionOrder(t *testing.T) {
	var q timerQueue
	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		q.AfterAt(1.0, func(now float64) { fired = append(fired, i) })
	}
	q.Run(1.0)
	for i, got := range fired {
		if got != i {
			t.Fatalf("fired %v, want insertion order", fired)
		}
	}
}

func TestTimerQueueCancel(t *testing.T) {
	var q timerQueue
	fired := false
	h := q.AfterAt(1.0, func(now float64) { fired = true })
	if q.Len() != 1 {
		t.Errorf("queue length = %v, want 1", q.Len())
	}
	h.Cancel()
	if q.Len() != 0 {
		t.Errorf("queue length after cancel = %v, want 0", q.Len())
	}
	q.Run(2)
	if fired {
		t.Error("cancelled timer fired")
	}
	h.Cancel() // cancelling again is a no-op
}
