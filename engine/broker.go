package engine

import (
	"time"
)

type (
	// Broker carries messages between the engine goroutine and the rest of
	// the application. The engine's state is confined to the goroutine
	// running Engine.Run; everything else talks to it through ToEngine.
	// Sends from the engine are always non-blocking so the engine can never
	// dead-lock on a slow listener.
	Broker struct {
		ToEngine chan any
		ToModel  chan MsgToModel
	}

	// MsgToModel is the engine's outbound status message. The frequently
	// sent fields are not boxed to avoid allocations; infrequent payloads
	// (Alert etc.) travel in Data.
	MsgToModel struct {
		Time         float64 // engine clock at send time
		ActiveVoices int

		Data any
	}

	// Alert is a diagnostic for expected misuse: unknown parameter names,
	// invalid note indices, operating on an already-stopped voice. These
	// originate from routine user interaction and must never interrupt
	// playback, so they are reported instead of returned as errors.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int
)

const (
	Notify AlertPriority = iota
	Warning
	Error
)

const defaultAlertDuration = 3 * time.Second

func NewBroker() *Broker {
	return &Broker{
		ToEngine: make(chan any, 1024),
		ToModel:  make(chan MsgToModel, 1024),
	}
}

// TrySend sends a value to a channel if it is not full. It is guaranteed to
// be non-blocking. Returns true if the value was sent.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from the channel, or until
// the timeout elapses. ok is false on timeout or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
