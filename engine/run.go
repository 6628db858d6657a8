package engine

import (
	"context"
	"fmt"
	"time"
)

// Messages accepted on Broker.ToEngine. Any other application goroutine can
// also send a bare func(*Engine) to run arbitrary work on the engine
// goroutine.
type (
	NoteOnMsg struct {
		Note     int
		Velocity float64
	}

	NoteOffMsg struct {
		Note int
	}

	PanicMsg struct{}

	OscParamMsg struct {
		Slot  int
		Name  string
		Value float64
	}

	EnvParamMsg struct {
		Slot  int
		Name  string
		Value float64
	}
)

// Run confines the engine to the calling goroutine: it ticks the engine at
// the configured interval and applies inbound broker messages between
// ticks, until the context is cancelled. All voices are stopped on the way
// out.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	defer e.voices.StopAllNotes()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		case msg := <-e.broker.ToEngine:
			e.processMessage(msg)
		}
	}
}

func (e *Engine) processMessage(msg any) {
	switch m := msg.(type) {
	case NoteOnMsg:
		e.NoteOn(m.Note, m.Velocity)
	case NoteOffMsg:
		e.NoteOff(m.Note)
	case PanicMsg:
		e.Panic()
	case OscParamMsg:
		e.bridge.SetOscParam(m.Slot, m.Name, m.Value)
	case EnvParamMsg:
		e.bridge.SetEnvParam(m.Slot, m.Name, m.Value)
	case func(*Engine):
		m(e)
	default:
		e.alert("Engine", fmt.Sprintf("unknown message type %T", msg), Error)
	}
}
