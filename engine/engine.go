package engine

import (
	"fmt"

	"github.com/blcoyote/polysynth"
)

// Engine is the real-time control core of the synthesizer: it owns the
// voice allocator, the pattern schedulers, the modulation router and the
// parameter bridge, and drives their deferred work from a single
// cooperative Tick. The engine never computes a sample; it schedules
// parameter automation on the rendering backend at precise audio-clock
// timestamps.
//
// The engine is not safe for concurrent use: all methods must be called
// from one goroutine. Run confines the engine to its own goroutine and
// accepts work through the broker.
type Engine struct {
	backend polysynth.Backend
	cfg     Config
	broker  *Broker
	patch   polysynth.Patch
	timers  timerQueue

	router *ModulationRouter
	voices *VoiceAllocator
	bridge *ParameterBridge
	arp    *Arpeggiator
	seq    *StepSequencer
}

// New builds an engine against a ready rendering backend. Using the control
// core before the backend exists is a caller bug, not runtime data, so a
// nil backend panics instead of returning an error.
func New(backend polysynth.Backend, broker *Broker, patch polysynth.Patch, cfg Config) *Engine {
	if backend == nil {
		panic("engine.New: rendering backend is not ready")
	}
	if err := patch.Validate(); err != nil {
		panic(fmt.Sprintf("engine.New: invalid patch: %v", err))
	}
	if broker == nil {
		broker = NewBroker()
	}
	e := &Engine{
		backend: backend,
		cfg:     cfg,
		broker:  broker,
		patch:   patch.Copy(),
	}
	e.router = NewModulationRouter(backend, e.alert)
	e.voices = newVoiceAllocator(backend, &e.patch, &e.cfg, &e.timers, e.router, e.alert)
	e.bridge = &ParameterBridge{patch: &e.patch, voices: e.voices, alert: e.alert}
	e.arp = newArpeggiator(newScheduler(backend.CurrentTime, &e.cfg), e.alert, e.voices.PlayNoteAt, e.voices.ReleaseNoteAt)
	e.seq = newStepSequencer(newScheduler(backend.CurrentTime, &e.cfg), e.alert, e.voices.PlayNoteAt, e.voices.ReleaseNoteAt)
	return e
}

func (e *Engine) Voices() *VoiceAllocator       { return e.voices }
func (e *Engine) Modulation() *ModulationRouter { return e.router }
func (e *Engine) Params() *ParameterBridge      { return e.bridge }
func (e *Engine) Arpeggiator() *Arpeggiator     { return e.arp }
func (e *Engine) Sequencer() *StepSequencer     { return e.seq }
func (e *Engine) Broker() *Broker               { return e.broker }
func (e *Engine) Patch() polysynth.Patch        { return e.patch.Copy() }
func (e *Engine) CurrentTime() float64          { return e.backend.CurrentTime() }

// Tick is the engine's cooperative heartbeat: it fires due deferred actions
// (voice cleanups, note offs) and lets the schedulers enqueue the next
// look-ahead window. Sonic timing does not depend on when Tick runs; a late
// Tick only delays the next scheduling decision.
func (e *Engine) Tick() {
	now := e.backend.CurrentTime()
	e.timers.Run(now)
	e.arp.tick(now)
	e.seq.tick(now)
	e.publish(nil)
}

// NoteOn routes an external note-on: to the arpeggiator's held set while it
// runs, to the sequencer's gate/transpose while that runs, and directly to
// the voice allocator otherwise.
func (e *Engine) NoteOn(note int, velocity float64) {
	switch {
	case e.arp.Running():
		e.arp.NoteOn(note, velocity)
	case e.seq.Running():
		e.seq.NoteOn(note)
	default:
		e.voices.PlayNote(note, velocity)
	}
}

func (e *Engine) NoteOff(note int) {
	switch {
	case e.arp.Running():
		e.arp.NoteOff(note)
	case e.seq.Running():
		e.seq.NoteOff(note)
	default:
		e.voices.ReleaseNote(note)
	}
}

// Panic stops both schedulers and tears down every voice with no release
// tail.
func (e *Engine) Panic() {
	e.arp.Stop()
	e.seq.Stop()
	e.voices.StopAllNotes()
}

func (e *Engine) alert(name, message string, priority AlertPriority) {
	e.publish(Alert{Name: name, Priority: priority, Message: message, Duration: defaultAlertDuration})
}

// publish sends a non-blocking status message to the model side.
func (e *Engine) publish(data any) {
	voices := 0
	if e.voices != nil {
		voices = e.voices.ActiveVoiceCount()
	}
	TrySend(e.broker.ToModel, MsgToModel{
		Time:         e.backend.CurrentTime(),
		ActiveVoices: voices,
		Data:         data,
	})
}
