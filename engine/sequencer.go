package engine

import (
	"fmt"

	"github.com/blcoyote/polysynth"
)

// defaultStepVelocity is used for steps whose velocity is left at zero.
const defaultStepVelocity = 0.8

// defaultRoot is middle C.
const defaultRoot = 60

// StepSequencer walks a stored step pattern through the look-ahead
// scheduler. Step pitches are intervals relative to the root note, so one
// pattern transposes with the keyboard: an external note-on retunes the
// root, and in key-gate mode the pattern only sounds while a key is down.
type StepSequencer struct {
	*scheduler
	alert   func(name, message string, priority AlertPriority)
	play    func(note int, velocity float64, when float64)
	release func(note int, when float64)

	pattern  polysynth.Pattern
	root     int
	keyGate  bool
	keyDown  bool
	lastNote int
}

func newStepSequencer(sched scheduler, alert func(string, string, AlertPriority), play func(int, float64, float64), release func(int, float64)) *StepSequencer {
	s := sched
	return &StepSequencer{
		scheduler: &s,
		alert:     alert,
		play:      play,
		release:   release,
		root:      defaultRoot,
		lastNote:  -1,
	}
}

func (s *StepSequencer) Start() {
	s.scheduler.start()
	s.lastNote = -1
}

// Stop halts scheduling and releases the note sounding in hold mode.
func (s *StepSequencer) Stop() {
	if !s.running {
		return
	}
	s.scheduler.stop()
	s.silence(s.clock())
}

// SetPattern replaces the stored pattern. The pattern is copied, so the
// caller may keep mutating its own slice.
func (s *StepSequencer) SetPattern(p polysynth.Pattern) {
	s.pattern = p.Copy()
}

// SetStep edits one step in place; out-of-range indices are a no-op with a
// diagnostic.
func (s *StepSequencer) SetStep(index int, step polysynth.Step) {
	if index < 0 || index >= len(s.pattern) {
		s.alert("Sequencer", fmt.Sprintf("no step %v in a %v-step pattern", index, len(s.pattern)), Warning)
		return
	}
	s.pattern[index] = step
}

func (s *StepSequencer) Pattern() polysynth.Pattern { return s.pattern.Copy() }

// SetRoot transposes the pattern to a new root note.
func (s *StepSequencer) SetRoot(note int) {
	if !polysynth.ValidNote(note) {
		s.alert("Sequencer", fmt.Sprintf("invalid root note %v", note), Warning)
		return
	}
	s.root = note
}

// SetKeyGate makes the pattern sound only while a key is held.
func (s *StepSequencer) SetKeyGate(enabled bool) { s.keyGate = enabled }

// NoteOn retunes the root and opens the key gate.
func (s *StepSequencer) NoteOn(note int) {
	s.SetRoot(note)
	s.keyDown = true
}

// NoteOff closes the key gate when the gating key is lifted.
func (s *StepSequencer) NoteOff(note int) {
	if note == s.root {
		s.keyDown = false
		if s.keyGate {
			s.silence(s.clock())
		}
	}
}

func (s *StepSequencer) tick(now float64) {
	s.scheduler.tick(now, func() int { return len(s.pattern) }, s.emit)
}

func (s *StepSequencer) emit(idx int, when, duration float64) {
	if s.keyGate && !s.keyDown {
		s.silence(when)
		return
	}
	step := s.pattern[idx]
	if !step.Gate {
		s.silence(when)
		return
	}
	note := s.root + step.Pitch
	if !polysynth.ValidNote(note) {
		s.alert("Sequencer", fmt.Sprintf("step %v transposes to note %v, out of range", idx, note), Notify)
		return
	}
	velocity := step.Velocity
	if velocity <= 0 {
		velocity = defaultStepVelocity
	}
	length := step.Length
	if length <= 0 {
		length = 1
	}
	if s.hold {
		if s.lastNote >= 0 && s.lastNote != note {
			s.release(s.lastNote, when)
		}
		s.play(note, velocity, when)
		s.lastNote = note
		return
	}
	s.play(note, velocity, when)
	s.release(note, when+duration*length*s.gate)
}

// silence releases the note sounding in hold mode, if any.
func (s *StepSequencer) silence(when float64) {
	if s.lastNote >= 0 {
		s.release(s.lastNote, when)
		s.lastNote = -1
	}
}
