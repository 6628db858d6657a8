package engine

import (
	"math/rand"
	"time"

	"github.com/blcoyote/polysynth"
)

// scheduler is the look-ahead core shared by the arpeggiator and the step
// sequencer. On every cooperative tick it schedules all events that fall
// inside the look-ahead window at their precise audio-clock timestamps; the
// imprecise wall-clock tick only decides when to enqueue, never when a note
// sounds. If the next event time has fallen further behind the clock than
// the drift tolerance (tab suspension, GC pause), it snaps to "now" instead
// of bursting a backlog of missed events.
type scheduler struct {
	clock func() float64
	cfg   *Config
	rand  *rand.Rand

	tempo    float64 // BPM, 40..300
	division int     // steps per whole note; 16 means sixteenth notes
	swing    float64 // 0..0.5, lengthens even steps and shortens odd ones
	gate     float64 // 0..1, fraction of a step during which a note sounds
	hold     bool    // legato: a note releases only when the next one fires
	mode     polysynth.TraversalMode

	running  bool
	paused   bool
	nextTime float64
	cursor   int
	dir      int // ping-pong direction
	count    int // steps since start, for swing parity and bar counting
}

const (
	minTempo = 40
	maxTempo = 300
)

func newScheduler(clock func() float64, cfg *Config) scheduler {
	return scheduler{
		clock:    clock,
		cfg:      cfg,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		tempo:    120,
		division: 16,
		gate:     0.8,
		dir:      1,
	}
}

func (s *scheduler) start() {
	s.running = true
	s.paused = false
	s.nextTime = s.clock()
	s.cursor = 0
	s.dir = 1
	s.count = 0
}

func (s *scheduler) stop() { s.running = false }

// Pause keeps the cursor position but stops enqueuing events.
func (s *scheduler) Pause() {
	if s.running {
		s.paused = true
	}
}

// Resume continues from the paused position; the next event time is pulled
// up to the current clock so the pause gap is not replayed.
func (s *scheduler) Resume() {
	if !s.running || !s.paused {
		return
	}
	s.paused = false
	if now := s.clock(); s.nextTime < now {
		s.nextTime = now
	}
}

func (s *scheduler) Running() bool { return s.running && !s.paused }

func (s *scheduler) SetTempo(bpm float64)                 { s.tempo = clamp(bpm, minTempo, maxTempo) }
func (s *scheduler) Tempo() float64                       { return s.tempo }
func (s *scheduler) SetSwing(amount float64)              { s.swing = clamp(amount, 0, 0.5) }
func (s *scheduler) SetGateLength(gate float64)           { s.gate = clamp(gate, 0.05, 1) }
func (s *scheduler) SetHold(hold bool)                    { s.hold = hold }
func (s *scheduler) SetMode(mode polysynth.TraversalMode) { s.mode = mode }
func (s *scheduler) Mode() polysynth.TraversalMode        { return s.mode }

func (s *scheduler) SetDivision(division int) {
	if division < 1 {
		division = 1
	}
	s.division = division
}

// tick enqueues every event whose time falls before now+LookAhead. length is
// re-read each iteration so live pattern edits take effect mid-window; a
// zero length produces silent steps that keep the grid advancing.
func (s *scheduler) tick(now float64, length func() int, emit func(index int, when, duration float64)) {
	if !s.running || s.paused {
		return
	}
	if s.nextTime < now-s.cfg.DriftTolerance {
		s.nextTime = now
	}
	for s.nextTime < now+s.cfg.LookAhead {
		duration := s.stepDuration()
		if l := length(); l > 0 {
			emit(s.index(l), s.nextTime, duration)
			s.advance(l)
		}
		s.nextTime += duration
		s.count++
	}
}

// stepDuration derives the step length from tempo and division, with swing
// applied on alternate steps.
func (s *scheduler) stepDuration() float64 {
	base := 60 / s.tempo * 4 / float64(s.division)
	if s.swing == 0 {
		return base
	}
	if s.count%2 == 0 {
		return base * (1 + s.swing)
	}
	return base * (1 - s.swing)
}

func (s *scheduler) index(length int) int {
	switch s.mode {
	case polysynth.Reverse:
		return ((length-1-s.cursor)%length + length) % length
	case polysynth.PingPong:
		if s.cursor >= length {
			s.cursor = length - 1
		}
		return s.cursor
	case polysynth.Random:
		return s.rand.Intn(length)
	default: // Forward
		return s.cursor % length
	}
}

func (s *scheduler) advance(length int) {
	switch s.mode {
	case polysynth.PingPong:
		if length == 1 {
			s.cursor = 0
			return
		}
		next := s.cursor + s.dir
		if next >= length {
			s.dir = -1
			next = length - 2
		} else if next < 0 {
			s.dir = 1
			next = 1
		}
		s.cursor = next
	case polysynth.Random:
		// independent draw each step, no persistent cursor
	default: // Forward, Reverse
		s.cursor = (s.cursor + 1) % length
	}
}
