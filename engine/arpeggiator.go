package engine

import (
	"fmt"
	"sort"

	"github.com/blcoyote/polysynth"
)

type (
	// Arpeggiator converts the currently held note set into a timed stream
	// of note events: held notes × order × octave span generate a playing
	// sequence, and the look-ahead scheduler walks it.
	Arpeggiator struct {
		*scheduler
		alert   func(name, message string, priority AlertPriority)
		play    func(note int, velocity float64, when float64)
		release func(note int, when float64)

		held    []heldNote // insertion order
		order   polysynth.ArpOrder
		octaves int

		// optional chord progression: every barsPerChord bars the held set
		// is replaced with root + the next chord's intervals
		chords       []polysynth.Chord
		barsPerChord int
		chordIdx     int
		chordSteps   int

		notes    []heldNote // generated playing sequence
		dirty    bool
		lastNote int // sounding note in hold mode, -1 when none
	}

	heldNote struct {
		note     int
		velocity float64
	}
)

func newArpeggiator(sched scheduler, alert func(string, string, AlertPriority), play func(int, float64, float64), release func(int, float64)) *Arpeggiator {
	s := sched
	return &Arpeggiator{
		scheduler: &s,
		alert:     alert,
		play:      play,
		release:   release,
		octaves:   1,
		lastNote:  -1,
	}
}

func (a *Arpeggiator) Start() {
	a.scheduler.start()
	a.lastNote = -1
	a.chordIdx = 0
	a.chordSteps = 0
	a.dirty = true
}

// Stop halts scheduling and releases the note sounding in hold mode. Note
// offs already scheduled for non-hold notes still fire on their own.
func (a *Arpeggiator) Stop() {
	if !a.running {
		return
	}
	a.scheduler.stop()
	if a.lastNote >= 0 {
		a.release(a.lastNote, a.clock())
		a.lastNote = -1
	}
}

// NoteOn adds a note to the held set; re-pressing updates its velocity.
func (a *Arpeggiator) NoteOn(note int, velocity float64) {
	if !polysynth.ValidNote(note) {
		a.alert("Arpeggiator", fmt.Sprintf("invalid note index %v", note), Warning)
		return
	}
	for i := range a.held {
		if a.held[i].note == note {
			a.held[i].velocity = velocity
			return
		}
	}
	a.held = append(a.held, heldNote{note: note, velocity: velocity})
	a.dirty = true
}

// NoteOff removes a note from the held set.
func (a *Arpeggiator) NoteOff(note int) {
	for i := range a.held {
		if a.held[i].note == note {
			a.held = append(a.held[:i], a.held[i+1:]...)
			a.dirty = true
			return
		}
	}
}

func (a *Arpeggiator) SetOrder(order polysynth.ArpOrder) {
	a.order = order
	a.dirty = true
}

func (a *Arpeggiator) SetOctaves(octaves int) {
	if octaves < 1 {
		octaves = 1
	} else if octaves > 4 {
		octaves = 4
	}
	a.octaves = octaves
	a.dirty = true
}

// SetChordProgression cycles the arpeggiated chord every barsPerChord bars.
// Nil chords disables the progression and arpeggiates the held set again.
func (a *Arpeggiator) SetChordProgression(chords []polysynth.Chord, barsPerChord int) {
	if barsPerChord < 1 {
		barsPerChord = 1
	}
	a.chords = chords
	a.barsPerChord = barsPerChord
	a.chordIdx = 0
	a.chordSteps = 0
	a.dirty = true
}

func (a *Arpeggiator) tick(now float64) {
	if a.dirty {
		a.regenerate()
		a.dirty = false
	}
	a.scheduler.tick(now, func() int { return len(a.notes) }, a.emit)
}

func (a *Arpeggiator) emit(idx int, when, duration float64) {
	if len(a.chords) > 0 {
		// bar length in steps follows from the division: `division` steps
		// per 4/4 bar
		if a.chordSteps >= a.division*a.barsPerChord {
			a.chordSteps = 0
			a.chordIdx = (a.chordIdx + 1) % len(a.chords)
			a.regenerate()
			if len(a.notes) == 0 {
				return
			}
			idx %= len(a.notes)
		}
		a.chordSteps++
	}
	n := a.notes[idx]
	if a.hold {
		if a.lastNote >= 0 && a.lastNote != n.note {
			a.release(a.lastNote, when)
		}
		a.play(n.note, n.velocity, when)
		a.lastNote = n.note
		return
	}
	a.play(n.note, n.velocity, when)
	a.release(n.note, when+duration*a.gate)
}

// regenerate rebuilds the playing sequence from the input note set: chord
// progression or held notes, expanded over the octave span, then reordered.
func (a *Arpeggiator) regenerate() {
	var base []heldNote
	if len(a.chords) > 0 {
		root, ok := a.lowestHeld()
		if !ok {
			a.notes = a.notes[:0]
			return
		}
		chord := a.chords[a.chordIdx]
		for _, interval := range chord {
			note := root.note + interval
			if polysynth.ValidNote(note) {
				base = append(base, heldNote{note: note, velocity: root.velocity})
			}
		}
	} else {
		base = append(base, a.held...)
	}
	sort.Slice(base, func(i, j int) bool { return base[i].note < base[j].note })
	ascending := make([]heldNote, 0, len(base)*a.octaves)
	for o := 0; o < a.octaves; o++ {
		for _, n := range base {
			note := n.note + 12*o
			if polysynth.ValidNote(note) {
				ascending = append(ascending, heldNote{note: note, velocity: n.velocity})
			}
		}
	}
	a.notes = reorder(ascending, a.order)
}

func (a *Arpeggiator) lowestHeld() (heldNote, bool) {
	if len(a.held) == 0 {
		return heldNote{}, false
	}
	lowest := a.held[0]
	for _, n := range a.held[1:] {
		if n.note < lowest.note {
			lowest = n
		}
	}
	return lowest, true
}

// reorder expands an ascending note list into the playing order. The cursor
// then walks the result with the scheduler's traversal mode, so e.g. up-down
// is expressed as a longer forward sequence rather than cursor gymnastics.
func reorder(asc []heldNote, order polysynth.ArpOrder) []heldNote {
	n := len(asc)
	if n <= 1 {
		return asc
	}
	switch order {
	case polysynth.ArpDown:
		return reversed(asc)
	case polysynth.ArpUpDown:
		// ascend, then descend without repeating either endpoint
		out := append([]heldNote{}, asc...)
		for i := n - 2; i >= 1; i-- {
			out = append(out, asc[i])
		}
		return out
	case polysynth.ArpUpDownRepeat:
		// ascend, then descend repeating the top note
		out := append([]heldNote{}, asc...)
		for i := n - 1; i >= 1; i-- {
			out = append(out, asc[i])
		}
		return out
	case polysynth.ArpConverge:
		out := make([]heldNote, 0, n)
		for lo, hi := 0, n-1; lo <= hi; lo, hi = lo+1, hi-1 {
			out = append(out, asc[lo])
			if lo != hi {
				out = append(out, asc[hi])
			}
		}
		return out
	case polysynth.ArpDiverge:
		out := make([]heldNote, 0, n)
		mid := (n - 1) / 2
		out = append(out, asc[mid])
		for d := 1; len(out) < n; d++ {
			if mid+d < n {
				out = append(out, asc[mid+d])
			}
			if mid-d >= 0 {
				out = append(out, asc[mid-d])
			}
		}
		return out
	case polysynth.ArpPinchedUp:
		out := []heldNote{asc[0], asc[n-1]}
		return append(out, asc[1:n-1]...)
	case polysynth.ArpPinchedDown:
		out := []heldNote{asc[0], asc[n-1]}
		return append(out, reversed(asc[1:n-1])...)
	default: // ArpUp
		return asc
	}
}

func reversed(notes []heldNote) []heldNote {
	out := make([]heldNote, len(notes))
	for i, n := range notes {
		out[len(notes)-1-i] = n
	}
	return out
}
