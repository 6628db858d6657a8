package polysynth

type (
	// Step is one cell of a stored sequencer pattern. Pitch is an interval in
	// semitones relative to the root note, so a stored pattern transposes
	// with the keyboard.
	Step struct {
		Gate     bool
		Pitch    int     // semitones relative to the root note
		Velocity float64 // 0..1
		Length   float64 // in steps; 0 means 1
	}

	// Pattern is an ordered list of steps.
	Pattern []Step

	// Chord is a set of intervals in semitones above a root, used by the
	// arpeggiator's chord progression.
	Chord []int
)

func (p Pattern) Copy() Pattern {
	steps := make(Pattern, len(p))
	copy(steps, p)
	return steps
}

// TraversalMode tells how a scheduler cursor walks its sequence.
type TraversalMode int

const (
	Forward TraversalMode = iota
	Reverse
	// PingPong bounces between the endpoints without sounding an endpoint
	// twice in a row.
	PingPong
	// Random draws an independent index every step and never advances the
	// cursor.
	Random
)

// ArpOrder tells how the arpeggiator expands the held notes into a playing
// sequence before the cursor walks it.
type ArpOrder int

const (
	ArpUp ArpOrder = iota
	ArpDown
	// ArpUpDown ascends then descends, sounding neither endpoint twice.
	ArpUpDown
	// ArpUpDownRepeat ascends then descends, repeating the top note.
	ArpUpDownRepeat
	// ArpConverge interleaves from both ends inward.
	ArpConverge
	// ArpDiverge interleaves from the middle outward.
	ArpDiverge
	// ArpPinchedUp plays the extremes first, then the remainder ascending.
	ArpPinchedUp
	// ArpPinchedDown plays the extremes first, then the remainder descending.
	ArpPinchedDown
)

// Common chords, as interval sets.
var (
	ChordMajor      = Chord{0, 4, 7}
	ChordMinor      = Chord{0, 3, 7}
	ChordMajor7     = Chord{0, 4, 7, 11}
	ChordMinor7     = Chord{0, 3, 7, 10}
	ChordDominant7  = Chord{0, 4, 7, 10}
	ChordDiminished = Chord{0, 3, 6}
)
