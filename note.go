package polysynth

import "math"

// MIDI-style note numbering: 0..127, with A4 = 69 = 440 Hz.
const (
	MinNote = 0
	MaxNote = 127
	NoteA4  = 69
	FreqA4  = 440.0
)

// ValidNote tells whether note is a playable note index.
func ValidNote(note int) bool {
	return note >= MinNote && note <= MaxNote
}

// NoteToFreq returns the equal-tempered base frequency of a note index.
func NoteToFreq(note int) float64 {
	return FreqA4 * math.Pow(2, float64(note-NoteA4)/12)
}
