package polysynth

import (
	"errors"
	"fmt"
)

// NumSlots is how many oscillator slots a patch carries. Slot 1 is the FM
// carrier; higher slots can act as FM modulators.
const NumSlots = 2

type (
	// Patch is the shared, mutable configuration for future notes. Voices
	// copy the relevant values at note-on time; a sounding voice is never
	// silently altered by editing the patch, only through explicit
	// propagation (ParameterBridge -> UpdateActiveVoices).
	Patch struct {
		Oscillators []OscConfig   `yaml:",flow"`
		Envelopes   []EnvSettings `yaml:",flow"`
	}

	// OscConfig is the per-slot oscillator configuration.
	OscConfig struct {
		Enabled   bool
		Waveform  Waveform
		Octave    int     // -3..3, shifts the note frequency by 2^Octave
		Detune    float64 // cents, -100..100
		Volume    float64 // 0..1
		Pan       float64 // -1..1
		FMEnabled bool    `yaml:"fmenabled,omitempty"`
		FMDepth   float64 `yaml:"fmdepth,omitempty"` // Hz added to the carrier frequency
	}

	// EnvSettings is the per-slot amplitude envelope configuration, in
	// seconds (attack, decay, release) and level 0..1 (sustain).
	EnvSettings struct {
		Attack  float64
		Decay   float64
		Sustain float64
		Release float64
	}
)

// Envelope parameter limits. Attack and decay clamp to [1ms,2s], release to
// [1ms,5s]; sustain is a level, not a duration.
const (
	MinEnvTime = 0.001
	MaxAttack  = 2
	MaxDecay   = 2
	MaxRelease = 5
)

func DefaultPatch() Patch {
	p := Patch{
		Oscillators: make([]OscConfig, NumSlots),
		Envelopes:   make([]EnvSettings, NumSlots),
	}
	for i := range p.Oscillators {
		p.Oscillators[i] = OscConfig{Enabled: i == 0, Waveform: Sawtooth, Volume: 0.5}
		p.Envelopes[i] = EnvSettings{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}
	}
	return p
}

func (p *Patch) Copy() Patch {
	oscillators := make([]OscConfig, len(p.Oscillators))
	copy(oscillators, p.Oscillators)
	envelopes := make([]EnvSettings, len(p.Envelopes))
	copy(envelopes, p.Envelopes)
	return Patch{Oscillators: oscillators, Envelopes: envelopes}
}

// ValidSlot tells whether slot (1-based) exists in the patch.
func (p *Patch) ValidSlot(slot int) bool {
	return slot >= 1 && slot <= len(p.Oscillators)
}

func (p *Patch) Validate() error {
	if len(p.Oscillators) == 0 {
		return errors.New("patch has no oscillator slots")
	}
	if len(p.Oscillators) != len(p.Envelopes) {
		return fmt.Errorf("patch has %v oscillator slots but %v envelopes", len(p.Oscillators), len(p.Envelopes))
	}
	for i, o := range p.Oscillators {
		if o.Volume < 0 || o.Volume > 1 {
			return fmt.Errorf("slot %v volume %v out of range 0..1", i+1, o.Volume)
		}
		if o.Pan < -1 || o.Pan > 1 {
			return fmt.Errorf("slot %v pan %v out of range -1..1", i+1, o.Pan)
		}
	}
	return nil
}

func (e *EnvSettings) Clamp() {
	e.Attack = clamp(e.Attack, MinEnvTime, MaxAttack)
	e.Decay = clamp(e.Decay, MinEnvTime, MaxDecay)
	e.Sustain = clamp(e.Sustain, 0, 1)
	e.Release = clamp(e.Release, MinEnvTime, MaxRelease)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
