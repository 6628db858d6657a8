package engine

import (
	"fmt"

	"github.com/blcoyote/polysynth"
)

// ParameterBridge is the single mutation point for patch parameters: it
// updates the shared future-note configuration and immediately propagates
// the edit to currently-sounding voices, so live edits never re-trigger a
// note. This path is driven by exploratory UI input, so unknown names or
// slots fail silently with a diagnostic instead of an error.
type ParameterBridge struct {
	patch  *polysynth.Patch
	voices *VoiceAllocator
	alert  func(name, message string, priority AlertPriority)
}

// SetOscParam writes an oscillator parameter into the shared config and
// broadcasts volume/pan/detune/octave to sounding voices. Waveform, enabled
// and FM settings only affect future notes, since they would require a
// re-trigger to apply.
func (b *ParameterBridge) SetOscParam(slot int, name string, value float64) {
	if !b.patch.ValidSlot(slot) {
		b.alert("SetOscParam", fmt.Sprintf("no oscillator slot %v", slot), Warning)
		return
	}
	cfg := &b.patch.Oscillators[slot-1]
	live := true
	switch name {
	case "volume":
		cfg.Volume = clamp(value, 0, 1)
		value = cfg.Volume
	case "pan":
		cfg.Pan = clamp(value, -1, 1)
		value = cfg.Pan
	case "detune":
		cfg.Detune = clamp(value, -100, 100)
		value = cfg.Detune
	case "octave":
		cfg.Octave = int(clamp(value, -3, 3))
		value = float64(cfg.Octave)
	case "waveform":
		w := polysynth.Waveform(int(value))
		if w < polysynth.Sine || w > polysynth.Square {
			b.alert("SetOscParam", fmt.Sprintf("unknown waveform %v", int(value)), Warning)
			return
		}
		cfg.Waveform = w
		live = false
	case "enabled":
		cfg.Enabled = value != 0
		live = false
	case "fmenabled":
		cfg.FMEnabled = value != 0
		live = false
	case "fmdepth":
		cfg.FMDepth = value
		live = false
	default:
		b.alert("SetOscParam", fmt.Sprintf("unknown oscillator parameter %v", name), Warning)
		return
	}
	if live {
		b.voices.UpdateActiveVoices(slot, name, value)
	}
}

// SetEnvParam writes an envelope parameter into the shared settings and
// propagates it to the envelopes of sounding voices on that slot. A sustain
// edit moves the held amplitude target of envelopes in the sustain phase
// without re-triggering attack or decay.
func (b *ParameterBridge) SetEnvParam(slot int, name string, value float64) {
	if !b.patch.ValidSlot(slot) {
		b.alert("SetEnvParam", fmt.Sprintf("no envelope slot %v", slot), Warning)
		return
	}
	settings := &b.patch.Envelopes[slot-1]
	switch name {
	case "attack":
		settings.Attack = clamp(value, polysynth.MinEnvTime, polysynth.MaxAttack)
	case "decay":
		settings.Decay = clamp(value, polysynth.MinEnvTime, polysynth.MaxDecay)
	case "sustain":
		settings.Sustain = clamp(value, 0, 1)
	case "release":
		settings.Release = clamp(value, polysynth.MinEnvTime, polysynth.MaxRelease)
	default:
		b.alert("SetEnvParam", fmt.Sprintf("unknown envelope parameter %v", name), Warning)
		return
	}
	b.voices.forEachEnvelope(slot, func(env *Envelope) {
		env.SetParameter(name, value)
	})
}
