package engine

import (
	"math"
	"testing"

	"github.com/blcoyote/polysynth"
)

func TestSetOscParamClampsAndPropagates(t *testing.T) {
	e, backend, _ := newTestEngine(polysynth.DefaultPatch())
	e.voices.PlayNote(60, 0.8)
	e.bridge.SetOscParam(1, "volume", 1.7)
	if got := e.patch.Oscillators[0].Volume; got != 1 {
		t.Errorf("stored volume = %v, want clamped to 1", got)
	}
	// slot 1 voice chain: osc -> volume -> pan -> envOut
	volume := backend.gains[len(backend.gains)-2]
	if ev, ok := volume.gain.last("set"); !ok || ev.value != 1 {
		t.Errorf("live voice volume = %v, want 1", ev.value)
	}
	e.bridge.SetOscParam(1, "pan", -2)
	if got := e.patch.Oscillators[0].Pan; got != -1 {
		t.Errorf("stored pan = %v, want clamped to -1", got)
	}
	if ev, ok := backend.pans[0].pan.last("set"); !ok || ev.value != -1 {
		t.Errorf("live voice pan = %v, want -1", ev.value)
	}
}

func TestSetOscParamFutureOnlySettings(t *testing.T) {
	e, backend, _ := newTestEngine(polysynth.DefaultPatch())
	e.voices.PlayNote(60, 0.8)
	before := backend.oscs[0].waveform
	e.bridge.SetOscParam(1, "waveform", float64(polysynth.Square))
	if e.patch.Oscillators[0].Waveform != polysynth.Square {
		t.Error("waveform not stored for future notes")
	}
	if backend.oscs[0].waveform != before {
		t.Error("waveform edit re-shaped a sounding voice")
	}
	e.bridge.SetOscParam(2, "enabled", 1)
	if !e.patch.Oscillators[1].Enabled {
		t.Error("enabled flag not stored")
	}
}

func TestSetOscParamRejectsUnknown(t *testing.T) {
	e, _, alerts := newTestEngine(polysynth.DefaultPatch())
	e.bridge.SetOscParam(1, "resonance", 1)
	e.bridge.SetOscParam(9, "volume", 1)
	e.bridge.SetOscParam(1, "waveform", 17)
	if alerts.count() != 3 {
		t.Errorf("invalid edits produced %v alerts, want 3", alerts.count())
	}
}

func TestSetEnvParamPropagatesToEngagedEnvelopes(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.voices.PlayNote(60, 0.8)
	e.bridge.SetEnvParam(1, "release", 1.5)
	if got := e.patch.Envelopes[0].Release; got != 1.5 {
		t.Errorf("stored release = %v, want 1.5", got)
	}
	var envRelease float64
	e.voices.forEachEnvelope(1, func(env *Envelope) {
		envRelease = env.ReleaseTime()
	})
	if envRelease != 1.5 {
		t.Errorf("live envelope release = %v, want 1.5", envRelease)
	}
}

func TestSetEnvParamSustainMovesHeldLevel(t *testing.T) {
	e, backend, _ := newTestEngine(polysynth.DefaultPatch())
	e.voices.PlayNote(60, 0.8)
	backend.advance(1) // well past attack+decay
	e.bridge.SetEnvParam(1, "sustain", 0.25)
	var sv *slotVoice
	for _, s := range e.voices.voices[60].slots {
		if s.slot == 1 {
			sv = s
		}
	}
	envOut := sv.envOut.(*fakeGain)
	ev, ok := envOut.gain.last("linear")
	if !ok {
		t.Fatal("sustain edit scheduled no ramp on the envelope output")
	}
	if want := 0.25 * 0.8; math.Abs(ev.value-want) > 1e-9 {
		t.Errorf("sustain retarget ramps to %v, want %v", ev.value, want)
	}
}

func TestSetEnvParamClampsAndRejects(t *testing.T) {
	e, _, alerts := newTestEngine(polysynth.DefaultPatch())
	e.bridge.SetEnvParam(1, "attack", -5)
	if got := e.patch.Envelopes[0].Attack; got != polysynth.MinEnvTime {
		t.Errorf("stored attack = %v, want clamped to %v", got, polysynth.MinEnvTime)
	}
	e.bridge.SetEnvParam(1, "curve", 2)
	e.bridge.SetEnvParam(0, "attack", 0.1)
	if alerts.count() != 2 {
		t.Errorf("invalid edits produced %v alerts, want 2", alerts.count())
	}
}
