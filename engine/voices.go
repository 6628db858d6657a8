package engine

import (
	"fmt"
	"math"

	"github.com/blcoyote/polysynth"
)

type (
	// VoiceAllocator owns the active-voice table: it creates and destroys
	// voices on note on/off, wires inter-voice FM and owns the master output
	// chain. A note index maps to at most one active voice; releasing defers
	// destruction until the release tail has elapsed.
	VoiceAllocator struct {
		backend polysynth.Backend
		patch   *polysynth.Patch
		cfg     *Config
		timers  *timerQueue
		router  *ModulationRouter
		alert   func(name, message string, priority AlertPriority)

		master  polysynth.GainNode
		filter  polysynth.FilterNode // optional master filter stage
		slotBus []polysynth.GainNode

		voices map[int]*voice
		nextID uint64
	}

	voice struct {
		note     int
		baseFreq float64 // immutable; octave edits recompute from this
		slots    []*slotVoice
		active   bool
		id       uint64 // generation counter; a stale cleanup never touches a reused index
		cleanup  *TimerHandle
	}

	slotVoice struct {
		slot   int // 1-based
		osc    polysynth.OscillatorNode
		volume polysynth.GainNode
		pan    polysynth.PanNode
		envOut polysynth.GainNode
		env    *Envelope
		fmSend polysynth.GainNode // nil unless this slot modulates the carrier
	}
)

func newVoiceAllocator(backend polysynth.Backend, patch *polysynth.Patch, cfg *Config, timers *timerQueue, router *ModulationRouter, alert func(string, string, AlertPriority)) *VoiceAllocator {
	a := &VoiceAllocator{
		backend: backend,
		patch:   patch,
		cfg:     cfg,
		timers:  timers,
		router:  router,
		alert:   alert,
		voices:  make(map[int]*voice),
	}
	now := backend.CurrentTime()
	a.master = backend.NewGain()
	a.master.Gain().SetValueAtTime(1, now)
	a.slotBus = make([]polysynth.GainNode, len(patch.Oscillators))
	for i := range a.slotBus {
		bus := backend.NewGain()
		bus.Gain().SetValueAtTime(1, now)
		bus.Connect(a.master)
		a.slotBus[i] = bus
	}
	a.rebuildMasterChain()
	return a
}

// rebuildMasterChain reconnects master -> [filter] -> destination
// deterministically from the current stage list. All master topology changes
// go through here.
func (a *VoiceAllocator) rebuildMasterChain() {
	a.master.Disconnect()
	if a.filter != nil {
		a.filter.Disconnect()
		a.master.Connect(a.filter)
		a.filter.Connect(a.backend.Destination())
		return
	}
	a.master.Connect(a.backend.Destination())
}

// SetMasterFilter inserts (or retunes) a filter stage between the master bus
// and the destination.
func (a *VoiceAllocator) SetMasterFilter(shape polysynth.FilterShape, cutoff, resonance float64) {
	now := a.backend.CurrentTime()
	if a.filter == nil {
		a.filter = a.backend.NewFilter()
	}
	a.filter.SetShape(shape)
	a.filter.Cutoff().SetValueAtTime(cutoff, now)
	a.filter.Resonance().SetValueAtTime(resonance, now)
	a.rebuildMasterChain()
}

// ClearMasterFilter removes the filter stage.
func (a *VoiceAllocator) ClearMasterFilter() {
	if a.filter == nil {
		return
	}
	a.filter.Disconnect()
	a.filter = nil
	a.rebuildMasterChain()
}

func (a *VoiceAllocator) now() float64 { return a.backend.CurrentTime() }

// PlayNote allocates and starts a voice for the note index immediately.
func (a *VoiceAllocator) PlayNote(note int, velocity float64) {
	a.PlayNoteAt(note, velocity, a.now())
}

// PlayNoteAt allocates and starts a voice at the given audio-clock time. If
// a voice already occupies the index, it is stopped and disconnected at that
// time first, so a retrigger never leaves a duplicate or zombie voice.
// Invalid note indices are a no-op with a diagnostic.
func (a *VoiceAllocator) PlayNoteAt(note int, velocity float64, when float64) {
	if !polysynth.ValidNote(note) {
		a.alert("PlayNote", fmt.Sprintf("invalid note index %v", note), Warning)
		return
	}
	if now := a.now(); when < now {
		when = now
	}
	if old, ok := a.voices[note]; ok {
		a.retireVoice(old, when)
	}
	a.nextID++
	v := &voice{
		note:     note,
		baseFreq: polysynth.NoteToFreq(note),
		active:   true,
		id:       a.nextID,
	}
	for i, cfg := range a.patch.Oscillators {
		if !cfg.Enabled {
			continue
		}
		sv := a.buildSlotVoice(i+1, cfg, v.baseFreq, when)
		sv.env.Trigger(velocity, when)
		v.slots = append(v.slots, sv)
		if a.router.Enabled() {
			a.router.addVoiceTargets(v.id, sv.slot, sv, cfg)
		}
	}
	a.applyFMRouting(v, when)
	a.voices[note] = v
}

func (a *VoiceAllocator) buildSlotVoice(slot int, cfg polysynth.OscConfig, baseFreq, when float64) *slotVoice {
	sv := &slotVoice{slot: slot}
	sv.osc = a.backend.NewOscillator()
	sv.osc.SetWaveform(cfg.Waveform)
	sv.osc.Frequency().SetValueAtTime(slotFrequency(baseFreq, cfg.Octave), when)
	sv.osc.Detune().SetValueAtTime(cfg.Detune, when)
	sv.volume = a.backend.NewGain()
	sv.volume.Gain().SetValueAtTime(cfg.Volume, when)
	sv.pan = a.backend.NewPan()
	sv.pan.Pan().SetValueAtTime(cfg.Pan, when)
	sv.envOut = a.backend.NewGain()
	sv.envOut.Gain().SetValueAtTime(0, when)
	sv.env = NewEnvelope(a.backend.CurrentTime, sv.envOut.Gain(), a.patch.Envelopes[slot-1])

	sv.osc.Connect(sv.volume)
	sv.volume.Connect(sv.pan)
	sv.pan.Connect(sv.envOut)
	sv.envOut.Connect(a.slotBus[slot-1])
	sv.osc.Start(when)
	return sv
}

// applyFMRouting routes every FM-enabled slot above 1 through a depth stage
// into slot 1's frequency parameter. Slot 1 is the only supported carrier;
// if it is absent, the FM legs are left unconnected.
func (a *VoiceAllocator) applyFMRouting(v *voice, when float64) {
	var carrier *slotVoice
	for _, sv := range v.slots {
		if sv.slot == 1 {
			carrier = sv
			break
		}
	}
	if carrier == nil {
		return
	}
	for _, sv := range v.slots {
		if sv.slot == 1 {
			continue
		}
		cfg := a.patch.Oscillators[sv.slot-1]
		if !cfg.FMEnabled || cfg.FMDepth == 0 {
			continue
		}
		send := a.backend.NewGain()
		send.Gain().SetValueAtTime(cfg.FMDepth, when)
		sv.osc.Connect(send)
		send.ConnectParam(carrier.osc.Frequency())
		sv.fmSend = send
	}
}

// ReleaseNote releases the note immediately.
func (a *VoiceAllocator) ReleaseNote(note int) {
	a.ReleaseNoteAt(note, a.now())
}

// ReleaseNoteAt triggers release on every child envelope at the given time,
// marks the voice inactive and schedules cleanup for after the longest
// release tail plus a safety margin. A repeated call cancels and replaces
// the previous cleanup timer. Absent notes are a no-op with a diagnostic.
func (a *VoiceAllocator) ReleaseNoteAt(note int, when float64) {
	v, ok := a.voices[note]
	if !ok {
		a.alert("ReleaseNote", fmt.Sprintf("no active voice for note %v", note), Notify)
		return
	}
	if now := a.now(); when < now {
		when = now
	}
	maxRelease := 0.0
	for _, sv := range v.slots {
		sv.env.TriggerRelease(when)
		maxRelease = math.Max(maxRelease, sv.env.ReleaseTime())
	}
	v.active = false
	if v.cleanup != nil {
		v.cleanup.Cancel()
	}
	id := v.id
	v.cleanup = a.timers.AfterAt(when+maxRelease+a.cfg.CleanupMargin, func(now float64) {
		cur, ok := a.voices[note]
		if !ok || cur.id != id {
			return
		}
		a.destroyVoice(cur, now)
	})
}

// retireVoice hands a superseded voice over to the timer queue: its
// oscillators stop at when, and the nodes stay connected until the audio
// clock reaches that time, so a look-ahead retrigger does not truncate the
// old note early. The table entry is freed immediately for the replacement.
func (a *VoiceAllocator) retireVoice(v *voice, when float64) {
	if v.cleanup != nil {
		v.cleanup.Cancel()
		v.cleanup = nil
	}
	a.router.removeVoiceTargets(v.id)
	delete(a.voices, v.note)
	slots := v.slots
	for _, sv := range slots {
		sv.osc.Stop(when)
	}
	// the closure holds the slots directly, so it can never touch whatever
	// voice occupies the note index by the time it fires
	a.timers.AfterAt(when, func(now float64) {
		for _, sv := range slots {
			sv.osc.Disconnect()
			if sv.fmSend != nil {
				sv.fmSend.Disconnect()
			}
			sv.volume.Disconnect()
			sv.pan.Disconnect()
			sv.env.Reset()
			sv.envOut.Disconnect()
		}
	})
}

// destroyVoice stops and disconnects every node of the voice, drops its
// modulation targets and removes the table entry.
func (a *VoiceAllocator) destroyVoice(v *voice, when float64) {
	if v.cleanup != nil {
		v.cleanup.Cancel()
		v.cleanup = nil
	}
	a.router.removeVoiceTargets(v.id)
	for _, sv := range v.slots {
		sv.osc.Stop(when)
		sv.osc.Disconnect()
		if sv.fmSend != nil {
			sv.fmSend.Disconnect()
		}
		sv.volume.Disconnect()
		sv.pan.Disconnect()
		sv.env.Reset()
		sv.envOut.Disconnect()
	}
	delete(a.voices, v.note)
}

// StopAllNotes tears down every voice immediately, with no release tail.
func (a *VoiceAllocator) StopAllNotes() {
	now := a.now()
	for _, v := range a.voices {
		a.destroyVoice(v, now)
	}
}

// UpdateActiveVoices broadcasts a volume/pan/detune/octave edit to the
// matching slot of every currently-sounding voice. Octave edits recompute
// the frequency from the voice's immutable base frequency, so live edits
// never re-trigger the note. Unknown parameters or slots are a no-op with a
// diagnostic.
func (a *VoiceAllocator) UpdateActiveVoices(slot int, param string, value float64) {
	if !a.patch.ValidSlot(slot) {
		a.alert("UpdateActiveVoices", fmt.Sprintf("no oscillator slot %v", slot), Warning)
		return
	}
	now := a.now()
	for _, v := range a.voices {
		for _, sv := range v.slots {
			if sv.slot != slot {
				continue
			}
			switch param {
			case "volume":
				sv.volume.Gain().SetValueAtTime(value, now)
			case "pan":
				sv.pan.Pan().SetValueAtTime(value, now)
			case "detune":
				sv.osc.Detune().SetValueAtTime(value, now)
			case "octave":
				sv.osc.Frequency().SetValueAtTime(slotFrequency(v.baseFreq, int(value)), now)
			default:
				a.alert("UpdateActiveVoices", fmt.Sprintf("unknown oscillator parameter %v", param), Warning)
				return
			}
		}
	}
}

// forEachEnvelope visits the envelope of the matching slot on every voice in
// the table.
func (a *VoiceAllocator) forEachEnvelope(slot int, f func(env *Envelope)) {
	for _, v := range a.voices {
		for _, sv := range v.slots {
			if sv.slot == slot {
				f(sv.env)
			}
		}
	}
}

// ActiveVoiceCount counts the voices in the table, including released voices
// whose tails are still sounding.
func (a *VoiceAllocator) ActiveVoiceCount() int { return len(a.voices) }

// Occupied tells whether a note index currently maps to a voice.
func (a *VoiceAllocator) Occupied(note int) bool {
	_, ok := a.voices[note]
	return ok
}

// Sustained tells whether a note index maps to a voice that has not been
// released yet.
func (a *VoiceAllocator) Sustained(note int) bool {
	v, ok := a.voices[note]
	return ok && v.active
}

// slotFrequency computes the playing frequency of a slot from the immutable
// base frequency and the slot's octave shift.
func slotFrequency(baseFreq float64, octave int) float64 {
	return baseFreq * math.Pow(2, float64(octave))
}
