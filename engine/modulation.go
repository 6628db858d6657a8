package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blcoyote/polysynth"
)

type (
	// ModulationRouter drives any number of named, depth/baseline-scaled
	// targets from one shared periodic generator. All targets share the
	// generator's phase, so co-enabled modulations (vibrato + tremolo) stay
	// synchronized. The generator output is scaled by a per-target depth
	// stage and added on top of the baseline written to the parameter.
	ModulationRouter struct {
		backend polysynth.Backend
		alert   func(name, message string, priority AlertPriority)

		lfo      polysynth.OscillatorNode // nil while disabled
		waveform polysynth.Waveform
		rate     float64
		enabled  bool

		targets map[string]*modTarget

		// depths for the targets registered per sounding voice; zero depth
		// means that kind of voice modulation is off
		voiceDepths VoiceModDepths
	}

	modTarget struct {
		name     string
		param    polysynth.Param
		depth    float64
		baseline float64
		enabled  bool
		send     polysynth.GainNode // depth stage between the generator and the param
	}

	// VoiceModDepths are the depths of the modulation targets added for each
	// sounding voice: pitch in cents of detune, volume as gain, pan as
	// stereo position offset.
	VoiceModDepths struct {
		Pitch  float64
		Volume float64
		Pan    float64
	}
)

const defaultLFORate = 5 // Hz

func NewModulationRouter(backend polysynth.Backend, alert func(name, message string, priority AlertPriority)) *ModulationRouter {
	return &ModulationRouter{
		backend:  backend,
		alert:    alert,
		waveform: polysynth.Sine,
		rate:     defaultLFORate,
		targets:  make(map[string]*modTarget),
	}
}

// AddTarget registers (or, for an existing name, replaces) a modulation
// target. The baseline is written to the parameter immediately; the
// generator's value times depth rides on top of it while enabled.
func (m *ModulationRouter) AddTarget(name string, param polysynth.Param, depth, baseline float64) {
	now := m.backend.CurrentTime()
	if old, ok := m.targets[name]; ok {
		old.send.Disconnect()
		delete(m.targets, name)
	}
	t := &modTarget{name: name, param: param, depth: depth, baseline: baseline, enabled: true}
	t.send = m.backend.NewGain()
	t.send.Gain().SetValueAtTime(depth, now)
	if err := t.send.ConnectParam(param); err != nil {
		m.alert("ModTarget", fmt.Sprintf("cannot connect modulation target %v: %v", name, err), Warning)
		m.rebuild()
		return
	}
	param.SetValueAtTime(baseline, now)
	m.targets[name] = t
	m.rebuild()
}

// RemoveTarget unregisters a target; the parameter stays at its baseline.
// Unknown names are a no-op with a diagnostic.
func (m *ModulationRouter) RemoveTarget(name string) {
	t, ok := m.targets[name]
	if !ok {
		m.alert("ModTarget", fmt.Sprintf("no modulation target named %v", name), Notify)
		return
	}
	t.send.Disconnect()
	t.param.SetValueAtTime(t.baseline, m.backend.CurrentTime())
	delete(m.targets, name)
	m.rebuild()
}

func (m *ModulationRouter) SetTargetDepth(name string, depth float64) {
	t, ok := m.targets[name]
	if !ok {
		m.alert("ModTarget", fmt.Sprintf("no modulation target named %v", name), Notify)
		return
	}
	t.depth = depth
	t.send.Gain().SetValueAtTime(depth, m.backend.CurrentTime())
}

func (m *ModulationRouter) SetTargetBaseline(name string, baseline float64) {
	t, ok := m.targets[name]
	if !ok {
		m.alert("ModTarget", fmt.Sprintf("no modulation target named %v", name), Notify)
		return
	}
	t.baseline = baseline
	t.param.SetValueAtTime(baseline, m.backend.CurrentTime())
}

func (m *ModulationRouter) SetTargetEnabled(name string, enabled bool) {
	t, ok := m.targets[name]
	if !ok {
		m.alert("ModTarget", fmt.Sprintf("no modulation target named %v", name), Notify)
		return
	}
	t.enabled = enabled
	m.rebuild()
}

// Target returns the stored depth and baseline of a target, for inspection.
func (m *ModulationRouter) Target(name string) (depth, baseline float64, ok bool) {
	t, found := m.targets[name]
	if !found {
		return 0, 0, false
	}
	return t.depth, t.baseline, true
}

func (m *ModulationRouter) Enabled() bool { return m.enabled }

// SetEnabled starts or stops the shared generator. Disabling leaves every
// parameter at its baseline.
func (m *ModulationRouter) SetEnabled(enabled bool) {
	if enabled == m.enabled {
		return
	}
	m.enabled = enabled
	if enabled {
		m.start()
	} else {
		m.stop()
	}
}

func (m *ModulationRouter) SetRate(rate float64) {
	m.rate = rate
	if m.lfo != nil {
		m.lfo.Frequency().SetValueAtTime(rate, m.backend.CurrentTime())
	}
}

// SetWaveform changes the generator shape. While running, the generator is
// restarted so the new shape begins at phase zero for every target.
func (m *ModulationRouter) SetWaveform(w polysynth.Waveform) {
	m.waveform = w
	if m.lfo != nil {
		m.stop()
		m.start()
	}
}

func (m *ModulationRouter) start() {
	now := m.backend.CurrentTime()
	m.lfo = m.backend.NewOscillator()
	m.lfo.SetWaveform(m.waveform)
	m.lfo.Frequency().SetValueAtTime(m.rate, now)
	m.rebuild()
	m.lfo.Start(now)
}

func (m *ModulationRouter) stop() {
	if m.lfo == nil {
		return
	}
	now := m.backend.CurrentTime()
	m.lfo.Stop(now)
	m.lfo.Disconnect()
	m.lfo = nil
	for _, t := range m.targets {
		t.param.SetValueAtTime(t.baseline, now)
	}
}

// rebuild reconnects the generator to every enabled target's depth stage,
// deterministically from the target table. Topology changes always go
// through here instead of imperative connect/disconnect calls scattered by
// call site.
func (m *ModulationRouter) rebuild() {
	if m.lfo == nil {
		return
	}
	m.lfo.Disconnect()
	names := make([]string, 0, len(m.targets))
	for name := range m.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := m.targets[name]
		if !t.enabled {
			continue
		}
		if err := m.lfo.Connect(t.send); err != nil {
			m.alert("ModTarget", fmt.Sprintf("cannot route generator to %v: %v", name, err), Warning)
		}
	}
}

func (m *ModulationRouter) SetVoiceDepths(d VoiceModDepths) { m.voiceDepths = d }

// addVoiceTargets registers the per-voice modulation targets for one slot
// voice. Called at note-on when the router is globally enabled.
func (m *ModulationRouter) addVoiceTargets(voiceID uint64, slot int, sv *slotVoice, cfg polysynth.OscConfig) {
	prefix := voiceTargetPrefix(voiceID)
	if m.voiceDepths.Pitch != 0 {
		m.AddTarget(fmt.Sprintf("%vslot%v/pitch", prefix, slot), sv.osc.Detune(), m.voiceDepths.Pitch, cfg.Detune)
	}
	if m.voiceDepths.Volume != 0 {
		m.AddTarget(fmt.Sprintf("%vslot%v/volume", prefix, slot), sv.volume.Gain(), m.voiceDepths.Volume, cfg.Volume)
	}
	if m.voiceDepths.Pan != 0 {
		m.AddTarget(fmt.Sprintf("%vslot%v/pan", prefix, slot), sv.pan.Pan(), m.voiceDepths.Pan, cfg.Pan)
	}
}

// removeVoiceTargets drops every target registered for a voice, the instant
// that voice is cleaned up, so the generator never writes into a destroyed
// parameter.
func (m *ModulationRouter) removeVoiceTargets(voiceID uint64) {
	prefix := voiceTargetPrefix(voiceID)
	changed := false
	for name, t := range m.targets {
		if strings.HasPrefix(name, prefix) {
			t.send.Disconnect()
			delete(m.targets, name)
			changed = true
		}
	}
	if changed {
		m.rebuild()
	}
}

func voiceTargetPrefix(voiceID uint64) string {
	return fmt.Sprintf("voice%v/", voiceID)
}
