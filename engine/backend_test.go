package engine

import (
	"github.com/blcoyote/polysynth"
)

// fakeBackend is a manual-clock backend that records every node and every
// automation event, so tests can assert on what the engine scheduled
// without rendering a single sample.
type fakeBackend struct {
	time    float64
	oscs    []*fakeOsc
	gains   []*fakeGain
	pans    []*fakePan
	filters []*fakeFilter
	dest    fakeDest

	// when set, ConnectParam on subsequently created gains fails with it
	gainConnectErr error
}

func (b *fakeBackend) advance(dt float64) { b.time += dt }

func (b *fakeBackend) CurrentTime() float64 { return b.time }

func (b *fakeBackend) NewOscillator() polysynth.OscillatorNode {
	o := &fakeOsc{}
	b.oscs = append(b.oscs, o)
	return o
}

func (b *fakeBackend) NewGain() polysynth.GainNode {
	g := &fakeGain{}
	g.connectErr = b.gainConnectErr
	b.gains = append(b.gains, g)
	return g
}

func (b *fakeBackend) NewPan() polysynth.PanNode {
	p := &fakePan{}
	b.pans = append(b.pans, p)
	return p
}

func (b *fakeBackend) NewFilter() polysynth.FilterNode {
	f := &fakeFilter{}
	b.filters = append(b.filters, f)
	return f
}

func (b *fakeBackend) Destination() polysynth.Node { return &b.dest }

type fakeEvent struct {
	kind  string // set, linear, exp, cancel
	value float64
	time  float64
}

// fakeParam records the automation timeline. Value() returns the target of
// the most recent value-carrying event, as if all ramps had completed.
type fakeParam struct {
	current float64
	events  []fakeEvent
}

func (p *fakeParam) Value() float64 { return p.current }

func (p *fakeParam) SetValueAtTime(value, time float64) {
	p.events = append(p.events, fakeEvent{kind: "set", value: value, time: time})
	p.current = value
}

func (p *fakeParam) LinearRampToValueAtTime(value, time float64) {
	p.events = append(p.events, fakeEvent{kind: "linear", value: value, time: time})
	p.current = value
}

func (p *fakeParam) ExponentialRampToValueAtTime(value, time float64) {
	p.events = append(p.events, fakeEvent{kind: "exp", value: value, time: time})
	p.current = value
}

func (p *fakeParam) CancelScheduledValues(time float64) {
	p.events = append(p.events, fakeEvent{kind: "cancel", time: time})
}

// last returns the most recent event of the given kind.
func (p *fakeParam) last(kind string) (fakeEvent, bool) {
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].kind == kind {
			return p.events[i], true
		}
	}
	return fakeEvent{}, false
}

type fakeNode struct {
	nodeTargets  []polysynth.Node
	paramTargets []polysynth.Param
	disconnects  int
	connectErr   error
}

func (n *fakeNode) Connect(dst polysynth.Node) error {
	n.nodeTargets = append(n.nodeTargets, dst)
	return nil
}

func (n *fakeNode) ConnectParam(dst polysynth.Param) error {
	if n.connectErr != nil {
		return n.connectErr
	}
	n.paramTargets = append(n.paramTargets, dst)
	return nil
}

func (n *fakeNode) Disconnect() {
	n.disconnects++
	n.nodeTargets = nil
	n.paramTargets = nil
}

type fakeOsc struct {
	fakeNode
	freq     fakeParam
	detune   fakeParam
	waveform polysynth.Waveform
	starts   []float64
	stops    []float64
}

func (o *fakeOsc) Frequency() polysynth.Param       { return &o.freq }
func (o *fakeOsc) Detune() polysynth.Param          { return &o.detune }
func (o *fakeOsc) SetWaveform(w polysynth.Waveform) { o.waveform = w }
func (o *fakeOsc) Start(time float64)               { o.starts = append(o.starts, time) }
func (o *fakeOsc) Stop(time float64)                { o.stops = append(o.stops, time) }

type fakeGain struct {
	fakeNode
	gain fakeParam
}

func (g *fakeGain) Gain() polysynth.Param { return &g.gain }

type fakePan struct {
	fakeNode
	pan fakeParam
}

func (p *fakePan) Pan() polysynth.Param { return &p.pan }

type fakeFilter struct {
	fakeNode
	cutoff    fakeParam
	resonance fakeParam
	shape     polysynth.FilterShape
}

func (f *fakeFilter) Cutoff() polysynth.Param          { return &f.cutoff }
func (f *fakeFilter) Resonance() polysynth.Param       { return &f.resonance }
func (f *fakeFilter) SetShape(s polysynth.FilterShape) { f.shape = s }

type fakeDest struct {
	fakeNode
}

type alertRecorder struct {
	alerts []Alert
}

func (r *alertRecorder) record(name, message string, priority AlertPriority) {
	r.alerts = append(r.alerts, Alert{Name: name, Priority: priority, Message: message})
}

func (r *alertRecorder) count() int { return len(r.alerts) }

// newTestEngine builds an engine on a fake backend and reroutes its alerts
// into a recorder.
func newTestEngine(patch polysynth.Patch) (*Engine, *fakeBackend, *alertRecorder) {
	backend := &fakeBackend{}
	e := New(backend, NewBroker(), patch, DefaultConfig())
	recorder := &alertRecorder{}
	e.router.alert = recorder.record
	e.voices.alert = recorder.record
	e.bridge.alert = recorder.record
	e.arp.alert = recorder.record
	e.seq.alert = recorder.record
	return e, backend, recorder
}
