package graph

import (
	"math"
	"sort"

	"github.com/viterin/vek/vek32"
)

type eventKind int

const (
	setValue eventKind = iota
	linearRamp
	exponentialRamp
)

type paramEvent struct {
	kind  eventKind
	value float64
	time  float64
}

// param is an automatable scalar with a sorted event timeline, in the Web
// Audio style: set-value events jump, ramp events interpolate from the
// previous event toward their own time. Audio-rate modulation inputs are
// summed on top of the timeline value.
type param struct {
	ctx     *Context
	initial float64
	events  []paramEvent
	inputs  []audioNode

	buf []float32 // per-quantum evaluation, reused
}

func newParam(ctx *Context, initial float64) *param {
	return &param{ctx: ctx, initial: initial, buf: make([]float32, quantum)}
}

func (p *param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(p.ctx.timeLocked())
}

func (p *param) SetValueAtTime(value, time float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: setValue, value: value, time: time})
}

func (p *param) LinearRampToValueAtTime(value, time float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: linearRamp, value: value, time: time})
}

func (p *param) ExponentialRampToValueAtTime(value, time float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.insert(paramEvent{kind: exponentialRamp, value: value, time: time})
}

// CancelScheduledValues drops all events at or after the given time. The
// value at that moment is not anchored; callers that need a glitch-free
// cancel follow up with SetValueAtTime of the current value.
func (p *param) CancelScheduledValues(time float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	kept := p.events[:0]
	for _, e := range p.events {
		if e.time < time {
			kept = append(kept, e)
		}
	}
	p.events = kept
}

// insert keeps the timeline sorted by time; among equal times, insertion
// order wins.
func (p *param) insert(e paramEvent) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > e.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
}

// valueAt evaluates the timeline at time t. Caller holds ctx.mu.
func (p *param) valueAt(t float64) float64 {
	v := p.initial
	prevTime := 0.0
	for _, e := range p.events {
		if e.time <= t {
			v = e.value
			prevTime = e.time
			continue
		}
		// e lies in the future; ramps approach it from (prevTime, v)
		switch e.kind {
		case linearRamp:
			return rampLinear(v, e.value, prevTime, e.time, t)
		case exponentialRamp:
			return rampExponential(v, e.value, prevTime, e.time, t)
		}
		return v
	}
	return v
}

func rampLinear(v0, v1, t0, t1, t float64) float64 {
	if t1 <= t0 {
		return v1
	}
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

// rampExponential degrades to a linear ramp when either endpoint is not
// strictly positive, where the exponential form is undefined.
func rampExponential(v0, v1, t0, t1, t float64) float64 {
	if t1 <= t0 {
		return v1
	}
	if v0 <= 0 || v1 <= 0 {
		return rampLinear(v0, v1, t0, t1, t)
	}
	return v0 * math.Pow(v1/v0, (t-t0)/(t1-t0))
}

// fill evaluates one quantum of the parameter into p.buf: the timeline per
// sample, plus any audio-rate modulation inputs. Caller holds ctx.mu.
func (p *param) fill(seq, startFrame int64) []float32 {
	rate := float64(p.ctx.sampleRate)
	for i := 0; i < quantum; i++ {
		p.buf[i] = float32(p.valueAt(float64(startFrame+int64(i)) / rate))
	}
	for _, in := range p.inputs {
		l, _ := in.process(seq, startFrame)
		vek32.Add_Inplace(p.buf, l)
	}
	return p.buf
}

func (p *param) addInput(n audioNode) {
	p.inputs = append(p.inputs, n)
}

func (p *param) removeInput(n audioNode) {
	for i, in := range p.inputs {
		if in == n {
			p.inputs = append(p.inputs[:i], p.inputs[i+1:]...)
			return
		}
	}
}
