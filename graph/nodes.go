package graph

import (
	"fmt"
	"math"

	"github.com/blcoyote/polysynth"
	"github.com/viterin/vek/vek32"
)

// audioNode is the render-side face of a node: produce one quantum of
// stereo output, memoized per render pass.
type audioNode interface {
	process(seq, startFrame int64) (left, right []float32)
}

// nodeInput is anything audio can be routed into: a node's input bus or an
// automatable parameter.
type nodeInput interface {
	addInput(audioNode)
	removeInput(audioNode)
}

// silence is shared read-only zero output, returned when a feedback cycle
// is broken mid-traversal.
var silence = make([]float32, quantum)

type baseNode struct {
	ctx    *Context
	self   audioNode
	inputs []audioNode
	outs   []nodeInput

	seq         int64
	rendering   bool
	left, right []float32
}

func (b *baseNode) addInput(n audioNode) {
	b.inputs = append(b.inputs, n)
}

func (b *baseNode) removeInput(n audioNode) {
	for i, in := range b.inputs {
		if in == n {
			b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
			return
		}
	}
}

func (b *baseNode) Connect(dst polysynth.Node) error {
	t, ok := dst.(nodeInput)
	if !ok {
		return fmt.Errorf("cannot connect to a node of type %T", dst)
	}
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	t.addInput(b.self)
	b.outs = append(b.outs, t)
	return nil
}

func (b *baseNode) ConnectParam(dst polysynth.Param) error {
	t, ok := dst.(*param)
	if !ok {
		return fmt.Errorf("cannot connect to a parameter of type %T", dst)
	}
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	t.addInput(b.self)
	b.outs = append(b.outs, t)
	return nil
}

// Disconnect detaches the node from every destination it was connected to.
// Upstream connections into this node are left alone.
func (b *baseNode) Disconnect() {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	for _, out := range b.outs {
		out.removeInput(b.self)
	}
	b.outs = b.outs[:0]
}

// begin starts a render pass for the node: it reports whether cached or
// cycle-breaking output should be returned instead of recomputing.
func (b *baseNode) begin(seq int64) (l, r []float32, done bool) {
	if b.rendering {
		return silence, silence, true
	}
	if b.seq == seq {
		return b.left, b.right, true
	}
	if b.left == nil {
		b.left = make([]float32, quantum)
		b.right = make([]float32, quantum)
	}
	b.rendering = true
	return nil, nil, false
}

func (b *baseNode) end(seq int64) {
	b.seq = seq
	b.rendering = false
}

// sumInputs mixes all input nodes into the node's own buffers.
func (b *baseNode) sumInputs(seq, startFrame int64) {
	zero(b.left)
	zero(b.right)
	for _, in := range b.inputs {
		l, r := in.process(seq, startFrame)
		vek32.Add_Inplace(b.left, l)
		vek32.Add_Inplace(b.right, r)
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// busNode sums its inputs; the context's destination is one.
type busNode struct {
	baseNode
}

func (n *busNode) process(seq, startFrame int64) ([]float32, []float32) {
	if l, r, done := n.begin(seq); done {
		return l, r
	}
	n.sumInputs(seq, startFrame)
	n.end(seq)
	return n.left, n.right
}

// oscNode generates one of four classic waveforms. Frequency is an
// audio-rate parameter, so FM through ConnectParam is sample-accurate;
// detune is in cents on top of it.
type oscNode struct {
	baseNode
	waveform  polysynth.Waveform
	freq      *param
	detune    *param
	phase     float64
	startTime float64 // -1 until Start
	stopTime  float64 // -1 until Stop
}

func (n *oscNode) Frequency() polysynth.Param { return n.freq }
func (n *oscNode) Detune() polysynth.Param    { return n.detune }

func (n *oscNode) SetWaveform(w polysynth.Waveform) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.waveform = w
}

func (n *oscNode) Start(time float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if n.startTime < 0 {
		n.startTime = time
	}
}

func (n *oscNode) Stop(time float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.stopTime = time
}

func (n *oscNode) process(seq, startFrame int64) ([]float32, []float32) {
	if l, r, done := n.begin(seq); done {
		return l, r
	}
	fbuf := n.freq.fill(seq, startFrame)
	dbuf := n.detune.fill(seq, startFrame)
	rate := float64(n.ctx.sampleRate)
	for i := 0; i < quantum; i++ {
		t := float64(startFrame+int64(i)) / rate
		if n.startTime < 0 || t < n.startTime || (n.stopTime >= 0 && t >= n.stopTime) {
			n.left[i] = 0
			n.right[i] = 0
			continue
		}
		s := float32(sample(n.waveform, n.phase))
		n.left[i] = s
		n.right[i] = s
		f := float64(fbuf[i]) * math.Pow(2, float64(dbuf[i])/1200)
		n.phase += f / rate
		n.phase -= math.Floor(n.phase)
	}
	n.end(seq)
	return n.left, n.right
}

func sample(w polysynth.Waveform, phase float64) float64 {
	switch w {
	case polysynth.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case polysynth.Sawtooth:
		return 2*phase - 1
	case polysynth.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	default: // Sine
		return math.Sin(2 * math.Pi * phase)
	}
}

// gainNode scales the mix of its inputs by the gain parameter, evaluated
// per sample so envelope ramps are free of zipper noise.
type gainNode struct {
	baseNode
	gain *param
}

func (n *gainNode) Gain() polysynth.Param { return n.gain }

func (n *gainNode) process(seq, startFrame int64) ([]float32, []float32) {
	if l, r, done := n.begin(seq); done {
		return l, r
	}
	n.sumInputs(seq, startFrame)
	g := n.gain.fill(seq, startFrame)
	vek32.Mul_Inplace(n.left, g)
	vek32.Mul_Inplace(n.right, g)
	n.end(seq)
	return n.left, n.right
}

// panNode places a mono mix of its inputs in the stereo field with an
// equal-power law; -1 is hard left, +1 hard right.
type panNode struct {
	baseNode
	pan *param
}

func (n *panNode) Pan() polysynth.Param { return n.pan }

func (n *panNode) process(seq, startFrame int64) ([]float32, []float32) {
	if l, r, done := n.begin(seq); done {
		return l, r
	}
	n.sumInputs(seq, startFrame)
	p := n.pan.fill(seq, startFrame)
	for i := 0; i < quantum; i++ {
		mono := (n.left[i] + n.right[i]) / 2
		theta := (float64(p[i]) + 1) * math.Pi / 4
		n.left[i] = mono * float32(math.Cos(theta))
		n.right[i] = mono * float32(math.Sin(theta))
	}
	n.end(seq)
	return n.left, n.right
}
