package graph

import (
	"math"

	"github.com/blcoyote/polysynth"
)

// filterNode is a biquad with lowpass, highpass and bandpass responses.
// Cutoff and resonance are read at the start of every quantum; automation
// within a quantum lands on the next one, which at 128 frames is well under
// the audible smoothing threshold.
type filterNode struct {
	baseNode
	shape     polysynth.FilterShape
	cutoff    *param
	resonance *param

	b0, b1, b2, a1, a2 float64
	stateL, stateR     biquadState
}

type biquadState struct {
	z1, z2 float64
}

func (n *filterNode) Cutoff() polysynth.Param    { return n.cutoff }
func (n *filterNode) Resonance() polysynth.Param { return n.resonance }

func (n *filterNode) SetShape(s polysynth.FilterShape) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.shape = s
	n.stateL = biquadState{}
	n.stateR = biquadState{}
}

func (n *filterNode) process(seq, startFrame int64) ([]float32, []float32) {
	if l, r, done := n.begin(seq); done {
		return l, r
	}
	n.sumInputs(seq, startFrame)
	rate := float64(n.ctx.sampleRate)
	t := float64(startFrame) / rate
	n.updateCoefficients(n.cutoff.valueAt(t), n.resonance.valueAt(t), rate)
	for i := 0; i < quantum; i++ {
		n.left[i] = float32(n.stateL.step(float64(n.left[i]), n))
		n.right[i] = float32(n.stateR.step(float64(n.right[i]), n))
	}
	n.end(seq)
	return n.left, n.right
}

// step runs one sample through the transposed direct form II biquad.
func (s *biquadState) step(x float64, n *filterNode) float64 {
	y := n.b0*x + s.z1
	s.z1 = n.b1*x - n.a1*y + s.z2
	s.z2 = n.b2*x - n.a2*y
	return y
}

func (n *filterNode) updateCoefficients(cutoff, q, rate float64) {
	nyquist := rate / 2
	cutoff = math.Min(math.Max(cutoff, 10), nyquist*0.99)
	q = math.Max(q, 0.0001)
	w := 2 * math.Pi * cutoff / rate
	sinw, cosw := math.Sin(w), math.Cos(w)
	alpha := sinw / (2 * q)
	var b0, b1, b2 float64
	switch n.shape {
	case polysynth.Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = b0
	case polysynth.Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default: // Lowpass
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = b0
	}
	a0 := 1 + alpha
	n.b0 = b0 / a0
	n.b1 = b1 / a0
	n.b2 = b2 / a0
	n.a1 = -2 * cosw / a0
	n.a2 = (1 - alpha) / a0
}
