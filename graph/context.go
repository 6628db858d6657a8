// Package graph implements the rendering backend of the synthesizer: an
// audio node graph with sample-accurate parameter automation, pulled into
// interleaved stereo float32 buffers by the output driver.
//
// The graph has two kinds of callers on two goroutines: the engine mutates
// topology and schedules automation, the output driver renders. A single
// mutex on the Context is the boundary between them; no node or parameter
// may be touched without it.
package graph

import (
	"fmt"
	"sync"

	"github.com/blcoyote/polysynth"
)

// quantum is the number of frames rendered per graph traversal. Automation
// is evaluated per sample, but topology and filter coefficients are fixed
// within a quantum.
const quantum = 128

// Context owns the node graph and the audio clock. The clock advances only
// when audio is rendered, so the engine's scheduled times always refer to
// positions in the output stream rather than wall time.
type Context struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64 // frames rendered so far
	seq        int64 // current render pass, for per-node output caching
	dest       *busNode

	// leftover samples of a quantum that did not fit the caller's buffer
	pending []float32
	scratch [2 * quantum]float32
}

func NewContext(sampleRate int) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	c := &Context{sampleRate: sampleRate}
	c.dest = &busNode{baseNode: baseNode{ctx: c}}
	c.dest.self = c.dest
	return c, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }

// CurrentTime returns the audio-clock time in seconds: the position of the
// render head in the output stream. It is monotonic and advances only with
// rendering.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLocked()
}

func (c *Context) timeLocked() float64 {
	return float64(c.frame) / float64(c.sampleRate)
}

func (c *Context) Destination() polysynth.Node { return c.dest }

func (c *Context) NewOscillator() polysynth.OscillatorNode {
	o := &oscNode{baseNode: baseNode{ctx: c}, waveform: polysynth.Sine, startTime: -1, stopTime: -1}
	o.self = o
	o.freq = newParam(c, 440)
	o.detune = newParam(c, 0)
	return o
}

func (c *Context) NewGain() polysynth.GainNode {
	g := &gainNode{baseNode: baseNode{ctx: c}}
	g.self = g
	g.gain = newParam(c, 1)
	return g
}

func (c *Context) NewPan() polysynth.PanNode {
	p := &panNode{baseNode: baseNode{ctx: c}}
	p.self = p
	p.pan = newParam(c, 0)
	return p
}

func (c *Context) NewFilter() polysynth.FilterNode {
	f := &filterNode{baseNode: baseNode{ctx: c}, shape: polysynth.Lowpass}
	f.self = f
	f.cutoff = newParam(c, 1000)
	f.resonance = newParam(c, 0.7)
	return f
}

// ReadAudio renders the graph into an interleaved stereo float32 buffer,
// advancing the audio clock. It always fills the whole buffer; an idle
// graph renders silence.
func (c *Context) ReadAudio(buffer []float32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filled := 0
	for filled < len(buffer) {
		if len(c.pending) == 0 {
			c.renderQuantum()
		}
		n := copy(buffer[filled:], c.pending)
		c.pending = c.pending[n:]
		filled += n
	}
	return filled, nil
}

// renderQuantum traverses the graph once and leaves one quantum of
// interleaved samples in c.pending.
func (c *Context) renderQuantum() {
	c.seq++
	left, right := c.dest.process(c.seq, c.frame)
	for i := 0; i < quantum; i++ {
		c.scratch[2*i] = left[i]
		c.scratch[2*i+1] = right[i]
	}
	c.pending = c.scratch[:]
	c.frame += quantum
}
