// Package oto adapts the synthesizer's audio sources to the oto output
// driver, which pulls rendered audio into the platform's sound device.
package oto

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/blcoyote/polysynth"
	"github.com/ebitengine/oto/v3"
)

type OtoContext struct {
	context *oto.Context
}

// NewContext opens the audio device for pull-based stereo float32 output
// and waits until it is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context}, nil
}

// Play starts pulling audio from the source into the device. The source's
// ReadAudio is called from the driver's own goroutine.
func (c *OtoContext) Play(src polysynth.AudioSource) polysynth.CloserWaiter {
	p := &otoPlayback{done: make(chan struct{})}
	p.player = c.context.NewPlayer(&sourceReader{src: src, done: p.done})
	p.player.Play()
	return p
}

func (c *OtoContext) Close() error {
	// oto contexts cannot be closed; the device stays open until exit
	return nil
}

type otoPlayback struct {
	player *oto.Player
	done   chan struct{}
}

func (p *otoPlayback) Close() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// Wait blocks until the source reports an error or the playback is closed.
func (p *otoPlayback) Wait() {
	<-p.done
}

// sourceReader converts the float32 sample stream into the little-endian
// byte stream oto pulls.
type sourceReader struct {
	src  polysynth.AudioSource
	done chan struct{}
	buf  []float32
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	m, err := r.src.ReadAudio(r.buf[:n])
	for i := 0; i < m; i++ {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(r.buf[i]))
	}
	if err != nil {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
	return 4 * m, err
}
