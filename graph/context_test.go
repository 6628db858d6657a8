package graph

import (
	"math"
	"testing"

	"github.com/blcoyote/polysynth"
)

func render(t *testing.T, ctx *Context, frames int) (left, right []float32) {
	t.Helper()
	buf := make([]float32, 2*frames)
	n, err := ctx.ReadAudio(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("ReadAudio filled %v of %v samples", n, len(buf))
	}
	left = make([]float32, frames)
	right = make([]float32, frames)
	for i := 0; i < frames; i++ {
		left[i] = buf[2*i]
		right[i] = buf[2*i+1]
	}
	return left, right
}

func peak(buf []float32) float64 {
	max := 0.0
	for _, s := range buf {
		if v := math.Abs(float64(s)); v > max {
			max = v
		}
	}
	return max
}

func TestContextClockAdvancesWithRendering(t *testing.T) {
	ctx, err := NewContext(44100)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.CurrentTime() != 0 {
		t.Errorf("fresh context time = %v, want 0", ctx.CurrentTime())
	}
	render(t, ctx, 44100)
	if got := ctx.CurrentTime(); math.Abs(got-1) > float64(quantum)/44100 {
		t.Errorf("time after 1s of audio = %v, want ~1", got)
	}
}

func TestContextRejectsBadSampleRate(t *testing.T) {
	if _, err := NewContext(0); err == nil {
		t.Error("zero sample rate accepted")
	}
}

func TestIdleGraphRendersSilence(t *testing.T) {
	ctx, _ := NewContext(44100)
	left, right := render(t, ctx, 512)
	if peak(left) != 0 || peak(right) != 0 {
		t.Error("idle graph rendered a nonzero sample")
	}
}

func TestOscillatorSoundsOnlyBetweenStartAndStop(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(440, 0)
	if err := osc.Connect(ctx.Destination()); err != nil {
		t.Fatal(err)
	}
	left, _ := render(t, ctx, 1024)
	if peak(left) != 0 {
		t.Error("oscillator sounded before Start")
	}
	osc.Start(ctx.CurrentTime())
	osc.Stop(ctx.CurrentTime() + 0.1)
	left, _ = render(t, ctx, 1024)
	if peak(left) < 0.5 {
		t.Errorf("running oscillator peak = %v, want near full scale", peak(left))
	}
	// pass the stop time, then expect silence again
	render(t, ctx, 44100/10)
	left, _ = render(t, ctx, 1024)
	if peak(left) != 0 {
		t.Error("oscillator sounded after Stop")
	}
}

func TestOscillatorFrequency(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(100, 0)
	osc.Connect(ctx.Destination())
	osc.Start(0)
	left, _ := render(t, ctx, 44100)
	// count rising zero crossings over one second
	crossings := 0
	for i := 1; i < len(left); i++ {
		if left[i-1] <= 0 && left[i] > 0 {
			crossings++
		}
	}
	if crossings < 99 || crossings > 101 {
		t.Errorf("%v cycles in one second, want ~100", crossings)
	}
}

func TestGainScalesSignal(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(440, 0)
	gain := ctx.NewGain()
	gain.Gain().SetValueAtTime(0.25, 0)
	osc.Connect(gain)
	gain.Connect(ctx.Destination())
	osc.Start(0)
	left, _ := render(t, ctx, 4096)
	if p := peak(left); p < 0.2 || p > 0.26 {
		t.Errorf("scaled peak = %v, want ~0.25", p)
	}
}

func TestPanHardLeftSilencesRight(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(440, 0)
	pan := ctx.NewPan()
	pan.Pan().SetValueAtTime(-1, 0)
	osc.Connect(pan)
	pan.Connect(ctx.Destination())
	osc.Start(0)
	left, right := render(t, ctx, 4096)
	if peak(left) < 0.5 {
		t.Errorf("left peak = %v, want the signal", peak(left))
	}
	if peak(right) > 1e-6 {
		t.Errorf("right peak = %v, want silence", peak(right))
	}
}

func TestDisconnectSilencesBranch(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(440, 0)
	osc.Connect(ctx.Destination())
	osc.Start(0)
	left, _ := render(t, ctx, 1024)
	if peak(left) == 0 {
		t.Fatal("oscillator made no sound")
	}
	osc.Disconnect()
	left, _ = render(t, ctx, 1024)
	if peak(left) != 0 {
		t.Error("disconnected branch still audible")
	}
}

func TestLowpassWithHighCutoffPassesSignal(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(200, 0)
	filter := ctx.NewFilter()
	filter.SetShape(polysynth.Lowpass)
	filter.Cutoff().SetValueAtTime(18000, 0)
	osc.Connect(filter)
	filter.Connect(ctx.Destination())
	osc.Start(0)
	left, _ := render(t, ctx, 8192)
	if p := peak(left); p < 0.8 {
		t.Errorf("peak through a wide-open lowpass = %v, want near unity", p)
	}
}

func TestLowpassAttenuatesAboveCutoff(t *testing.T) {
	ctx, _ := NewContext(44100)
	osc := ctx.NewOscillator()
	osc.Frequency().SetValueAtTime(8000, 0)
	filter := ctx.NewFilter()
	filter.SetShape(polysynth.Lowpass)
	filter.Cutoff().SetValueAtTime(200, 0)
	osc.Connect(filter)
	filter.Connect(ctx.Destination())
	osc.Start(0)
	render(t, ctx, 4096) // let the filter settle
	left, _ := render(t, ctx, 8192)
	if p := peak(left); p > 0.1 {
		t.Errorf("peak of 8kHz through a 200Hz lowpass = %v, want heavily attenuated", p)
	}
}

func TestNodeFeedsParam(t *testing.T) {
	ctx, _ := NewContext(44100)
	carrier := ctx.NewOscillator()
	carrier.Frequency().SetValueAtTime(440, 0)
	mod := ctx.NewOscillator()
	mod.Frequency().SetValueAtTime(5, 0)
	depth := ctx.NewGain()
	depth.Gain().SetValueAtTime(100, 0)
	mod.Connect(depth)
	if err := depth.ConnectParam(carrier.Frequency()); err != nil {
		t.Fatal(err)
	}
	carrier.Connect(ctx.Destination())
	carrier.Start(0)
	mod.Start(0)
	left, _ := render(t, ctx, 8192)
	if peak(left) < 0.5 {
		t.Error("modulated carrier made no sound")
	}
}

func TestBackendInterfaceSatisfied(t *testing.T) {
	ctx, _ := NewContext(44100)
	var _ polysynth.Backend = ctx
	var _ polysynth.AudioSource = ctx
}
