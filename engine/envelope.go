package engine

import (
	"github.com/blcoyote/polysynth"
)

type EnvState int

const (
	// EnvIdle: no automation pending, value at zero.
	EnvIdle EnvState = iota
	// EnvEngaged covers attack, decay and the held sustain value; sustain is
	// a held level rather than a discrete phase, so the three collapse into
	// one state.
	EnvEngaged
	// EnvReleased: ramping toward silence.
	EnvReleased
)

const (
	// retriggerFade is the length of the anti-click fade scheduled before a
	// retrigger when the parameter is still audibly nonzero.
	retriggerFade = 0.005
	// silenceFloor is the near-zero target of exponential ramps, which
	// cannot reach exactly zero.
	silenceFloor = 0.0001
	// audibleLevel is the threshold below which a value is considered
	// silent enough to ramp from (or to) linearly without a click.
	audibleLevel = 0.01
)

// Envelope is a per-voice, per-slot ADSR state machine that schedules
// amplitude automation on one controllable parameter. It never computes a
// sample; it only decides when and to what value the parameter ramps.
type Envelope struct {
	clock    func() float64
	param    polysynth.Param
	settings polysynth.EnvSettings // copied at note-on; only explicit propagation updates it

	state      EnvState
	velocity   float64
	holdStart  float64 // when attack+decay complete and the sustain value holds
	releasedAt float64
	releaseDur float64
}

// NewEnvelope binds an envelope to a parameter. The settings are copied and
// clamped, so later edits to the shared patch never silently alter a voice
// that is already rendering.
func NewEnvelope(clock func() float64, param polysynth.Param, settings polysynth.EnvSettings) *Envelope {
	settings.Clamp()
	return &Envelope{clock: clock, param: param, settings: settings}
}

// Trigger schedules the attack and decay ramps starting at when. If the
// parameter is still audibly nonzero (an overlapping retrigger), a short
// exponential fade toward near-zero is scheduled first so the jump does not
// click; the attack then starts from the post-fade time.
func (e *Envelope) Trigger(velocity, when float64) {
	e.param.CancelScheduledValues(when)
	current := e.param.Value()
	e.param.SetValueAtTime(current, when)
	start := when
	if current > audibleLevel {
		e.param.ExponentialRampToValueAtTime(silenceFloor, when+retriggerFade)
		start = when + retriggerFade
	}
	e.velocity = velocity
	e.param.LinearRampToValueAtTime(velocity, start+e.settings.Attack)
	e.param.LinearRampToValueAtTime(e.settings.Sustain*velocity, start+e.settings.Attack+e.settings.Decay)
	e.holdStart = start + e.settings.Attack + e.settings.Decay
	e.state = EnvEngaged
}

// TriggerRelease cancels future automation, holds the current value and
// ramps toward near-zero: exponentially when the current value is audible
// (smoother perceptual decay), linearly when already near-silent, since an
// exponential ramp cannot target exactly zero.
func (e *Envelope) TriggerRelease(when float64) {
	e.param.CancelScheduledValues(when)
	current := e.param.Value()
	e.param.SetValueAtTime(current, when)
	if current > audibleLevel {
		e.param.ExponentialRampToValueAtTime(silenceFloor, when+e.settings.Release)
	} else {
		e.param.LinearRampToValueAtTime(0, when+e.settings.Release)
	}
	e.releasedAt = when
	e.releaseDur = e.settings.Release
	e.state = EnvReleased
}

// Finished reports whether the release ramp has run its course.
func (e *Envelope) Finished() bool {
	return e.state == EnvReleased && e.clock()-e.releasedAt >= e.releaseDur
}

// Reset cancels all automation, forces the value to zero and clears state.
func (e *Envelope) Reset() {
	now := e.clock()
	e.param.CancelScheduledValues(now)
	e.param.SetValueAtTime(0, now)
	e.state = EnvIdle
	e.velocity = 0
}

func (e *Envelope) State() EnvState { return e.state }

// InSustainPhase reports whether the envelope is past attack+decay and
// holding the sustain value.
func (e *Envelope) InSustainPhase() bool {
	return e.state == EnvEngaged && e.clock() >= e.holdStart
}

// ReleaseTime is the configured release duration of this envelope instance.
func (e *Envelope) ReleaseTime() float64 { return e.settings.Release }

// SetParameter updates one of attack/decay/sustain/release, clamped to its
// range. Editing sustain while the envelope holds the sustain value moves
// the live amplitude target without re-triggering attack or decay; unknown
// names report false.
func (e *Envelope) SetParameter(name string, value float64) bool {
	switch name {
	case "attack":
		e.settings.Attack = clamp(value, polysynth.MinEnvTime, polysynth.MaxAttack)
	case "decay":
		e.settings.Decay = clamp(value, polysynth.MinEnvTime, polysynth.MaxDecay)
	case "sustain":
		e.settings.Sustain = clamp(value, 0, 1)
		if e.InSustainPhase() {
			e.retargetSustain()
		}
	case "release":
		e.settings.Release = clamp(value, polysynth.MinEnvTime, polysynth.MaxRelease)
	default:
		return false
	}
	return true
}

// Parameter returns the named setting; ok is false for unknown names.
func (e *Envelope) Parameter(name string) (value float64, ok bool) {
	switch name {
	case "attack":
		return e.settings.Attack, true
	case "decay":
		return e.settings.Decay, true
	case "sustain":
		return e.settings.Sustain, true
	case "release":
		return e.settings.Release, true
	}
	return 0, false
}

// sustainGlide is how long a live sustain edit takes to reach its new held
// target.
const sustainGlide = 0.015

func (e *Envelope) retargetSustain() {
	now := e.clock()
	e.param.CancelScheduledValues(now)
	e.param.SetValueAtTime(e.param.Value(), now)
	e.param.LinearRampToValueAtTime(e.settings.Sustain*e.velocity, now+sustainGlide)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
