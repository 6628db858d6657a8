package polysynth

// Waveform is the shape of a periodic oscillator.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Sawtooth
	Square
)

// FilterShape selects the response of a FilterNode.
type FilterShape int

const (
	Lowpass FilterShape = iota
	Highpass
	Bandpass
)

type (
	// Param is one time-automatable parameter of a node. All times are in
	// seconds on the backend's monotonic clock. Scheduled automation is
	// executed by the backend independent of further calls, so a stalled
	// caller cannot corrupt events that are already scheduled.
	Param interface {
		// Value returns the parameter value at the backend's current time.
		Value() float64
		// SetValueAtTime sets the value exactly at the given time.
		SetValueAtTime(value, time float64)
		// LinearRampToValueAtTime ramps linearly from the previous scheduled
		// point to value, arriving at the given time.
		LinearRampToValueAtTime(value, time float64)
		// ExponentialRampToValueAtTime ramps exponentially to value, arriving
		// at the given time. Neither endpoint may be zero.
		ExponentialRampToValueAtTime(value, time float64)
		// CancelScheduledValues removes all automation scheduled at or after
		// the given time.
		CancelScheduledValues(time float64)
	}

	// Node is one processing stage in the rendering backend's graph.
	Node interface {
		// Connect routes this node's output into dst.
		Connect(dst Node) error
		// ConnectParam routes this node's output into a parameter, so the
		// node's signal modulates the parameter value (e.g. FM, LFO).
		ConnectParam(dst Param) error
		// Disconnect removes all outgoing connections of this node.
		Disconnect()
	}

	// OscillatorNode is a periodic waveform source.
	OscillatorNode interface {
		Node
		Frequency() Param // Hz
		Detune() Param    // cents
		SetWaveform(w Waveform)
		Start(time float64)
		Stop(time float64)
	}

	// GainNode scales its input by the gain parameter.
	GainNode interface {
		Node
		Gain() Param
	}

	// PanNode places its input in the stereo field; -1 is hard left, 1 hard
	// right.
	PanNode interface {
		Node
		Pan() Param
	}

	// FilterNode filters its input.
	FilterNode interface {
		Node
		Cutoff() Param    // Hz
		Resonance() Param // Q
		SetShape(s FilterShape)
	}

	// Backend is the rendering backend the control core schedules against.
	// Any backend exposing a monotonic clock, these node constructors and the
	// Param automation primitives suffices; the core never computes a sample
	// itself.
	Backend interface {
		// CurrentTime is the backend's free-running monotonic clock, in
		// seconds.
		CurrentTime() float64
		NewOscillator() OscillatorNode
		NewGain() GainNode
		NewPan() PanNode
		NewFilter() FilterNode
		// Destination is the terminal mix node of the graph.
		Destination() Node
	}
)

type (
	// AudioSource is something that can produce stereo, interleaved float32
	// audio when asked.
	AudioSource interface {
		ReadAudio(buffer []float32) (n int, err error)
	}

	// AudioContext is a physical audio output device.
	AudioContext interface {
		Play(src AudioSource) CloserWaiter
		Close() error
	}

	// CloserWaiter can be waited on until done, or closed prematurely.
	CloserWaiter interface {
		Close() error
		Wait()
	}
)
