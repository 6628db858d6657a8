package engine

import "time"

// Config holds the engine's timing constants. These are empirical values
// with no acoustic derivation, so they are configuration rather than
// load-bearing constants; re-derive them against the latency of the target
// backend when porting.
type Config struct {
	// TickInterval is the wall-clock period of the cooperative scheduling
	// tick. It only decides when future events get enqueued; sonic precision
	// comes from the audio-clock timestamps the events are scheduled at.
	TickInterval time.Duration

	// LookAhead is how far ahead of the audio clock the pattern schedulers
	// enqueue events, in seconds. Must comfortably exceed TickInterval.
	LookAhead float64

	// DriftTolerance is how far the schedulers' next event time may fall
	// behind the audio clock before it is snapped to "now" instead of
	// bursting a backlog of missed events, in seconds.
	DriftTolerance float64

	// CleanupMargin is added on top of the longest release time before a
	// released voice's nodes are torn down, so the decay tail always
	// finishes first. Seconds.
	CleanupMargin float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   25 * time.Millisecond,
		LookAhead:      0.2,
		DriftTolerance: 0.05,
		CleanupMargin:  0.1,
	}
}
