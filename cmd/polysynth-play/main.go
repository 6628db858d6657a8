package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/blcoyote/polysynth"
	"github.com/blcoyote/polysynth/engine"
	"github.com/blcoyote/polysynth/graph"
	"github.com/blcoyote/polysynth/midiin"
	"github.com/blcoyote/polysynth/oto"
	"github.com/blcoyote/polysynth/version"
)

// Session is the on-disk .yml format: a patch, an optional step pattern
// and an optional chord to feed the arpeggiator. Persistence lives here in
// the command; the engine itself never touches files.
type Session struct {
	Patch   polysynth.Patch   `yaml:"patch"`
	Pattern polysynth.Pattern `yaml:"pattern,omitempty"`
	Notes   []int             `yaml:"notes,flow,omitempty"`
}

func main() {
	mode := flag.String("m", "seq", "Playback mode: seq (step sequencer), arp (arpeggiator) or keys (MIDI input only).")
	tempo := flag.Float64("t", 120, "Tempo in BPM (40-300).")
	division := flag.Int("d", 16, "Steps per whole note; 16 means sixteenth notes.")
	swing := flag.Float64("swing", 0, "Swing amount (0-0.5).")
	gate := flag.Float64("gate", 0.8, "Gate length as a fraction of a step (0.05-1).")
	hold := flag.Bool("hold", false, "Legato: release a note only when the next one starts.")
	order := flag.Int("order", 0, "Arpeggio order (0=up, 1=down, 2=up-down, 3=up-down repeating, 4=converge, 5=diverge, 6=pinched up, 7=pinched down).")
	octaves := flag.Int("octaves", 1, "Arpeggio octave span (1-4).")
	traversal := flag.Int("traversal", 0, "Pattern traversal (0=forward, 1=reverse, 2=ping-pong, 3=random).")
	midiPrefix := flag.String("midi", "", "Open the first MIDI input whose name starts with this prefix.")
	midiFirst := flag.Bool("first-midi", false, "Open the first available MIDI input.")
	sampleRate := flag.Int("rate", 44100, "Output sample rate in Hz.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if err := run(*mode, *tempo, *division, *swing, *gate, *hold, *order, *octaves, *traversal, *midiPrefix, *midiFirst, *sampleRate, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(mode string, tempo float64, division int, swing, gate float64, hold bool, order, octaves, traversal int, midiPrefix string, midiFirst bool, sampleRate int, sessionFile string) error {
	session := defaultSession()
	if sessionFile != "" {
		contents, err := os.ReadFile(sessionFile)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", sessionFile, err)
		}
		if err := yaml.Unmarshal(contents, &session); err != nil {
			return fmt.Errorf("could not parse %v: %w", sessionFile, err)
		}
	}
	if err := session.Patch.Validate(); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}

	graphContext, err := graph.NewContext(sampleRate)
	if err != nil {
		return fmt.Errorf("could not create graph context: %w", err)
	}
	audioContext, err := oto.NewContext(sampleRate)
	if err != nil {
		return fmt.Errorf("could not acquire audio context: %w", err)
	}
	defer audioContext.Close()

	broker := engine.NewBroker()
	synth := engine.New(graphContext, broker, session.Patch, engine.DefaultConfig())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	go synth.Run(ctx)

	engine.TrySend(broker.ToEngine, any(func(e *engine.Engine) {
		setup(e, session, mode, tempo, division, swing, gate, hold, order, octaves, traversal)
	}))

	playWaiter := audioContext.Play(graphContext)
	defer playWaiter.Close()

	if midiPrefix != "" || midiFirst {
		midiContext := midiin.NewContext(broker)
		defer midiContext.Close()
		if err := midiContext.TryToOpenBy(midiPrefix, midiFirst); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}

	fmt.Println("playing, ctrl-c to stop")
	<-ctx.Done()
	return nil
}

func setup(e *engine.Engine, session Session, mode string, tempo float64, division int, swing, gate float64, hold bool, order, octaves, traversal int) {
	apply := func(s interface {
		SetTempo(float64)
		SetDivision(int)
		SetSwing(float64)
		SetGateLength(float64)
		SetHold(bool)
		SetMode(polysynth.TraversalMode)
	}) {
		s.SetTempo(tempo)
		s.SetDivision(division)
		s.SetSwing(swing)
		s.SetGateLength(gate)
		s.SetHold(hold)
		s.SetMode(polysynth.TraversalMode(traversal))
	}
	switch mode {
	case "arp":
		arp := e.Arpeggiator()
		apply(arp)
		arp.SetOrder(polysynth.ArpOrder(order))
		arp.SetOctaves(octaves)
		arp.Start()
		for _, note := range session.Notes {
			arp.NoteOn(note, 0.8)
		}
	case "seq":
		seq := e.Sequencer()
		apply(seq)
		seq.SetPattern(session.Pattern)
		seq.Start()
	case "keys":
		// nothing to start; notes come from MIDI input
	}
}

func defaultSession() Session {
	return Session{
		Patch: polysynth.DefaultPatch(),
		Pattern: polysynth.Pattern{
			{Gate: true, Pitch: 0, Velocity: 0.9},
			{Gate: true, Pitch: 3, Velocity: 0.7},
			{Gate: true, Pitch: 7, Velocity: 0.7},
			{Gate: false},
			{Gate: true, Pitch: 10, Velocity: 0.8},
			{Gate: true, Pitch: 7, Velocity: 0.6},
			{Gate: true, Pitch: 12, Velocity: 0.9, Length: 2},
			{Gate: false},
		},
		Notes: []int{57, 60, 64},
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Polysynth command line player for .yml session files.\nUsage: %s [flags] [session.yml]\n", os.Args[0])
	flag.PrintDefaults()
}
