package engine

import (
	"testing"
	"time"

	"github.com/blcoyote/polysynth"
)

func TestNewPanicsOnNilBackend(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("constructing an engine without a backend did not panic")
		}
	}()
	New(nil, NewBroker(), polysynth.DefaultPatch(), DefaultConfig())
}

func TestNewPanicsOnInvalidPatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("constructing an engine with an invalid patch did not panic")
		}
	}()
	New(&fakeBackend{}, NewBroker(), polysynth.Patch{}, DefaultConfig())
}

func TestNoteOnRoutesToVoicesByDefault(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.NoteOn(60, 0.8)
	if !e.voices.Occupied(60) {
		t.Error("note-on did not reach the voice allocator")
	}
	e.NoteOff(60)
	if e.voices.Sustained(60) {
		t.Error("note-off did not release the voice")
	}
}

func TestNoteOnRoutesToArpeggiatorWhenRunning(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.arp.Start()
	e.NoteOn(60, 0.8)
	if e.voices.Occupied(60) {
		t.Error("note-on bypassed the running arpeggiator")
	}
	if len(e.arp.held) != 1 {
		t.Errorf("held set has %v notes, want 1", len(e.arp.held))
	}
	e.NoteOff(60)
	if len(e.arp.held) != 0 {
		t.Error("note-off did not leave the held set")
	}
}

func TestNoteOnRoutesToSequencerWhenRunning(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.seq.Start()
	e.NoteOn(72, 0.8)
	if e.voices.Occupied(72) {
		t.Error("note-on bypassed the running sequencer")
	}
	if e.seq.root != 72 {
		t.Errorf("sequencer root = %v, want retuned to 72", e.seq.root)
	}
}

func TestPanicStopsEverything(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.arp.Start()
	e.voices.PlayNote(60, 0.8)
	e.Panic()
	if e.voices.ActiveVoiceCount() != 0 {
		t.Error("panic left voices sounding")
	}
	if e.arp.Running() {
		t.Error("panic left the arpeggiator running")
	}
}

func TestTickFiresDueTimersAndPublishes(t *testing.T) {
	e, backend, _ := newTestEngine(polysynth.DefaultPatch())
	fired := false
	e.timers.AfterAt(1.0, func(now float64) { fired = true })
	e.Tick()
	if fired {
		t.Error("timer fired before its time")
	}
	backend.advance(1.5)
	e.Tick()
	if !fired {
		t.Error("due timer did not fire on tick")
	}
	msg, ok := TimeoutReceive(e.broker.ToModel, time.Second)
	if !ok {
		t.Fatal("tick published no status message")
	}
	if msg.ActiveVoices != 0 {
		t.Errorf("status reports %v voices, want 0", msg.ActiveVoices)
	}
}

func TestProcessMessage(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.processMessage(NoteOnMsg{Note: 60, Velocity: 0.8})
	if !e.voices.Occupied(60) {
		t.Error("NoteOnMsg not applied")
	}
	e.processMessage(OscParamMsg{Slot: 1, Name: "volume", Value: 0.25})
	if got := e.patch.Oscillators[0].Volume; got != 0.25 {
		t.Errorf("volume after OscParamMsg = %v, want 0.25", got)
	}
	e.processMessage(EnvParamMsg{Slot: 1, Name: "attack", Value: 0.5})
	if got := e.patch.Envelopes[0].Attack; got != 0.5 {
		t.Errorf("attack after EnvParamMsg = %v, want 0.5", got)
	}
	called := false
	e.processMessage(func(*Engine) { called = true })
	if !called {
		t.Error("function message not executed")
	}
	e.processMessage(PanicMsg{})
	if e.voices.ActiveVoiceCount() != 0 {
		t.Error("PanicMsg not applied")
	}
}

func TestUnknownMessagePublishesAlert(t *testing.T) {
	e, _, _ := newTestEngine(polysynth.DefaultPatch())
	e.processMessage("bogus")
	for {
		msg, ok := TimeoutReceive(e.broker.ToModel, time.Second)
		if !ok {
			t.Fatal("no alert published for an unknown message")
		}
		if alert, isAlert := msg.Data.(Alert); isAlert {
			if alert.Priority != Error {
				t.Errorf("alert priority = %v, want Error", alert.Priority)
			}
			return
		}
	}
}
