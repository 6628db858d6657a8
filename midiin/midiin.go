// Package midiin forwards note events from a hardware MIDI input to the
// engine through its broker.
package midiin

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/blcoyote/polysynth/engine"
)

type (
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		broker             *engine.Broker
		currentIn          drivers.In
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the rtmidi driver. A machine without a working MIDI
// stack is not an error; the context just never yields devices.
func NewContext(broker *engine.Broker) *RTMIDIContext {
	m := RTMIDIContext{broker: broker}
	m.driver, _ = rtmididrv.New()
	return &m
}

// InputDevices iterates over the available MIDI inputs.
func (m *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if m.devicesInitialized {
		m.yieldCachedInputDevices(yield)
	} else {
		m.initInputDevices(yield)
	}
}

func (m *RTMIDIContext) yieldCachedInputDevices(yield func(RTMIDIDevice) bool) {
	for _, device := range m.inputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) initInputDevices(yield func(RTMIDIDevice) bool) {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for i := 0; i < len(ins); i++ {
		device := RTMIDIDevice{context: m, in: ins[i]}
		m.inputDevices = append(m.inputDevices, device)
		if !yield(device) {
			break
		}
	}
	m.devicesInitialized = true
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// just the first input when takeFirst is set.
func (m *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	var opened error
	found := false
	for input := range m.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			found = true
			opened = input.Open()
			break
		}
	}
	if !found {
		if takeFirst {
			return errors.New("could not find any MIDI input")
		}
		return fmt.Errorf("could not find any MIDI input starting with %q", namePrefix)
	}
	return opened
}

// Open an input device while closing the currently open one if necessary.
func (d RTMIDIDevice) Open() error {
	if d.context.currentIn == d.in {
		return nil
	}
	if d.context.driver == nil {
		return errors.New("no driver available")
	}
	if d.context.HasDeviceOpen() {
		d.context.currentIn.Close()
	}
	d.context.currentIn = d.in
	if err := d.in.Open(); err != nil {
		d.context.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, d.context.handleMessage); err != nil {
		d.in.Close()
		d.context.currentIn = nil
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

func (m *RTMIDIContext) HasDeviceOpen() bool {
	return m.currentIn != nil && m.currentIn.IsOpen()
}

func (m *RTMIDIContext) Close() {
	if m.driver == nil {
		return
	}
	if m.currentIn != nil && m.currentIn.IsOpen() {
		m.currentIn.Close()
	}
	m.driver.Close()
}

// handleMessage converts incoming note messages into engine messages. The
// send is non-blocking; if the engine's inbox is full the event is dropped
// rather than stalling the MIDI callback.
func (m *RTMIDIContext) handleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if velocity == 0 {
			engine.TrySend(m.broker.ToEngine, any(engine.NoteOffMsg{Note: int(key)}))
			return
		}
		engine.TrySend(m.broker.ToEngine, any(engine.NoteOnMsg{
			Note:     int(key),
			Velocity: float64(velocity) / 127,
		}))
	case msg.GetNoteOff(&channel, &key, &velocity):
		engine.TrySend(m.broker.ToEngine, any(engine.NoteOffMsg{Note: int(key)}))
	}
}
