// Package midi connects MIDI sources to a synthesis engine: live input
// through rtmidi and Standard MIDI File playback through the scheduler.
package midi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/xgsynth/xgsynth/synth"
)

// inputLatency is how far ahead of the render clock live events are
// scheduled, so a message arriving mid-block still lands on a future
// sample.
const inputLatency = 0.01

// Input forwards messages from one rtmidi device into an engine's
// scheduler. Device timestamps are mapped onto the engine's render clock on
// the first message and kept relative after that.
type Input struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
	engine *synth.Engine

	baseSet    bool
	baseMillis int32
	baseTime   float64
}

// NewInput opens the rtmidi driver. A nil driver (no backend available) is
// reported on Open, not here, so listing devices on a machine without MIDI
// support degrades gracefully.
func NewInput(engine *synth.Engine) *Input {
	i := &Input{engine: engine}
	i.driver, _ = rtmididrv.New()
	return i
}

// Devices lists the names of the available input devices.
func (i *Input) Devices() []string {
	if i.driver == nil {
		return nil
	}
	ins, err := i.driver.Ins()
	if err != nil {
		return nil
	}
	names := make([]string, len(ins))
	for j, in := range ins {
		names[j] = in.String()
	}
	return names
}

// Open starts listening on the first device whose name has the given
// prefix; an empty prefix takes the first device.
func (i *Input) Open(namePrefix string) error {
	if i.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := i.driver.Ins()
	if err != nil {
		return fmt.Errorf("could not list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if namePrefix != "" && !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input failed: %w", err)
		}
		stop, err := midi.ListenTo(in, i.handleMessage, midi.UseSysEx())
		if err != nil {
			in.Close()
			return fmt.Errorf("listening to MIDI input failed: %w", err)
		}
		i.in = in
		i.stop = stop
		return nil
	}
	return fmt.Errorf("no MIDI input matching %q", namePrefix)
}

func (i *Input) Close() {
	if i.stop != nil {
		i.stop()
		i.stop = nil
	}
	if i.in != nil {
		i.in.Close()
		i.in = nil
	}
	if i.driver != nil {
		i.driver.Close()
		i.driver = nil
	}
}

func (i *Input) handleMessage(msg midi.Message, timestampms int32) {
	ev, ok := decodeMessage(msg)
	if !ok {
		return
	}
	if !i.baseSet {
		i.baseMillis = timestampms
		i.baseTime = i.engine.Time()
		i.baseSet = true
	}
	at := i.baseTime + float64(timestampms-i.baseMillis)/1000 + inputLatency
	i.engine.ScheduleAt(ev, at)
}

// decodeMessage translates one wire message into a scheduler event.
func decodeMessage(msg midi.Message) (synth.Event, bool) {
	var channel, key, velocity, controller, value, program, pressure uint8
	var bend int16
	var bendAbs uint16
	var sysex []byte
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return synth.Event{Kind: synth.EventNoteOn, Channel: channel, Data1: key, Data2: velocity}, true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return synth.Event{Kind: synth.EventNoteOff, Channel: channel, Data1: key, Data2: velocity}, true
	case msg.GetControlChange(&channel, &controller, &value):
		return synth.Event{Kind: synth.EventControlChange, Channel: channel, Data1: controller, Data2: value}, true
	case msg.GetProgramChange(&channel, &program):
		return synth.Event{Kind: synth.EventProgramChange, Channel: channel, Data1: program}, true
	case msg.GetAfterTouch(&channel, &pressure):
		return synth.Event{Kind: synth.EventChannelPressure, Channel: channel, Data1: pressure}, true
	case msg.GetPolyAfterTouch(&channel, &key, &pressure):
		return synth.Event{Kind: synth.EventKeyPressure, Channel: channel, Data1: key, Data2: pressure}, true
	case msg.GetPitchBend(&channel, &bend, &bendAbs):
		return synth.Event{Kind: synth.EventPitchBend, Channel: channel, Bend: bend}, true
	case msg.GetSysEx(&sysex):
		return synth.Event{Kind: synth.EventSysEx, SysEx: sysex}, true
	}
	return synth.Event{}, false
}
