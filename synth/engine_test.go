package synth

import (
	"errors"
	"testing"

	"github.com/xgsynth/xgsynth"
)

const engineTestRate = 44100

func newTestEngine(bus xgsynth.EffectBus) *Engine {
	return NewEngine(newStubWavetable(), bus, engineTestRate)
}

func renderSeconds(e *Engine, seconds float64, block int) ([]float32, []float32) {
	total := int(seconds * engineTestRate)
	left := make([]float32, 0, total)
	right := make([]float32, 0, total)
	l := make([]float32, block)
	r := make([]float32, block)
	for len(left) < total {
		e.RenderBlock(l, r)
		left = append(left, l...)
		right = append(right, r...)
	}
	return left, right
}

func TestEngineSampleAccurateDispatch(t *testing.T) {
	e := newTestEngine(nil)
	const at = 100
	e.NoteOnAt(0, 60, 127, float64(at)/engineTestRate)

	left := make([]float32, 256)
	right := make([]float32, 256)
	e.RenderBlock(left, right)

	for i := 0; i < at; i++ {
		if left[i] != 0 || right[i] != 0 {
			t.Fatalf("sample %d nonzero before the scheduled note on", i)
		}
	}
	if left[at] == 0 || right[at] == 0 {
		t.Errorf("no output at the scheduled sample %d", at)
	}
}

func TestEngineBoundaryDispatchRunsAtBlockStart(t *testing.T) {
	e := newTestEngine(nil)
	e.SetBoundaryDispatch(true)
	e.NoteOnAt(0, 60, 127, 100.0/engineTestRate)

	left := make([]float32, 256)
	right := make([]float32, 256)
	e.RenderBlock(left, right)

	if left[0] == 0 {
		t.Error("boundary dispatch did not start the note at the block start")
	}
}

func TestEngineNoteDecaysToSilence(t *testing.T) {
	e := newTestEngine(nil)
	e.NoteOn(0, 60, 127)
	e.NoteOffAt(0, 60, 64, 0.1)

	left, _ := renderSeconds(e, 0.5, 512)

	var peak float32
	for _, v := range left {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		t.Fatal("note produced no output")
	}
	tail := left[len(left)-int(0.05*engineTestRate):]
	for i, v := range tail {
		if v != 0 {
			t.Fatalf("tail sample %d = %v after the release should have ended", i, v)
		}
	}
	if got := e.Channel(0).ActiveNotes(); got != 0 {
		t.Errorf("active notes after full decay = %d, want 0", got)
	}
}

type failingBus struct{}

func (failingBus) ProcessAudio(channels []xgsynth.StereoBuffer, n int) ([]xgsynth.StereoBuffer, error) {
	return nil, errors.New("bus offline")
}

type truncatingBus struct{}

func (truncatingBus) ProcessAudio(channels []xgsynth.StereoBuffer, n int) ([]xgsynth.StereoBuffer, error) {
	return channels[:1], nil
}

func TestEngineFailingBusPassesMixThrough(t *testing.T) {
	for name, bus := range map[string]xgsynth.EffectBus{
		"error":       failingBus{},
		"wrong shape": truncatingBus{},
	} {
		e := newTestEngine(bus)
		e.NoteOn(0, 60, 127)
		left := make([]float32, 512)
		right := make([]float32, 512)
		e.RenderBlock(left, right)
		sounding := false
		for _, v := range left {
			if v != 0 {
				sounding = true
				break
			}
		}
		if !sounding {
			t.Errorf("%s bus: dry mix was not passed through", name)
		}
	}
}

func TestEngineMasterVolume(t *testing.T) {
	e := newTestEngine(nil)
	e.SetMasterVolume(0)
	e.NoteOn(0, 60, 127)
	left := make([]float32, 256)
	right := make([]float32, 256)
	e.RenderBlock(left, right)
	for i, v := range left {
		if v != 0 {
			t.Fatalf("sample %d = %v with master volume 0", i, v)
		}
	}
}

func TestEngineOutputIsClipped(t *testing.T) {
	e := newTestEngine(nil)
	for ch := 0; ch < 8; ch++ {
		e.ControlChange(ch, ccVolume, 127)
		e.NoteOn(ch, 60, 127)
	}
	left, right := renderSeconds(e, 0.1, 512)
	for i := range left {
		if left[i] > 1 || left[i] < -1 || right[i] > 1 || right[i] < -1 {
			t.Fatalf("sample %d = (%v,%v) outside [-1,1]", i, left[i], right[i])
		}
	}
}

func TestEngineResetClearsState(t *testing.T) {
	e := newTestEngine(nil)
	e.NoteOn(0, 60, 127)
	e.NoteOnAt(0, 64, 127, 10)
	e.SetMasterVolume(0.3)
	left := make([]float32, 256)
	right := make([]float32, 256)
	e.RenderBlock(left, right)

	e.Reset()
	if e.PendingEvents() != 0 {
		t.Error("reset left scheduled events pending")
	}
	if e.Time() != 0 {
		t.Errorf("time after reset = %v, want 0", e.Time())
	}
	if e.masterVolume != 1 {
		t.Errorf("master volume after reset = %v, want 1", e.masterVolume)
	}
	if got := e.Channel(0).ActiveNotes(); got != 0 {
		t.Errorf("active notes after reset = %d, want 0", got)
	}
}

func TestEngineSysExMasterVolume(t *testing.T) {
	e := newTestEngine(nil)
	e.SysEx([]byte{0xF0, 0x43, 0x10, 0x4C, 0x00, 0x00, 0x04, 64, 0xF7})
	want := float32(64.0 / 127)
	if e.masterVolume != want {
		t.Errorf("master volume after sysex = %v, want %v", e.masterVolume, want)
	}
}

func TestEngineSysExXGSystemOn(t *testing.T) {
	e := newTestEngine(nil)
	e.NoteOn(0, 60, 127)
	e.ControlChange(0, ccVolume, 30)
	e.SysEx([]byte{0xF0, 0x43, 0x10, 0x4C, 0x00, 0x00, 0x7E, 0x00, 0xF7})
	if got := e.Channel(0).ActiveNotes(); got != 0 {
		t.Errorf("active notes after XG system on = %d, want 0", got)
	}
	if got := e.Channel(0).controllers[ccVolume]; got != 100 {
		t.Errorf("volume after XG system on = %d, want the default 100", got)
	}
}

func TestEngineSysExMultipart(t *testing.T) {
	e := newTestEngine(nil)
	e.SysEx([]byte{0xF0, 0x43, 0x10, 0x4C, 0x08, 0x03, 0x0B, 32, 0xF7})
	if got := e.Channel(3).controllers[ccVolume]; got != 32 {
		t.Errorf("channel 3 volume = %d, want 32", got)
	}
	e.SysEx([]byte{0xF0, 0x43, 0x10, 0x4C, 0x08, 0x02, 0x07, 0x01, 0xF7})
	if !e.Channel(2).isDrum {
		t.Error("multipart part mode did not enable drum mode")
	}
}

func TestEngineIgnoresForeignSysEx(t *testing.T) {
	e := newTestEngine(nil)
	e.SetMasterVolume(0.8)
	// Roland manufacturer id, otherwise well formed
	e.SysEx([]byte{0xF0, 0x41, 0x10, 0x4C, 0x00, 0x00, 0x04, 0, 0xF7})
	if e.masterVolume != 0.8 {
		t.Errorf("foreign sysex changed master volume to %v", e.masterVolume)
	}
	// too short to carry an address
	e.SysEx([]byte{0xF0, 0x43, 0x10, 0xF7})
	if e.masterVolume != 0.8 {
		t.Errorf("short sysex changed master volume to %v", e.masterVolume)
	}
}

func TestEnginePolyphonyCapStealsOldest(t *testing.T) {
	e := newTestEngine(nil)
	e.SetMaxPolyphony(4)
	for note := byte(60); note < 68; note++ {
		e.NoteOn(0, note, 100)
	}
	if got := e.Channel(0).ActiveNotes(); got != 4 {
		t.Fatalf("active notes with cap 4 = %d, want 4", got)
	}
	for note := byte(60); note < 64; note++ {
		if _, ok := e.Channel(0).noteIndex[note]; ok {
			t.Errorf("old note %d survived voice stealing", note)
		}
	}
	for note := byte(64); note < 68; note++ {
		if _, ok := e.Channel(0).noteIndex[note]; !ok {
			t.Errorf("recent note %d was stolen", note)
		}
	}
}

func TestEnginePolyphonyCapSpansChannels(t *testing.T) {
	e := newTestEngine(nil)
	e.SetMaxPolyphony(2)
	e.NoteOn(0, 60, 100)
	e.NoteOn(1, 62, 100)
	e.NoteOn(2, 64, 100)
	if got := e.Channel(0).ActiveNotes(); got != 0 {
		t.Errorf("channel 0 active notes = %d, want 0 (oldest note stolen)", got)
	}
	if e.Channel(1).ActiveNotes() != 1 || e.Channel(2).ActiveNotes() != 1 {
		t.Error("a newer note was stolen instead of the oldest")
	}
}

func TestEnginePolyphonyCapIgnoresRetrigger(t *testing.T) {
	e := newTestEngine(nil)
	e.SetMaxPolyphony(2)
	e.NoteOn(0, 60, 100)
	e.NoteOn(0, 62, 100)
	e.NoteOn(0, 62, 100)
	if _, ok := e.Channel(0).noteIndex[60]; !ok {
		t.Error("retriggering a sounding note stole another voice")
	}
}

// peakBus records the largest send magnitude it is handed.
type peakBus struct {
	peak float32
}

func (b *peakBus) ProcessAudio(channels []xgsynth.StereoBuffer, n int) ([]xgsynth.StereoBuffer, error) {
	for _, ch := range channels {
		for i := 0; i < n; i++ {
			for _, v := range [2]float32{ch.Left[i], ch.Right[i]} {
				if v < 0 {
					v = -v
				}
				if v > b.peak {
					b.peak = v
				}
			}
		}
	}
	return channels, nil
}

func TestEngineMasterVolumeScalesEffectSends(t *testing.T) {
	bus := &peakBus{}
	e := newTestEngine(bus)
	e.SetMasterVolume(0)
	e.NoteOn(0, 60, 127)
	renderSeconds(e, 0.1, 256)
	if bus.peak != 0 {
		t.Errorf("effect bus saw peak %v with master volume 0, want 0", bus.peak)
	}
}
