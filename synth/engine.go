package synth

import (
	"log"
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/xgsynth/xgsynth"
)

// Engine owns the 16 channel renderers and the event scheduler and renders
// audio block by block. Rendering is synchronous and single threaded; the
// one coarse mutex only serializes it against event producers, which may
// schedule from any goroutine without ever blocking on audio generation.
type Engine struct {
	mu sync.Mutex

	sampleRate float32
	wavetable  xgsynth.Wavetable
	bus        xgsynth.EffectBus

	channels  [xgsynth.NumChannels]*ChannelRenderer
	disabled  [xgsynth.NumChannels]bool
	scheduler EventScheduler

	masterVolume float32
	maxPolyphony int
	time         float64 // seconds rendered so far

	// boundaryDispatch drains due events only at block starts instead of
	// per sample, trading timing fidelity for a tighter inner loop.
	boundaryDispatch bool

	chanBufs []xgsynth.StereoBuffer
}

func NewEngine(wavetable xgsynth.Wavetable, bus xgsynth.EffectBus, sampleRate float32) *Engine {
	if bus == nil {
		bus = xgsynth.PassThroughBus{}
	}
	e := &Engine{
		sampleRate:   sampleRate,
		wavetable:    wavetable,
		bus:          bus,
		masterVolume: 1,
		maxPolyphony: defaultMaxPolyphony,
		chanBufs:     make([]xgsynth.StereoBuffer, xgsynth.NumChannels),
	}
	seq := new(uint64)
	for i := range e.channels {
		e.channels[i] = NewChannelRenderer(i, wavetable, sampleRate)
		e.channels[i].seqCounter = seq
	}
	return e
}

// defaultMaxPolyphony caps the number of simultaneously sounding notes
// across all channels.
const defaultMaxPolyphony = 64

func (e *Engine) SampleRate() float32 { return e.sampleRate }

// Time returns the number of seconds rendered since construction or the
// last Reset.
func (e *Engine) Time() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.time
}

func (e *Engine) SetMasterVolume(v float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.masterVolume = clamp01(v)
}

// SetMaxPolyphony limits the number of notes sounding at once; when a
// note-on would exceed the limit, the oldest note engine-wide is stolen.
func (e *Engine) SetMaxPolyphony(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n < 1 {
		n = 1
	}
	e.maxPolyphony = n
}

// SetBoundaryDispatch switches between sample-accurate event dispatch and
// the coarser block-boundary mode.
func (e *Engine) SetBoundaryDispatch(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.boundaryDispatch = on
}

// Reset restores the power-on state: all channels reset, pending events
// dropped, the render clock rewound.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range e.channels {
		c.Reset()
		e.disabled[i] = false
	}
	e.scheduler.Clear()
	e.time = 0
	e.masterVolume = 1
}

// Channel exposes one renderer for inspection; callers must hold no
// assumptions about concurrent rendering.
func (e *Engine) Channel(ch int) *ChannelRenderer {
	return e.channels[ch&0x0F]
}

// PendingEvents reports the number of scheduled, undispatched events.
func (e *Engine) PendingEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler.Pending()
}

// immediate dispatch surface

func (e *Engine) NoteOn(ch int, note, velocity byte) {
	e.dispatchNow(Event{Kind: EventNoteOn, Channel: uint8(ch), Data1: note, Data2: velocity})
}

func (e *Engine) NoteOff(ch int, note, velocity byte) {
	e.dispatchNow(Event{Kind: EventNoteOff, Channel: uint8(ch), Data1: note, Data2: velocity})
}

func (e *Engine) ControlChange(ch int, controller, value byte) {
	e.dispatchNow(Event{Kind: EventControlChange, Channel: uint8(ch), Data1: controller, Data2: value})
}

func (e *Engine) ProgramChange(ch int, program byte) {
	e.dispatchNow(Event{Kind: EventProgramChange, Channel: uint8(ch), Data1: program})
}

func (e *Engine) ChannelPressure(ch int, value byte) {
	e.dispatchNow(Event{Kind: EventChannelPressure, Channel: uint8(ch), Data1: value})
}

func (e *Engine) KeyPressure(ch int, note, value byte) {
	e.dispatchNow(Event{Kind: EventKeyPressure, Channel: uint8(ch), Data1: note, Data2: value})
}

// PitchBend takes the signed bend in -8192..8191.
func (e *Engine) PitchBend(ch int, bend int16) {
	e.dispatchNow(Event{Kind: EventPitchBend, Channel: uint8(ch), Bend: bend})
}

func (e *Engine) SysEx(data []byte) {
	e.dispatchNow(Event{Kind: EventSysEx, SysEx: data})
}

func (e *Engine) dispatchNow(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch(ev)
}

// timestamped dispatch surface; times are seconds on the render clock

func (e *Engine) NoteOnAt(ch int, note, velocity byte, at float64) {
	e.scheduleAt(Event{Kind: EventNoteOn, Channel: uint8(ch), Data1: note, Data2: velocity}, at)
}

func (e *Engine) NoteOffAt(ch int, note, velocity byte, at float64) {
	e.scheduleAt(Event{Kind: EventNoteOff, Channel: uint8(ch), Data1: note, Data2: velocity}, at)
}

func (e *Engine) ControlChangeAt(ch int, controller, value byte, at float64) {
	e.scheduleAt(Event{Kind: EventControlChange, Channel: uint8(ch), Data1: controller, Data2: value}, at)
}

func (e *Engine) ProgramChangeAt(ch int, program byte, at float64) {
	e.scheduleAt(Event{Kind: EventProgramChange, Channel: uint8(ch), Data1: program}, at)
}

func (e *Engine) ChannelPressureAt(ch int, value byte, at float64) {
	e.scheduleAt(Event{Kind: EventChannelPressure, Channel: uint8(ch), Data1: value}, at)
}

func (e *Engine) KeyPressureAt(ch int, note, value byte, at float64) {
	e.scheduleAt(Event{Kind: EventKeyPressure, Channel: uint8(ch), Data1: note, Data2: value}, at)
}

func (e *Engine) PitchBendAt(ch int, bend int16, at float64) {
	e.scheduleAt(Event{Kind: EventPitchBend, Channel: uint8(ch), Bend: bend}, at)
}

func (e *Engine) SysExAt(data []byte, at float64) {
	e.scheduleAt(Event{Kind: EventSysEx, SysEx: data}, at)
}

// ScheduleAt enqueues a prebuilt event; safe to call from any goroutine.
func (e *Engine) ScheduleAt(ev Event, at float64) {
	e.scheduleAt(ev, at)
}

func (e *Engine) scheduleAt(ev Event, at float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler.Schedule(ev, at)
}

func (e *Engine) dispatch(ev Event) {
	if ev.Kind == EventSysEx {
		e.handleSysEx(ev.SysEx)
		return
	}
	c := e.channels[ev.Channel&0x0F]
	switch ev.Kind {
	case EventNoteOn:
		if ev.Data2 > 0 {
			if _, retrigger := c.noteIndex[ev.Data1]; !retrigger {
				e.enforcePolyphony()
			}
		}
		c.NoteOn(ev.Data1, ev.Data2)
	case EventNoteOff:
		c.NoteOff(ev.Data1, ev.Data2)
	case EventControlChange:
		c.ControlChange(ev.Data1, ev.Data2)
	case EventProgramChange:
		c.ProgramChange(ev.Data1)
	case EventChannelPressure:
		c.ChannelPressure(ev.Data1)
	case EventKeyPressure:
		c.KeyPressure(ev.Data1, ev.Data2)
	case EventPitchBend:
		c.PitchBend(ev.Bend)
	}
}

// enforcePolyphony makes room for one more note by force-releasing and
// removing the oldest sounding note until the count is below the cap.
func (e *Engine) enforcePolyphony() {
	for e.activeNoteCount() >= e.maxPolyphony {
		var oldest *ChannelNote
		var owner *ChannelRenderer
		for _, c := range e.channels {
			if len(c.notes) == 0 {
				continue
			}
			if n := c.notes[0]; oldest == nil || n.seq < oldest.seq {
				oldest, owner = n, c
			}
		}
		if oldest == nil {
			return
		}
		oldest.forceRelease()
		oldest.active = false
		owner.compactNotes()
	}
}

func (e *Engine) activeNoteCount() int {
	total := 0
	for _, c := range e.channels {
		total += len(c.notes)
	}
	return total
}

// RenderBlock renders len(left) samples into the given buffers. Due events
// are drained before each sample is generated, so an event scheduled for
// sample i is observed starting exactly at sample i. The call never panics;
// a failure inside one channel disables that channel for the rest of the
// run.
func (e *Engine) RenderBlock(left, right []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	e.ensureBufs(n)

	if e.boundaryDispatch {
		blockEnd := e.time + float64(n)/float64(e.sampleRate)
		e.scheduler.DrainUpTo(blockEnd, e.dispatch)
	}
	for i := 0; i < n; i++ {
		if !e.boundaryDispatch {
			t := e.time + float64(i)/float64(e.sampleRate)
			e.scheduler.DrainUpTo(t, e.dispatch)
		}
		for ch := 0; ch < xgsynth.NumChannels; ch++ {
			e.channelSample(ch, i)
		}
	}
	e.time += float64(n) / float64(e.sampleRate)

	// master volume scales the per-channel sends, so the effect bus sees
	// the same levels that end up in the mix
	if e.masterVolume != 1 {
		for ch := range e.chanBufs {
			vek32.MulNumber_Inplace(e.chanBufs[ch].Left[:n], e.masterVolume)
			vek32.MulNumber_Inplace(e.chanBufs[ch].Right[:n], e.masterVolume)
		}
	}

	processed, err := e.bus.ProcessAudio(e.chanBufs, n)
	if err != nil || len(processed) != xgsynth.NumChannels {
		if err != nil {
			log.Printf("effect bus failed, passing mix through: %v", err)
		}
		processed = e.chanBufs
	}

	for i := 0; i < n; i++ {
		left[i] = 0
		right[i] = 0
	}
	for ch := 0; ch < xgsynth.NumChannels; ch++ {
		vek32.Add_Inplace(left[:n], processed[ch].Left[:n])
		vek32.Add_Inplace(right[:n], processed[ch].Right[:n])
	}
	hardClip(left[:n])
	hardClip(right[:n])
}

// channelSample renders one sample of one channel. The recover boundary is
// here so a panicking channel is disabled without taking the engine down.
func (e *Engine) channelSample(ch, i int) {
	if e.disabled[ch] {
		e.chanBufs[ch].Left[i] = 0
		e.chanBufs[ch].Right[i] = 0
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.disabled[ch] = true
			e.chanBufs[ch].Left[i] = 0
			e.chanBufs[ch].Right[i] = 0
			log.Printf("channel %d panicked and was disabled: %v", ch, r)
		}
	}()
	l, r := e.channels[ch].GenerateSample()
	e.chanBufs[ch].Left[i] = l
	e.chanBufs[ch].Right[i] = r
}

func (e *Engine) ensureBufs(n int) {
	for ch := range e.chanBufs {
		if cap(e.chanBufs[ch].Left) < n {
			e.chanBufs[ch].Left = make([]float32, n)
			e.chanBufs[ch].Right = make([]float32, n)
		}
		e.chanBufs[ch].Left = e.chanBufs[ch].Left[:n]
		e.chanBufs[ch].Right = e.chanBufs[ch].Right[:n]
	}
}

func hardClip(buf []float32) {
	for i, v := range buf {
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
}
