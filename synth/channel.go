package synth

import (
	"log"

	"github.com/xgsynth/xgsynth"
)

// Controller numbers handled by the renderer.
const (
	ccBankMSB          = 0
	ccModWheel         = 1
	ccBreath           = 2
	ccFoot             = 4
	ccPortamentoTime   = 5
	ccDataEntryMSB     = 6
	ccVolume           = 7
	ccBalance          = 8
	ccPan              = 10
	ccExpression       = 11
	ccBankLSB          = 32
	ccDataEntryLSB     = 38
	ccSustainPedal     = 64
	ccPortamentoSwitch = 65
	ccSostenutoPedal   = 66
	ccSoftPedal        = 67
	ccHarmonic         = 71
	ccBrightness       = 74
	ccPortamentoCtrl   = 84
	ccNRPNLSB          = 98
	ccNRPNMSB          = 99
	ccRPNLSB           = 100
	ccRPNMSB           = 101
	ccAllSoundOff      = 120
	ccResetControllers = 121
	ccAllNotesOff      = 123
	ccMonoOn           = 126
	ccPolyOn           = 127
)

// paramNull is the deselected RPN/NRPN address (127,127).
const paramNull = 0x7F<<7 | 0x7F

// ChannelRenderer holds the persistent state of one MIDI channel: the
// program, the 128 controllers, the parameter selectors and the registry of
// sounding notes in insertion order (oldest first).
type ChannelRenderer struct {
	channel    int
	wavetable  xgsynth.Wavetable
	sampleRate float32

	program int
	bank    int
	isDrum  bool

	baseParams xgsynth.ProgramParams // as fetched from the bank
	params     xgsynth.ProgramParams // with channel NRPN edits applied

	controllers [128]byte
	pitchBend   int16 // -8192..8191
	bendRange   float32
	coarseTune  float32 // semitones, RPN 0,2
	fineTune    float32 // cents, RPN 0,1
	pressure    byte
	keyPressure [128]byte

	rpn  uint16
	nrpn uint16

	monoMode       bool
	portamentoCtrl int // pending CC84 source note, -1 when unset
	lastNote       int // glide source for portamento, -1 when none

	vibratoDepth float32
	tremoloDepth float32

	drumTune  map[byte]float32
	drumLevel map[byte]float32
	drumPan   map[byte]float32

	notes     []*ChannelNote
	noteIndex map[byte]*ChannelNote

	// shared across an engine's channels so note start order is global
	seqCounter *uint64
}

func NewChannelRenderer(channel int, wavetable xgsynth.Wavetable, sampleRate float32) *ChannelRenderer {
	c := &ChannelRenderer{
		channel:    channel,
		wavetable:  wavetable,
		sampleRate: sampleRate,
		seqCounter: new(uint64),
	}
	c.Reset()
	return c
}

// Reset restores the power-on state of the channel.
func (c *ChannelRenderer) Reset() {
	c.program = 0
	c.bank = 0
	c.isDrum = c.channel == xgsynth.DrumChannel
	c.notes = c.notes[:0]
	c.noteIndex = make(map[byte]*ChannelNote)
	c.drumTune = make(map[byte]float32)
	c.drumLevel = make(map[byte]float32)
	c.drumPan = make(map[byte]float32)
	c.monoMode = false
	c.portamentoCtrl = -1
	c.lastNote = -1
	c.coarseTune = 0
	c.fineTune = 0
	c.bendRange = 2
	c.vibratoDepth = 0
	c.tremoloDepth = 0
	c.resetControllers()
	c.loadProgram()
}

func (c *ChannelRenderer) resetControllers() {
	for i := range c.controllers {
		c.controllers[i] = 0
	}
	c.controllers[ccVolume] = 100
	c.controllers[ccExpression] = 127
	c.controllers[ccPan] = 64
	c.controllers[ccBalance] = 64
	c.controllers[ccBrightness] = 64
	c.controllers[ccHarmonic] = 64
	c.pitchBend = 0
	c.pressure = 0
	for i := range c.keyPressure {
		c.keyPressure[i] = 0
	}
	c.rpn = paramNull
	c.nrpn = paramNull
}

func (c *ChannelRenderer) loadProgram() {
	p, err := c.wavetable.ProgramParameters(c.program, c.bank)
	if err != nil {
		log.Printf("channel %d: program %d bank %d lookup failed, using defaults: %v",
			c.channel, c.program, c.bank, err)
		p = xgsynth.DefaultProgram()
	}
	c.baseParams = p
	c.params = p
}

func (c *ChannelRenderer) SetDrumMode(on bool) {
	c.isDrum = on
}

func (c *ChannelRenderer) pitchBendCents() float32 {
	return float32(c.pitchBend) / 8192 * c.bendRange * 100
}

// detuneCents is the static channel tuning fed into every note's pitch.
func (c *ChannelRenderer) detuneCents() float32 {
	return c.coarseTune*100 + c.fineTune
}

// noteControls assembles the controller snapshot broadcast to the LFOs and
// filters of one note.
func (c *ChannelRenderer) noteControls(note byte) Controls {
	return Controls{
		ModWheel:        float32(c.controllers[ccModWheel]) / 127,
		Breath:          float32(c.controllers[ccBreath]) / 127,
		Foot:            float32(c.controllers[ccFoot]) / 127,
		Brightness:      float32(c.controllers[ccBrightness]) / 127,
		Harmonic:        float32(c.controllers[ccHarmonic]) / 127,
		ChannelPressure: float32(c.pressure) / 127,
		KeyPressure:     float32(c.keyPressure[note]) / 127,
	}
}

func (c *ChannelRenderer) broadcastControls() {
	for _, n := range c.notes {
		ctrl := c.noteControls(n.note)
		for i := range n.lfos {
			n.lfos[i].SetControls(ctrl)
		}
		for _, p := range n.partials {
			if p.Filter() != nil {
				p.Filter().SetControls(ctrl)
			}
		}
	}
}

// NoteOn starts a note. In mono mode every other note is force-released
// first; a retrigger of an already-sounding note force-releases and removes
// the old instance before the new one is inserted.
func (c *ChannelRenderer) NoteOn(note, velocity byte) {
	if velocity == 0 {
		c.NoteOff(note, 64)
		return
	}
	if c.monoMode {
		for _, n := range c.notes {
			if n.note != note {
				n.forceRelease()
				n.active = false
			}
		}
		c.compactNotes()
	}
	if old, ok := c.noteIndex[note]; ok {
		old.forceRelease()
		old.active = false
		c.compactNotes()
	}

	n := newChannelNote(c, note, velocity)
	if !n.active {
		return
	}
	*c.seqCounter++
	n.seq = *c.seqCounter
	n.detune += c.detuneCents()

	glideSource := -1
	if c.portamentoCtrl >= 0 {
		glideSource = c.portamentoCtrl
		c.portamentoCtrl = -1
	} else if c.controllers[ccPortamentoSwitch] >= 64 && c.lastNote >= 0 {
		glideSource = c.lastNote
	}
	if glideSource >= 0 {
		n.startGlide(byte(glideSource), c.portamentoSeconds(), c.sampleRate)
	}
	c.lastNote = int(note)

	c.notes = append(c.notes, n)
	c.noteIndex[note] = n
}

func (c *ChannelRenderer) portamentoSeconds() float32 {
	v := float32(c.controllers[ccPortamentoTime]) / 127
	return v * v * 5
}

// NoteOff releases a note; the release itself is pedal-gated inside the
// envelopes.
func (c *ChannelRenderer) NoteOff(note, velocity byte) {
	n, ok := c.noteIndex[note]
	if !ok {
		return
	}
	n.noteOff()
}

func (c *ChannelRenderer) ProgramChange(program byte) {
	c.program = int(program)
	c.loadProgram()
	c.wavetable.PreloadProgram(c.program, c.bank)
}

func (c *ChannelRenderer) ChannelPressure(value byte) {
	c.pressure = value
	c.broadcastControls()
}

func (c *ChannelRenderer) KeyPressure(note, value byte) {
	c.keyPressure[note] = value
	c.broadcastControls()
}

func (c *ChannelRenderer) PitchBend(value int16) {
	if value < -8192 {
		value = -8192
	}
	if value > 8191 {
		value = 8191
	}
	c.pitchBend = value
}

// ControlChange handles one controller message. Pedals broadcast to the
// envelopes on their on/off transition edges only.
func (c *ChannelRenderer) ControlChange(cc, value byte) {
	if int(cc) >= len(c.controllers) {
		return
	}
	old := c.controllers[cc]
	c.controllers[cc] = value
	switch cc {
	case ccBankMSB, ccBankLSB:
		c.updateBank()
	case ccModWheel, ccBreath, ccFoot, ccBrightness, ccHarmonic:
		c.broadcastControls()
	case ccSustainPedal:
		if edge(old, value) {
			c.forEachEnvelope(func(e *Envelope) { e.SetSustainPedal(value >= 64) })
		}
	case ccSostenutoPedal:
		if edge(old, value) {
			c.forEachEnvelope(func(e *Envelope) { e.SetSostenutoPedal(value >= 64) })
		}
	case ccSoftPedal:
		// soft pedal only shapes notes started while it is down
	case ccPortamentoCtrl:
		c.portamentoCtrl = int(value)
	case ccDataEntryMSB, ccDataEntryLSB:
		c.applyDataEntry()
	case ccNRPNMSB, ccNRPNLSB:
		c.nrpn = uint16(c.controllers[ccNRPNMSB])<<7 | uint16(c.controllers[ccNRPNLSB])
		c.rpn = paramNull
	case ccRPNMSB, ccRPNLSB:
		c.rpn = uint16(c.controllers[ccRPNMSB])<<7 | uint16(c.controllers[ccRPNLSB])
		c.nrpn = paramNull
	case ccAllSoundOff:
		c.AllSoundOff()
	case ccResetControllers:
		c.ResetControllers()
	case ccAllNotesOff:
		c.AllNotesOff()
	case ccMonoOn:
		c.setMonoMode(true)
	case ccPolyOn:
		c.setMonoMode(false)
	}
}

func edge(old, value byte) bool {
	return (old >= 64) != (value >= 64)
}

func (c *ChannelRenderer) updateBank() {
	msb := c.controllers[ccBankMSB]
	if msb == 127 {
		c.bank = xgsynth.DrumBank
	} else {
		c.bank = int(c.controllers[ccBankLSB])
	}
	c.isDrum = c.channel == xgsynth.DrumChannel || c.bank == xgsynth.DrumBank
	c.loadProgram()
}

func (c *ChannelRenderer) setMonoMode(mono bool) {
	c.monoMode = mono
	if !mono || len(c.notes) <= 1 {
		return
	}
	// the newest note survives the switch
	for _, n := range c.notes[:len(c.notes)-1] {
		n.forceRelease()
		n.active = false
	}
	c.compactNotes()
}

func (c *ChannelRenderer) forEachEnvelope(f func(*Envelope)) {
	for _, n := range c.notes {
		for _, p := range n.partials {
			f(p.AmpEnvelope())
			f(p.FilterEnvelope())
			f(p.PitchEnvelope())
		}
	}
}

// AllSoundOff drops every note instantly, with no release ramp.
func (c *ChannelRenderer) AllSoundOff() {
	for _, n := range c.notes {
		for _, p := range n.partials {
			p.AmpEnvelope().Kill()
			p.FilterEnvelope().Kill()
			p.PitchEnvelope().Kill()
		}
		n.active = false
	}
	c.notes = c.notes[:0]
	c.noteIndex = make(map[byte]*ChannelNote)
}

// AllNotesOff releases every note through the normal pedal-gated path.
func (c *ChannelRenderer) AllNotesOff() {
	for _, n := range c.notes {
		n.noteOff()
	}
}

// ResetControllers implements CC 121: continuous controllers and pedals go
// back to defaults, but program, volume and pan are kept.
func (c *ChannelRenderer) ResetControllers() {
	sustainWasDown := c.controllers[ccSustainPedal] >= 64
	sostenutoWasDown := c.controllers[ccSostenutoPedal] >= 64
	volume := c.controllers[ccVolume]
	pan := c.controllers[ccPan]
	c.resetControllers()
	c.controllers[ccVolume] = volume
	c.controllers[ccPan] = pan
	if sustainWasDown {
		c.forEachEnvelope(func(e *Envelope) { e.SetSustainPedal(false) })
	}
	if sostenutoWasDown {
		c.forEachEnvelope(func(e *Envelope) { e.SetSostenutoPedal(false) })
	}
	c.broadcastControls()
}

// GenerateSample renders one stereo frame: every active note summed and the
// channel volume and expression applied once.
func (c *ChannelRenderer) GenerateSample() (float32, float32) {
	if len(c.notes) == 0 {
		return 0, 0
	}
	var l, r float32
	needCompact := false
	for _, n := range c.notes {
		nl, nr := n.generateSample(c)
		if !n.active {
			needCompact = true
			continue
		}
		l += nl
		r += nr
	}
	if needCompact {
		c.compactNotes()
	}
	scale := float32(c.controllers[ccVolume]) / 127 * float32(c.controllers[ccExpression]) / 127
	return l * scale, r * scale
}

// compactNotes removes inactive notes while preserving insertion order.
func (c *ChannelRenderer) compactNotes() {
	kept := c.notes[:0]
	for _, n := range c.notes {
		if n.active {
			kept = append(kept, n)
		} else {
			if c.noteIndex[n.note] == n {
				delete(c.noteIndex, n.note)
			}
		}
	}
	c.notes = kept
}

// ActiveNotes reports the number of sounding notes.
func (c *ChannelRenderer) ActiveNotes() int { return len(c.notes) }
