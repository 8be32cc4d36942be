package synth

import (
	"log"

	"github.com/xgsynth/xgsynth"
)

// ChannelNote is one sounding note: its partials, three LFOs and the
// modulation matrix. The modulation-source snapshot is rebuilt once per
// sample and the LFOs advance exactly once per sample here, so the
// effective LFO rate does not depend on the partial count.
type ChannelNote struct {
	note     byte
	velocity byte
	program  int
	bank     int
	active   bool
	seq      uint64 // global start order, used for voice stealing

	partials []*PartialGenerator
	lfos     [3]*LFO
	matrix   ModulationMatrix
	sources  ModSources
	detune   float32 // cents, from the program

	// portamento glide, in cents relative to the target note
	glideCents   float32
	glideStep    float32
	glideSamples int
}

func newChannelNote(c *ChannelRenderer, note, velocity byte) *ChannelNote {
	n := &ChannelNote{
		note:     note,
		velocity: velocity,
		program:  c.program,
		bank:     c.bank,
		active:   true,
	}

	params := c.params
	var drumTune float32
	if c.isDrum {
		p, err := c.wavetable.DrumParameters(note, c.program, c.bank)
		if err != nil {
			log.Printf("channel %d: drum parameter lookup failed, note silenced: %v", c.channel, err)
			n.active = false
			return n
		}
		params = p
		drumTune = c.drumTune[note]
		level, hasLevel := c.drumLevel[note]
		pan, hasPan := c.drumPan[note]
		if hasLevel || hasPan {
			// the provider may hand out zones aliasing its own storage;
			// edit a copy so the drum NRPNs never leak into the bank
			zones := append([]xgsynth.ZoneParams(nil), params.Zones...)
			for i := range zones {
				if hasLevel {
					zones[i].Level *= level
				}
				if hasPan {
					zones[i].Pan = pan
				}
			}
			params.Zones = zones
		}
	}

	routes := params.Routes
	if routes == nil {
		routes = xgsynth.DefaultRoutes(&params)
	}
	n.matrix = NewModulationMatrix(routes)

	for i := range n.lfos {
		n.lfos[i] = NewLFO(params.LFOs[i], c.sampleRate)
	}

	soft := c.controllers[ccSoftPedal] >= 64
	n.partials = make([]*PartialGenerator, 0, len(params.Zones))
	for i, zone := range params.Zones {
		table, err := c.wavetable.PartialTable(note, c.program, i, velocity, c.bank)
		if err != nil {
			log.Printf("channel %d: partial table lookup failed, partial silenced: %v", c.channel, err)
			table = xgsynth.Table{}
		}
		g := NewPartialGenerator(&params, zone, table, note, velocity, drumTune, soft, c.sampleRate)
		if g.Active() {
			if g.Filter() != nil {
				g.Filter().SetControls(c.noteControls(note))
			}
			n.partials = append(n.partials, g)
		}
	}
	if len(n.partials) == 0 {
		n.active = false
		return n
	}
	for i := range n.lfos {
		n.lfos[i].SetControls(c.noteControls(note))
	}
	n.detune = params.Detune
	return n
}

// startGlide begins a portamento slide from another note; the pitch offset
// decays linearly to zero over the given time.
func (n *ChannelNote) startGlide(fromNote byte, seconds float32, sampleRate float32) {
	samples := int(seconds * sampleRate)
	if samples <= 0 {
		return
	}
	n.glideCents = (float32(fromNote) - float32(n.note)) * 100
	n.glideStep = n.glideCents / float32(samples)
	n.glideSamples = samples
}

func (n *ChannelNote) noteOff() {
	for _, p := range n.partials {
		p.AmpEnvelope().NoteOff()
		p.FilterEnvelope().NoteOff()
		p.PitchEnvelope().NoteOff()
	}
}

func (n *ChannelNote) forceRelease() {
	for _, p := range n.partials {
		p.AmpEnvelope().ForceRelease()
		p.FilterEnvelope().ForceRelease()
		p.PitchEnvelope().ForceRelease()
	}
}

// firstPartial returns the partial whose envelopes feed the modulation
// snapshot.
func (n *ChannelNote) firstPartial() *PartialGenerator {
	for _, p := range n.partials {
		if p.Active() {
			return p
		}
	}
	return nil
}

// generateSample renders one stereo frame: it steps the LFOs, snapshots the
// modulation sources, evaluates the matrix and mixes the active partials by
// arithmetic mean.
func (n *ChannelNote) generateSample(c *ChannelRenderer) (float32, float32) {
	if !n.active {
		return 0, 0
	}

	l1 := n.lfos[0].Step()
	l2 := n.lfos[1].Step()
	l3 := n.lfos[2].Step()

	s := &n.sources
	s.LFO1, s.LFO2, s.LFO3 = l1, l2, l3
	if p := n.firstPartial(); p != nil {
		s.AmpEnv = p.AmpEnvelope().Level()
		s.FilterEnv = p.FilterEnvelope().Level()
		s.PitchEnv = p.PitchEnvelope().Level()
	}
	s.Velocity = float32(n.velocity) / 127
	s.NoteNumber = float32(n.note) / 127
	s.ChannelPressure = float32(c.pressure) / 127
	s.KeyPressure = float32(c.keyPressure[n.note]) / 127
	s.ModWheel = float32(c.controllers[ccModWheel]) / 127
	s.Breath = float32(c.controllers[ccBreath]) / 127
	s.Foot = float32(c.controllers[ccFoot]) / 127
	s.DataEntry = float32(c.controllers[ccDataEntryMSB]) / 127
	s.Volume = float32(c.controllers[ccVolume]) / 127
	s.Balance = float32(c.controllers[ccBalance]) / 127
	s.PortamentoTime = float32(c.controllers[ccPortamentoTime]) / 127
	if c.controllers[ccPortamentoSwitch] >= 64 {
		s.Portamento = 1
	} else {
		s.Portamento = 0
	}
	s.Brightness = float32(c.controllers[ccBrightness]) / 127
	s.Harmonic = float32(c.controllers[ccHarmonic]) / 127
	s.Vibrato = l1 * c.vibratoDepth
	s.Tremolo = l2 * c.tremoloDepth

	n.matrix.Process(s, n.velocity, n.note)

	pitchSum, _ := n.matrix.Sum(xgsynth.DestPitch)
	globalPitchMod := c.pitchBendCents() + n.detune + pitchSum
	if n.glideSamples > 0 {
		globalPitchMod += n.glideCents
		n.glideCents -= n.glideStep
		n.glideSamples--
	}

	n.applyDestinations()

	velX, _ := n.matrix.Sum(xgsynth.DestVelCrossfade)
	noteX, _ := n.matrix.Sum(xgsynth.DestNoteCrossfade)

	ampScale := float32(1)
	if v, ok := n.matrix.Sum(xgsynth.DestAmp); ok {
		ampScale = modScale(v)
	}

	var sumL, sumR float32
	count := 0
	for _, p := range n.partials {
		if !p.Active() {
			continue
		}
		pl, pr := p.GenerateSample(l1, l2, l3, globalPitchMod, velX, noteX)
		if !p.Active() {
			continue
		}
		sumL += pl
		sumR += pr
		count++
	}
	if count == 0 {
		n.active = false
		return 0, 0
	}
	inv := ampScale / float32(count)
	return sumL * inv, sumR * inv
}

// applyDestinations forwards the matrix sums that modulate the voice's own
// units; a destination with no route leaves the unit at its base value.
func (n *ChannelNote) applyDestinations() {
	lfoDests := [3][2]xgsynth.ModDestination{
		{xgsynth.DestLFO1Rate, xgsynth.DestLFO1Depth},
		{xgsynth.DestLFO2Rate, xgsynth.DestLFO2Depth},
		{xgsynth.DestLFO3Rate, xgsynth.DestLFO3Depth},
	}
	for i, d := range lfoDests {
		rateScale, depthScale := float32(1), float32(1)
		if v, ok := n.matrix.Sum(d[0]); ok {
			rateScale = modScale(v)
		}
		if v, ok := n.matrix.Sum(d[1]); ok {
			depthScale = modScale(v)
		}
		n.lfos[i].SetScales(rateScale, depthScale)
	}
	if v, ok := n.matrix.Sum(xgsynth.DestStereoWidth); ok {
		for _, p := range n.partials {
			if p.Filter() != nil {
				p.Filter().SetWidthScale(modScale(v))
			}
		}
	}
	ampA, okAA := n.matrix.Sum(xgsynth.DestAmpAttack)
	ampD, okAD := n.matrix.Sum(xgsynth.DestAmpDecay)
	ampR, okAR := n.matrix.Sum(xgsynth.DestAmpRelease)
	if okAA || okAD || okAR {
		for _, p := range n.partials {
			p.AmpEnvelope().SetTimeScales(modScale(ampA), modScale(ampD), modScale(ampR))
		}
	}
	fltA, okFA := n.matrix.Sum(xgsynth.DestFilterAttack)
	fltD, okFD := n.matrix.Sum(xgsynth.DestFilterDecay)
	fltR, okFR := n.matrix.Sum(xgsynth.DestFilterRelease)
	if okFA || okFD || okFR {
		for _, p := range n.partials {
			p.FilterEnvelope().SetTimeScales(modScale(fltA), modScale(fltD), modScale(fltR))
		}
	}
}

// modScale turns a summed modulation value into a multiplicative scale with
// a floor so modulated times and rates stay positive.
func modScale(v float32) float32 {
	s := 1 + v
	if s < 0.1 {
		return 0.1
	}
	return s
}
