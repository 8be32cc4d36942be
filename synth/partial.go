package synth

import (
	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

// PartialGenerator plays one wavetable layer of a note: three envelopes, an
// optional resonant filter and a phase accumulator into the resolved sample
// table. A partial whose zone does not cover the note/velocity, or whose
// table is empty, is permanently silent.
type PartialGenerator struct {
	note     byte
	velocity byte
	active   bool

	table    xgsynth.Table
	tableLen float64
	phase    float64

	baseFreq   float32
	sampleRate float32

	ampEnv    *Envelope
	filterEnv *Envelope
	pitchEnv  *Envelope
	filter    *ResonantFilter

	zone       xgsynth.ZoneParams
	gain       float32
	panL, panR float32
}

// NewPartialGenerator builds one partial from bank parameters, its zone and
// the already-resolved sample table. drumTune shifts the pitch in semitones
// on drum channels; softPedal halves the attack energy of the envelopes.
func NewPartialGenerator(p *xgsynth.ProgramParams, zone xgsynth.ZoneParams, table xgsynth.Table,
	note, velocity byte, drumTune float32, softPedal bool, sampleRate float32) *PartialGenerator {

	g := &PartialGenerator{
		note:       note,
		velocity:   velocity,
		table:      table,
		tableLen:   float64(table.Len()),
		sampleRate: sampleRate,
		zone:       zone,
	}
	g.active = note >= zone.KeyLo && note <= zone.KeyHi &&
		velocity >= zone.VelLo && velocity <= zone.VelHi &&
		table.Len() > 0
	if !g.active {
		return g
	}

	semis := float32(note) + p.NoteShift + drumTune + zone.CoarseTune + zone.FineTune/100
	g.baseFreq = 440 * math32.Exp2((semis-69)/12)

	g.ampEnv = NewEnvelope(p.AmpEnv, sampleRate)
	g.ampEnv.NoteOn(note, velocity, softPedal)
	g.filterEnv = NewEnvelope(p.FilterEnv, sampleRate)
	g.filterEnv.NoteOn(note, velocity, softPedal)
	g.pitchEnv = NewEnvelope(p.PitchEnv, sampleRate)
	g.pitchEnv.NoteOn(note, velocity, softPedal)
	if p.Filter.Enabled {
		g.filter = NewResonantFilter(p.Filter, note, sampleRate)
	}

	g.gain = zone.Level * math32.Pow(10, -zone.AttenuationDB/20)
	pan := zone.Pan
	if pan < 0 {
		pan = 0
	}
	if pan > 1 {
		pan = 1
	}
	g.panL = math32.Cos(pan * math32.Pi / 2)
	g.panR = math32.Sin(pan * math32.Pi / 2)
	return g
}

func (g *PartialGenerator) Active() bool { return g.active }

func (g *PartialGenerator) AmpEnvelope() *Envelope    { return g.ampEnv }
func (g *PartialGenerator) FilterEnvelope() *Envelope { return g.filterEnv }
func (g *PartialGenerator) PitchEnvelope() *Envelope  { return g.pitchEnv }
func (g *PartialGenerator) Filter() *ResonantFilter   { return g.filter }

// GenerateSample renders one stereo frame. globalPitchMod is in cents;
// velCrossfade/noteCrossfade are attenuations in [0,1] applied only when the
// zone opts in.
func (g *PartialGenerator) GenerateSample(lfo1, lfo2, lfo3, globalPitchMod, velCrossfade, noteCrossfade float32) (float32, float32) {
	if !g.active {
		return 0, 0
	}
	amp := g.ampEnv.Process()
	fenv := g.filterEnv.Process()
	penv := g.pitchEnv.Process()
	if g.ampEnv.Idle() {
		g.active = false
		return 0, 0
	}
	if amp <= 0 {
		return 0, 0
	}

	pitchMod := 0.5*lfo1 + 0.3*lfo2 + 0.7*penv + globalPitchMod
	freq := g.baseFreq * math32.Exp2(pitchMod/1200)
	inc := float64(freq) * g.tableLen / float64(g.sampleRate)
	g.phase += inc
	for g.phase >= g.tableLen {
		g.phase -= g.tableLen
	}

	idx := int(g.phase)
	frac := float32(g.phase - float64(idx))
	next := idx + 1
	if next >= g.table.Len() {
		next = 0
	}
	f0, f1 := g.table.Frames[idx], g.table.Frames[next]
	l := f0[0] + (f1[0]-f0[0])*frac
	r := f0[1] + (f1[1]-f0[1])*frac

	if g.filter != nil {
		g.filter.SetCutoffMod(0.5 + 0.5*(0.5*fenv+0.3*lfo1))
		l, r = g.filter.Process(l, r)
	}

	gain := amp * g.gain
	if g.zone.VelCrossfade {
		gain *= 1 - velCrossfade
	}
	if g.zone.NoteCrossfade {
		gain *= 1 - noteCrossfade
	}
	if g.table.Stereo {
		return l * gain, r * gain
	}
	mono := l
	return mono * gain * g.panL, mono * gain * g.panR
}
