package xgsynth

import "fmt"

// Waveform is the shape of an LFO or a generated wavetable cycle.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

var waveformNames = [...]string{"sine", "triangle", "square", "sawtooth"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("waveform(%d)", int(w))
	}
	return waveformNames[w]
}

func (w Waveform) MarshalYAML() (interface{}, error) {
	if w < 0 || int(w) >= len(waveformNames) {
		return nil, fmt.Errorf("cannot marshal unknown waveform %d", int(w))
	}
	return waveformNames[w], nil
}

func (w *Waveform) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range waveformNames {
		if n == name {
			*w = Waveform(i)
			return nil
		}
	}
	return fmt.Errorf("unknown waveform %q", name)
}

// FilterType selects the biquad response of a resonant filter.
type FilterType int

const (
	Lowpass FilterType = iota
	Bandpass
	Highpass
)

var filterTypeNames = [...]string{"lowpass", "bandpass", "highpass"}

func (f FilterType) String() string {
	if f < 0 || int(f) >= len(filterTypeNames) {
		return fmt.Sprintf("filtertype(%d)", int(f))
	}
	return filterTypeNames[f]
}

func (f FilterType) MarshalYAML() (interface{}, error) {
	if f < 0 || int(f) >= len(filterTypeNames) {
		return nil, fmt.Errorf("cannot marshal unknown filter type %d", int(f))
	}
	return filterTypeNames[f], nil
}

func (f *FilterType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range filterTypeNames {
		if n == name {
			*f = FilterType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown filter type %q", name)
}

// ModSource identifies one input of the modulation matrix.
type ModSource int

const (
	SrcLFO1 ModSource = iota
	SrcLFO2
	SrcLFO3
	SrcAmpEnv
	SrcFilterEnv
	SrcPitchEnv
	SrcVelocity
	SrcNoteNumber
	SrcChannelPressure
	SrcKeyPressure
	SrcModWheel
	SrcBreath
	SrcFoot
	SrcDataEntry
	SrcVolume
	SrcBalance
	SrcPortamentoTime
	SrcPortamento
	SrcBrightness
	SrcHarmonic
	SrcVibrato
	SrcTremolo
	NumModSources
)

var modSourceNames = [...]string{
	"lfo1", "lfo2", "lfo3", "ampenv", "filterenv", "pitchenv", "velocity",
	"notenumber", "channelpressure", "keypressure", "modwheel", "breath",
	"foot", "dataentry", "volume", "balance", "portamentotime", "portamento",
	"brightness", "harmonic", "vibrato", "tremolo",
}

func (s ModSource) String() string {
	if s < 0 || int(s) >= len(modSourceNames) {
		return fmt.Sprintf("modsource(%d)", int(s))
	}
	return modSourceNames[s]
}

func (s ModSource) MarshalYAML() (interface{}, error) {
	if s < 0 || int(s) >= len(modSourceNames) {
		return nil, fmt.Errorf("cannot marshal unknown modulation source %d", int(s))
	}
	return modSourceNames[s], nil
}

func (s *ModSource) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range modSourceNames {
		if n == name {
			*s = ModSource(i)
			return nil
		}
	}
	return fmt.Errorf("unknown modulation source %q", name)
}

// ModDestination identifies one output of the modulation matrix.
type ModDestination int

const (
	DestPitch ModDestination = iota
	DestAmp
	DestFilterCutoff
	DestFilterResonance
	DestPan
	DestStereoWidth
	DestLFO1Rate
	DestLFO1Depth
	DestLFO2Rate
	DestLFO2Depth
	DestLFO3Rate
	DestLFO3Depth
	DestAmpAttack
	DestAmpDecay
	DestAmpRelease
	DestFilterAttack
	DestFilterDecay
	DestFilterRelease
	DestVelCrossfade
	DestNoteCrossfade
	NumModDestinations
)

var modDestinationNames = [...]string{
	"pitch", "amp", "filtercutoff", "filterresonance", "pan", "stereowidth",
	"lfo1rate", "lfo1depth", "lfo2rate", "lfo2depth", "lfo3rate", "lfo3depth",
	"ampattack", "ampdecay", "amprelease", "filterattack", "filterdecay",
	"filterrelease", "velcrossfade", "notecrossfade",
}

func (d ModDestination) String() string {
	if d < 0 || int(d) >= len(modDestinationNames) {
		return fmt.Sprintf("moddestination(%d)", int(d))
	}
	return modDestinationNames[d]
}

func (d ModDestination) MarshalYAML() (interface{}, error) {
	if d < 0 || int(d) >= len(modDestinationNames) {
		return nil, fmt.Errorf("cannot marshal unknown modulation destination %d", int(d))
	}
	return modDestinationNames[d], nil
}

func (d *ModDestination) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range modDestinationNames {
		if n == name {
			*d = ModDestination(i)
			return nil
		}
	}
	return fmt.Errorf("unknown modulation destination %q", name)
}

// EnvelopeParams are the DADHSR timings of one envelope. Times are seconds,
// sustain is a level in [0,1].
type EnvelopeParams struct {
	Delay         float32 `yaml:"delay,omitempty"`
	Attack        float32 `yaml:"attack"`
	Hold          float32 `yaml:"hold,omitempty"`
	Decay         float32 `yaml:"decay"`
	Sustain       float32 `yaml:"sustain"`
	Release       float32 `yaml:"release"`
	VelocitySense float32 `yaml:"velocitysense,omitempty"`
	KeyScaling    float32 `yaml:"keyscaling,omitempty"`
}

// LFOParams describe one low-frequency oscillator. Rate is Hz, delay is
// seconds, depth is the unitless output scale.
type LFOParams struct {
	Rate     float32  `yaml:"rate"`
	Depth    float32  `yaml:"depth"`
	Delay    float32  `yaml:"delay,omitempty"`
	Waveform Waveform `yaml:"waveform"`
}

// FilterParams describe the per-partial resonant filter. Cutoff is Hz;
// KeyFollow 1 tracks the keyboard fully; StereoWidth in [0,1] splits the
// left/right cutoffs.
type FilterParams struct {
	Enabled     bool       `yaml:"enabled"`
	Type        FilterType `yaml:"type"`
	Cutoff      float32    `yaml:"cutoff"`
	Resonance   float32    `yaml:"resonance"`
	KeyFollow   float32    `yaml:"keyfollow,omitempty"`
	StereoWidth float32    `yaml:"stereowidth,omitempty"`
}

// ModRouteParams is one source→destination modulation routing. Polarity is
// +1 or -1.
type ModRouteParams struct {
	Source              ModSource      `yaml:"source"`
	Destination         ModDestination `yaml:"destination"`
	Amount              float32        `yaml:"amount"`
	Polarity            float32        `yaml:"polarity,omitempty"`
	VelocitySensitivity float32        `yaml:"velocitysensitivity,omitempty"`
	KeyScaling          float32        `yaml:"keyscaling,omitempty"`
}

// ZoneParams scope one sample table to a key/velocity range. Pan is in [0,1]
// with 0.5 center; Level is a linear gain on top of AttenuationDB.
type ZoneParams struct {
	KeyLo         byte    `yaml:"keylo"`
	KeyHi         byte    `yaml:"keyhi"`
	VelLo         byte    `yaml:"vello"`
	VelHi         byte    `yaml:"velhi"`
	Pan           float32 `yaml:"pan"`
	Level         float32 `yaml:"level"`
	AttenuationDB float32 `yaml:"attenuationdb,omitempty"`
	CoarseTune    float32 `yaml:"coarsetune,omitempty"` // semitones
	FineTune      float32 `yaml:"finetune,omitempty"`   // cents
	VelCrossfade  bool    `yaml:"velcrossfade,omitempty"`
	NoteCrossfade bool    `yaml:"notecrossfade,omitempty"`
}

// ProgramParams is everything a wavetable provider knows about one program:
// the three envelopes, filter, LFOs, modulation routes and the ordered zone
// list. One zone corresponds to one partial.
type ProgramParams struct {
	Name          string           `yaml:"name,omitempty"`
	AmpEnv        EnvelopeParams   `yaml:"ampenv"`
	FilterEnv     EnvelopeParams   `yaml:"filterenv"`
	PitchEnv      EnvelopeParams   `yaml:"pitchenv"`
	Filter        FilterParams     `yaml:"filter"`
	LFOs          [3]LFOParams     `yaml:"lfos"`
	PitchModDepth [3]float32       `yaml:"pitchmoddepth,flow,omitempty"` // cents of pitch per unit LFO output
	Routes        []ModRouteParams `yaml:"routes,omitempty"`             // nil means DefaultRoutes
	Zones         []ZoneParams     `yaml:"zones"`
	Detune        float32          `yaml:"detune,omitempty"`    // cents
	NoteShift     float32          `yaml:"noteshift,omitempty"` // semitones
	DrumTune      float32          `yaml:"drumtune,omitempty"`  // semitones, drum channels only
	DrumLevel     float32          `yaml:"drumlevel,omitempty"`
	DrumPan       float32          `yaml:"drumpan,omitempty"`
}

// DefaultRoutes is the modulation routing used when a program supplies none.
// Pitch amounts are in cents; the three LFO→pitch amounts come from the
// program's PitchModDepth values.
func DefaultRoutes(p *ProgramParams) []ModRouteParams {
	return []ModRouteParams{
		{Source: SrcLFO1, Destination: DestPitch, Amount: p.PitchModDepth[0], Polarity: 1},
		{Source: SrcLFO2, Destination: DestPitch, Amount: p.PitchModDepth[1], Polarity: 1},
		{Source: SrcLFO3, Destination: DestPitch, Amount: p.PitchModDepth[2], Polarity: 1},
		{Source: SrcAmpEnv, Destination: DestFilterCutoff, Amount: 0.5, Polarity: 1},
		{Source: SrcLFO1, Destination: DestFilterCutoff, Amount: 0.3, Polarity: 1},
		{Source: SrcVelocity, Destination: DestAmp, Amount: 0.5, Polarity: 1, VelocitySensitivity: 0.5},
		{Source: SrcNoteNumber, Destination: DestPitch, Amount: 1, Polarity: 1, KeyScaling: 1},
		{Source: SrcVibrato, Destination: DestPitch, Amount: 50, Polarity: 1},
		{Source: SrcTremolo, Destination: DestAmp, Amount: 0.3, Polarity: 1},
	}
}

// DefaultProgram returns the power-on parameter set of a melodic program.
func DefaultProgram() ProgramParams {
	return ProgramParams{
		Name:      "default",
		AmpEnv:    EnvelopeParams{Attack: 0.01, Decay: 0.3, Sustain: 0.7, Release: 0.3},
		FilterEnv: EnvelopeParams{Attack: 0.05, Decay: 0.5, Sustain: 0.5, Release: 0.3},
		PitchEnv:  EnvelopeParams{Attack: 0.01, Decay: 0.1, Sustain: 0, Release: 0.1},
		Filter:    FilterParams{Enabled: true, Type: Lowpass, Cutoff: 8000, Resonance: 0.707, KeyFollow: 0.5},
		LFOs: [3]LFOParams{
			{Rate: 5, Depth: 1, Delay: 0.2, Waveform: Sine},
			{Rate: 6.5, Depth: 1, Waveform: Triangle},
			{Rate: 0.8, Depth: 1, Waveform: Sine},
		},
		PitchModDepth: [3]float32{10, 0, 0},
		Zones: []ZoneParams{
			{KeyLo: 0, KeyHi: 127, VelLo: 0, VelHi: 127, Pan: 0.5, Level: 1},
		},
	}
}

// DefaultDrumProgram returns the power-on parameter set of a drum note:
// percussive amp envelope, no pitch modulation, key-filtered single zone.
func DefaultDrumProgram(note byte) ProgramParams {
	return ProgramParams{
		Name:      "drum",
		AmpEnv:    EnvelopeParams{Attack: 0.001, Decay: 0.4, Sustain: 0, Release: 0.1},
		FilterEnv: EnvelopeParams{Attack: 0.001, Decay: 0.2, Sustain: 0, Release: 0.1},
		PitchEnv:  EnvelopeParams{Attack: 0.001, Decay: 0.05, Sustain: 0, Release: 0.05},
		Filter:    FilterParams{Enabled: false, Type: Lowpass, Cutoff: 12000, Resonance: 0.707},
		LFOs: [3]LFOParams{
			{Rate: 5, Depth: 1, Waveform: Sine},
			{Rate: 6.5, Depth: 1, Waveform: Triangle},
			{Rate: 0.8, Depth: 1, Waveform: Sine},
		},
		Zones: []ZoneParams{
			{KeyLo: note, KeyHi: note, VelLo: 0, VelHi: 127, Pan: 0.5, Level: 1},
		},
	}
}
