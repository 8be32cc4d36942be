package synth

import (
	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

// ModSources is the per-sample snapshot the matrix is evaluated against.
// Building it once per sample means the matrix is never iterated to a fixed
// point, so routing cycles cannot occur.
type ModSources struct {
	LFO1, LFO2, LFO3             float32
	AmpEnv, FilterEnv, PitchEnv  float32
	Velocity, NoteNumber         float32
	ChannelPressure, KeyPressure float32
	ModWheel, Breath, Foot       float32
	DataEntry, Volume, Balance   float32
	PortamentoTime, Portamento   float32
	Brightness, Harmonic         float32
	Vibrato, Tremolo             float32
}

func (s *ModSources) value(src xgsynth.ModSource) float32 {
	switch src {
	case xgsynth.SrcLFO1:
		return s.LFO1
	case xgsynth.SrcLFO2:
		return s.LFO2
	case xgsynth.SrcLFO3:
		return s.LFO3
	case xgsynth.SrcAmpEnv:
		return s.AmpEnv
	case xgsynth.SrcFilterEnv:
		return s.FilterEnv
	case xgsynth.SrcPitchEnv:
		return s.PitchEnv
	case xgsynth.SrcVelocity:
		return s.Velocity
	case xgsynth.SrcNoteNumber:
		return s.NoteNumber
	case xgsynth.SrcChannelPressure:
		return s.ChannelPressure
	case xgsynth.SrcKeyPressure:
		return s.KeyPressure
	case xgsynth.SrcModWheel:
		return s.ModWheel
	case xgsynth.SrcBreath:
		return s.Breath
	case xgsynth.SrcFoot:
		return s.Foot
	case xgsynth.SrcDataEntry:
		return s.DataEntry
	case xgsynth.SrcVolume:
		return s.Volume
	case xgsynth.SrcBalance:
		return s.Balance
	case xgsynth.SrcPortamentoTime:
		return s.PortamentoTime
	case xgsynth.SrcPortamento:
		return s.Portamento
	case xgsynth.SrcBrightness:
		return s.Brightness
	case xgsynth.SrcHarmonic:
		return s.Harmonic
	case xgsynth.SrcVibrato:
		return s.Vibrato
	case xgsynth.SrcTremolo:
		return s.Tremolo
	}
	return 0
}

const maxModRoutes = 16

type modRoute struct {
	inUse    bool
	source   xgsynth.ModSource
	dest     xgsynth.ModDestination
	amount   float32
	polarity float32
	velSens  float32
	keyScale float32
}

// ModulationMatrix is a fixed array of up to 16 routes summed per
// destination. Process writes into preallocated sums, so evaluating the
// matrix never allocates.
type ModulationMatrix struct {
	routes  [maxModRoutes]modRoute
	sums    [xgsynth.NumModDestinations]float32
	present uint32 // bitmask of destinations with at least one route
}

func NewModulationMatrix(routes []xgsynth.ModRouteParams) ModulationMatrix {
	var m ModulationMatrix
	for i, r := range routes {
		if i >= maxModRoutes {
			break
		}
		polarity := r.Polarity
		if polarity == 0 {
			polarity = 1
		}
		m.routes[i] = modRoute{
			inUse:    true,
			source:   r.Source,
			dest:     r.Destination,
			amount:   r.Amount,
			polarity: polarity,
			velSens:  r.VelocitySensitivity,
			keyScale: r.KeyScaling,
		}
		m.present |= 1 << uint(r.Destination)
	}
	return m
}

// Process evaluates every populated route against the snapshot and sums the
// results per destination.
func (m *ModulationMatrix) Process(src *ModSources, velocity, note byte) {
	for i := range m.sums {
		m.sums[i] = 0
	}
	for i := range m.routes {
		r := &m.routes[i]
		if !r.inUse {
			continue
		}
		v := src.value(r.source) * r.polarity * r.amount
		if r.velSens != 0 {
			v *= math32.Pow(float32(velocity)/127, 1+r.velSens)
		}
		if r.keyScale != 0 {
			scale := 1 + (float32(note)-60)/60*r.keyScale
			if scale < 0.1 {
				scale = 0.1
			}
			v *= scale
		}
		m.sums[r.dest] += v
	}
}

// Sum returns the summed value of a destination and whether any route
// targets it; a present destination can still legitimately sum to zero.
func (m *ModulationMatrix) Sum(d xgsynth.ModDestination) (float32, bool) {
	return m.sums[d], m.present&(1<<uint(d)) != 0
}
