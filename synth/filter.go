package synth

import (
	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

const (
	minCutoff    = 20
	maxCutoff    = 20000
	minResonance = 1e-3
)

// ResonantFilter is a stereo biquad with runtime-modulated cutoff and
// resonance. When the stereo width is nonzero the two channels run on
// separate coefficient sets, the left cutoff pulled down and the right
// pushed up. Coefficients are recomputed only when an input changes.
type ResonantFilter struct {
	params     xgsynth.FilterParams
	sampleRate float32
	note       byte

	cutoffMod  float32 // multiplicative, from envelope/LFO
	widthScale float32 // multiplicative, from the matrix
	ctrl       Controls
	dirty      bool

	b0, b1, b2, a1, a2 [2]float32
	x1, x2, y1, y2     [2]float32
}

func NewResonantFilter(params xgsynth.FilterParams, note byte, sampleRate float32) *ResonantFilter {
	f := &ResonantFilter{
		params:     params,
		sampleRate: sampleRate,
		note:       note,
		cutoffMod:  1,
		widthScale: 1,
		dirty:      true,
	}
	return f
}

// SetCutoffMod applies the per-sample multiplicative cutoff modulation
// computed from the filter envelope and LFO 1.
func (f *ResonantFilter) SetCutoffMod(mod float32) {
	if mod == f.cutoffMod {
		return
	}
	f.cutoffMod = mod
	f.dirty = true
}

func (f *ResonantFilter) SetControls(c Controls) {
	if c == f.ctrl {
		return
	}
	f.ctrl = c
	f.dirty = true
}

func (f *ResonantFilter) SetCutoff(hz float32) {
	f.params.Cutoff = hz
	f.dirty = true
}

func (f *ResonantFilter) SetResonance(q float32) {
	f.params.Resonance = q
	f.dirty = true
}

func (f *ResonantFilter) SetType(t xgsynth.FilterType) {
	f.params.Type = t
	f.dirty = true
}

func (f *ResonantFilter) SetKeyFollow(k float32) {
	f.params.KeyFollow = k
	f.dirty = true
}

func (f *ResonantFilter) SetStereoWidth(w float32) {
	f.params.StereoWidth = w
	f.dirty = true
}

// SetWidthScale applies multiplicative stereo-width modulation from the
// matrix.
func (f *ResonantFilter) SetWidthScale(s float32) {
	if s == f.widthScale {
		return
	}
	f.widthScale = s
	f.dirty = true
}

// BaseCutoff is the key-followed cutoff of the filter before modulation.
func (f *ResonantFilter) BaseCutoff() float32 {
	if f.params.KeyFollow == 0 {
		return f.params.Cutoff
	}
	return f.params.Cutoff * math32.Exp2((float32(f.note)-60)/12*f.params.KeyFollow)
}

// Process runs one stereo frame through the filter.
func (f *ResonantFilter) Process(l, r float32) (float32, float32) {
	if f.dirty {
		f.recalc()
		f.dirty = false
	}
	return f.processSide(0, l), f.processSide(1, r)
}

func (f *ResonantFilter) processSide(c int, in float32) float32 {
	out := f.b0[c]*in + f.b1[c]*f.x1[c] + f.b2[c]*f.x2[c] -
		f.a1[c]*f.y1[c] - f.a2[c]*f.y2[c]
	f.x2[c] = f.x1[c]
	f.x1[c] = in
	f.y2[c] = f.y1[c]
	f.y1[c] = out
	return out
}

func (f *ResonantFilter) recalc() {
	cutoff := f.BaseCutoff() * f.cutoffMod
	// brightness opens the filter, harmonic content sharpens it; 0.5 is the
	// neutral controller position
	cutoff *= 1 + (f.ctrl.Brightness*2-1)*0.5
	resonance := f.params.Resonance * (1 + (f.ctrl.Harmonic*2-1)*0.3)
	if resonance < minResonance {
		resonance = minResonance
	}
	width := f.params.StereoWidth * f.widthScale
	if width == 0 {
		f.calcSide(0, cutoff, resonance)
		f.b0[1], f.b1[1], f.b2[1] = f.b0[0], f.b1[0], f.b2[0]
		f.a1[1], f.a2[1] = f.a1[0], f.a2[0]
		return
	}
	f.calcSide(0, cutoff*(1-width/2), resonance)
	f.calcSide(1, cutoff*(1+width/2), resonance)
}

func (f *ResonantFilter) calcSide(c int, cutoff, resonance float32) {
	nyquist := f.sampleRate * 0.49
	if cutoff < minCutoff {
		cutoff = minCutoff
	}
	if cutoff > maxCutoff {
		cutoff = maxCutoff
	}
	if cutoff > nyquist {
		cutoff = nyquist
	}
	omega := 2 * math32.Pi * cutoff / f.sampleRate
	sin, cos := math32.Sincos(omega)
	alpha := sin / (2 * resonance)

	var b0, b1, b2 float32
	switch f.params.Type {
	case xgsynth.Lowpass:
		b0 = (1 - cos) / 2
		b1 = 1 - cos
		b2 = (1 - cos) / 2
	case xgsynth.Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case xgsynth.Highpass:
		b0 = (1 + cos) / 2
		b1 = -(1 + cos)
		b2 = (1 + cos) / 2
	}
	a0 := 1 + alpha
	f.b0[c] = b0 / a0
	f.b1[c] = b1 / a0
	f.b2[c] = b2 / a0
	f.a1[c] = -2 * cos / a0
	f.a2[c] = (1 - alpha) / a0
}
