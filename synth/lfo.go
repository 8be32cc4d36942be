package synth

import (
	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

// Controls are the continuous controller values a channel broadcasts into
// its voices, normalized to [0,1].
type Controls struct {
	ModWheel        float32
	Breath          float32
	Foot            float32
	Brightness      float32
	Harmonic        float32
	ChannelPressure float32
	KeyPressure     float32
}

// LFO is a periodic modulation source. Controller values speed it up
// multiplicatively; the delay is counted in samples before any output.
type LFO struct {
	params     xgsynth.LFOParams
	sampleRate float32

	phase        float32
	phaseStep    float32
	delaySamples int
	elapsed      int

	rateScale  float32 // multiplicative modulation from the matrix
	depthScale float32
	ctrl       Controls
}

func NewLFO(params xgsynth.LFOParams, sampleRate float32) *LFO {
	l := &LFO{
		params:     params,
		sampleRate: sampleRate,
		rateScale:  1,
		depthScale: 1,
	}
	l.delaySamples = int(params.Delay * sampleRate)
	l.recalcStep()
	return l
}

// Step advances the oscillator one sample and returns its output, or 0
// while still inside the delay.
func (l *LFO) Step() float32 {
	if l.elapsed < l.delaySamples {
		l.elapsed++
		return 0
	}
	v := l.waveValue() * l.params.Depth * l.depthScale
	l.phase += l.phaseStep
	if l.phase >= 2*math32.Pi {
		l.phase = math32.Mod(l.phase, 2*math32.Pi)
	}
	return v
}

func (l *LFO) waveValue() float32 {
	switch l.params.Waveform {
	case xgsynth.Sine:
		return math32.Sin(l.phase)
	case xgsynth.Triangle:
		return 1 - math32.Abs(math32.Mod(l.phase/math32.Pi, 2)-1)*2
	case xgsynth.Square:
		if l.phase < math32.Pi {
			return 1
		}
		return -1
	case xgsynth.Sawtooth:
		return math32.Mod(l.phase/(2*math32.Pi), 1)*2 - 1
	}
	return 0
}

// SetControls updates the controller-derived rate multiplier.
func (l *LFO) SetControls(c Controls) {
	if c == l.ctrl {
		return
	}
	l.ctrl = c
	l.recalcStep()
}

// SetRate replaces the base rate in Hz.
func (l *LFO) SetRate(hz float32) {
	l.params.Rate = hz
	l.recalcStep()
}

func (l *LFO) SetDepth(depth float32) {
	l.params.Depth = depth
}

func (l *LFO) SetDelay(seconds float32) {
	l.params.Delay = seconds
	l.delaySamples = int(seconds * l.sampleRate)
}

func (l *LFO) SetWaveform(w xgsynth.Waveform) {
	l.params.Waveform = w
}

// SetScales applies multiplicative rate/depth modulation from the matrix.
func (l *LFO) SetScales(rate, depth float32) {
	l.depthScale = depth
	if rate == l.rateScale {
		return
	}
	l.rateScale = rate
	l.recalcStep()
}

func (l *LFO) rateMultiplier() float32 {
	c := &l.ctrl
	return 1 + c.ModWheel*0.5 + c.Breath*0.4 + c.Foot*0.3 +
		c.ChannelPressure*0.3 + c.KeyPressure*0.3 +
		c.Brightness*0.2 + c.Harmonic*0.2
}

func (l *LFO) recalcStep() {
	rate := l.params.Rate * l.rateScale * l.rateMultiplier()
	if rate < 0.1 {
		rate = 0.1
	}
	l.phaseStep = rate * 2 * math32.Pi / l.sampleRate
}
