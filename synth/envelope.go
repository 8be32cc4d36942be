package synth

import (
	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

type envStage uint8

const (
	envIdle envStage = iota
	envDelay
	envAttack
	envHold
	envDecay
	envSustain
	envRelease
)

const sustainEpsilon = 1e-3

// Envelope is a DADHSR time-shaper. The only rest state is (level 0, stage
// idle); pedals gate the stage transitions but never bend the numeric curve.
type Envelope struct {
	params     xgsynth.EnvelopeParams
	sampleRate float32
	note       byte

	stage   envStage
	level   float32
	amp     float32 // velocity factor, scales the output
	counter int

	delaySamples int
	holdSamples  int
	attackInc    float32
	decayDec     float32
	releaseDec   float32
	sustain      float32

	attackScale  float32 // multiplicative stage-time modulation
	decayScale   float32
	releaseScale float32

	sustainPedal   bool
	sostenutoHeld  bool
	softPedal      bool
	holdAll        bool
	pendingRelease bool
}

func NewEnvelope(params xgsynth.EnvelopeParams, sampleRate float32) *Envelope {
	return &Envelope{
		params:       params,
		sampleRate:   sampleRate,
		attackScale:  1,
		decayScale:   1,
		releaseScale: 1,
	}
}

// NoteOn restarts the envelope from the Delay stage. A retrigger on an
// already-sounding envelope keeps the current level so the attack ramps from
// there without a click.
func (e *Envelope) NoteOn(note, velocity byte, softPedal bool) {
	if e.stage == envIdle {
		e.level = 0
	}
	e.note = note
	e.softPedal = softPedal
	e.amp = 1
	if e.params.VelocitySense > 0 {
		e.amp = math32.Pow(float32(velocity)/127, e.params.VelocitySense)
		if e.amp > 1 {
			e.amp = 1
		}
	}
	if softPedal {
		e.amp *= 0.5
	}
	e.pendingRelease = false
	e.sostenutoHeld = false
	e.stage = envDelay
	e.counter = 0
	e.recalc()
}

// NoteOff moves to Release unless a pedal or an all-notes hold keeps the
// note sounding; the release then happens when the hold lifts.
func (e *Envelope) NoteOff() {
	if e.stage == envIdle || e.stage == envRelease {
		return
	}
	if e.sustainPedal || e.sostenutoHeld || e.holdAll {
		e.pendingRelease = true
		return
	}
	e.stage = envRelease
}

// ForceRelease enters Release regardless of pedal state.
func (e *Envelope) ForceRelease() {
	if e.stage == envIdle {
		return
	}
	e.pendingRelease = false
	e.stage = envRelease
}

// Kill silences the envelope immediately, skipping the release ramp.
func (e *Envelope) Kill() {
	e.stage = envIdle
	e.level = 0
	e.pendingRelease = false
}

func (e *Envelope) SetSustainPedal(on bool) {
	e.sustainPedal = on
	if !on && e.pendingRelease && !e.sostenutoHeld && !e.holdAll {
		e.pendingRelease = false
		e.stage = envRelease
	}
}

// SetSostenutoPedal captures only notes already past their attack phase,
// matching the piano middle pedal.
func (e *Envelope) SetSostenutoPedal(on bool) {
	if on {
		e.sostenutoHeld = e.stage == envDecay || e.stage == envSustain
		return
	}
	e.sostenutoHeld = false
	if e.pendingRelease && !e.sustainPedal && !e.holdAll {
		e.pendingRelease = false
		e.stage = envRelease
	}
}

func (e *Envelope) SetHoldAll(on bool) {
	e.holdAll = on
	if !on && e.pendingRelease && !e.sustainPedal && !e.sostenutoHeld {
		e.pendingRelease = false
		e.stage = envRelease
	}
}

// Process advances the envelope one sample and returns the output level.
func (e *Envelope) Process() float32 {
	for {
		switch e.stage {
		case envIdle:
			return 0
		case envDelay:
			if e.counter < e.delaySamples {
				e.counter++
				return e.level * e.amp
			}
			e.stage = envAttack
		case envAttack:
			e.level += e.attackInc
			if e.level < 1 {
				return e.level * e.amp
			}
			e.level = 1
			e.stage = envHold
			e.counter = 0
			return e.amp
		case envHold:
			if e.counter < e.holdSamples {
				e.counter++
				return e.level * e.amp
			}
			e.stage = envDecay
		case envDecay:
			e.level -= e.decayDec
			if e.level > e.sustain+sustainEpsilon {
				return e.level * e.amp
			}
			e.level = e.sustain
			e.stage = envSustain
			return e.level * e.amp
		case envSustain:
			e.level = e.sustain
			return e.level * e.amp
		case envRelease:
			e.level -= e.releaseDec
			if e.level > 0 {
				return e.level * e.amp
			}
			e.level = 0
			e.stage = envIdle
			return 0
		}
	}
}

// Level returns the current output without advancing the envelope.
func (e *Envelope) Level() float32 {
	return e.level * e.amp
}

func (e *Envelope) Idle() bool { return e.stage == envIdle }

// Sounding reports whether the envelope is still before its Release stage.
func (e *Envelope) Sounding() bool {
	return e.stage != envIdle && e.stage != envRelease
}

// SetParams replaces the timing parameters at runtime and recomputes the
// increments. Changing the sustain level while in Sustain snaps the output.
func (e *Envelope) SetParams(params xgsynth.EnvelopeParams) {
	e.params = params
	e.recalc()
	if e.stage == envSustain {
		e.level = e.sustain
	}
}

func (e *Envelope) Params() xgsynth.EnvelopeParams { return e.params }

// SetTimeScales applies multiplicative modulation to the attack, decay and
// release durations. Scales of 1 are neutral; the increments are only
// recomputed when a scale actually changes.
func (e *Envelope) SetTimeScales(attack, decay, release float32) {
	if attack == e.attackScale && decay == e.decayScale && release == e.releaseScale {
		return
	}
	e.attackScale = attack
	e.decayScale = decay
	e.releaseScale = release
	e.recalc()
}

func (e *Envelope) recalc() {
	keyScale := float32(1)
	if e.params.KeyScaling != 0 {
		keyScale = 1 + e.params.KeyScaling*(float32(e.note)-60)/60
		if keyScale < 0.1 {
			keyScale = 0.1
		}
	}
	attack := e.params.Attack * keyScale * e.attackScale
	if e.softPedal {
		attack *= 2
	}
	decay := e.params.Decay * keyScale * e.decayScale
	release := e.params.Release * keyScale * e.releaseScale

	e.delaySamples = int(e.params.Delay * keyScale * e.sampleRate)
	e.holdSamples = int(e.params.Hold * keyScale * e.sampleRate)
	e.sustain = clamp01(e.params.Sustain)
	if attack <= 0 {
		e.attackInc = 1
	} else {
		e.attackInc = 1 / (attack * e.sampleRate * 2)
	}
	if decay <= 0 {
		e.decayDec = 1
	} else {
		e.decayDec = (1 - e.sustain) / (decay * e.sampleRate)
		if e.decayDec <= 0 {
			e.decayDec = sustainEpsilon
		}
	}
	if release <= 0 {
		e.releaseDec = 1
	} else {
		e.releaseDec = 1 / (release * e.sampleRate)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
