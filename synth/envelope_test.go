package synth

import (
	"testing"

	"github.com/xgsynth/xgsynth"
)

const testRate = 1000

func testEnvParams() xgsynth.EnvelopeParams {
	return xgsynth.EnvelopeParams{
		Attack:  0.05,
		Decay:   0.1,
		Sustain: 0.5,
		Release: 0.1,
	}
}

func TestEnvelopeAttackMonotone(t *testing.T) {
	e := NewEnvelope(testEnvParams(), testRate)
	e.NoteOn(60, 127, false)
	prev := float32(0)
	for i := 0; i < 200; i++ {
		v := e.Process()
		if v < prev {
			t.Fatalf("sample %d: output decreased during attack: %v -> %v", i, prev, v)
		}
		if v < 0 || v > 1 {
			t.Fatalf("sample %d: output %v out of [0,1]", i, v)
		}
		prev = v
		if v >= 1 {
			return
		}
	}
	t.Fatalf("attack never reached full level, stuck at %v", prev)
}

func TestEnvelopeDecayAndReleaseMonotone(t *testing.T) {
	e := NewEnvelope(testEnvParams(), testRate)
	e.NoteOn(60, 127, false)
	for e.Process() < 1 {
	}
	prev := float32(1)
	for i := 0; i < 200 && !e.Idle(); i++ {
		v := e.Process()
		if v > prev+1e-6 {
			t.Fatalf("sample %d: output increased during decay: %v -> %v", i, prev, v)
		}
		prev = v
		if v <= 0.5 {
			break
		}
	}
	if got := e.Level(); got != 0.5 {
		t.Errorf("sustain level = %v, want 0.5", got)
	}
	e.NoteOff()
	prev = e.Level()
	for i := 0; i < 200; i++ {
		v := e.Process()
		if v > prev+1e-6 {
			t.Fatalf("sample %d: output increased during release: %v -> %v", i, prev, v)
		}
		prev = v
		if e.Idle() {
			return
		}
	}
	t.Fatal("release never reached idle")
}

func TestEnvelopeDegenerateDurations(t *testing.T) {
	e := NewEnvelope(xgsynth.EnvelopeParams{}, testRate)
	e.NoteOn(60, 127, false)
	for i := 0; i < 10; i++ {
		v := e.Process()
		if v < 0 || v > 1 {
			t.Fatalf("sample %d: output %v out of [0,1] with zero durations", i, v)
		}
	}
	e.NoteOff()
	e.Process()
	if !e.Idle() {
		t.Error("zero-duration release did not reach idle in one sample")
	}
}

func TestEnvelopeDelayHoldsOutput(t *testing.T) {
	params := testEnvParams()
	params.Delay = 0.05
	e := NewEnvelope(params, testRate)
	e.NoteOn(60, 127, false)
	for i := 0; i < 50; i++ {
		if v := e.Process(); v != 0 {
			t.Fatalf("sample %d: output %v during delay, want 0", i, v)
		}
	}
	if e.Process() <= 0 {
		t.Error("no output after delay elapsed")
	}
}

func TestEnvelopeSustainPedalGatesRelease(t *testing.T) {
	e := NewEnvelope(testEnvParams(), testRate)
	e.NoteOn(60, 127, false)
	for !e.Sounding() || e.Level() < 1 {
		e.Process()
		if e.Idle() {
			t.Fatal("envelope went idle during attack")
		}
	}
	e.SetSustainPedal(true)
	e.NoteOff()
	for i := 0; i < 300; i++ {
		e.Process()
	}
	if e.Idle() {
		t.Fatal("note released while sustain pedal down")
	}
	e.SetSustainPedal(false)
	for i := 0; i < 300 && !e.Idle(); i++ {
		e.Process()
	}
	if !e.Idle() {
		t.Error("note did not release after pedal lifted")
	}
}

func TestEnvelopeSostenutoOnlyHoldsSoundingNotes(t *testing.T) {
	held := NewEnvelope(testEnvParams(), testRate)
	held.NoteOn(60, 127, false)
	for i := 0; i < 160; i++ { // past attack, into decay/sustain
		held.Process()
	}
	late := NewEnvelope(testEnvParams(), testRate)
	late.NoteOn(62, 127, false) // still in attack when the pedal goes down

	held.SetSostenutoPedal(true)
	late.SetSostenutoPedal(true)
	held.NoteOff()
	late.NoteOff()
	for i := 0; i < 300; i++ {
		held.Process()
		late.Process()
	}
	if held.Idle() {
		t.Error("sostenuto did not hold a note that was sounding when pressed")
	}
	if !late.Idle() {
		t.Error("sostenuto held a note that was still attacking when pressed")
	}
}

func TestEnvelopeRetriggerKeepsLevel(t *testing.T) {
	e := NewEnvelope(testEnvParams(), testRate)
	e.NoteOn(60, 127, false)
	for i := 0; i < 120; i++ {
		e.Process()
	}
	before := e.Level()
	if before <= 0 {
		t.Fatal("expected a sounding level before retrigger")
	}
	e.NoteOn(60, 127, false)
	if got := e.Level(); got != before {
		t.Errorf("retrigger changed level from %v to %v", before, got)
	}
}

func TestEnvelopeSoftPedalHalvesAmplitude(t *testing.T) {
	e := NewEnvelope(testEnvParams(), testRate)
	e.NoteOn(60, 127, true)
	max := float32(0)
	for i := 0; i < 500; i++ {
		if v := e.Process(); v > max {
			max = v
		}
	}
	if max > 0.5+1e-6 {
		t.Errorf("soft pedal peak = %v, want ≤ 0.5", max)
	}
}

func TestEnvelopeVelocitySense(t *testing.T) {
	params := testEnvParams()
	params.VelocitySense = 1
	soft := NewEnvelope(params, testRate)
	soft.NoteOn(60, 32, false)
	loud := NewEnvelope(params, testRate)
	loud.NoteOn(60, 127, false)
	var softMax, loudMax float32
	for i := 0; i < 500; i++ {
		if v := soft.Process(); v > softMax {
			softMax = v
		}
		if v := loud.Process(); v > loudMax {
			loudMax = v
		}
	}
	if softMax >= loudMax {
		t.Errorf("velocity 32 peak %v not below velocity 127 peak %v", softMax, loudMax)
	}
}
