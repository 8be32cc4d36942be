package synth

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

func TestLFOPeriodicity(t *testing.T) {
	for _, wf := range []xgsynth.Waveform{xgsynth.Sine, xgsynth.Triangle, xgsynth.Square, xgsynth.Sawtooth} {
		l := NewLFO(xgsynth.LFOParams{Rate: 8, Depth: 0.8, Waveform: wf}, testRate)
		period := testRate / 8
		first := make([]float32, period)
		for i := range first {
			first[i] = l.Step()
		}
		// phase rounding may push a waveform discontinuity one sample over,
		// so a couple of boundary samples are allowed to differ
		mismatches := 0
		for i := 0; i < period; i++ {
			if v := l.Step(); math32.Abs(v-first[i]) > 0.05 {
				mismatches++
			}
		}
		if mismatches > 2 {
			t.Errorf("%v: %d of %d samples differ between periods", wf, mismatches, period)
		}
		for i, v := range first {
			if math32.Abs(v) > 0.8+1e-6 {
				t.Errorf("%v: sample %d = %v exceeds depth 0.8", wf, i, v)
				break
			}
		}
	}
}

func TestLFODelaySilencesOutput(t *testing.T) {
	l := NewLFO(xgsynth.LFOParams{Rate: 10, Depth: 1, Delay: 0.05, Waveform: xgsynth.Square}, testRate)
	for i := 0; i < 50; i++ {
		if v := l.Step(); v != 0 {
			t.Fatalf("sample %d: output %v inside delay, want 0", i, v)
		}
	}
	if v := l.Step(); v != 1 {
		t.Errorf("first sample after delay = %v, want 1 (square at phase 0)", v)
	}
}

func TestLFOControllersSpeedUpRate(t *testing.T) {
	l := NewLFO(xgsynth.LFOParams{Rate: 4, Depth: 1, Waveform: xgsynth.Sine}, testRate)
	base := l.phaseStep
	l.SetControls(Controls{ModWheel: 1})
	want := base * 1.5
	if math32.Abs(l.phaseStep-want) > 1e-6 {
		t.Errorf("phase step with mod wheel = %v, want %v", l.phaseStep, want)
	}
	l.SetControls(Controls{ModWheel: 1, Breath: 1, Foot: 1, ChannelPressure: 1, KeyPressure: 1, Brightness: 1, Harmonic: 1})
	want = base * (1 + 0.5 + 0.4 + 0.3 + 0.3 + 0.3 + 0.2 + 0.2)
	if math32.Abs(l.phaseStep-want) > 1e-5 {
		t.Errorf("phase step with all controllers = %v, want %v", l.phaseStep, want)
	}
}

func TestLFORateFloor(t *testing.T) {
	l := NewLFO(xgsynth.LFOParams{Rate: 0, Depth: 1, Waveform: xgsynth.Sine}, testRate)
	want := float32(0.1) * 2 * math32.Pi / testRate
	if math32.Abs(l.phaseStep-want) > 1e-9 {
		t.Errorf("phase step at rate 0 = %v, want floor %v", l.phaseStep, want)
	}
}

func TestLFOMatrixScales(t *testing.T) {
	l := NewLFO(xgsynth.LFOParams{Rate: 5, Depth: 0.5, Waveform: xgsynth.Square}, testRate)
	l.SetScales(2, 0.5)
	base := float32(5*2) * 2 * math32.Pi / testRate
	if math32.Abs(l.phaseStep-base) > 1e-6 {
		t.Errorf("phase step with rate scale 2 = %v, want %v", l.phaseStep, base)
	}
	if v := l.Step(); math32.Abs(v-0.25) > 1e-6 {
		t.Errorf("output with depth scale 0.5 = %v, want 0.25", v)
	}
}
