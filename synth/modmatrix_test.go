package synth

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

func TestModulationMatrixSumsPerDestination(t *testing.T) {
	m := NewModulationMatrix([]xgsynth.ModRouteParams{
		{Source: xgsynth.SrcLFO1, Destination: xgsynth.DestPitch, Amount: 2, Polarity: 1},
		{Source: xgsynth.SrcLFO2, Destination: xgsynth.DestPitch, Amount: 3, Polarity: -1},
		{Source: xgsynth.SrcModWheel, Destination: xgsynth.DestFilterCutoff, Amount: 1, Polarity: 1},
	})
	src := ModSources{LFO1: 0.5, LFO2: 0.25, ModWheel: 1}
	m.Process(&src, 127, 60)

	pitch, ok := m.Sum(xgsynth.DestPitch)
	if !ok {
		t.Fatal("pitch destination not marked present")
	}
	want := float32(0.5*2 - 0.25*3)
	if math32.Abs(pitch-want) > 1e-6 {
		t.Errorf("pitch sum = %v, want %v", pitch, want)
	}
	cutoff, ok := m.Sum(xgsynth.DestFilterCutoff)
	if !ok || math32.Abs(cutoff-1) > 1e-6 {
		t.Errorf("cutoff sum = %v (present %v), want 1", cutoff, ok)
	}
	if _, ok := m.Sum(xgsynth.DestAmp); ok {
		t.Error("amp destination marked present with no route")
	}
}

func TestModulationMatrixVelocityAndKeyScaling(t *testing.T) {
	m := NewModulationMatrix([]xgsynth.ModRouteParams{
		{Source: xgsynth.SrcLFO1, Destination: xgsynth.DestPitch, Amount: 1, Polarity: 1, VelocitySensitivity: 1},
		{Source: xgsynth.SrcLFO1, Destination: xgsynth.DestAmp, Amount: 1, Polarity: 1, KeyScaling: 1},
	})
	src := ModSources{LFO1: 1}
	m.Process(&src, 64, 120)

	pitch, _ := m.Sum(xgsynth.DestPitch)
	wantPitch := math32.Pow(64.0/127, 2)
	if math32.Abs(pitch-wantPitch) > 1e-6 {
		t.Errorf("velocity-scaled sum = %v, want %v", pitch, wantPitch)
	}
	amp, _ := m.Sum(xgsynth.DestAmp)
	wantAmp := 1 + (float32(120)-60)/60
	if math32.Abs(amp-wantAmp) > 1e-6 {
		t.Errorf("key-scaled sum = %v, want %v", amp, wantAmp)
	}
}

func TestModulationMatrixKeyScalingFloor(t *testing.T) {
	m := NewModulationMatrix([]xgsynth.ModRouteParams{
		{Source: xgsynth.SrcLFO1, Destination: xgsynth.DestPitch, Amount: 1, Polarity: 1, KeyScaling: 2},
	})
	src := ModSources{LFO1: 1}
	m.Process(&src, 127, 0) // scale would be 1-2 = -1 without the floor
	pitch, _ := m.Sum(xgsynth.DestPitch)
	if math32.Abs(pitch-0.1) > 1e-6 {
		t.Errorf("key scale floor: sum = %v, want 0.1", pitch)
	}
}

func TestModulationMatrixRouteLimit(t *testing.T) {
	routes := make([]xgsynth.ModRouteParams, 20)
	for i := range routes {
		routes[i] = xgsynth.ModRouteParams{Source: xgsynth.SrcLFO1, Destination: xgsynth.DestPitch, Amount: 1, Polarity: 1}
	}
	m := NewModulationMatrix(routes)
	src := ModSources{LFO1: 1}
	m.Process(&src, 127, 60)
	pitch, _ := m.Sum(xgsynth.DestPitch)
	if pitch != maxModRoutes {
		t.Errorf("sum over %d identical routes = %v, want %v (excess routes dropped)", len(routes), pitch, maxModRoutes)
	}
}
