package wavetable

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/xgsynth/xgsynth"
)

const defaultTableSize = 64

// lowest and highest sounding notes of the built-in drum map
const (
	drumNoteLo = 35
	drumNoteHi = 81
)

var (
	defaultTableOnce sync.Once
	defaultSine      xgsynth.Table
)

// defaultTable is the shared single-cycle sine every unknown program plays.
func defaultTable() xgsynth.Table {
	defaultTableOnce.Do(func() {
		defaultSine = generateTable(TableSpec{Shape: ShapeSine, Size: defaultTableSize})
	})
	return defaultSine
}

// defaultDrum returns the built-in drum parameters; notes outside the drum
// map get no zones and stay silent.
func defaultDrum(note byte) xgsynth.ProgramParams {
	p := xgsynth.DefaultDrumProgram(note)
	if note < drumNoteLo || note > drumNoteHi {
		p.Zones = nil
	}
	return p
}

// generateTable builds the sample table of one zone, either from inline
// frames or as one cycle of the requested shape.
func generateTable(spec TableSpec) xgsynth.Table {
	gain := spec.Gain
	if gain == 0 {
		gain = 1
	}
	if len(spec.Frames) > 0 {
		frames := make([][2]float32, len(spec.Frames))
		for i, f := range spec.Frames {
			frames[i] = [2]float32{f[0] * gain, f[1] * gain}
		}
		return xgsynth.Table{Frames: frames, Stereo: spec.Stereo}
	}
	size := spec.Size
	if size <= 0 {
		size = defaultTableSize
	}
	frames := make([][2]float32, size)
	// deterministic noise so the same bank always sounds the same
	seed := uint32(1)
	for i := 0; i < size; i++ {
		phase := float32(i) / float32(size)
		var v float32
		switch spec.Shape {
		case ShapeSine:
			v = math32.Sin(2 * math32.Pi * phase)
		case ShapeTriangle:
			v = 1 - math32.Abs(math32.Mod(phase*2, 2)-1)*2
		case ShapeSquare:
			if phase < 0.5 {
				v = 1
			} else {
				v = -1
			}
		case ShapeSawtooth:
			v = phase*2 - 1
		case ShapeNoise:
			seed = seed*1664525 + 1013904223
			v = float32(seed>>8)/float32(1<<24)*2 - 1
		}
		v *= gain
		frames[i] = [2]float32{v, v}
	}
	return xgsynth.Table{Frames: frames}
}
