package xgsynth

// Table is one resolved sample table. Frames hold left/right pairs; mono
// tables duplicate the sample into both slots and leave Stereo false, so
// playback knows to apply constant-power panning. A zero-length table means
// the partial stays silent.
type Table struct {
	Frames [][2]float32
	Stereo bool
}

func (t Table) Len() int { return len(t.Frames) }

// Wavetable resolves programs and sample tables for the synthesis core. All
// lookups must behave as pure functions of their inputs to the caller;
// unknown programs return a documented default rather than an error where
// possible. Errors are reserved for provider failure (I/O, corrupt bank) and
// make the affected voice silent, never abort rendering.
type Wavetable interface {
	// ProgramParameters returns the parameter set of (program, bank).
	ProgramParameters(program, bank int) (ProgramParams, error)
	// DrumParameters returns the parameter set of a drum note; the zones are
	// additionally key-filtered so only the addressed note sounds.
	DrumParameters(note byte, program, bank int) (ProgramParams, error)
	// PartialTable resolves the sample table of one partial. A zero-length
	// table silences the partial without error.
	PartialTable(note byte, program, partial int, velocity byte, bank int) (Table, error)
	// PreloadProgram is an advisory cache warm-up; errors are ignored.
	PreloadProgram(program, bank int)
}
