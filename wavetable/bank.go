// Package wavetable provides the reference Wavetable implementation: a
// program bank loaded from a YAML file, with generated or inline sample
// tables, a lazy table cache and built-in defaults for anything the file
// does not cover.
package wavetable

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xgsynth/xgsynth"
)

// Shape selects how a zone's single-cycle table is generated.
type Shape int

const (
	ShapeSine Shape = iota
	ShapeTriangle
	ShapeSquare
	ShapeSawtooth
	ShapeNoise
)

var shapeNames = [...]string{"sine", "triangle", "square", "sawtooth", "noise"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

func (s Shape) MarshalYAML() (interface{}, error) {
	if s < 0 || int(s) >= len(shapeNames) {
		return nil, fmt.Errorf("cannot marshal unknown shape %d", int(s))
	}
	return shapeNames[s], nil
}

func (s *Shape) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	for i, n := range shapeNames {
		if n == name {
			*s = Shape(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shape %q", name)
}

// TableSpec describes the sample table of one zone: either a generated
// single cycle of a shape, or inline frames.
type TableSpec struct {
	Shape  Shape        `yaml:"shape"`
	Size   int          `yaml:"size,omitempty"`
	Gain   float32      `yaml:"gain,omitempty"`
	Frames [][2]float32 `yaml:"frames,flow,omitempty"`
	Stereo bool         `yaml:"stereo,omitempty"`
}

// ProgramSpec is one melodic program in a bank file; Tables runs parallel to
// Params.Zones, one table per partial.
type ProgramSpec struct {
	Program int                   `yaml:"program"`
	Bank    int                   `yaml:"bank,omitempty"`
	Params  xgsynth.ProgramParams `yaml:"params"`
	Tables  []TableSpec           `yaml:"tables"`
}

// DrumSpec is one drum note in a bank file.
type DrumSpec struct {
	Note    byte                  `yaml:"note"`
	Program int                   `yaml:"program,omitempty"`
	Bank    int                   `yaml:"bank,omitempty"`
	Params  xgsynth.ProgramParams `yaml:"params"`
	Tables  []TableSpec           `yaml:"tables"`
}

// BankFile is the YAML document layout of a program bank.
type BankFile struct {
	Name     string        `yaml:"name,omitempty"`
	Programs []ProgramSpec `yaml:"programs"`
	Drums    []DrumSpec    `yaml:"drums,omitempty"`
}

type programKey struct {
	program int
	bank    int
}

type drumKey struct {
	note    byte
	program int
	bank    int
}

type tableKey struct {
	drum    bool
	note    byte
	program int
	bank    int
	partial int
}

type programEntry struct {
	params xgsynth.ProgramParams
	tables []TableSpec
}

// Bank implements xgsynth.Wavetable. Lookups for programs the bank does not
// define fall back to the built-in defaults, so an empty Bank is already a
// playable provider. The table cache is guarded by a mutex and filled
// lazily; PreloadProgram warms it ahead of time.
type Bank struct {
	mu       sync.Mutex
	programs map[programKey]*programEntry
	drums    map[drumKey]*programEntry
	cache    map[tableKey]xgsynth.Table
}

// New returns an empty bank serving only the built-in defaults.
func New() *Bank {
	return &Bank{
		programs: make(map[programKey]*programEntry),
		drums:    make(map[drumKey]*programEntry),
		cache:    make(map[tableKey]xgsynth.Table),
	}
}

// Load reads a bank file from disk.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read bank file %v: %w", path, err)
	}
	var file BankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("could not parse bank file %v: %w", path, err)
	}
	return FromFile(file)
}

// FromFile builds a bank from an already-parsed document.
func FromFile(file BankFile) (*Bank, error) {
	b := New()
	for i, p := range file.Programs {
		if len(p.Tables) != len(p.Params.Zones) {
			return nil, fmt.Errorf("program entry %d: %d tables for %d zones", i, len(p.Tables), len(p.Params.Zones))
		}
		b.programs[programKey{p.Program, p.Bank}] = &programEntry{params: p.Params, tables: p.Tables}
	}
	for i, d := range file.Drums {
		if len(d.Tables) != len(d.Params.Zones) {
			return nil, fmt.Errorf("drum entry %d: %d tables for %d zones", i, len(d.Tables), len(d.Params.Zones))
		}
		b.drums[drumKey{d.Note, d.Program, d.Bank}] = &programEntry{params: d.Params, tables: d.Tables}
	}
	return b, nil
}

func (b *Bank) ProgramParameters(program, bank int) (xgsynth.ProgramParams, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.programs[programKey{program, bank}]; ok {
		return e.params, nil
	}
	return xgsynth.DefaultProgram(), nil
}

func (b *Bank) DrumParameters(note byte, program, bank int) (xgsynth.ProgramParams, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.drums[drumKey{note, program, bank}]; ok {
		return e.params, nil
	}
	return defaultDrum(note), nil
}

func (b *Bank) PartialTable(note byte, program, partial int, velocity byte, bank int) (xgsynth.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolveTable(note, program, partial, bank)
}

// PreloadProgram resolves every zone table of a program into the cache.
// Advisory: failures leave the cache as is.
func (b *Bank) PreloadProgram(program, bank int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.programs[programKey{program, bank}]
	if !ok {
		b.resolveTable(60, program, 0, bank)
		return
	}
	for i := range e.tables {
		b.resolveTable(60, program, i, bank)
	}
}

// resolveTable serves from the cache or generates and caches the table.
// Caller holds the mutex.
func (b *Bank) resolveTable(note byte, program, partial, bank int) (xgsynth.Table, error) {
	var spec TableSpec
	var key tableKey
	if e, ok := b.programs[programKey{program, bank}]; ok {
		if partial < 0 || partial >= len(e.tables) {
			return xgsynth.Table{}, nil
		}
		spec = e.tables[partial]
		key = tableKey{program: program, bank: bank, partial: partial}
	} else if e, ok := b.drums[drumKey{note, program, bank}]; ok {
		if partial < 0 || partial >= len(e.tables) {
			return xgsynth.Table{}, nil
		}
		spec = e.tables[partial]
		key = tableKey{drum: true, note: note, program: program, bank: bank, partial: partial}
	} else {
		if partial != 0 {
			return xgsynth.Table{}, nil
		}
		return defaultTable(), nil
	}
	if t, ok := b.cache[key]; ok {
		return t, nil
	}
	t := generateTable(spec)
	b.cache[key] = t
	return t, nil
}
