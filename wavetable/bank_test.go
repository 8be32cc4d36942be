package wavetable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"

	"github.com/xgsynth/xgsynth"
)

func TestEmptyBankServesDefaults(t *testing.T) {
	b := New()
	p, err := b.ProgramParameters(42, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Filter.Enabled || len(p.Zones) != 1 {
		t.Errorf("default program: filter enabled %v, %d zones", p.Filter.Enabled, len(p.Zones))
	}
	table, err := b.PartialTable(60, 42, 0, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() == 0 {
		t.Error("default program has no table for partial 0")
	}
	extra, err := b.PartialTable(60, 42, 1, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if extra.Len() != 0 {
		t.Error("default program served a table for partial 1")
	}
}

func TestDefaultDrumMapRange(t *testing.T) {
	b := New()
	for _, tc := range []struct {
		note  byte
		zones int
	}{
		{36, 1}, {81, 1}, {35, 1},
		{34, 0}, {82, 0}, {0, 0}, {127, 0},
	} {
		p, err := b.DrumParameters(tc.note, 0, xgsynth.DrumBank)
		if err != nil {
			t.Fatal(err)
		}
		if len(p.Zones) != tc.zones {
			t.Errorf("drum note %d: %d zones, want %d", tc.note, len(p.Zones), tc.zones)
		}
	}
}

func testBankFile() BankFile {
	params := xgsynth.DefaultProgram()
	params.Name = "glass pad"
	params.LFOs[0].Waveform = xgsynth.Triangle
	params.Filter.Type = xgsynth.Bandpass
	drumParams := xgsynth.DefaultDrumProgram(36)
	drumParams.Name = "kick"
	return BankFile{
		Name: "test bank",
		Programs: []ProgramSpec{
			{Program: 3, Bank: 0, Params: params, Tables: []TableSpec{{Shape: ShapeSawtooth, Size: 32}}},
		},
		Drums: []DrumSpec{
			{Note: 36, Params: drumParams, Tables: []TableSpec{{Shape: ShapeNoise, Size: 128}}},
		},
	}
}

func TestBankFromFile(t *testing.T) {
	b, err := FromFile(testBankFile())
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.ProgramParameters(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "glass pad" || p.Filter.Type != xgsynth.Bandpass {
		t.Errorf("program 3 = %q / %v, want the file entry", p.Name, p.Filter.Type)
	}
	table, err := b.PartialTable(60, 3, 0, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 32 {
		t.Errorf("program table length = %d, want 32", table.Len())
	}
	d, err := b.DrumParameters(36, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "kick" || len(d.Zones) != 1 || d.Zones[0].KeyLo != 36 {
		t.Errorf("drum 36 entry not served from the file: %+v", d.Zones)
	}
}

func TestBankFromFileValidatesTableCount(t *testing.T) {
	file := testBankFile()
	file.Programs[0].Tables = nil
	if _, err := FromFile(file); err == nil {
		t.Error("missing tables for a zoned program did not fail")
	}
	file = testBankFile()
	file.Drums[0].Tables = append(file.Drums[0].Tables, TableSpec{Shape: ShapeSine})
	if _, err := FromFile(file); err == nil {
		t.Error("extra drum table did not fail")
	}
}

func TestBankTableCacheSharesFrames(t *testing.T) {
	b, err := FromFile(testBankFile())
	if err != nil {
		t.Fatal(err)
	}
	t1, _ := b.PartialTable(60, 3, 0, 100, 0)
	t2, _ := b.PartialTable(72, 3, 0, 50, 0)
	if &t1.Frames[0] != &t2.Frames[0] {
		t.Error("repeated lookups did not share the cached table")
	}
	b.PreloadProgram(3, 0)
	t3, _ := b.PartialTable(60, 3, 0, 100, 0)
	if &t1.Frames[0] != &t3.Frames[0] {
		t.Error("preload replaced an already-cached table")
	}
}

func TestBankLoadRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(testBankFile())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "bank.yml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.ProgramParameters(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "glass pad" || p.LFOs[0].Waveform != xgsynth.Triangle {
		t.Errorf("round-tripped program = %q / %v", p.Name, p.LFOs[0].Waveform)
	}
}

func TestBankLoadRejectsBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("loading a missing file did not fail")
	}
	path := filepath.Join(t.TempDir(), "broken.yml")
	if err := os.WriteFile(path, []byte("programs: [not a mapping"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("loading malformed yaml did not fail")
	}
}

func TestGenerateTableShapes(t *testing.T) {
	square := generateTable(TableSpec{Shape: ShapeSquare, Size: 8})
	for i, f := range square.Frames {
		want := float32(1)
		if i >= 4 {
			want = -1
		}
		if f[0] != want {
			t.Errorf("square sample %d = %v, want %v", i, f[0], want)
		}
	}

	saw := generateTable(TableSpec{Shape: ShapeSawtooth, Size: 4})
	if saw.Frames[0][0] != -1 || saw.Frames[2][0] != 0 {
		t.Errorf("sawtooth = %v", saw.Frames)
	}

	sine := generateTable(TableSpec{Shape: ShapeSine, Size: 16, Gain: 0.5})
	for i, f := range sine.Frames {
		if math32.Abs(f[0]) > 0.5+1e-6 {
			t.Errorf("sine sample %d = %v exceeds gain 0.5", i, f[0])
		}
	}

	n1 := generateTable(TableSpec{Shape: ShapeNoise, Size: 32})
	n2 := generateTable(TableSpec{Shape: ShapeNoise, Size: 32})
	for i := range n1.Frames {
		if n1.Frames[i] != n2.Frames[i] {
			t.Fatal("noise generation is not deterministic")
		}
		if math32.Abs(n1.Frames[i][0]) > 1 {
			t.Fatalf("noise sample %d = %v out of range", i, n1.Frames[i][0])
		}
	}
}

func TestGenerateTableInlineFrames(t *testing.T) {
	table := generateTable(TableSpec{
		Frames: [][2]float32{{0.5, -0.5}, {1, -1}},
		Gain:   0.5,
		Stereo: true,
	})
	if !table.Stereo || table.Len() != 2 {
		t.Fatalf("inline table stereo=%v len=%d", table.Stereo, table.Len())
	}
	if table.Frames[1] != [2]float32{0.5, -0.5} {
		t.Errorf("inline frame gain not applied: %v", table.Frames[1])
	}
}
