package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lenscal.json")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNewFile_Defaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "no path", path: func(*testing.T) string { return "" }},
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{name: "empty file", path: func(t *testing.T) string { return writeConfig(t, "  \n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFile(tt.path(t))
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			if g := f.Geometry(); g != calibration.DefaultPatternGeometry() {
				t.Errorf("Geometry() = %+v, want defaults", g)
			}
			if c := f.Criteria(); c != calibration.DefaultCriteria() {
				t.Errorf("Criteria() = %+v, want defaults", c)
			}
			if exts := f.Extensions(); len(exts) != 2 || exts[0] != ".png" || exts[1] != ".jpg" {
				t.Errorf("Extensions() = %v", exts)
			}
			if err := f.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestNewFile_Overrides(t *testing.T) {
	p := writeConfig(t, `{"patternColumns": 7, "patternRows": 5, "squareSize": 30, "epsilon": 0.01, "extensions": ["PNG", ".bmp"]}`)

	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	want := calibration.PatternGeometry{Columns: 7, Rows: 5, SquareSize: 30}
	if g := f.Geometry(); g != want {
		t.Errorf("Geometry() = %+v, want %+v", g, want)
	}
	if f.Epsilon() != 0.01 || f.MaxIterations() != calibration.DefaultMaxIterations {
		t.Errorf("criteria = %+v", f.Criteria())
	}
	if exts := f.Extensions(); exts[0] != ".png" || exts[1] != ".bmp" {
		t.Errorf("Extensions() = %v, want normalized", exts)
	}
}

func TestNewFile_Invalid(t *testing.T) {
	p := writeConfig(t, `{"patternColumns": `)
	if _, err := NewFile(p); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *File)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*File) {}},
		{name: "single column", mutate: func(f *File) { f.SetPatternColumns(1) }, wantErr: true},
		{name: "zero rows", mutate: func(f *File) { f.SetPatternRows(0) }, wantErr: true},
		{name: "negative square", mutate: func(f *File) { f.SetSquareSize(-1) }, wantErr: true},
		{name: "zero window", mutate: func(f *File) { f.c.SubPixWindow = new(int) }, wantErr: true},
		{name: "empty extension", mutate: func(f *File) { f.c.Extensions = []string{" "} }, wantErr: true},
		{name: "rectangular board", mutate: func(f *File) { f.SetPatternColumns(8); f.SetPatternRows(6) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFileFromConfig(nil, "")
			tt.mutate(f)
			if err := f.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFile_Save(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lenscal.json")
	f := NewFileFromConfig(nil, p)
	f.SetSquareSize(25)

	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if loaded.SquareSize() != 25 || loaded.PatternColumns() != calibration.DefaultPatternColumns {
		t.Errorf("reloaded config = %+v", loaded.LogrusFields())
	}

	if err := NewFileFromConfig(nil, "").Save(); err == nil {
		t.Errorf("expected error saving without a path")
	}
}

func TestDefaultRawFileConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lenscal.json")
	raw := DefaultRawFileConfig()
	raw.Extensions[0] = ".bmp"
	if imageDefault := DefaultRawFileConfig().Extensions[0]; imageDefault != ".png" {
		t.Fatalf("defaults were mutated through a copy: %s", imageDefault)
	}

	if err := NewFileFromConfig(DefaultRawFileConfig(), p).Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if f.raw().PatternColumns == nil || *f.raw().PatternColumns != calibration.DefaultPatternColumns {
		t.Errorf("saved config does not spell out pattern columns: %+v", f.raw())
	}
	if err := f.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
