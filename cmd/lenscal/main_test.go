package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/gdcconfig"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", calibration.ErrNoImagesFound), 2},
		{fmt.Errorf("wrapped: %w", calibration.ErrTestImageUnreadable), 2},
		{&calibration.PatternNotDetectedError{Path: "a.png"}, 1},
		{calibration.ErrImageSizeMismatch, 1},
		{fmt.Errorf("disk full"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	table := calibration.NewRemapTable(4, 2)
	table.Set(1, 3, 7.5, 1.25)
	if err := gdcconfig.WriteFile(good, table, gdcconfig.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("1\n50 50\n2 4\n0 1\n0:0 \n"), 0644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) (string, error) {
		cmd := NewCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("inspect", good)
	if err != nil {
		t.Fatalf("inspect %s: %v", good, err)
	}
	for _, want := range []string{"4x2", "row 0, col 1", "7.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	if _, err := run("inspect", bad); err == nil {
		t.Errorf("inspect %s: expected an error for a truncated file", bad)
	}
}
