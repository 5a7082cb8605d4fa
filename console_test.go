// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/oit/internal/mode"
)

func TestExecErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"Bogus", ErrBadCommand},
		{"PeelCount", ErrBadCommand},
		{"PeelCount Count=0", ErrBadCommand},
		{"PeelCount Count=65", ErrBadCommand},
		{"PeelCount Count=four", ErrBadCommand},
		{"PeelCount 4", ErrBadCommand},
		{"PeelCount Count=4 Count=5", ErrBadCommand},
		{"PeelCount Count=4 Extra=1", ErrBadCommand},
		{`PeelCount Count="4`, ErrBadCommand},
		{"Scene Name=Nope", ErrInvalidEnum},
		{"Mode Quadrant=5 Family=OIT Sub=MLAB", ErrInvalidEnum},
		{"Mode Quadrant=0 Family=OIT Sub=MLAB", ErrInvalidEnum},
		{"Mode Quadrant=1 Family=OIT Sub=Less", ErrInvalidEnum},
		{"Mode Quadrant=1 Family=Nope Sub=Less", ErrInvalidEnum},
		{"Tier Quadrant=1 Nodes=8", ErrInvalidEnum},
		{"Layout Name=3-way", ErrInvalidEnum},
	}
	tb := newTestbed(t, nil)
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if _, err := tb.Exec(tt.line); !errors.Is(err, tt.want) {
				t.Errorf("Exec(%q) = %v, want %v", tt.line, err, tt.want)
			}
		})
	}
	if tb.PeelCount() != 2 {
		t.Errorf("PeelCount() = %d after failed commands, want 2", tb.PeelCount())
	}
}

func TestExecCommands(t *testing.T) {
	tb := newTestbed(t, nil)

	if _, err := tb.Exec("  "); err != nil {
		t.Errorf("Exec(blank) = %v, want nil", err)
	}

	if _, err := tb.Exec("peelcount count=5"); err != nil {
		t.Fatalf("Exec(peelcount) = %v", err)
	}
	if tb.PeelCount() != 5 {
		t.Errorf("PeelCount() = %d, want 5", tb.PeelCount())
	}

	if _, err := tb.Exec(`Scene Name="Billboards"`); err != nil {
		t.Fatalf("Exec(Scene) = %v", err)
	}
	if tb.Scene().Name != "Billboards" {
		t.Errorf("Scene() = %q, want Billboards", tb.Scene().Name)
	}

	if _, err := tb.Exec("Mode Quadrant=3 Family=UAVWrites Sub=WithoutROV"); err != nil {
		t.Fatalf("Exec(Mode) = %v", err)
	}
	if info, _ := tb.Quadrant(2); info.Technique != mode.TechniqueUAVWithoutROV {
		t.Errorf("quadrant 3 technique = %v, want UAVWithoutROV", info.Technique)
	}

	if _, err := tb.Exec("Tier Quadrant=3 Nodes=4"); err != nil {
		t.Fatalf("Exec(Tier) = %v", err)
	}
	if info, _ := tb.Quadrant(2); info.Nodes != 4 {
		t.Errorf("quadrant 3 nodes = %d, want 4", info.Nodes)
	}

	if _, err := tb.Exec("Layout Name=4-way"); err != nil {
		t.Fatalf("Exec(Layout) = %v", err)
	}
	if tb.Active() != 4 {
		t.Errorf("Active() = %d, want 4", tb.Active())
	}
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	if st, _ := tb.Stats(2); st.Technique != mode.TechniqueUAVWithoutROV {
		t.Errorf("Stats(2).Technique = %v, want UAVWithoutROV", st.Technique)
	}
}

func TestExecHelp(t *testing.T) {
	tb := newTestbed(t, nil)
	out, err := tb.Exec("help")
	if err != nil {
		t.Fatalf("Exec(help) = %v", err)
	}
	for _, c := range commands {
		if !strings.Contains(out, c.usage) {
			t.Errorf("help output lacks %q", c.usage)
		}
	}
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"Quadrant=2", "FAMILY=OIT", "sub=a=b"}, []string{"quadrant", "family", "sub"})
	if err != nil {
		t.Fatalf("parseArgs() = %v", err)
	}
	want := map[string]string{"quadrant": "2", "family": "OIT", "sub": "a=b"}
	for k, v := range want {
		if args[k] != v {
			t.Errorf("args[%q] = %q, want %q", k, args[k], v)
		}
	}
}
