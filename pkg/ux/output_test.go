// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render() of %q lost the icon", icon)
		}
	}
}

func TestPlainPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Title("Plan")
	p.Success("solved")
	p.Warning("incomplete")
	p.Error("failed")
	p.KeyValue("cost", 2.5)
	p.Steps([]string{"move(a,b)", "move(b,c)"})
	p.Box("Stats", []string{"expansions 2"})

	want := strings.Join([]string{
		"Plan",
		"OK: solved",
		"WARN: incomplete",
		"ERROR: failed",
		"cost: 2.5",
		"1. move(a,b)",
		"2. move(b,c)",
		"Stats",
		"  expansions 2",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("plain output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if p.Styled() {
		t.Error("plain printer reported styled output")
	}
}

func TestStyledPrinter_KeepsContent(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, styled: true}

	p.Steps([]string{"move(a,b)"})
	p.KeyValue("outcome", "solved")
	p.Box("Plan", []string{"line one"})

	out := buf.String()
	for _, s := range []string{"move(a,b)", "outcome", "solved", "Plan", "line one"} {
		if !strings.Contains(out, s) {
			t.Errorf("styled output missing %q:\n%s", s, out)
		}
	}
}

func TestNewPrinter_FileIsNotTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if NewPrinter(f).Styled() {
		t.Error("regular file should not be treated as a terminal")
	}
}
