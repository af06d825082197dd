package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/circadian"
	"github.com/codeGROOVE-dev/chronogram/pkg/fdp"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/chronogram/pkg/timeline"
)

func fp(f float64) *float64 { return &f }

func sample() *timeline.Data {
	return &timeline.Data{
		Year:        2026,
		Month:       time.February,
		DaysInMonth: 2,
		HomeZone:    "Asia/Qatar",
		OffsetLabel: "UTC+3",
		Overlays:    circadian.Overlays(3),
		Warnings:    []string{"duty X: very short duty: 0.2 hours"},
		Rows: []timeline.Row{
			{
				Day: 1, Weekday: "Sun", Date: "2026-02-01",
				Bars: []timeline.Bar{
					{Kind: timeline.BarSleep, StartHour: 5, EndHour: 7},
					{Kind: timeline.BarDuty, StartHour: 21.5, EndHour: 24, Label: "DOH-LHR", Risk: roster.RiskCritical, Performance: fp(50), IsOvernightStart: true},
					{Kind: timeline.BarInflightRest, StartHour: 23, EndHour: 23.5},
				},
			},
			{
				Day: 2, Weekday: "Mon", Date: "2026-02-02",
				Bars: []timeline.Bar{
					{Kind: timeline.BarDuty, StartHour: 0, EndHour: 2, Label: "DOH-LHR", Risk: roster.RiskCritical, IsOvernightContinuation: true},
				},
				Markers: []fdp.Marker{{Kind: fdp.KindBase, Day: 2, Hour: 7.5}},
			},
		},
	}
}

func gridLine(t *testing.T, out, prefix string) []rune {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			r := []rune(strings.TrimPrefix(line, prefix))
			if len(r) < Cells {
				t.Fatalf("row %q too short: %q", prefix, line)
			}
			return r
		}
	}
	t.Fatalf("row %q not found in:\n%s", prefix, out)
	return nil
}

func TestRenderCells(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample(), Options{NoColor: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	day1 := gridLine(t, out, "01 Sun ")
	tests := []struct {
		name string
		cell int
		want rune
	}{
		{"WOCL wraps into the first UTC hours", 0, glyphWOCL},
		{"night before sleep", 7, glyphNight},
		{"sleep", 10, glyphSleep},
		{"after sleep is empty", 14, glyphEmpty},
		{"night after 20Z", 41, glyphNight},
		{"duty", 43, glyphDuty},
		{"in-flight rest over duty", 46, glyphRest},
		{"duty to midnight", 47, glyphDuty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := day1[tt.cell]; got != tt.want {
				t.Errorf("cell %d = %q, want %q (row %q)", tt.cell, got, tt.want, string(day1))
			}
		})
	}

	day2 := gridLine(t, out, "02 Mon ")
	if day2[0] != glyphDuty || day2[3] != glyphDuty || day2[4] != glyphWOCL {
		t.Errorf("day 2 continuation row = %q", string(day2))
	}
	if day2[15] != glyphMarker {
		t.Errorf("FDP marker at 07:30 should be cell 15: %q", string(day2))
	}
	if !strings.Contains(out, "DOH-LHR 50% !") || !strings.Contains(out, "sleep 2.0h") {
		t.Errorf("summary missing:\n%s", out)
	}
	if strings.Count(out, "DOH-LHR") != 1 {
		t.Errorf("continuation must not repeat the label:\n%s", out)
	}
	if !strings.Contains(out, "Chronogram February 2026  home Asia/Qatar (UTC+3)") {
		t.Errorf("header missing:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("NoColor output contains escape codes")
	}
	if strings.Contains(out, "very short duty") {
		t.Error("warnings must be opt-in")
	}
}

func TestRenderOptions(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample(), Options{NoColor: true, Legend: true, Warnings: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"in-flight rest", "risk:", "very short duty"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderNil(t *testing.T) {
	if err := Render(&bytes.Buffer{}, nil, Options{}); err == nil {
		t.Error("expected an error for nil data")
	}
}

func TestRuler(t *testing.T) {
	r := Ruler()
	if !strings.HasPrefix(r, "       00    03") || !strings.HasSuffix(r, "21Z") {
		t.Errorf("Ruler = %q", r)
	}
	if idx := strings.Index(r, "12"); idx != 7+24 {
		t.Errorf("12Z label at column %d, want %d", idx, 7+24)
	}
}
