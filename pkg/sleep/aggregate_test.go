package sleep

import (
	"errors"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.February, day, hour, minute, 0, 0, time.UTC)
}

func tp(t time.Time) *time.Time { return &t }

func dutyWithSleep(id string, report time.Time, sleepStart, sleepEnd time.Time) roster.Duty {
	return roster.Duty{
		ID:         id,
		ReportUTC:  report,
		ReleaseUTC: report.Add(8 * time.Hour),
		Legs: []roster.FlightLeg{
			{DepartureUTC: report.Add(time.Hour), ArrivalUTC: report.Add(7 * time.Hour)},
		},
		Sleep: &roster.SleepEstimate{
			Blocks: []roster.SleepBlock{{StartUTC: tp(sleepStart), EndUTC: tp(sleepEnd), Type: "main"}},
		},
	}
}

func TestAggregateDedupDutyAndRestDay(t *testing.T) {
	// The same night reported by the duty and by rest-day generation.
	d := dutyWithSleep("D1", at(4, 8, 0), at(3, 21, 0), at(4, 5, 0))
	rest := []roster.RestDay{{
		Date:   "2026-02-03",
		Blocks: []roster.SleepBlock{{StartUTC: tp(at(3, 21, 0)), EndUTC: tp(at(4, 5, 0)), Type: "recovery"}},
	}}

	frags, err := Aggregate([]roster.Duty{d}, rest, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected the overnight block once (2 fragments), got %d: %+v", len(frags), frags)
	}
	for _, f := range frags {
		if f.Payload.Source != "duty:D1" {
			t.Errorf("duty-level sleep should win, got source %q", f.Payload.Source)
		}
	}
}

func TestAggregateDropsRestOverlappingFlightWindow(t *testing.T) {
	d := roster.Duty{
		ID:         "D1",
		ReportUTC:  at(5, 1, 0),
		ReleaseUTC: at(5, 9, 0),
		Legs:       []roster.FlightLeg{{DepartureUTC: at(5, 2, 0), ArrivalUTC: at(5, 8, 0)}},
	}
	rest := []roster.RestDay{{
		Date: "2026-02-04",
		Blocks: []roster.SleepBlock{
			{StartUTC: tp(at(4, 22, 0)), EndUTC: tp(at(5, 6, 0))},  // overlaps the duty
			{StartUTC: tp(at(5, 12, 0)), EndUTC: tp(at(5, 14, 0))}, // afternoon nap, kept
			{StartUTC: tp(at(4, 17, 0)), EndUTC: tp(at(5, 1, 0))},  // ends at report: touching only
		},
	}}

	frags, err := Aggregate([]roster.Duty{d}, rest, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var hours [][2]float64
	for _, f := range frags {
		hours = append(hours, [2]float64{f.StartHour, f.EndHour})
	}
	want := [][2]float64{{12, 14}, {17, 24}, {0, 1}}
	if len(hours) != len(want) {
		t.Fatalf("got fragments %v, want %v", hours, want)
	}
	for i := range want {
		if hours[i] != want[i] {
			t.Errorf("fragment %d = %v, want %v", i, hours[i], want[i])
		}
	}
}

func TestAggregateKeepsNearDuplicates(t *testing.T) {
	// Two duty-level estimates that differ by 30 minutes must both surface.
	d1 := dutyWithSleep("D1", at(10, 12, 0), at(10, 1, 0), at(10, 7, 0))
	d2 := dutyWithSleep("D2", at(11, 12, 0), at(10, 1, 30), at(10, 7, 0))

	frags, err := Aggregate([]roster.Duty{d1, d2}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Errorf("near-duplicates must be kept, got %d fragments", len(frags))
	}
}

func TestAggregateDedupRoundsToTenthHour(t *testing.T) {
	// 01:00 and 01:02 both round to 1.0.
	d1 := dutyWithSleep("D1", at(10, 12, 0), at(10, 1, 0), at(10, 7, 0))
	d2 := dutyWithSleep("D2", at(11, 12, 0), at(10, 1, 2), at(10, 7, 0))

	frags, _ := Aggregate([]roster.Duty{d1, d2}, nil, 0)
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment after dedup, got %d", len(frags))
	}
	if frags[0].Payload.Source != "duty:D1" {
		t.Errorf("first occurrence must be kept, got %q", frags[0].Payload.Source)
	}
}

func TestAggregateLocalTimestamps(t *testing.T) {
	// Home base UTC+3: 23:00-07:00 local is 20:00-04:00 UTC.
	d := roster.Duty{
		ID: "D1",
		Sleep: &roster.SleepEstimate{
			StartISO:       "2026-02-01T23:00:00",
			EndISO:         "2026-02-02T07:00:00",
			EffectiveHours: 7.1,
		},
	}
	frags, err := Aggregate([]roster.Duty{d}, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %+v", frags)
	}
	if frags[0].Day != 1 || frags[0].StartHour != 20 || !frags[0].IsOvernightStart {
		t.Errorf("start fragment = %+v", frags[0])
	}
	if frags[1].Day != 2 || frags[1].EndHour != 4 || !frags[1].IsOvernightContinuation {
		t.Errorf("continuation fragment = %+v", frags[1])
	}
	if frags[0].Payload.EffectiveHours != 7.1 {
		t.Errorf("estimate fields not carried: %+v", frags[0].Payload)
	}
}

func TestAggregateDropsUnplaceableBlocks(t *testing.T) {
	rest := []roster.RestDay{{
		Date: "2026-02-07",
		Blocks: []roster.SleepBlock{
			{Type: "main"},                           // no timestamps at all
			{StartISO: "soon", EndISO: "later"},      // unparsable
			{StartUTC: tp(at(7, 22, 0)), EndUTC: nil}, // half a UTC pair, no ISO
		},
	}}
	frags, err := Aggregate(nil, rest, 0)
	if err != nil {
		t.Fatalf("unplaceable blocks must be dropped silently, got %v", err)
	}
	if len(frags) != 0 {
		t.Errorf("expected no fragments, got %+v", frags)
	}
}

func TestAggregateReportsMultiDayBlocks(t *testing.T) {
	rest := []roster.RestDay{{
		Date:   "2026-02-07",
		Blocks: []roster.SleepBlock{{StartUTC: tp(at(7, 22, 0)), EndUTC: tp(at(9, 6, 0))}},
	}}
	_, err := Aggregate(nil, rest, 0)
	var span *dayfrag.MultiDaySpanError
	if !errors.As(err, &span) {
		t.Errorf("expected MultiDaySpanError, got %v", err)
	}
}

func TestAggregateAssignsStableIDs(t *testing.T) {
	rest := []roster.RestDay{{
		Date:   "2026-02-07",
		Blocks: []roster.SleepBlock{{StartUTC: tp(at(7, 22, 0)), EndUTC: tp(at(8, 6, 0))}},
	}}
	a, _ := Aggregate(nil, rest, 0)
	b, _ := Aggregate(nil, rest, 0)
	if a[0].Payload.ID == "" || a[0].Payload.ID != b[0].Payload.ID {
		t.Errorf("ids not stable: %q vs %q", a[0].Payload.ID, b[0].Payload.ID)
	}
	if a[0].Payload.ID != a[1].Payload.ID {
		t.Error("both fragments of a block must share its id")
	}
}

func TestAggregateWithAdjust(t *testing.T) {
	rest := []roster.RestDay{{
		Date:   "2026-02-07",
		Blocks: []roster.SleepBlock{{ID: "b1", StartUTC: tp(at(7, 1, 0)), EndUTC: tp(at(7, 6, 0))}},
	}}
	opts := Options{Adjust: func(b roster.SleepBlock) roster.SleepBlock {
		if b.ID == "b1" {
			e := b.EndUTC.Add(time.Hour)
			b.EndUTC = &e
		}
		return b
	}}
	frags, err := AggregateWith(nil, rest, 0, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 1 || frags[0].EndHour != 7 {
		t.Errorf("adjusted block = %+v, want end 7", frags)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name       string
		a1, a2     time.Time
		b1, b2     time.Time
		wantResult bool
	}{
		{"disjoint", at(1, 1, 0), at(1, 2, 0), at(1, 3, 0), at(1, 4, 0), false},
		{"touching", at(1, 1, 0), at(1, 2, 0), at(1, 2, 0), at(1, 4, 0), false},
		{"partial", at(1, 1, 0), at(1, 3, 0), at(1, 2, 0), at(1, 4, 0), true},
		{"contained", at(1, 1, 0), at(1, 5, 0), at(1, 2, 0), at(1, 3, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a1, tt.a2, tt.b1, tt.b2); got != tt.wantResult {
				t.Errorf("Overlaps = %v, want %v", got, tt.wantResult)
			}
			if got := Overlaps(tt.b1, tt.b2, tt.a1, tt.a2); got != tt.wantResult {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.wantResult)
			}
		})
	}
}
