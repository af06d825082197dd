package inflight

import (
	"testing"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

func TestTransform(t *testing.T) {
	start := time.Date(2026, 2, 9, 22, 0, 0, 0, time.UTC)
	duties := []roster.Duty{
		{
			ID: "D7",
			InflightRest: []roster.InflightRest{
				{StartUTC: start, EndUTC: start.Add(4 * time.Hour), CrewSet: "A"},
				{StartUTC: start.Add(5 * time.Hour), EndUTC: start.Add(8 * time.Hour), CrewSet: "B"},
				{StartUTC: start}, // no end: skipped
			},
		},
		{ID: "D8"},
	}

	frags, err := Transform(duties)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(frags), frags)
	}
	if !frags[0].IsOvernightStart || frags[0].StartHour != 22 || frags[0].EndHour != 24 {
		t.Errorf("fragment 0 = %+v", frags[0])
	}
	if !frags[1].IsOvernightContinuation || frags[1].EndHour != 2 || frags[1].Day != 10 {
		t.Errorf("fragment 1 = %+v", frags[1])
	}
	if frags[2].StartHour != 3 || frags[2].EndHour != 6 || frags[2].Payload.CrewSet != "B" {
		t.Errorf("fragment 2 = %+v", frags[2])
	}
	for _, f := range frags {
		if f.Payload.DutyID != "D7" {
			t.Errorf("duty id not stamped: %+v", f.Payload)
		}
	}
}
