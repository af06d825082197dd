// Package segment breaks a duty fragment into check-in, flight, ground and
// deadhead sub-segments positioned on the fragment's day row.
package segment

import (
	"math"
	"sort"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

// Kind is the activity shown by a segment.
type Kind string

const (
	KindCheckin  Kind = "checkin"
	KindFlight   Kind = "flight"
	KindGround   Kind = "ground"
	KindDeadhead Kind = "deadhead"
)

// MinGroundGap is the shortest turnaround drawn as a ground segment.
const MinGroundGap = 15 * time.Minute

// Segment is a piece of a duty bar, in hours of the fragment's day.
type Segment struct {
	Kind         Kind    `json:"kind"`
	FlightNumber string  `json:"flight_number,omitempty"`
	Departure    string  `json:"departure,omitempty"`
	Arrival      string  `json:"arrival,omitempty"`
	Phases       []Phase `json:"phases,omitempty"`
	StartHour    float64 `json:"start_hour"`
	EndHour      float64 `json:"end_hour"`
	Performance  float64 `json:"performance"`
	LegIndex     int     `json:"leg_index"` // -1 for check-in
}

// Width is the segment length in hours.
func (s Segment) Width() float64 { return s.EndHour - s.StartHour }

// Options tunes decomposition.
type Options struct {
	Phases bool // subdivide operating legs into flight phases
}

// Decompose lays the legs of a duty over one of its day fragments.
//
// Leg instants are measured from the fragment's own midnight, so a leg that
// crossed UTC midnight lands at [-x, y] on the later row or [x, 24+y] on the
// earlier one and is clipped to the fragment. Such a leg is only drawn on a
// fragment that runs up to midnight or starts at it; on any other fragment it
// is skipped. Output is ordered by start hour and never overlaps.
func Decompose(frag dayfrag.Fragment[roster.Duty], legs []roster.FlightLeg, opts Options) []Segment {
	ordered := make([]roster.FlightLeg, 0, len(legs))
	for _, leg := range legs {
		if leg.DepartureUTC.IsZero() || leg.ArrivalUTC.IsZero() || !leg.ArrivalUTC.After(leg.DepartureUTC) {
			continue
		}
		ordered = append(ordered, leg)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DepartureUTC.Before(ordered[j].DepartureUTC)
	})

	lo, hi := frag.StartHour, frag.EndHour
	var out []Segment

	if c, ok := checkin(frag, ordered); ok {
		out = append(out, c)
	}

	for i, leg := range ordered {
		if i > 0 {
			prev := ordered[i-1]
			if leg.DepartureUTC.Sub(prev.ArrivalUTC) > MinGroundGap {
				s, e, ok := clip(dayfrag.Hours(prev.ArrivalUTC, frag.Date), dayfrag.Hours(leg.DepartureUTC, frag.Date), lo, hi)
				if ok {
					out = append(out, Segment{
						Kind:        KindGround,
						StartHour:   s,
						EndHour:     e,
						Performance: prev.Performance,
						LegIndex:    i,
						Departure:   prev.Arrival,
					})
				}
			}
		}

		if crossesMidnight(leg) && !touchesMidnight(frag) {
			continue
		}
		dep := dayfrag.Hours(leg.DepartureUTC, frag.Date)
		arr := dayfrag.Hours(leg.ArrivalUTC, frag.Date)
		s, e, ok := clip(dep, arr, lo, hi)
		if !ok {
			continue
		}

		seg := Segment{
			Kind:         KindFlight,
			StartHour:    s,
			EndHour:      e,
			Performance:  leg.Performance,
			FlightNumber: leg.FlightNumber,
			Departure:    leg.Departure,
			Arrival:      leg.Arrival,
			LegIndex:     i,
		}
		if leg.IsDeadhead() {
			seg.Kind = KindDeadhead
		} else if opts.Phases {
			seg.Phases = Phases(dep, arr, leg.Performance, s, e)
		}
		out = append(out, seg)
	}

	return normalize(out)
}

// checkin is the report-to-first-departure segment, only on the fragment
// where the duty begins and only when both instants fall inside it.
func checkin(frag dayfrag.Fragment[roster.Duty], legs []roster.FlightLeg) (Segment, bool) {
	duty := frag.Payload
	if frag.IsOvernightContinuation || len(legs) == 0 || duty.ReportUTC.IsZero() {
		return Segment{}, false
	}
	first := legs[0]
	if !duty.ReportUTC.Before(first.DepartureUTC) {
		return Segment{}, false
	}
	report := dayfrag.Hours(duty.ReportUTC, frag.Date)
	departure := dayfrag.Hours(first.DepartureUTC, frag.Date)
	if report < frag.StartHour-dayfrag.Epsilon || departure > frag.EndHour+dayfrag.Epsilon {
		return Segment{}, false
	}
	s, e, ok := clip(report, departure, frag.StartHour, frag.EndHour)
	if !ok {
		return Segment{}, false
	}
	perf := first.Performance
	if duty.ReportPerformance != nil {
		perf = *duty.ReportPerformance
	}
	return Segment{Kind: KindCheckin, StartHour: s, EndHour: e, Performance: perf, LegIndex: -1, Departure: first.Departure}, true
}

// crossesMidnight reports whether a leg arrives on a later UTC day than it departs.
func crossesMidnight(leg roster.FlightLeg) bool {
	return !dayfrag.Midnight(leg.DepartureUTC).Equal(dayfrag.Midnight(leg.ArrivalUTC))
}

// touchesMidnight reports whether the fragment ends at 24 or starts at 0.
func touchesMidnight(frag dayfrag.Fragment[roster.Duty]) bool {
	return frag.EndHour >= 24-dayfrag.Epsilon || frag.StartHour <= dayfrag.Epsilon
}

// clip bounds [s,e] to [lo,hi] and drops anything narrower than dayfrag.Epsilon.
func clip(s, e, lo, hi float64) (float64, float64, bool) {
	s = math.Max(s, lo)
	e = math.Min(e, hi)
	if e-s < dayfrag.Epsilon {
		return 0, 0, false
	}
	return s, e, true
}

// normalize sorts by start and trims any overlap left by inconsistent source
// data by pushing the later segment's start to the earlier one's end.
func normalize(segs []Segment) []Segment {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].StartHour < segs[j].StartHour })
	out := segs[:0]
	for _, s := range segs {
		if n := len(out); n > 0 && s.StartHour < out[n-1].EndHour {
			s.StartHour = out[n-1].EndHour
			if s.Width() < dayfrag.Epsilon {
				continue
			}
			if len(s.Phases) > 0 {
				s.Phases = clipPhases(s.Phases, s.StartHour, s.EndHour)
			}
		}
		out = append(out, s)
	}
	return out
}
