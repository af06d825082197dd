// Package fdp computes where a duty's maximum flight duty period runs out.
package fdp

import (
	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

// Kind distinguishes the regulated limit from the discretion limit.
type Kind string

const (
	KindBase     Kind = "base"
	KindExtended Kind = "extended" // commander's discretion
)

// Marker is the point on the grid where an FDP limit is reached.
type Marker struct {
	Kind       Kind    `json:"kind"`
	DutyID     string  `json:"duty_id"`
	Day        int     `json:"day"`
	Hour       float64 `json:"hour"`
	LimitHours float64 `json:"limit_hours"`
}

// Markers places FDP limit markers for the start fragment of each duty.
// A limit past midnight moves to the next day at limit-24; if that day is
// beyond daysInMonth, or the limit lands past the end of the next day, the
// marker is dropped. Continuation fragments never produce markers.
func Markers(frags []dayfrag.Fragment[roster.Duty], daysInMonth int) []Marker {
	var out []Marker
	for _, f := range frags {
		if f.IsOvernightContinuation {
			continue
		}
		d := f.Payload
		if d.MaxFDPHours == nil || *d.MaxFDPHours <= 0 {
			continue
		}
		base := *d.MaxFDPHours
		if m, ok := place(f, base, daysInMonth, KindBase); ok {
			out = append(out, m)
		}
		if d.ExtendedFDPHours != nil && *d.ExtendedFDPHours > base {
			if m, ok := place(f, *d.ExtendedFDPHours, daysInMonth, KindExtended); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func place(f dayfrag.Fragment[roster.Duty], limit float64, daysInMonth int, kind Kind) (Marker, bool) {
	hour := f.StartHour + limit
	day := f.Day
	if hour > 24 {
		hour -= 24
		day++
	}
	if hour > 24 || day < 1 || day > daysInMonth {
		return Marker{}, false
	}
	return Marker{Kind: kind, DutyID: f.Payload.ID, Day: day, Hour: hour, LimitHours: limit}, true
}
