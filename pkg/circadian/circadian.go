// Package circadian positions the Window of Circadian Low and home-base night
// on the UTC grid.
package circadian

import (
	"math"

	"github.com/codeGROOVE-dev/chronogram/pkg/tzconvert"
)

// Kind names an overlay band.
type Kind string

const (
	KindWOCL  Kind = "wocl"
	KindNight Kind = "night"
)

// Local-time boundaries of the bands, in hours.
const (
	WOCLStartLocal  = 2.0
	WOCLEndLocal    = 6.0
	NightStartLocal = 23.0
	NightEndLocal   = 7.0
)

// Band is a shaded range of a row, in UTC hours.
type Band struct {
	Kind      Kind    `json:"kind"`
	StartHour float64 `json:"start_hour"`
	EndHour   float64 `json:"end_hour"`
}

// Set holds both overlays. Each list has one band, or two when the band
// wraps past UTC midnight.
type Set struct {
	WOCL  []Band `json:"wocl"`
	Night []Band `json:"night"`
}

// Overlays converts the local WOCL and night windows to the UTC grid for a
// home base offsetHours from UTC.
// Example: offset +3 puts WOCL 02:00-06:00 local at 23:00-03:00 UTC: [0,3] and [23,24].
func Overlays(offsetHours float64) Set {
	return Set{
		WOCL:  Bands(KindWOCL, WOCLStartLocal, WOCLEndLocal, offsetHours),
		Night: Bands(KindNight, NightStartLocal, NightEndLocal, offsetHours),
	}
}

// Bands maps a local [start,end) window to UTC, splitting it in two when the
// UTC start is not before the UTC end.
func Bands(kind Kind, localStart, localEnd, offsetHours float64) []Band {
	s := tzconvert.LocalToUTC(localStart, offsetHours)
	e := tzconvert.LocalToUTC(localEnd, offsetHours)
	if s < e {
		return []Band{{Kind: kind, StartHour: s, EndHour: e}}
	}
	var out []Band
	if e > 0 {
		out = append(out, Band{Kind: kind, StartHour: 0, EndHour: e})
	}
	out = append(out, Band{Kind: kind, StartHour: s, EndHour: 24})
	return out
}

// OverlapHours is how much of [start,end] falls inside the bands.
func OverlapHours(bands []Band, start, end float64) float64 {
	total := 0.0
	for _, b := range bands {
		lo, hi := math.Max(start, b.StartHour), math.Min(end, b.EndHour)
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}
