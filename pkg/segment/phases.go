package segment

import (
	"math"

	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
)

// PhaseKind names a flight phase.
type PhaseKind string

const (
	PhaseTakeoff  PhaseKind = "takeoff"
	PhaseClimb    PhaseKind = "climb"
	PhaseCruise   PhaseKind = "cruise"
	PhaseDescent  PhaseKind = "descent"
	PhaseApproach PhaseKind = "approach"
	PhaseLanding  PhaseKind = "landing"
)

// Phase is a fixed-proportion slice of an operating leg.
type Phase struct {
	Kind        PhaseKind `json:"kind"`
	StartHour   float64   `json:"start_hour"`
	EndHour     float64   `json:"end_hour"`
	Performance float64   `json:"performance"`
}

// phaseProfile is the share of block time and the performance offset of each
// phase. Offsets follow the workload multipliers: heavier phases score lower.
var phaseProfile = []struct {
	kind   PhaseKind
	share  float64
	offset float64
}{
	{PhaseTakeoff, 0.05, -4},
	{PhaseClimb, 0.15, -2},
	{PhaseCruise, 0.50, 1},
	{PhaseDescent, 0.15, -1},
	{PhaseApproach, 0.10, -3},
	{PhaseLanding, 0.05, -5},
}

// Phases divides the full leg [dep,arr] into flight phases and keeps the parts
// visible inside [lo,hi]. The visible phases tile [lo,hi] exactly.
func Phases(dep, arr, basePerformance, lo, hi float64) []Phase {
	width := arr - dep
	if width <= 0 {
		return nil
	}
	all := make([]Phase, 0, len(phaseProfile))
	cursor := dep
	for i, p := range phaseProfile {
		end := cursor + width*p.share
		if i == len(phaseProfile)-1 {
			end = arr
		}
		all = append(all, Phase{
			Kind:        p.kind,
			StartHour:   cursor,
			EndHour:     end,
			Performance: math.Min(100, math.Max(0, basePerformance+p.offset)),
		})
		cursor = end
	}
	return clipPhases(all, lo, hi)
}

// clipPhases bounds phases to [lo,hi], drops slivers and snaps the outer
// edges so the phases cover [lo,hi] with no gap.
func clipPhases(phases []Phase, lo, hi float64) []Phase {
	out := make([]Phase, 0, len(phases))
	for _, p := range phases {
		s, e := math.Max(p.StartHour, lo), math.Min(p.EndHour, hi)
		if e-s < dayfrag.Epsilon {
			continue
		}
		p.StartHour, p.EndHour = s, e
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	out[0].StartHour = lo
	out[len(out)-1].EndHour = hi
	for i := 1; i < len(out); i++ {
		out[i].StartHour = out[i-1].EndHour
	}
	return out
}
