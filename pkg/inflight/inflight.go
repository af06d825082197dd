// Package inflight places augmented-crew in-flight rest on the day grid.
package inflight

import (
	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

// Transform splits every duty's in-flight rest blocks into day fragments.
// Blocks are already UTC; those missing an instant are skipped.
func Transform(duties []roster.Duty) ([]dayfrag.Fragment[roster.InflightRest], error) {
	var intervals []dayfrag.Interval[roster.InflightRest]
	for _, d := range duties {
		for _, b := range d.InflightRest {
			if b.StartUTC.IsZero() || b.EndUTC.IsZero() {
				continue
			}
			if b.DutyID == "" {
				b.DutyID = d.ID
			}
			intervals = append(intervals, dayfrag.Interval[roster.InflightRest]{Start: b.StartUTC, End: b.EndUTC, Payload: b})
		}
	}
	return dayfrag.Split(intervals)
}
