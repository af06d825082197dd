// Package sleep gathers the sleep shown on the chronogram: blocks attached to
// duties plus the independently generated rest-day sleep, with duplicates removed.
package sleep

import (
	"math"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
)

// Options adjusts aggregation.
type Options struct {
	// Adjust, when set, is applied to every resolved block before coverage is
	// computed. The edit set uses it to show pending user edits.
	Adjust func(roster.SleepBlock) roster.SleepBlock
}

// window is a UTC span in the coverage set.
type window struct {
	start, end time.Time
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) share any time.
// Touching end to start is not an overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Aggregate is AggregateWith without options.
func Aggregate(duties []roster.Duty, restDays []roster.RestDay, homeOffset float64) ([]dayfrag.Fragment[roster.SleepBlock], error) {
	return AggregateWith(duties, restDays, homeOffset, Options{})
}

// AggregateWith merges duty-level sleep with rest-day sleep and splits the result into
// day fragments.
//
// Rest-day blocks are generated for every inter-duty night and often repeat
// what a duty's own sleep estimate already says, so a rest-day block is
// discarded when it overlaps any duty activity window (report to last
// arrival) or any duty-level sleep. Fragments are then deduplicated on
// (day, start, end) rounded to 0.1h, keeping the first. Near-duplicates that
// do not share a key are deliberately kept: they are a modelling conflict.
//
// Blocks without usable timestamps are dropped silently. The returned error
// only carries splitter rejections (multi-day or inverted blocks).
func AggregateWith(duties []roster.Duty, restDays []roster.RestDay, homeOffset float64, opts Options) ([]dayfrag.Fragment[roster.SleepBlock], error) {
	var working []dayfrag.Interval[roster.SleepBlock]
	var coverage []window

	for _, d := range duties {
		if !d.ReportUTC.IsZero() {
			s, e := d.ActivityWindow()
			if e.After(s) {
				coverage = append(coverage, window{s, e})
			}
		}
		for _, iv := range ExtractDutySleep(d, homeOffset) {
			iv = adjust(iv, opts)
			working = append(working, iv)
			coverage = append(coverage, window{iv.Start, iv.End})
		}
	}

	for _, rd := range restDays {
		for _, b := range rd.Blocks {
			iv, ok := resolve(b, "rest:"+rd.Date, homeOffset)
			if !ok {
				continue
			}
			iv = adjust(iv, opts)
			if covered(iv, coverage) {
				continue
			}
			working = append(working, iv)
		}
	}

	frags, err := dayfrag.Split(working)
	return Dedupe(frags), err
}

// ExtractDutySleep returns the sleep attached to a duty as UTC intervals.
// Explicit blocks win; an estimate without blocks counts as one block.
func ExtractDutySleep(d roster.Duty, homeOffset float64) []dayfrag.Interval[roster.SleepBlock] {
	if d.Sleep == nil {
		return nil
	}
	source := "duty:" + d.ID

	blocks := d.Sleep.Blocks
	if len(blocks) == 0 {
		blocks = []roster.SleepBlock{{
			StartUTC:       d.Sleep.StartUTC,
			EndUTC:         d.Sleep.EndUTC,
			StartISO:       d.Sleep.StartISO,
			EndISO:         d.Sleep.EndISO,
			Type:           d.Sleep.Strategy,
			EffectiveHours: d.Sleep.EffectiveHours,
			Quality:        d.Sleep.Efficiency,
		}}
	}

	out := make([]dayfrag.Interval[roster.SleepBlock], 0, len(blocks))
	for _, b := range blocks {
		if iv, ok := resolve(b, source, homeOffset); ok {
			out = append(out, iv)
		}
	}
	return out
}

// resolve pins a block to UTC, stamps its source and gives it a stable id.
func resolve(b roster.SleepBlock, source string, homeOffset float64) (dayfrag.Interval[roster.SleepBlock], bool) {
	start, end, ok := b.Span(homeOffset)
	if !ok {
		return dayfrag.Interval[roster.SleepBlock]{}, false
	}
	b.StartUTC, b.EndUTC = &start, &end
	if b.Source == "" {
		b.Source = source
	}
	if b.ID == "" {
		b.ID = roster.BlockID(b.Source, start, end)
	}
	return dayfrag.Interval[roster.SleepBlock]{Start: start, End: end, Payload: b}, true
}

func adjust(iv dayfrag.Interval[roster.SleepBlock], opts Options) dayfrag.Interval[roster.SleepBlock] {
	if opts.Adjust == nil {
		return iv
	}
	b := opts.Adjust(iv.Payload)
	if b.StartUTC != nil && b.EndUTC != nil {
		iv.Start, iv.End = *b.StartUTC, *b.EndUTC
	}
	iv.Payload = b
	return iv
}

func covered(iv dayfrag.Interval[roster.SleepBlock], coverage []window) bool {
	for _, w := range coverage {
		if Overlaps(iv.Start, iv.End, w.start, w.end) {
			return true
		}
	}
	return false
}

type dedupeKey struct {
	date, start, end int64
}

// Dedupe drops fragments whose (day, start, end), rounded to 0.1h, was already seen.
func Dedupe(frags []dayfrag.Fragment[roster.SleepBlock]) []dayfrag.Fragment[roster.SleepBlock] {
	seen := make(map[dedupeKey]bool, len(frags))
	out := make([]dayfrag.Fragment[roster.SleepBlock], 0, len(frags))
	for _, f := range frags {
		k := dedupeKey{
			date:  f.Date.Unix(),
			start: int64(math.Round(f.StartHour * 10)),
			end:   int64(math.Round(f.EndHour * 10)),
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}
