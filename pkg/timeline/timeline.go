// Package timeline assembles the month chronogram: one row per UTC day with
// positioned duty, sleep and in-flight rest bars, FDP markers and circadian
// overlay bands.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/circadian"
	"github.com/codeGROOVE-dev/chronogram/pkg/dayfrag"
	"github.com/codeGROOVE-dev/chronogram/pkg/edit"
	"github.com/codeGROOVE-dev/chronogram/pkg/fdp"
	"github.com/codeGROOVE-dev/chronogram/pkg/inflight"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/chronogram/pkg/segment"
	"github.com/codeGROOVE-dev/chronogram/pkg/sleep"
	"github.com/codeGROOVE-dev/chronogram/pkg/tzconvert"
)

// Input is everything a chronogram depends on.
type Input struct {
	Edits    *edit.Set        `json:"edits,omitempty"`
	HomeZone string           `json:"home_zone"`
	Duties   []roster.Duty    `json:"duties"`
	RestDays []roster.RestDay `json:"rest_days"`
	Year     int              `json:"year"`
	Month    time.Month       `json:"month"`
	Phases   bool             `json:"phases"`
}

// BarKind is what a bar represents.
type BarKind string

const (
	BarDuty         BarKind = "duty"
	BarSleep        BarKind = "sleep"
	BarInflightRest BarKind = "inflight_rest"
)

// kindOrder breaks start-hour ties so output is stable.
var kindOrder = map[BarKind]int{BarSleep: 0, BarDuty: 1, BarInflightRest: 2}

// Bar is one positioned fragment on a day row.
type Bar struct {
	Performance             *float64             `json:"performance,omitempty"`
	Sleep                   *roster.SleepBlock   `json:"sleep,omitempty"`
	Rest                    *roster.InflightRest `json:"inflight_rest,omitempty"`
	Kind                    BarKind              `json:"kind"`
	DutyID                  string               `json:"duty_id,omitempty"`
	BlockID                 string               `json:"block_id,omitempty"`
	Risk                    roster.Risk          `json:"risk,omitempty"`
	Label                   string               `json:"label"`
	Segments                []segment.Segment    `json:"segments,omitempty"`
	Day                     int                  `json:"day"`
	StartHour               float64              `json:"start_hour"`
	EndHour                 float64              `json:"end_hour"`
	LeftPct                 float64              `json:"left_pct"`
	WidthPct                float64              `json:"width_pct"`
	WOCLHours               float64              `json:"wocl_hours"`
	IsOvernightStart        bool                 `json:"is_overnight_start"`
	IsOvernightContinuation bool                 `json:"is_overnight_continuation"`
}

// EditTarget describes a sleep bar for the drag state machine. Edges made by
// the day split are marked as cuts so they cannot be grabbed.
func (b Bar) EditTarget() (edit.Target, bool) {
	if b.Kind != BarSleep || b.BlockID == "" {
		return edit.Target{}, false
	}
	t := edit.Target{
		BlockID:    b.BlockID,
		StartHour:  b.StartHour,
		EndHour:    b.EndHour,
		StartIsCut: b.IsOvernightContinuation,
		EndIsCut:   b.IsOvernightStart,
	}
	if b.Sleep != nil {
		t.OriginalStartISO, t.OriginalEndISO = b.Sleep.StartISO, b.Sleep.EndISO
		if t.OriginalStartISO == "" && b.Sleep.StartUTC != nil {
			t.OriginalStartISO = b.Sleep.StartUTC.Format(time.RFC3339)
		}
		if t.OriginalEndISO == "" && b.Sleep.EndUTC != nil {
			t.OriginalEndISO = b.Sleep.EndUTC.Format(time.RFC3339)
		}
	}
	return t, true
}

// Row is one UTC day of the month.
type Row struct {
	Date    string       `json:"date"`
	Weekday string       `json:"weekday"`
	Bars    []Bar        `json:"bars"`
	Markers []fdp.Marker `json:"fdp_markers"`
	Day     int          `json:"day"`
}

// Data is the assembled chronogram. Treat it as read-only: Engine shares
// the same value between callers.
type Data struct {
	HomeZone    string        `json:"home_zone"`
	OffsetLabel string        `json:"offset_label"`
	Rows        []Row         `json:"rows"`
	Warnings    []string      `json:"warnings,omitempty"`
	Overlays    circadian.Set `json:"overlays"`
	Year        int           `json:"year"`
	Month       time.Month    `json:"month"`
	DaysInMonth int           `json:"days_in_month"`
	OffsetHours float64       `json:"offset_hours"`
}

// Pct converts an hour of the row to a percentage of its width.
func Pct(hour float64) float64 {
	return hour / 24 * 100
}

// Build lays out one month. It is deterministic and never fails: anything
// that cannot be placed is left out and described in Data.Warnings.
func Build(in Input, logger *slog.Logger) *Data {
	if logger == nil {
		logger = slog.Default()
	}
	b := &builder{in: in, logger: logger}
	return b.build()
}

type builder struct {
	logger   *slog.Logger
	warnings []string
	in       Input
}

func (b *builder) warn(msg string, args ...any) {
	s := fmt.Sprintf(msg, args...)
	b.logger.Debug("timeline warning", "warning", s)
	b.warnings = append(b.warnings, s)
}

// warnAll records every error joined into err.
func (b *builder) warnAll(what string, err error) {
	if err == nil {
		return
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			b.warn("%s rejected: %v", what, e)
		}
		return
	}
	b.warn("%s rejected: %v", what, err)
}

func (b *builder) build() *Data {
	in := b.in
	days := roster.DaysIn(in.Year, in.Month)

	offset, err := tzconvert.ResolveOffset(in.HomeZone, tzconvert.MonthReference(in.Year, in.Month))
	if err != nil {
		b.logger.Warn("unrecognized home timezone, using UTC", "zone", in.HomeZone, "error", err)
		b.warn("timezone %q not recognized, showing home base as UTC", in.HomeZone)
	}

	data := &Data{
		Year:        in.Year,
		Month:       in.Month,
		DaysInMonth: days,
		HomeZone:    in.HomeZone,
		OffsetHours: offset,
		OffsetLabel: tzconvert.FormatOffset(offset),
		Overlays:    circadian.Overlays(offset),
		Rows:        make([]Row, days),
	}
	for i := range days {
		date := time.Date(in.Year, in.Month, i+1, 0, 0, 0, 0, time.UTC)
		data.Rows[i] = Row{Day: i + 1, Date: date.Format("2006-01-02"), Weekday: date.Weekday().String()[:3]}
	}

	dutyFrags := b.dutyFragments()
	dutyFrags = inMonth(dutyFrags, in.Year, in.Month)
	for _, f := range dutyFrags {
		row := &data.Rows[f.Day-1]
		row.Bars = append(row.Bars, b.dutyBar(f, data.Overlays.WOCL))
	}
	for _, m := range fdp.Markers(dutyFrags, days) {
		row := &data.Rows[m.Day-1]
		row.Markers = append(row.Markers, m)
	}

	opts := sleep.Options{}
	if in.Edits != nil {
		opts.Adjust = in.Edits.Adjust
	}
	sleepFrags, err := sleep.AggregateWith(in.Duties, in.RestDays, offset, opts)
	b.warnAll("sleep block", err)
	for _, f := range inMonth(sleepFrags, in.Year, in.Month) {
		row := &data.Rows[f.Day-1]
		row.Bars = append(row.Bars, sleepBar(f, data.Overlays.WOCL))
	}

	restFrags, err := inflight.Transform(in.Duties)
	b.warnAll("in-flight rest", err)
	for _, f := range inMonth(restFrags, in.Year, in.Month) {
		row := &data.Rows[f.Day-1]
		row.Bars = append(row.Bars, restBar(f, data.Overlays.WOCL))
	}

	for i := range data.Rows {
		sortBars(data.Rows[i].Bars)
	}
	data.Warnings = b.warnings

	b.logger.Debug("timeline built",
		"year", in.Year, "month", in.Month, "offset", offset,
		"duty_fragments", len(dutyFrags), "sleep_fragments", len(sleepFrags), "warnings", len(b.warnings))
	return data
}

func (b *builder) dutyFragments() []dayfrag.Fragment[roster.Duty] {
	intervals := make([]dayfrag.Interval[roster.Duty], 0, len(b.in.Duties))
	for _, d := range b.in.Duties {
		for _, w := range roster.Validate(d) {
			b.warn("duty %s: %s", d.ID, w)
		}
		if d.ReportUTC.IsZero() || d.ReleaseUTC.IsZero() {
			continue
		}
		intervals = append(intervals, dayfrag.Interval[roster.Duty]{Start: d.ReportUTC, End: d.ReleaseUTC, Payload: d})
	}
	frags, err := dayfrag.Split(intervals)
	b.warnAll("duty", err)
	return frags
}

func (b *builder) dutyBar(f dayfrag.Fragment[roster.Duty], wocl []circadian.Band) Bar {
	d := f.Payload
	perf := d.RiskPerformance()
	bar := newBar(BarDuty, f.Day, f.StartHour, f.EndHour, f.IsOvernightStart, f.IsOvernightContinuation, wocl)
	bar.DutyID = d.ID
	bar.Segments = segment.Decompose(f, d.Legs, segment.Options{Phases: b.in.Phases})
	bar.Risk = roster.ClassifyRisk(perf)
	bar.Performance = perf
	bar.Label = routeLabel(d)
	return bar
}

func sleepBar(f dayfrag.Fragment[roster.SleepBlock], wocl []circadian.Band) Bar {
	blk := f.Payload
	bar := newBar(BarSleep, f.Day, f.StartHour, f.EndHour, f.IsOvernightStart, f.IsOvernightContinuation, wocl)
	bar.BlockID = blk.ID
	bar.Sleep = &blk
	if strings.HasPrefix(blk.Source, "duty:") {
		bar.DutyID = strings.TrimPrefix(blk.Source, "duty:")
	}
	kind := blk.Type
	if kind == "" {
		kind = "sleep"
	}
	bar.Label = kind
	if blk.EffectiveHours > 0 {
		bar.Label = fmt.Sprintf("%s %.1fh", kind, blk.EffectiveHours)
	}
	return bar
}

func restBar(f dayfrag.Fragment[roster.InflightRest], wocl []circadian.Band) Bar {
	r := f.Payload
	bar := newBar(BarInflightRest, f.Day, f.StartHour, f.EndHour, f.IsOvernightStart, f.IsOvernightContinuation, wocl)
	bar.DutyID = r.DutyID
	bar.Rest = &r
	bar.Label = fmt.Sprintf("rest %.1fh", r.EndUTC.Sub(r.StartUTC).Hours())
	if r.CrewSet != "" {
		bar.Label = r.CrewSet + " " + bar.Label
	}
	return bar
}

func newBar(kind BarKind, day int, start, end float64, overnightStart, continuation bool, wocl []circadian.Band) Bar {
	return Bar{
		Kind:                    kind,
		Day:                     day,
		StartHour:               start,
		EndHour:                 end,
		LeftPct:                 Pct(start),
		WidthPct:                Pct(end - start),
		WOCLHours:               circadian.OverlapHours(wocl, start, end),
		IsOvernightStart:        overnightStart,
		IsOvernightContinuation: continuation,
	}
}

// routeLabel is DOH-LHR-DOH style; duties without legs show their type or id.
func routeLabel(d roster.Duty) string {
	if len(d.Legs) == 0 {
		if d.DutyType != "" {
			return d.DutyType
		}
		return d.ID
	}
	stops := []string{d.Legs[0].Departure}
	for _, l := range d.Legs {
		stops = append(stops, l.Arrival)
	}
	return strings.Join(stops, "-")
}

func inMonth[T any](frags []dayfrag.Fragment[T], year int, month time.Month) []dayfrag.Fragment[T] {
	out := frags[:0:0]
	for _, f := range frags {
		if f.Date.Year() == year && f.Date.Month() == month {
			out = append(out, f)
		}
	}
	return out
}

func sortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		a, b := bars[i], bars[j]
		if a.StartHour != b.StartHour {
			return a.StartHour < b.StartHour
		}
		if a.Kind != b.Kind {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return a.DutyID+a.BlockID < b.DutyID+b.BlockID
	})
}
