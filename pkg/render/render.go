// Package render draws a timeline on a terminal, one line per UTC day at
// 30-minute resolution.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/chronogram/pkg/circadian"
	"github.com/codeGROOVE-dev/chronogram/pkg/roster"
	"github.com/codeGROOVE-dev/chronogram/pkg/timeline"
	"github.com/fatih/color"
)

// Cells per row.
const Cells = 48

const cellHours = 24.0 / Cells

// Cell glyphs.
const (
	glyphDuty   = '█'
	glyphRest   = 'r'
	glyphSleep  = 'z'
	glyphMarker = '|'
	glyphWOCL   = '·'
	glyphNight  = '-'
	glyphEmpty  = ' '
)

// Options controls output.
type Options struct {
	NoColor  bool // plain text; used by tests and when piping
	Warnings bool // append soft warnings after the grid
	Legend   bool
}

type palette struct {
	risk   map[roster.Risk]*color.Color
	rest   *color.Color
	sleep  *color.Color
	marker *color.Color
	wocl   *color.Color
	night  *color.Color
	dim    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		risk: map[roster.Risk]*color.Color{
			roster.RiskLow:      color.New(color.FgGreen),
			roster.RiskModerate: color.New(color.FgYellow),
			roster.RiskHigh:     color.New(color.FgHiRed),
			roster.RiskCritical: color.New(color.FgRed),
			roster.RiskExtreme:  color.New(color.FgMagenta),
			roster.RiskUnknown:  color.New(color.FgWhite),
		},
		rest:   color.New(color.FgCyan),
		sleep:  color.New(color.FgBlue),
		marker: color.New(color.FgRed, color.Bold),
		wocl:   color.New(color.FgHiBlack),
		night:  color.New(color.FgHiBlack),
		dim:    color.New(color.FgHiBlack),
	}
	if noColor {
		for _, c := range p.risk {
			c.DisableColor()
		}
		for _, c := range []*color.Color{p.rest, p.sleep, p.marker, p.wocl, p.night, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

type cell struct {
	c     *color.Color
	glyph rune
}

// Render writes data to w.
func Render(w io.Writer, data *timeline.Data, opts Options) error {
	if data == nil {
		return errors.New("no timeline data")
	}
	p := newPalette(opts.NoColor)
	var out strings.Builder

	month := time.Date(data.Year, data.Month, 1, 0, 0, 0, 0, time.UTC)
	zone := data.HomeZone
	if zone == "" {
		zone = "UTC"
	}
	fmt.Fprintf(&out, "Chronogram %s  home %s (%s)\n", month.Format("January 2006"), zone, data.OffsetLabel)
	out.WriteString(strings.Repeat("─", 7+Cells) + "\n")
	out.WriteString(Ruler() + "\n")

	for _, row := range data.Rows {
		out.WriteString(p.dim.Sprintf("%02d %s ", row.Day, row.Weekday))
		for _, c := range rowCells(row, data.Overlays, p) {
			out.WriteString(c.c.Sprint(string(c.glyph)))
		}
		if s := summary(row); s != "" {
			out.WriteString("  " + s)
		}
		out.WriteString("\n")
	}

	if opts.Legend {
		out.WriteString("\n")
		fmt.Fprintf(&out, "%s duty  %s in-flight rest  %s sleep  %s FDP limit  %s WOCL  %s night (home)\n",
			p.risk[roster.RiskLow].Sprint(string(glyphDuty)),
			p.rest.Sprint(string(glyphRest)),
			p.sleep.Sprint(string(glyphSleep)),
			p.marker.Sprint(string(glyphMarker)),
			p.wocl.Sprint(string(glyphWOCL)),
			p.night.Sprint(string(glyphNight)))
		fmt.Fprintf(&out, "risk: %s low  %s moderate  %s high  %s critical  %s extreme\n",
			p.risk[roster.RiskLow].Sprint(string(glyphDuty)),
			p.risk[roster.RiskModerate].Sprint(string(glyphDuty)),
			p.risk[roster.RiskHigh].Sprint(string(glyphDuty)),
			p.risk[roster.RiskCritical].Sprint(string(glyphDuty)),
			p.risk[roster.RiskExtreme].Sprint(string(glyphDuty)))
	}

	if opts.Warnings && len(data.Warnings) > 0 {
		out.WriteString("\n")
		for _, warn := range data.Warnings {
			out.WriteString("⚠️  " + warn + "\n")
		}
	}

	_, err := io.WriteString(w, out.String())
	return err
}

// Ruler labels every third UTC hour above the cells.
func Ruler() string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", 7))
	for h := 0; h < 24; h += 3 {
		b.WriteString(fmt.Sprintf("%-6s", fmt.Sprintf("%02d", h)))
	}
	return strings.TrimRight(b.String(), " ") + "Z"
}

// rowCells resolves each half hour to one glyph. Higher layers win:
// marker, in-flight rest, duty, sleep, WOCL, night.
func rowCells(row timeline.Row, overlays circadian.Set, p palette) []cell {
	cells := make([]cell, Cells)
	for i := range cells {
		mid := float64(i)*cellHours + cellHours/2
		cells[i] = cell{glyph: glyphEmpty, c: p.dim}
		switch {
		case inBands(overlays.WOCL, mid):
			cells[i] = cell{glyph: glyphWOCL, c: p.wocl}
		case inBands(overlays.Night, mid):
			cells[i] = cell{glyph: glyphNight, c: p.night}
		}
	}

	paint := func(kind timeline.BarKind, pick func(timeline.Bar) cell) {
		for _, bar := range row.Bars {
			if bar.Kind != kind {
				continue
			}
			for i := range cells {
				mid := float64(i)*cellHours + cellHours/2
				if mid >= bar.StartHour && mid < bar.EndHour {
					cells[i] = pick(bar)
				}
			}
		}
	}
	paint(timeline.BarSleep, func(timeline.Bar) cell { return cell{glyph: glyphSleep, c: p.sleep} })
	paint(timeline.BarDuty, func(b timeline.Bar) cell {
		c, ok := p.risk[b.Risk]
		if !ok {
			c = p.risk[roster.RiskUnknown]
		}
		return cell{glyph: glyphDuty, c: c}
	})
	paint(timeline.BarInflightRest, func(timeline.Bar) cell { return cell{glyph: glyphRest, c: p.rest} })

	for _, m := range row.Markers {
		i := min(Cells-1, max(0, int(m.Hour/cellHours)))
		cells[i] = cell{glyph: glyphMarker, c: p.marker}
	}
	return cells
}

func inBands(bands []circadian.Band, hour float64) bool {
	for _, b := range bands {
		if hour >= b.StartHour && hour < b.EndHour {
			return true
		}
	}
	return false
}

// summary lists the duties starting on the row and the sleep it holds.
func summary(row timeline.Row) string {
	var parts []string
	sleepHours := 0.0
	for _, b := range row.Bars {
		switch b.Kind {
		case timeline.BarDuty:
			if b.IsOvernightContinuation {
				continue
			}
			s := b.Label
			if b.Performance != nil {
				s += fmt.Sprintf(" %.0f%%", *b.Performance)
			}
			if b.Risk.Reportable() {
				s += " !"
			}
			parts = append(parts, s)
		case timeline.BarSleep:
			sleepHours += b.EndHour - b.StartHour
		}
	}
	if sleepHours > 0 {
		parts = append(parts, fmt.Sprintf("sleep %.1fh", sleepHours))
	}
	return strings.Join(parts, "  ")
}
