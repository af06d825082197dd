package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of a roster file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load decodes a Dataset.
func Load(r io.Reader, format Format) (*Dataset, error) {
	var ds Dataset
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
			return nil, fmt.Errorf("decoding yaml roster: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&ds); err != nil {
			return nil, fmt.Errorf("decoding json roster: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster format %q", format)
	}
	return &ds, nil
}

// ParseMonth parses "2026-02".
func ParseMonth(s string) (year int, month time.Month, err error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// localLayouts are tried in order for home-local ISO strings without an offset.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseHomeLocal converts a home-base ISO timestamp to UTC.
// Strings carrying their own offset are taken at face value; naive wall-clock
// strings are shifted by subtracting homeOffset hours.
func ParseHomeLocal(s string, homeOffset float64) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range localLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		shift := time.Duration(homeOffset * float64(time.Hour))
		return t.Add(-shift).UTC(), true
	}
	return time.Time{}, false
}

// Span resolves a block's UTC bounds, preferring UTC instants over local ISO strings.
func (b SleepBlock) Span(homeOffset float64) (start, end time.Time, ok bool) {
	return resolveSpan(b.StartUTC, b.EndUTC, b.StartISO, b.EndISO, homeOffset)
}

// Span resolves the estimate's UTC bounds the same way as SleepBlock.Span.
func (e SleepEstimate) Span(homeOffset float64) (start, end time.Time, ok bool) {
	return resolveSpan(e.StartUTC, e.EndUTC, e.StartISO, e.EndISO, homeOffset)
}

func resolveSpan(startUTC, endUTC *time.Time, startISO, endISO string, homeOffset float64) (start, end time.Time, ok bool) {
	if startUTC != nil && endUTC != nil && !startUTC.IsZero() && !endUTC.IsZero() {
		return startUTC.UTC(), endUTC.UTC(), true
	}
	start, okStart := ParseHomeLocal(startISO, homeOffset)
	end, okEnd := ParseHomeLocal(endISO, homeOffset)
	if !okStart || !okEnd {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// blockNamespace scopes name-based block identifiers to this tool.
var blockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://codegroove.dev/chronogram/sleep-block"))

// BlockID derives a stable identifier for a sleep block from where it came
// from and when it is. The same block always gets the same id across
// recomputations, which is what the edit set keys on.
func BlockID(source string, start, end time.Time) string {
	name := source + "|" + start.UTC().Format(time.RFC3339) + "|" + end.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(blockNamespace, []byte(name)).String()
}
