// Package tzconvert provides timezone conversion utilities for the UTC chronogram.
// ALL instants in the codebase are stored in UTC.
// These functions move hours between the UTC grid and a home-base local clock.
package tzconvert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ResolutionError reports a zone name that could not be resolved.
// ResolveOffset still returns a usable offset of 0 alongside it.
type ResolutionError struct {
	Err  error
	Zone string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving timezone %q: %v", e.Zone, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ResolveOffset returns the UTC offset in hours in effect in zone at ref.
// Seasonal changes are honoured: Europe/London is 0 in January and +1 in July.
// Fractional offsets are preserved (Asia/Kolkata is 5.5, Asia/Kathmandu 5.75).
//
// Examples:
//   - "" returns 0
//   - "UTC+3" returns 3
//   - "UTC-4:30" returns -4.5
//   - "Asia/Qatar" returns 3
//   - "Not/AZone" returns 0 and a *ResolutionError
func ResolveOffset(zone string, ref time.Time) (float64, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return 0, nil
	}

	if strings.HasPrefix(zone, "UTC") || strings.HasPrefix(zone, "GMT") {
		if off, ok := parseFixedOffset(zone[3:]); ok {
			return off, nil
		}
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, &ResolutionError{Zone: zone, Err: err}
	}

	_, secs := ref.In(loc).Zone()
	return float64(secs) / 3600, nil
}

// parseFixedOffset parses the "+3", "-4:30", "+0545" suffix of a UTC offset string.
func parseFixedOffset(s string) (float64, bool) {
	if s == "" {
		return 0, true
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	default:
		return 0, false
	}

	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		hh, mm, _ = strings.Cut(s, ":")
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	default:
		hh = s
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h > 14 {
		return 0, false
	}
	m := 0
	if mm != "" {
		if m, err = strconv.Atoi(mm); err != nil || m >= 60 {
			return 0, false
		}
	}
	return sign * (float64(h) + float64(m)/60), true
}

// MonthReference is the instant used to resolve the offset for a whole month.
// Mid-month keeps it away from the DST transitions at either end.
func MonthReference(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 12, 0, 0, 0, time.UTC)
}

// UTCToLocal converts a UTC hour to local hour given a UTC offset.
// Example: UTCToLocal(15.5, -4) converts 15:30 UTC to 11:30 EDT (UTC-4)
// Example: UTCToLocal(2.0, 5.5) converts 02:00 UTC to 07:30 IST (UTC+5:30)
//
// Returns: Local hour in [0,24), properly wrapped for day boundaries.
func UTCToLocal(utcHour, utcOffset float64) float64 {
	return Wrap(utcHour + utcOffset)
}

// LocalToUTC converts a local hour to UTC given a UTC offset.
// Example: LocalToUTC(2.0, 3) converts 02:00 AST to 23:00 UTC the previous day
// Example: LocalToUTC(10.0, 8) converts 10:00 CST to 02:00 UTC
//
// Returns: UTC hour in [0,24), properly wrapped for day boundaries.
func LocalToUTC(localHour, utcOffset float64) float64 {
	return Wrap(localHour - utcOffset)
}

// Wrap folds any hour onto [0,24) using ((h mod 24) + 24) mod 24.
func Wrap(hour float64) float64 {
	h := math.Mod(math.Mod(hour, 24)+24, 24)
	// -0 and values that round up to exactly 24 fold back to 0
	if h >= 24 || h == 0 {
		return 0
	}
	return h
}

// FormatOffset renders an offset as "UTC+3", "UTC-4:30" or "UTC".
func FormatOffset(offset float64) string {
	if offset == 0 {
		return "UTC"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
	}
	abs := math.Abs(offset)
	h := int(abs)
	m := int(math.Round((abs - float64(h)) * 60))
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}
