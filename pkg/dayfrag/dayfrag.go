// Package dayfrag cuts UTC intervals at calendar-day boundaries so each piece
// fits on one 24-hour row of the chronogram.
package dayfrag

import (
	"errors"
	"fmt"
	"time"
)

// Epsilon is the shortest fragment worth drawing, in hours (36 seconds).
const Epsilon = 0.01

// Interval is a UTC span carrying an opaque payload.
type Interval[T any] struct {
	Start   time.Time
	End     time.Time
	Payload T
}

// Fragment is the part of an Interval that falls inside one UTC calendar day.
// StartHour and EndHour are decimal hours in [0,24] relative to Date.
type Fragment[T any] struct {
	Date                    time.Time `json:"date"` // UTC midnight of the row
	Payload                 T         `json:"payload"`
	Day                     int       `json:"day"` // day of month of Date
	StartHour               float64   `json:"start_hour"`
	EndHour                 float64   `json:"end_hour"`
	IsOvernightStart        bool      `json:"is_overnight_start"`
	IsOvernightContinuation bool      `json:"is_overnight_continuation"`
}

// Duration is the fragment length in hours.
func (f Fragment[T]) Duration() float64 {
	return f.EndHour - f.StartHour
}

// StartInstant and EndInstant map the fragment back onto wall-clock time.
func (f Fragment[T]) StartInstant() time.Time { return At(f.Date, f.StartHour) }

func (f Fragment[T]) EndInstant() time.Time { return At(f.Date, f.EndHour) }

// MultiDaySpanError rejects an interval touching more than two calendar days.
// Duty, sleep and rest periods never do; one that does is an upstream data error.
type MultiDaySpanError struct {
	Start time.Time
	End   time.Time
	Days  int
}

func (e *MultiDaySpanError) Error() string {
	return fmt.Sprintf("interval %s - %s spans %d calendar days (max 2)",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Days)
}

// InvalidIntervalError rejects an interval whose end is not after its start.
type InvalidIntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("interval %s - %s has non-positive duration",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// Midnight truncates t to its UTC calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Hours is the decimal hour of t measured from day's midnight.
// Instants before or after that day yield values outside [0,24].
func Hours(t, day time.Time) float64 {
	return t.Sub(Midnight(day)).Hours()
}

// At is the inverse of Hours.
func At(day time.Time, hour float64) time.Time {
	return Midnight(day).Add(time.Duration(hour * float64(time.Hour))).Round(time.Second)
}

// Split cuts every interval at UTC midnight.
//
// An interval inside one day yields one fragment with both flags false. One
// crossing a single midnight yields [start,24] flagged IsOvernightStart followed
// by [0,end] flagged IsOvernightContinuation. An end of exactly 00:00 is read as
// 24:00 of the previous day, so such intervals stay single-day.
//
// Intervals spanning more than two days, or with End <= Start, are rejected:
// they are reported in the joined error and contribute no fragments. Fragments
// shorter than Epsilon are dropped. Output follows input order.
func Split[T any](intervals []Interval[T]) ([]Fragment[T], error) {
	out := make([]Fragment[T], 0, len(intervals)*2)
	var errs []error

	for _, iv := range intervals {
		start, end := iv.Start.UTC(), iv.End.UTC()
		if !end.After(start) {
			errs = append(errs, &InvalidIntervalError{Start: start, End: end})
			continue
		}

		startDay := Midnight(start)
		endDay := Midnight(end)
		if end.Equal(endDay) {
			endDay = endDay.AddDate(0, 0, -1)
		}

		days := int(endDay.Sub(startDay).Hours()/24) + 1
		switch days {
		case 1:
			out = appendFragment(out, Fragment[T]{
				Date:      startDay,
				Day:       startDay.Day(),
				StartHour: Hours(start, startDay),
				EndHour:   Hours(end, startDay),
				Payload:   iv.Payload,
			})
		case 2:
			out = appendFragment(out, Fragment[T]{
				Date:             startDay,
				Day:              startDay.Day(),
				StartHour:        Hours(start, startDay),
				EndHour:          24,
				Payload:          iv.Payload,
				IsOvernightStart: true,
			})
			out = appendFragment(out, Fragment[T]{
				Date:                    endDay,
				Day:                     endDay.Day(),
				StartHour:               0,
				EndHour:                 Hours(end, endDay),
				Payload:                 iv.Payload,
				IsOvernightContinuation: true,
			})
		default:
			errs = append(errs, &MultiDaySpanError{Start: start, End: end, Days: days})
		}
	}

	return out, errors.Join(errs...)
}

func appendFragment[T any](out []Fragment[T], f Fragment[T]) []Fragment[T] {
	if f.Duration() < Epsilon {
		return out
	}
	return append(out, f)
}
