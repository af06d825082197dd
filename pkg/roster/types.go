// Package roster defines the duty, sleep and rest records consumed by the chronogram.
// Every instant is expected in UTC; home-local ISO strings are accepted only for
// sleep blocks, where the fatigue model sometimes emits nothing else.
package roster

import (
	"time"
)

// FlightLeg is one scheduled sector of a duty.
type FlightLeg struct {
	DepartureUTC time.Time `json:"departure_utc" yaml:"departure_utc"`
	ArrivalUTC   time.Time `json:"arrival_utc" yaml:"arrival_utc"`
	FlightNumber string    `json:"flight_number" yaml:"flight_number"`
	Departure    string    `json:"departure" yaml:"departure"`
	Arrival      string    `json:"arrival" yaml:"arrival"`
	ActivityCode string    `json:"activity_code,omitempty" yaml:"activity_code,omitempty"` // IR = in-flight rest, DH = deadhead
	Performance  float64   `json:"performance" yaml:"performance"`
	Deadhead     bool      `json:"is_deadhead,omitempty" yaml:"is_deadhead,omitempty"`
}

// IsDeadhead reports whether the leg is flown as a passenger.
func (l FlightLeg) IsDeadhead() bool {
	return l.Deadhead || l.ActivityCode == "DH"
}

// BlockHours is the scheduled block time of the leg.
func (l FlightLeg) BlockHours() float64 {
	return l.ArrivalUTC.Sub(l.DepartureUTC).Hours()
}

// SleepBlock is a single sleep period estimated by the fatigue model.
// Either the UTC pair or the home-local ISO pair must be set for the block to be placed.
type SleepBlock struct {
	StartUTC       *time.Time `json:"sleep_start_utc,omitempty" yaml:"sleep_start_utc,omitempty"`
	EndUTC         *time.Time `json:"sleep_end_utc,omitempty" yaml:"sleep_end_utc,omitempty"`
	ID             string     `json:"id,omitempty" yaml:"id,omitempty"`
	Type           string     `json:"sleep_type,omitempty" yaml:"sleep_type,omitempty"` // main, nap, anchor, recovery
	StartISO       string     `json:"sleep_start_iso,omitempty" yaml:"sleep_start_iso,omitempty"`
	EndISO         string     `json:"sleep_end_iso,omitempty" yaml:"sleep_end_iso,omitempty"`
	Environment    string     `json:"environment,omitempty" yaml:"environment,omitempty"` // home, hotel, crew_rest
	Source         string     `json:"source,omitempty" yaml:"source,omitempty"`
	EffectiveHours float64    `json:"effective_hours" yaml:"effective_hours"`
	Quality        float64    `json:"quality_factor" yaml:"quality_factor"`
}

// SleepEstimate is the sleep attached to a duty. When Blocks is empty the
// estimate itself is treated as a single block.
type SleepEstimate struct {
	StartUTC       *time.Time   `json:"sleep_start_utc,omitempty" yaml:"sleep_start_utc,omitempty"`
	EndUTC         *time.Time   `json:"sleep_end_utc,omitempty" yaml:"sleep_end_utc,omitempty"`
	StartISO       string       `json:"sleep_start_iso,omitempty" yaml:"sleep_start_iso,omitempty"`
	EndISO         string       `json:"sleep_end_iso,omitempty" yaml:"sleep_end_iso,omitempty"`
	Strategy       string       `json:"sleep_strategy,omitempty" yaml:"sleep_strategy,omitempty"`
	Blocks         []SleepBlock `json:"sleep_blocks,omitempty" yaml:"sleep_blocks,omitempty"`
	EffectiveHours float64      `json:"effective_sleep_hours" yaml:"effective_sleep_hours"`
	Efficiency     float64      `json:"sleep_efficiency" yaml:"sleep_efficiency"`
}

// InflightRest is a crew rest period taken on board by augmented crew.
type InflightRest struct {
	StartUTC       time.Time `json:"start_utc" yaml:"start_utc"`
	EndUTC         time.Time `json:"end_utc" yaml:"end_utc"`
	DutyID         string    `json:"duty_id,omitempty" yaml:"duty_id,omitempty"`
	CrewMemberID   string    `json:"crew_member_id,omitempty" yaml:"crew_member_id,omitempty"`
	CrewSet        string    `json:"crew_set,omitempty" yaml:"crew_set,omitempty"`
	EffectiveHours float64   `json:"effective_sleep_hours" yaml:"effective_sleep_hours"`
	Quality        float64   `json:"quality_factor" yaml:"quality_factor"`
	DuringWOCL     bool      `json:"is_during_wocl,omitempty" yaml:"is_during_wocl,omitempty"`
}

// Duty is one flight duty period.
type Duty struct {
	ReportUTC          time.Time      `json:"report_time_utc" yaml:"report_time_utc"`
	ReleaseUTC         time.Time      `json:"release_time_utc" yaml:"release_time_utc"`
	Sleep              *SleepEstimate `json:"sleep_quality,omitempty" yaml:"sleep_quality,omitempty"`
	MaxFDPHours        *float64       `json:"max_fdp_hours,omitempty" yaml:"max_fdp_hours,omitempty"`
	ExtendedFDPHours   *float64       `json:"extended_fdp_hours,omitempty" yaml:"extended_fdp_hours,omitempty"`
	ReportPerformance  *float64       `json:"report_performance,omitempty" yaml:"report_performance,omitempty"`
	LandingPerformance *float64       `json:"landing_performance,omitempty" yaml:"landing_performance,omitempty"`
	ID                 string         `json:"duty_id" yaml:"duty_id"`
	Date               string         `json:"date,omitempty" yaml:"date,omitempty"`
	DutyType           string         `json:"duty_type,omitempty" yaml:"duty_type,omitempty"` // flight, simulator, ground_training
	Legs               []FlightLeg    `json:"segments" yaml:"segments"`
	InflightRest       []InflightRest `json:"inflight_rest_blocks,omitempty" yaml:"inflight_rest_blocks,omitempty"`
	MinPerformance     float64        `json:"min_performance" yaml:"min_performance"`
	AvgPerformance     float64        `json:"avg_performance" yaml:"avg_performance"`
}

// DutyHours is the span from report to release.
func (d Duty) DutyHours() float64 {
	return d.ReleaseUTC.Sub(d.ReportUTC).Hours()
}

// ActivityWindow is the span from report to the last leg arrival.
// Duties without legs (simulator, ground training) use report to release.
func (d Duty) ActivityWindow() (start, end time.Time) {
	start, end = d.ReportUTC, d.ReleaseUTC
	if len(d.Legs) == 0 {
		return start, end
	}
	last := d.Legs[0].ArrivalUTC
	for _, leg := range d.Legs[1:] {
		if leg.ArrivalUTC.After(last) {
			last = leg.ArrivalUTC
		}
	}
	if start.IsZero() {
		start = d.Legs[0].DepartureUTC
	}
	return start, last
}

// RiskPerformance is the score used to classify the duty.
// Flight duties use landing performance, training duties their minimum.
func (d Duty) RiskPerformance() *float64 {
	if d.LandingPerformance != nil {
		return d.LandingPerformance
	}
	if d.MinPerformance > 0 {
		p := d.MinPerformance
		return &p
	}
	return nil
}

// RestDay is a day without duties and the sleep generated for it.
type RestDay struct {
	Date     string       `json:"date" yaml:"date"`
	Strategy string       `json:"strategy_type,omitempty" yaml:"strategy_type,omitempty"`
	Blocks   []SleepBlock `json:"sleep_blocks" yaml:"sleep_blocks"`
}

// Dataset is everything the fatigue model returns for one month.
type Dataset struct {
	HomeBase     string    `json:"home_base,omitempty" yaml:"home_base,omitempty"`
	HomeTimezone string    `json:"home_base_timezone,omitempty" yaml:"home_base_timezone,omitempty"`
	Month        string    `json:"month,omitempty" yaml:"month,omitempty"` // 2026-02
	Duties       []Duty    `json:"duties" yaml:"duties"`
	RestDays     []RestDay `json:"rest_days_sleep,omitempty" yaml:"rest_days_sleep,omitempty"`
}
