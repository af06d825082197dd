package roster

import "fmt"

// Risk is the fatigue risk band of a performance score.
type Risk string

const (
	RiskUnknown  Risk = "unknown"
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
	RiskExtreme  Risk = "extreme"
)

// ClassifyRisk maps a performance score (0-100) to a risk band.
func ClassifyRisk(performance *float64) Risk {
	if performance == nil {
		return RiskUnknown
	}
	switch p := *performance; {
	case p >= 75:
		return RiskLow
	case p >= 65:
		return RiskModerate
	case p >= 55:
		return RiskHigh
	case p >= 45:
		return RiskCritical
	default:
		return RiskExtreme
	}
}

// Reportable reports whether the band requires a fatigue report.
func (r Risk) Reportable() bool {
	return r == RiskCritical || r == RiskExtreme
}

// Validate returns human-readable timing warnings for a duty.
// It never rejects the duty; layout decides separately what it can place.
func Validate(d Duty) []string {
	var warnings []string
	if d.ReportUTC.IsZero() || d.ReleaseUTC.IsZero() {
		warnings = append(warnings, "missing report or release time")
		return warnings
	}
	if !d.ReportUTC.Before(d.ReleaseUTC) {
		warnings = append(warnings, "invalid duty: report time >= release time")
		return warnings
	}
	hours := d.DutyHours()
	if hours > 24 {
		warnings = append(warnings, fmt.Sprintf("unusual duty length: %.1f hours", hours))
	}
	if hours < 0.5 {
		warnings = append(warnings, fmt.Sprintf("very short duty: %.1f hours", hours))
	}
	for i, leg := range d.Legs {
		if !leg.DepartureUTC.Before(leg.ArrivalUTC) {
			warnings = append(warnings, fmt.Sprintf("leg %d (%s): arrival is not after departure", i+1, leg.FlightNumber))
		}
	}
	return warnings
}
