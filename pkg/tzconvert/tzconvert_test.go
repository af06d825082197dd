package tzconvert

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestUTCToLocal(t *testing.T) {
	tests := []struct {
		name      string
		utcHour   float64
		utcOffset float64
		want      float64
	}{
		// Eastern Time (UTC-4)
		{"EDT noon UTC to 8am local", 12.0, -4, 8.0},
		{"EDT midnight wrap", 2.0, -4, 22.0}, // 2am UTC = 10pm previous day

		// Qatar (UTC+3)
		{"AST 21:00 UTC to midnight", 21.0, 3, 0.0},
		{"AST wrap past midnight", 22.5, 3, 1.5},

		// India (UTC+5:30)
		{"IST half hour offset", 2.0, 5.5, 7.5},

		// GMT (UTC+0)
		{"GMT no change", 12.0, 0, 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UTCToLocal(tt.utcHour, tt.utcOffset)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("UTCToLocal(%v, %v) = %v, want %v",
					tt.utcHour, tt.utcOffset, got, tt.want)
			}
		})
	}
}

func TestLocalToUTC(t *testing.T) {
	tests := []struct {
		name      string
		localHour float64
		utcOffset float64
		want      float64
	}{
		{"AST WOCL start maps to previous evening", 2.0, 3, 23.0},
		{"AST WOCL end", 6.0, 3, 3.0},
		{"EDT 22:00 local to 2:00 UTC next day", 22.0, -4, 2.0},
		{"Line Islands +14", 2.0, 14, 12.0},
		{"Baker Island -12", 23.0, -12, 11.0},
		{"Kathmandu +5:45", 6.0, 5.75, 0.25},
		{"GMT no change", 12.0, 0, 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocalToUTC(tt.localHour, tt.utcOffset)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("LocalToUTC(%v, %v) = %v, want %v",
					tt.localHour, tt.utcOffset, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	// Test that converting UTC->Local->UTC gives back the original
	hours := []float64{0, 6, 12, 18, 23.5}
	offsets := []float64{-12, -7, -4.5, 0, 3, 5.75, 8, 14}

	for _, hour := range hours {
		for _, offset := range offsets {
			local := UTCToLocal(hour, offset)
			back := LocalToUTC(local, offset)
			if math.Abs(back-hour) > 1e-9 {
				t.Errorf("Round trip failed: UTC %v -> Local %v -> UTC %v (offset %v)",
					hour, local, back, offset)
			}
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0}, {24, 0}, {-1, 23}, {25.5, 1.5}, {-24, 0}, {-25, 23}, {48.25, 0.25},
	}
	for _, tt := range tests {
		if got := Wrap(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Wrap(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveOffset(t *testing.T) {
	january := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	july := time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		zone string
		ref  time.Time
		want float64
	}{
		{"empty zone", "", january, 0},
		{"fixed utc", "UTC", january, 0},
		{"fixed plus", "UTC+3", january, 3},
		{"fixed minus half hour", "UTC-4:30", january, -4.5},
		{"fixed compact", "UTC+0545", january, 5.75},
		{"qatar", "Asia/Qatar", july, 3},
		{"london winter", "Europe/London", january, 0},
		{"london summer", "Europe/London", july, 1},
		{"new york winter", "America/New_York", january, -5},
		{"new york summer", "America/New_York", july, -4},
		{"auckland winter", "Pacific/Auckland", july, 12},
		{"auckland summer", "Pacific/Auckland", january, 13},
		{"kolkata", "Asia/Kolkata", january, 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOffset(tt.zone, tt.ref)
			if err != nil {
				t.Fatalf("ResolveOffset(%q) unexpected error: %v", tt.zone, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ResolveOffset(%q, %v) = %v, want %v", tt.zone, tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveOffsetUnknownZone(t *testing.T) {
	got, err := ResolveOffset("Not/AZone", time.Now())
	if got != 0 {
		t.Errorf("expected fallback offset 0, got %v", got)
	}
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ResolutionError, got %T (%v)", err, err)
	}
	if rerr.Zone != "Not/AZone" {
		t.Errorf("ResolutionError.Zone = %q", rerr.Zone)
	}
}

func TestFormatOffset(t *testing.T) {
	tests := map[float64]string{
		0:    "UTC",
		3:    "UTC+3",
		-4:   "UTC-4",
		5.5:  "UTC+5:30",
		5.75: "UTC+5:45",
		-3.5: "UTC-3:30",
	}
	for in, want := range tests {
		if got := FormatOffset(in); got != want {
			t.Errorf("FormatOffset(%v) = %q, want %q", in, got, want)
		}
	}
}
