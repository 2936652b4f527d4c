package period

import (
	"errors"
	"testing"
	"time"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", value, err)
	}
	return d
}

func anniv(t *testing.T, value string) *Anniversary {
	t.Helper()
	a, err := ParseAnniversary(value)
	if err != nil {
		t.Fatalf("ParseAnniversary(%q) failed: %v", value, err)
	}
	return &a
}

func TestBounds(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		ref   string
		start string
		end   string
	}{
		{"monthly", Params{Cadence: Monthly}, "2025-03-10", "2025-03-01", "2025-03-31"},
		{"monthly february leap", Params{Cadence: Monthly}, "2024-02-10", "2024-02-01", "2024-02-29"},
		{"quarterly q1", Params{Cadence: Quarterly}, "2025-03-31", "2025-01-01", "2025-03-31"},
		{"quarterly q4", Params{Cadence: Quarterly}, "2025-10-01", "2025-10-01", "2025-12-31"},
		{"semi-annual first half", Params{Cadence: SemiAnnual}, "2025-06-30", "2025-01-01", "2025-06-30"},
		{"semi-annual second half", Params{Cadence: SemiAnnual}, "2025-07-01", "2025-07-01", "2025-12-31"},
		{"annual calendar", Params{Cadence: Annual, Reset: CalendarYear}, "2025-08-01", "2025-01-01", "2025-12-31"},
		{"annual no reset", Params{Cadence: Annual}, "2025-08-01", "2025-01-01", "2025-12-31"},
		{"cardmember after anniversary", Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "07-15")}, "2025-08-01", "2025-07-15", "2026-07-14"},
		{"cardmember before anniversary", Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "07-15")}, "2025-06-01", "2024-07-15", "2025-07-14"},
		{"cardmember on anniversary", Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "2019-07-15")}, "2025-07-15", "2025-07-15", "2026-07-14"},
		{"cardmember without anniversary is calendar", Params{Cadence: Annual, Reset: CardmemberYear}, "2025-08-01", "2025-01-01", "2025-12-31"},
		{"cardmember feb 29 in common year", Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "02-29")}, "2025-03-01", "2025-02-28", "2026-02-27"},
		{"cardmember feb 29 into leap year", Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "02-29")}, "2027-03-01", "2027-02-28", "2028-02-28"},
		{"rolling wide", Params{Cadence: Rolling}, "2025-03-10", "2021-03-10", "2029-03-10"},
		{"rolling two years wide", Params{Cadence: Rolling, ResetYears: 2}, "2025-03-10", "2023-03-10", "2027-03-10"},
		{"one-time", Params{Cadence: OneTime}, "2025-03-10", "2021-01-01", "2029-12-31"},
		{"per-booking", Params{Cadence: PerBooking}, "2025-03-10", "2025-03-10", "2025-03-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Bounds(tt.p, mustDate(t, tt.ref))
			if err != nil {
				t.Fatalf("Bounds failed: %v", err)
			}
			if got := FormatDate(w.Start); got != tt.start {
				t.Errorf("Expected start %s, got %s", tt.start, got)
			}
			if got := FormatDate(w.End); got != tt.end {
				t.Errorf("Expected end %s, got %s", tt.end, got)
			}
		})
	}
}

func TestBounds_RollingLastUsed(t *testing.T) {
	last := mustDate(t, "2024-02-29")
	w, err := Bounds(Params{Cadence: Rolling, ResetYears: 4, LastUsed: &last}, mustDate(t, "2025-01-01"))
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if FormatDate(w.Start) != "2024-02-29" || FormatDate(w.End) != "2028-02-28" {
		t.Errorf("Unexpected rolling window %s", w)
	}
}

func TestBounds_UnknownCadence(t *testing.T) {
	_, err := Bounds(Params{Cadence: "fortnightly"}, mustDate(t, "2025-01-01"))
	if !errors.Is(err, ErrBadCadence) {
		t.Errorf("Expected ErrBadCadence, got %v", err)
	}
}

func TestBounds_ContainsReference(t *testing.T) {
	cadencesUnderTest := []Params{
		{Cadence: Monthly},
		{Cadence: Quarterly},
		{Cadence: SemiAnnual},
		{Cadence: Annual},
		{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "02-29")},
		{Cadence: Annual, Reset: CardmemberYear, Anniversary: anniv(t, "11-30")},
		{Cadence: Rolling},
		{Cadence: OneTime},
		{Cadence: PerBooking},
	}

	start := mustDate(t, "2023-01-01")
	for _, p := range cadencesUnderTest {
		for d := start; d.Year() < 2025; d = d.AddDate(0, 0, 1) {
			w, err := Bounds(p, d)
			if err != nil {
				t.Fatalf("Bounds(%v, %s) failed: %v", p.Cadence, FormatDate(d), err)
			}
			if !w.Contains(d) {
				t.Fatalf("Window %s for %s does not contain %s", w, p.Cadence, FormatDate(d))
			}
		}
	}
}

func TestBounds_PartitionYear(t *testing.T) {
	for _, c := range []Cadence{Monthly, Quarterly, SemiAnnual, Annual} {
		seen := map[Window]bool{}
		covered := 0
		for d := Date(2024, time.January, 1); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
			w, err := Bounds(Params{Cadence: c}, d)
			if err != nil {
				t.Fatalf("Bounds failed: %v", err)
			}
			if w.Start.Year() != 2024 || w.End.Year() != 2024 {
				t.Fatalf("%s window %s leaves the year", c, w)
			}
			if !seen[w] {
				seen[w] = true
				covered += DaysBetween(w.Start, w.End) + 1
			}
		}
		if covered != 366 {
			t.Errorf("%s windows cover %d days of 2024, want 366", c, covered)
		}
	}
}

func TestBounds_CardmemberStability(t *testing.T) {
	a := anniv(t, "07-15")
	for d := Date(2025, time.July, 15); d.Year() == 2025; d = d.AddDate(0, 0, 1) {
		w, err := Bounds(Params{Cadence: Annual, Reset: CardmemberYear, Anniversary: a}, d)
		if err != nil {
			t.Fatalf("Bounds failed: %v", err)
		}
		if FormatDate(w.Start) != "2025-07-15" {
			t.Fatalf("Expected start 2025-07-15 for %s, got %s", FormatDate(d), FormatDate(w.Start))
		}
	}
}

func TestParseAnniversary(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"07-15", "07-15", false},
		{"2019-07-15", "2019-07-15", false},
		{"02-29", "02-29", false},
		{"13-01", "", true},
		{"2023-02-29", "", true},
		{"7/15", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		a, err := ParseAnniversary(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrBadAnniversary) {
				t.Errorf("ParseAnniversary(%q): expected ErrBadAnniversary, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAnniversary(%q) failed: %v", tt.input, err)
			continue
		}
		if a.String() != tt.want {
			t.Errorf("ParseAnniversary(%q) = %s, want %s", tt.input, a.String(), tt.want)
		}
	}
}

func TestAnniversary_DaysUntilRenewal(t *testing.T) {
	a := anniv(t, "07-15")
	if got := a.DaysUntilRenewal(mustDate(t, "2025-07-01")); got != 14 {
		t.Errorf("Expected 14 days, got %d", got)
	}
	// Renewal on the anniversary itself rolls to next year.
	if got := a.DaysUntilRenewal(mustDate(t, "2025-07-15")); got != 365 {
		t.Errorf("Expected 365 days, got %d", got)
	}
}

func TestWindow_DaysRemaining(t *testing.T) {
	w, _ := Bounds(Params{Cadence: Monthly}, mustDate(t, "2025-03-28"))
	if got := w.DaysRemaining(mustDate(t, "2025-03-28")); got != 3 {
		t.Errorf("Expected 3 days remaining, got %d", got)
	}
	if got := w.DaysRemaining(mustDate(t, "2025-04-02")); got != 0 {
		t.Errorf("Expected 0 days remaining after the window, got %d", got)
	}
}

func TestParseCadence(t *testing.T) {
	if _, err := ParseCadence("semi-annual"); err != nil {
		t.Errorf("ParseCadence(semi-annual) failed: %v", err)
	}
	if _, err := ParseCadence("weekly"); !errors.Is(err, ErrBadCadence) {
		t.Errorf("Expected ErrBadCadence, got %v", err)
	}
	if r, err := ParseResetType(""); err != nil || r != ResetNone {
		t.Errorf("Expected empty reset type to parse as ResetNone, got %q, %v", r, err)
	}
	if _, err := ParseResetType("fiscal_year"); !errors.Is(err, ErrBadCadence) {
		t.Errorf("Expected ErrBadCadence for reset type, got %v", err)
	}
}
