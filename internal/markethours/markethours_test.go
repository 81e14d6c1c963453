package markethours

import (
	"testing"
	"time"
)

func ist(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, IST)
}

func TestDayKey_ConvertsToIST(t *testing.T) {
	// 19:00 UTC is 00:30 IST the next calendar day.
	utc := time.Date(2026, 1, 5, 19, 0, 0, 0, time.UTC)
	if got := DayKey(utc); got != "2026-01-06" {
		t.Errorf("DayKey(19:00 UTC): got %s, want 2026-01-06", got)
	}
	if got := DayKey(ist(2026, 1, 5, 10, 0)); got != "2026-01-05" {
		t.Errorf("DayKey(10:00 IST): got %s, want 2026-01-05", got)
	}
}

func TestPastSquareOff_Boundary(t *testing.T) {
	cases := []struct {
		ts   time.Time
		want bool
	}{
		{ist(2026, 1, 5, 15, 14), false},
		{ist(2026, 1, 5, 15, 15), true}, // cutoff is inclusive
		{ist(2026, 1, 5, 15, 30), true},
		{ist(2026, 1, 5, 9, 15), false},
	}
	for _, c := range cases {
		if got := PastSquareOff(c.ts); got != c.want {
			t.Errorf("PastSquareOff(%s): got %v, want %v", c.ts.Format("15:04"), got, c.want)
		}
	}
}

func TestIsMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"mid-session monday", ist(2026, 1, 5, 10, 0), true},
		{"before open", ist(2026, 1, 5, 9, 14), false},
		{"at open", ist(2026, 1, 5, 9, 15), true},
		{"at close", ist(2026, 1, 5, 15, 30), false},
		{"saturday", ist(2026, 1, 10, 10, 0), false},
		{"sunday", ist(2026, 1, 11, 10, 0), false},
		{"republic day holiday", ist(2026, 1, 26, 10, 0), false},
	}
	for _, c := range cases {
		if got := IsMarketOpen(c.ts); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNextOpen(t *testing.T) {
	// Before today's open on a trading day: today 9:15.
	got := NextOpen(ist(2026, 1, 5, 8, 0))
	if want := ist(2026, 1, 5, 9, 15); !got.Equal(want) {
		t.Errorf("before open: got %v, want %v", got, want)
	}

	// Friday evening rolls over the weekend to Monday.
	got = NextOpen(ist(2026, 1, 9, 18, 0))
	if want := ist(2026, 1, 12, 9, 15); !got.Equal(want) {
		t.Errorf("friday evening: got %v, want %v", got, want)
	}
}

func TestIsHoliday(t *testing.T) {
	if !IsHoliday(ist(2026, 1, 26, 12, 0)) {
		t.Error("2026-01-26 should be a holiday")
	}
	if IsHoliday(ist(2026, 1, 5, 12, 0)) {
		t.Error("2026-01-05 should not be a holiday")
	}
}
