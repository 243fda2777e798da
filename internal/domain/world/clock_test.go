package world

import (
	"testing"
	"time"
)

func TestClockDayAndHour(t *testing.T) {
	clock := DefaultClock()

	if got := clock.Day(Epoch); got != 1 {
		t.Fatalf("expected day 1 at epoch, got %d", got)
	}
	if got := clock.Hour(Epoch); got != 6 {
		t.Fatalf("expected hour 6 at epoch, got %d", got)
	}

	at := Epoch.Add(6*24*time.Hour + 12*time.Hour)
	if got := clock.Day(at); got != 7 {
		t.Fatalf("expected day 7, got %d", got)
	}
	if got := clock.Hour(at); got != 18 {
		t.Fatalf("expected hour 18, got %d", got)
	}

	// the day number turns at midnight, not at the epoch hour
	if got := clock.Day(time.Date(2074, 2, 16, 2, 0, 0, 0, time.UTC)); got != 8 {
		t.Fatalf("expected day 8 after midnight, got %d", got)
	}
	if got := clock.Day(time.Date(2074, 2, 15, 23, 59, 0, 0, time.UTC)); got != 7 {
		t.Fatalf("expected day 7 before midnight, got %d", got)
	}

	if got := clock.Day(Epoch.Add(-24 * time.Hour)); got != 1 {
		t.Fatalf("expected day clamp to 1 before epoch, got %d", got)
	}
}

func TestClockDaylight(t *testing.T) {
	clock := DefaultClock()
	cases := map[int]bool{3: false, 4: true, 12: true, 21: true, 22: false, 23: false}
	for hour, want := range cases {
		at := time.Date(2074, 2, 10, hour, 30, 0, 0, time.UTC)
		if got := clock.Daylight(at); got != want {
			t.Fatalf("hour %d: daylight=%v want %v", hour, got, want)
		}
	}
}
