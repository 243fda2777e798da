package world

import "time"

// Epoch is the first morning of the shared world.
var Epoch = time.Date(2074, time.February, 9, 6, 0, 0, 0, time.UTC)

const dayLength = 24 * time.Hour

type ClockConfig struct {
	Epoch        time.Time
	DaylightFrom int
	DaylightTo   int
}

type Clock struct {
	cfg      ClockConfig
	midnight time.Time
}

func NewClock(cfg ClockConfig) Clock {
	if cfg.Epoch.IsZero() {
		cfg.Epoch = Epoch
	}
	if cfg.DaylightFrom == 0 && cfg.DaylightTo == 0 {
		cfg.DaylightFrom = 4
		cfg.DaylightTo = 22
	}
	e := cfg.Epoch.UTC()
	return Clock{cfg: cfg, midnight: time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)}
}

func DefaultClock() Clock {
	return NewClock(ClockConfig{})
}

func (c Clock) Epoch() time.Time {
	return c.cfg.Epoch
}

// Day is 1 on the epoch's calendar date and increments at every virtual
// midnight, so a night keeps one day number until 00:00.
func (c Clock) Day(at time.Time) int {
	elapsed := at.Sub(c.midnight)
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/dayLength) + 1
}

func (c Clock) Hour(at time.Time) int {
	return at.UTC().Hour()
}

func (c Clock) Daylight(at time.Time) bool {
	h := c.Hour(at)
	return h >= c.cfg.DaylightFrom && h < c.cfg.DaylightTo
}
