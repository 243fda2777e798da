package simulation

import (
	"math/rand/v2"
	"time"
)

// Config holds every tunable of the host simulation. Zero fields take the
// defaults from DefaultConfig.
type Config struct {
	TickPeriod  time.Duration
	VirtualStep time.Duration

	HordeEveryDays   int
	HordeStartHour   int
	HordeEndHour     int
	WarningHour      int
	WarningResetHour int
	WarningText      string
	SystemNick       string

	MaxHostilesPerMember int
	RampUpPerMember      int
	RampUpDelayTicks     int
	ReplenishDelayTicks  int
	SpawnAttempts        int
	SpawnMinRadius       float64
	SpawnMaxRadius       float64
	HostileHP            int
	KillXP               int

	HiveWaveEveryTicks int
	HiveWaveRadius     float64
	HiveWaveAmount     int
	HiveWaveColor      string

	SproutAfter   time.Duration
	SaplingAfter  time.Duration
	FlowerAfter   time.Duration
	CooldownAfter time.Duration

	HealInterval   time.Duration
	HealRadius     float64
	HealAmount     int
	HealWaveRadius float64
	HealWaveColor  string
	PassiveXP      int

	SpreadDepth    int
	SpreadMaxTiles int
	SpreadStep     time.Duration

	Now  func() time.Time
	Rand *rand.Rand
}

func DefaultConfig() Config {
	return Config{
		TickPeriod:  time.Second,
		VirtualStep: time.Minute,

		HordeEveryDays:   7,
		HordeStartHour:   22,
		HordeEndHour:     4,
		WarningHour:      18,
		WarningResetHour: 6,
		WarningText:      "Shadows stir on the burnt ground... defend the hive tonight!",
		SystemNick:       "SYSTEM",

		MaxHostilesPerMember: 6,
		RampUpPerMember:      2,
		RampUpDelayTicks:     2,
		ReplenishDelayTicks:  10,
		SpawnAttempts:        10,
		SpawnMinRadius:       15,
		SpawnMaxRadius:       25,
		HostileHP:            30,
		KillXP:               10,

		HiveWaveEveryTicks: 3,
		HiveWaveRadius:     4,
		HiveWaveAmount:     5,
		HiveWaveColor:      "rgba(241, 196, 15, ALPHA)",

		SproutAfter:   5 * time.Second,
		SaplingAfter:  10 * time.Second,
		FlowerAfter:   15 * time.Second,
		CooldownAfter: 10 * time.Second,

		HealInterval:   3 * time.Second,
		HealRadius:     2.5,
		HealAmount:     10,
		HealWaveRadius: 2,
		HealWaveColor:  "rgba(46, 204, 113, ALPHA)",
		PassiveXP:      5,

		SpreadDepth:    5,
		SpreadMaxTiles: 11,
		SpreadStep:     200 * time.Millisecond,

		Now: time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	durations := []struct{ v, d *time.Duration }{
		{&c.TickPeriod, &def.TickPeriod},
		{&c.VirtualStep, &def.VirtualStep},
		{&c.SproutAfter, &def.SproutAfter},
		{&c.SaplingAfter, &def.SaplingAfter},
		{&c.FlowerAfter, &def.FlowerAfter},
		{&c.CooldownAfter, &def.CooldownAfter},
		{&c.HealInterval, &def.HealInterval},
		{&c.SpreadStep, &def.SpreadStep},
	}
	for _, f := range durations {
		if *f.v <= 0 {
			*f.v = *f.d
		}
	}
	ints := []struct{ v, d *int }{
		{&c.HordeEveryDays, &def.HordeEveryDays},
		{&c.HordeStartHour, &def.HordeStartHour},
		{&c.HordeEndHour, &def.HordeEndHour},
		{&c.WarningHour, &def.WarningHour},
		{&c.WarningResetHour, &def.WarningResetHour},
		{&c.MaxHostilesPerMember, &def.MaxHostilesPerMember},
		{&c.RampUpPerMember, &def.RampUpPerMember},
		{&c.RampUpDelayTicks, &def.RampUpDelayTicks},
		{&c.ReplenishDelayTicks, &def.ReplenishDelayTicks},
		{&c.SpawnAttempts, &def.SpawnAttempts},
		{&c.HostileHP, &def.HostileHP},
		{&c.KillXP, &def.KillXP},
		{&c.HiveWaveEveryTicks, &def.HiveWaveEveryTicks},
		{&c.HiveWaveAmount, &def.HiveWaveAmount},
		{&c.HealAmount, &def.HealAmount},
		{&c.PassiveXP, &def.PassiveXP},
		{&c.SpreadDepth, &def.SpreadDepth},
		{&c.SpreadMaxTiles, &def.SpreadMaxTiles},
	}
	for _, f := range ints {
		if *f.v <= 0 {
			*f.v = *f.d
		}
	}
	floats := []struct{ v, d *float64 }{
		{&c.SpawnMinRadius, &def.SpawnMinRadius},
		{&c.SpawnMaxRadius, &def.SpawnMaxRadius},
		{&c.HiveWaveRadius, &def.HiveWaveRadius},
		{&c.HealRadius, &def.HealRadius},
		{&c.HealWaveRadius, &def.HealWaveRadius},
	}
	for _, f := range floats {
		if *f.v <= 0 {
			*f.v = *f.d
		}
	}
	if c.WarningText == "" {
		c.WarningText = def.WarningText
	}
	if c.SystemNick == "" {
		c.SystemNick = def.SystemNick
	}
	if c.HiveWaveColor == "" {
		c.HiveWaveColor = def.HiveWaveColor
	}
	if c.HealWaveColor == "" {
		c.HealWaveColor = def.HealWaveColor
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}
