// Package simulation is the host-only authority loop: virtual clock, horde
// nights, growth lifecycle, healing pulses and organic spread.
package simulation

import (
	"math/rand/v2"
	"time"

	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/scheduler"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"

	"github.com/rs/zerolog"
)

// Outbox is how the simulation talks to guests.
type Outbox interface {
	Broadcast(msg protocol.Message)
	SendTo(id string, msg protocol.Message) error
}

type Scheduler interface {
	Schedule(readyAt time.Time, task scheduler.Task) scheduler.Handle
}

type Deps struct {
	Overlay   *overlay.Overlay
	Terrain   ports.WorldGenerator
	Roster    *roster.Roster
	Outbox    Outbox
	Scheduler Scheduler
	Metrics   ports.SimulationMetrics
	// OnProgress requests a lightweight save. It must not block.
	OnProgress func()
	Logger     zerolog.Logger
}

// HordeState is the process-wide spawn and warning bookkeeping.
type HordeState struct {
	SpawnDelay    int  `json:"spawnDelay"`
	HiveWaveTicks int  `json:"hiveWaveTicks"`
	WarningIssued bool `json:"warningIssued"`
}

type HostSimulation struct {
	cfg        Config
	clock      world.Clock
	overlay    *overlay.Overlay
	terrain    ports.WorldGenerator
	roster     *roster.Roster
	out        Outbox
	sched      Scheduler
	metrics    ports.SimulationMetrics
	onProgress func()
	log        zerolog.Logger
	rng        *rand.Rand

	horde    HordeState
	hostiles map[string]*Hostile
	ticks    uint64
}

func New(cfg Config, deps Deps) *HostSimulation {
	cfg = cfg.withDefaults()
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.OnProgress == nil {
		deps.OnProgress = func() {}
	}
	return &HostSimulation{
		cfg: cfg,
		clock: world.NewClock(world.ClockConfig{
			DaylightFrom: cfg.HordeEndHour,
			DaylightTo:   cfg.HordeStartHour,
		}),
		overlay:    deps.Overlay,
		terrain:    deps.Terrain,
		roster:     deps.Roster,
		out:        deps.Outbox,
		sched:      deps.Scheduler,
		metrics:    deps.Metrics,
		onProgress: deps.OnProgress,
		log:        deps.Logger.With().Str("component", "simulation").Logger(),
		rng:        cfg.Rand,
		hostiles:   map[string]*Hostile{},
	}
}

func (s *HostSimulation) Config() Config {
	return s.cfg
}

// Tick runs one authority step.
func (s *HostSimulation) Tick() {
	now := s.cfg.Now()
	s.ticks++

	worldTime := s.overlay.AdvanceWorldTime(s.cfg.VirtualStep)
	s.out.Broadcast(&protocol.TimeSync{Time: worldTime.UnixMilli()})

	s.runHorde(worldTime)
	s.runHiveWaves()
	if s.advanceGrowth(now) {
		s.onProgress()
	}
	s.metrics.RecordTick()
}

func (s *HostSimulation) Ticks() uint64 {
	return s.ticks
}

func (s *HostSimulation) Horde() HordeState {
	return s.horde
}

func (s *HostSimulation) RestoreHorde(h HordeState) {
	s.horde = h
}

type Status struct {
	WorldTime time.Time `json:"world_time"`
	Day       int       `json:"day"`
	Hour      int       `json:"hour"`
	Horde     bool      `json:"horde"`
	Daylight  bool      `json:"daylight"`
	Hostiles  int       `json:"hostiles"`
	Growing   int       `json:"growing"`
	Ticks     uint64    `json:"ticks"`
}

func (s *HostSimulation) Status() Status {
	wt := s.overlay.WorldTime()
	day, hour := s.clock.Day(wt), s.clock.Hour(wt)
	return Status{
		WorldTime: wt,
		Day:       day,
		Hour:      hour,
		Horde:     s.InHordeWindow(day, hour),
		Daylight:  s.clock.Daylight(wt),
		Hostiles:  s.LiveHostiles(),
		Growing:   len(s.overlay.GrowthPoints()),
		Ticks:     s.ticks,
	}
}

func (s *HostSimulation) changeTile(x, y int, t world.TileType, ownerID string) bool {
	if !s.overlay.SetTile(x, y, t) {
		return false
	}
	p := s.overlay.Torus().WrapPoint(world.Point{X: x, Y: y})
	s.out.Broadcast(&protocol.TileChange{X: p.X, Y: p.Y, TileType: string(t), OwnerID: ownerID})
	return true
}

func (s *HostSimulation) effective(p world.Point) world.TileType {
	return s.overlay.Effective(p.X, p.Y, s.terrain)
}

type noopMetrics struct{}

func (noopMetrics) RecordTick()  {}
func (noopMetrics) RecordSpawn() {}
func (noopMetrics) RecordCure()  {}
func (noopMetrics) RecordHeal()  {}
