// Package session runs one hosted room: a single goroutine owns the relay,
// the simulation, the overlay and the roster, and everything else talks to
// it through the inbox.
package session

import (
	"context"
	"errors"
	"time"

	"bloomkeepers/internal/app/persist"
	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/relay"
	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/scheduler"
	"bloomkeepers/internal/app/simulation"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("session closed")

type Config struct {
	RoomID       string
	Password     string
	Seed         string
	HostNickname string
	WorldSize    int
	InboxSize    int
	DrainPeriod  time.Duration
	Relay        relay.HostConfig
	Simulation   simulation.Config
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		RoomID:      "bloom",
		WorldSize:   world.DefaultWorldSize,
		InboxSize:   256,
		DrainPeriod: 50 * time.Millisecond,
		Relay:       relay.DefaultHostConfig(),
		Simulation:  simulation.DefaultConfig(),
		Now:         time.Now,
	}
}

// Saver accepts save requests without blocking.
type Saver interface {
	Submit(req persist.Request)
}

type Metrics interface {
	ports.RelayMetrics
	ports.SimulationMetrics
}

type Deps struct {
	Terrain ports.WorldGenerator
	Saver   Saver
	Metrics Metrics
	// Restore, when set, resumes a previously saved world.
	Restore *persist.Save
	Logger  zerolog.Logger
}

type Session struct {
	cfg     Config
	inbox   chan func()
	done    chan struct{}
	host    *relay.Host
	sim     *simulation.HostSimulation
	overlay *overlay.Overlay
	roster  *roster.Roster
	queue   *scheduler.Queue
	terrain ports.WorldGenerator
	saver   Saver
	log     zerolog.Logger
	dirty   bool
}

func New(cfg Config, deps Deps) *Session {
	def := DefaultConfig()
	if cfg.RoomID == "" {
		cfg.RoomID = def.RoomID
	}
	if cfg.WorldSize <= 0 {
		cfg.WorldSize = def.WorldSize
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.DrainPeriod <= 0 {
		cfg.DrainPeriod = def.DrainPeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Relay.Password = cfg.Password
	if cfg.Relay.Now == nil {
		cfg.Relay.Now = cfg.Now
	}
	if cfg.Simulation.Now == nil {
		cfg.Simulation.Now = cfg.Now
	}

	log := deps.Logger.With().Str("room", cfg.RoomID).Logger()
	s := &Session{
		cfg:     cfg,
		inbox:   make(chan func(), cfg.InboxSize),
		done:    make(chan struct{}),
		overlay: overlay.New(overlay.Config{Size: cfg.WorldSize, Now: cfg.Now}),
		roster:  roster.New(),
		queue:   scheduler.New(),
		terrain: deps.Terrain,
		saver:   deps.Saver,
		log:     log.With().Str("component", "session").Logger(),
	}

	var relayMetrics ports.RelayMetrics
	var simMetrics ports.SimulationMetrics
	if deps.Metrics != nil {
		relayMetrics, simMetrics = deps.Metrics, deps.Metrics
	}
	s.host = relay.NewHost(cfg.Relay, relay.HostDeps{
		Hooks:    s,
		Deferrer: s,
		Metrics:  relayMetrics,
		Logger:   log,
	})
	s.sim = simulation.New(cfg.Simulation, simulation.Deps{
		Overlay:    s.overlay,
		Terrain:    deps.Terrain,
		Roster:     s.roster,
		Outbox:     s.host,
		Scheduler:  s.queue,
		Metrics:    simMetrics,
		OnProgress: s.markDirty,
		Logger:     log,
	})

	if deps.Restore != nil {
		s.restore(*deps.Restore)
	}
	if cfg.HostNickname != "" {
		m := s.roster.Join(s.host.ID(), cfg.HostNickname, true, cfg.Now())
		s.roster.AssignHive(m.Nickname)
	}
	return s
}

func (s *Session) restore(save persist.Save) {
	s.overlay.Restore(save.State.World)
	s.roster.RestoreBook(save.State.Book)
	s.roster.RestoreHives(save.State.Hives)
	s.sim.RestoreHorde(save.State.Horde)
	s.log.Info().
		Int("tiles", s.overlay.TileCount()).
		Time("saved_at", save.SavedAt).
		Bool("from_backup", save.FromBackup).
		Msg("world restored")
}

// Run owns the room until ctx is done. A final save is requested on the way out.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	tick := time.NewTicker(s.sim.Config().TickPeriod)
	defer tick.Stop()
	drain := time.NewTicker(s.cfg.DrainPeriod)
	defer drain.Stop()

	s.log.Info().Str("seed", s.cfg.Seed).Msg("session started")
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case fn := <-s.inbox:
			fn()
		case <-tick.C:
			s.step()
		case <-drain.C:
			s.queue.RunDue(s.cfg.Now())
		}
		if s.dirty {
			s.requestSave()
		}
	}
}

func (s *Session) step() {
	s.sim.Tick()
	s.sim.ReapDead()
}

func (s *Session) shutdown() {
	for drained := false; !drained; {
		select {
		case fn := <-s.inbox:
			fn()
		default:
			drained = true
		}
	}
	s.requestSave()
	s.host.Shutdown()
	s.log.Info().Msg("session stopped")
}

func (s *Session) enqueue(fn func()) bool {
	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Query runs fn on the session goroutine and waits for it.
func (s *Session) Query(ctx context.Context, fn func(v View)) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn(View{s: s})
	}
	select {
	case s.inbox <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// After schedules fn on the session goroutine.
func (s *Session) After(d time.Duration, fn func()) {
	s.queue.Schedule(s.cfg.Now().Add(d), scheduler.Task(fn))
}

func (s *Session) markDirty() {
	s.dirty = true
}

func (s *Session) requestSave() {
	s.dirty = false
	if s.saver == nil {
		return
	}
	meta := persist.Meta{
		Seed:         s.cfg.Seed,
		Password:     s.cfg.Password,
		HostNickname: s.cfg.HostNickname,
		HostLevel:    1,
	}
	if m, ok := s.roster.Get(s.host.ID()); ok {
		meta.HostLevel = m.Stats.Level
	}
	s.saver.Submit(persist.Request{
		WorldID: s.cfg.RoomID,
		Meta:    meta,
		State: persist.WorldState{
			World: s.overlay.Snapshot(),
			Book:  s.roster.Book(),
			Hives: s.roster.Hives(),
			Horde: s.sim.Horde(),
		},
	})
}
