package simulation

import (
	"math/rand/v2"
	"time"

	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/scheduler"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"
)

type fakeTerrain struct {
	base  world.TileType
	hives []world.Point
}

func (f fakeTerrain) TileAt(int, int) world.TileType { return f.base }
func (f fakeTerrain) HiveLocations() []world.Point   { return f.hives }

type sent struct {
	to  string
	msg protocol.Message
}

type recordingOutbox struct {
	broadcasts []protocol.Message
	sends      []sent
}

func (o *recordingOutbox) Broadcast(msg protocol.Message) {
	o.broadcasts = append(o.broadcasts, msg)
}

func (o *recordingOutbox) SendTo(id string, msg protocol.Message) error {
	o.sends = append(o.sends, sent{to: id, msg: msg})
	return nil
}

func (o *recordingOutbox) count(kind protocol.Kind) int {
	n := 0
	for _, m := range o.broadcasts {
		if m.Kind() == kind {
			n++
		}
	}
	return n
}

func (o *recordingOutbox) reset() {
	o.broadcasts = nil
	o.sends = nil
}

type harness struct {
	now     time.Time
	sim     *HostSimulation
	overlay *overlay.Overlay
	roster  *roster.Roster
	out     *recordingOutbox
	queue   *scheduler.Queue
	saves   int
}

func newHarness(base world.TileType) *harness {
	h := &harness{
		now:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		roster: roster.New(),
		out:    &recordingOutbox{},
		queue:  scheduler.New(),
	}
	clock := func() time.Time { return h.now }
	h.overlay = overlay.New(overlay.Config{Size: 4000, Now: clock})
	h.sim = New(Config{
		Now:  clock,
		Rand: rand.New(rand.NewPCG(1, 2)),
	}, Deps{
		Overlay:    h.overlay,
		Terrain:    fakeTerrain{base: base, hives: []world.Point{{X: 0, Y: 0}}},
		Roster:     h.roster,
		Outbox:     h.out,
		Scheduler:  h.queue,
		OnProgress: func() { h.saves++ },
	})
	return h
}

// worldAt positions the virtual clock so the next tick lands on the given day and hour.
func (h *harness) worldAt(day, hour int) {
	midnight := time.Date(2074, 2, 9, 0, 0, 0, 0, time.UTC)
	at := midnight.Add(time.Duration(day-1)*24*time.Hour + time.Duration(hour)*time.Hour)
	h.overlay.SetWorldTime(at.Add(-h.sim.cfg.VirtualStep))
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}
