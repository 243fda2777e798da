// Package overlay stores the sparse set of tile mutations the host has applied
// on top of procedurally generated terrain, along with growth bookkeeping.
package overlay

import (
	"sort"
	"time"

	"bloomkeepers/internal/domain/world"
)

type Config struct {
	Size  int
	Epoch time.Time
	Now   func() time.Time
}

type GrowthTimer struct {
	StartedAt  time.Time
	LastHealAt time.Time
	OwnerID    string
}

// BaseTerrain answers the generated tile type for coordinates without an override.
type BaseTerrain interface {
	TileAt(x, y int) world.TileType
}

type Overlay struct {
	torus     world.Torus
	epoch     time.Time
	now       func() time.Time
	tiles     map[world.Point]world.TileType
	timers    map[world.Point]*GrowthTimer
	worldTime time.Time
}

func New(cfg Config) *Overlay {
	if cfg.Epoch.IsZero() {
		cfg.Epoch = world.Epoch
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Overlay{
		torus:     world.NewTorus(cfg.Size),
		epoch:     cfg.Epoch,
		now:       cfg.Now,
		tiles:     map[world.Point]world.TileType{},
		timers:    map[world.Point]*GrowthTimer{},
		worldTime: cfg.Epoch,
	}
}

func (o *Overlay) Torus() world.Torus {
	return o.torus
}

func (o *Overlay) key(x, y int) world.Point {
	return world.Point{X: o.torus.Wrap(x), Y: o.torus.Wrap(y)}
}

// SetTile writes an override and reports whether it changed anything.
// Writing a flower guarantees a growth timer; writing a non-growable type drops it.
func (o *Overlay) SetTile(x, y int, t world.TileType) bool {
	k := o.key(x, y)
	if cur, ok := o.tiles[k]; ok && cur == t {
		return false
	}
	o.tiles[k] = t
	switch {
	case t == world.TileFlower:
		if _, ok := o.timers[k]; !ok {
			o.timers[k] = o.newTimer("")
		}
	case !t.Growable():
		delete(o.timers, k)
	}
	return true
}

// Tile returns the override at a coordinate; ok is false when the base terrain applies.
func (o *Overlay) Tile(x, y int) (world.TileType, bool) {
	t, ok := o.tiles[o.key(x, y)]
	return t, ok
}

func (o *Overlay) Effective(x, y int, base BaseTerrain) world.TileType {
	if t, ok := o.Tile(x, y); ok {
		return t
	}
	k := o.key(x, y)
	return base.TileAt(k.X, k.Y)
}

// AddGrowthTimer starts tracking a coordinate. Tracking an already tracked
// coordinate keeps the original start time.
func (o *Overlay) AddGrowthTimer(x, y int, ownerID string) {
	k := o.key(x, y)
	if _, ok := o.timers[k]; ok {
		return
	}
	o.timers[k] = o.newTimer(ownerID)
}

func (o *Overlay) RemoveGrowthTimer(x, y int) {
	delete(o.timers, o.key(x, y))
}

// ResetGrowthTimer restarts a timer after a harvest, creating it when missing.
func (o *Overlay) ResetGrowthTimer(x, y int) {
	k := o.key(x, y)
	timer, ok := o.timers[k]
	if !ok {
		o.timers[k] = o.newTimer("")
		return
	}
	now := o.stamp()
	timer.StartedAt = now
	timer.LastHealAt = now
}

func (o *Overlay) MarkHealed(x, y int, at time.Time) {
	if timer, ok := o.timers[o.key(x, y)]; ok {
		timer.LastHealAt = truncate(at)
	}
}

func (o *Overlay) Timer(x, y int) (GrowthTimer, bool) {
	timer, ok := o.timers[o.key(x, y)]
	if !ok {
		return GrowthTimer{}, false
	}
	return *timer, true
}

// GrowthPoints lists tracked coordinates in a stable row-major order.
func (o *Overlay) GrowthPoints() []world.Point {
	out := make([]world.Point, 0, len(o.timers))
	for p := range o.timers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (o *Overlay) TileCount() int {
	return len(o.tiles)
}

func (o *Overlay) WorldTime() time.Time {
	return o.worldTime
}

func (o *Overlay) SetWorldTime(t time.Time) {
	o.worldTime = truncate(t)
}

func (o *Overlay) AdvanceWorldTime(step time.Duration) time.Time {
	o.worldTime = o.worldTime.Add(step)
	return o.worldTime
}

func (o *Overlay) newTimer(ownerID string) *GrowthTimer {
	now := o.stamp()
	return &GrowthTimer{StartedAt: now, LastHealAt: now, OwnerID: ownerID}
}

func (o *Overlay) stamp() time.Time {
	return truncate(o.now())
}

// truncate keeps millisecond precision, the resolution snapshots carry.
func truncate(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
