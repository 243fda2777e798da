package simulation

import (
	"math"
	"testing"
	"time"

	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"
)

func plantFlower(h *harness, x, y int, owner string) {
	h.overlay.AddGrowthTimer(x, y, owner)
	h.overlay.SetTile(x, y, world.TileFlower)
}

func (h *harness) healWaves() int {
	n := 0
	for _, m := range h.out.broadcasts {
		if w, ok := m.(*protocol.WaveSpawn); ok && w.Color == h.sim.Config().HealWaveColor {
			n++
		}
	}
	return n
}

func TestTickAdvancesWorldTime(t *testing.T) {
	h := newHarness(world.TileGrass)
	start := h.overlay.WorldTime()
	h.sim.Tick()
	h.sim.Tick()

	if got := h.overlay.WorldTime().Sub(start); got != 2*time.Minute {
		t.Fatalf("expected 2 virtual minutes, got %v", got)
	}
	var last *protocol.TimeSync
	syncs := 0
	for _, m := range h.out.broadcasts {
		if s, ok := m.(*protocol.TimeSync); ok {
			last = s
			syncs++
		}
	}
	if syncs != 2 || last == nil || last.Time != h.overlay.WorldTime().UnixMilli() {
		t.Fatalf("expected 2 time syncs ending at world time, got %d %+v", syncs, last)
	}
}

func TestFlowerPulseHealsNearbyGuest(t *testing.T) {
	h := newHarness(world.TileGrass)
	h.roster.Join("owner", "bea", false, h.now)
	_ = h.roster.Move("owner", 500, 500, nil)
	h.roster.Join("g1", "ana", false, h.now)
	_ = h.roster.Move("g1", 52, 50+math.Sqrt2, &protocol.Stats{HP: 50, MaxHP: 100})
	h.roster.Join("g2", "cid", false, h.now)
	_ = h.roster.Move("g2", 60, 50, &protocol.Stats{HP: 50, MaxHP: 100})

	plantFlower(h, 50, 50, "owner")
	h.advance(3001 * time.Millisecond)
	h.sim.Tick()

	if len(h.out.sends) != 1 {
		t.Fatalf("expected exactly one heal, got %d", len(h.out.sends))
	}
	heal, ok := h.out.sends[0].msg.(*protocol.PlayerHeal)
	if h.out.sends[0].to != "g1" || !ok || heal.Amount != 10 {
		t.Fatalf("unexpected heal %+v", h.out.sends[0])
	}
	if n := h.healWaves(); n != 1 {
		t.Fatalf("expected one heal wave, got %d", n)
	}
	timer, _ := h.overlay.Timer(50, 50)
	if !timer.LastHealAt.Equal(h.now) {
		t.Fatalf("expected last heal at %v, got %v", h.now, timer.LastHealAt)
	}
	owner, _ := h.roster.Get("owner")
	if owner.Stats.XP != 5 {
		t.Fatalf("expected passive xp for the owner, got %d", owner.Stats.XP)
	}

	h.out.reset()
	h.advance(time.Second)
	h.sim.Tick()
	if len(h.out.sends) != 0 || h.healWaves() != 0 {
		t.Fatalf("expected no pulse inside the heal interval")
	}
}

func TestFlowerPulseHealsHostLocally(t *testing.T) {
	h := newHarness(world.TileGrass)
	h.roster.Join("host", "keeper", true, h.now)
	_ = h.roster.Move("host", 51, 50, &protocol.Stats{HP: 40, MaxHP: 100})

	plantFlower(h, 50, 50, "")
	h.advance(4 * time.Second)
	h.sim.Tick()

	if len(h.out.sends) != 0 {
		t.Fatalf("host heal must not go over the wire")
	}
	m, _ := h.roster.Get("host")
	if m.Stats.HP != 50 {
		t.Fatalf("expected host hp 50, got %d", m.Stats.HP)
	}
}

func TestPulseSkipsFullAndDeadMembers(t *testing.T) {
	h := newHarness(world.TileGrass)
	h.roster.Join("full", "ana", false, h.now)
	_ = h.roster.Move("full", 50, 50, nil)
	h.roster.Join("dead", "bea", false, h.now)
	_ = h.roster.Move("dead", 50, 51, &protocol.Stats{HP: 0, MaxHP: 100})

	plantFlower(h, 50, 50, "full")
	h.advance(3 * time.Second)
	h.sim.Tick()

	if len(h.out.sends) != 0 {
		t.Fatalf("expected no heals, got %d", len(h.out.sends))
	}
	if n := h.healWaves(); n != 1 {
		t.Fatalf("expected the wave regardless of heals, got %d", n)
	}
	m, _ := h.roster.Get("full")
	if m.Stats.XP != 0 {
		t.Fatalf("expected no passive xp without heals, got %d", m.Stats.XP)
	}
}

func TestPlanSpreadDelayGrowsWithDepth(t *testing.T) {
	h := newHarness(world.TileBurntGround)
	source := world.Point{X: 10, Y: 10}
	tasks := h.sim.PlanSpread(source)

	if len(tasks) != 11 {
		t.Fatalf("expected 11 tasks on fully hazardous ground, got %d", len(tasks))
	}
	seen := map[world.Point]bool{}
	prev := 0
	for _, task := range tasks {
		if task.Target == source {
			t.Fatalf("source planned as a target")
		}
		if seen[task.Target] {
			t.Fatalf("target %v planned twice", task.Target)
		}
		seen[task.Target] = true
		if task.Depth < 1 || task.Depth > 5 {
			t.Fatalf("depth out of range: %d", task.Depth)
		}
		if task.Depth < prev {
			t.Fatalf("depth went backwards: %d after %d", task.Depth, prev)
		}
		prev = task.Depth
		if task.Delay != time.Duration(task.Depth)*200*time.Millisecond {
			t.Fatalf("unexpected delay %v at depth %d", task.Delay, task.Depth)
		}
	}
}

func TestPlanSpreadIgnoresSafeGround(t *testing.T) {
	h := newHarness(world.TileGrass)
	if tasks := h.sim.PlanSpread(world.Point{X: 3, Y: 3}); len(tasks) != 0 {
		t.Fatalf("expected nothing to cure, got %d", len(tasks))
	}
}

func TestSpreadCuresWhenDue(t *testing.T) {
	h := newHarness(world.TileBurntGround)
	h.roster.Join("owner", "bea", false, h.now)
	_ = h.roster.Move("owner", 500, 500, nil)

	plantFlower(h, 10, 10, "owner")
	h.advance(3001 * time.Millisecond)
	h.sim.Tick()
	if h.queue.Len() != 11 {
		t.Fatalf("expected 11 cures scheduled, got %d", h.queue.Len())
	}
	if n := h.out.count(protocol.KindFlowerCure); n != 0 {
		t.Fatalf("cures must wait for their delay, got %d", n)
	}

	// cured by someone else before the wave arrives
	h.overlay.SetTile(11, 10, world.TileSafeGrass)

	h.advance(time.Second)
	if ran := h.queue.RunDue(h.now); ran != 11 {
		t.Fatalf("expected 11 tasks to run, got %d", ran)
	}
	if n := h.out.count(protocol.KindFlowerCure); n != 10 {
		t.Fatalf("expected 10 cures, got %d", n)
	}
	for _, p := range []world.Point{{X: 9, Y: 10}, {X: 10, Y: 9}, {X: 10, Y: 11}} {
		if got := tileAt(t, h, p.X, p.Y); got != world.TileSafeGrass {
			t.Fatalf("expected %v cured, got %s", p, got)
		}
	}
	owner, _ := h.roster.Get("owner")
	if owner.Stats.TilesCured != 10 {
		t.Fatalf("expected 10 cures credited, got %d", owner.Stats.TilesCured)
	}
	if owner.Stats.XP != 50 || owner.Stats.Level != 1 {
		t.Fatalf("expected level 1 with 50 xp, got %+v", owner.Stats)
	}
}
