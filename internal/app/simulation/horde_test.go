package simulation

import (
	"testing"

	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"
)

func TestInHordeWindow(t *testing.T) {
	h := newHarness(world.TileGrass)
	cases := []struct {
		day, hour int
		want      bool
	}{
		{7, 21, false},
		{7, 22, true},
		{7, 23, true},
		{8, 0, true},
		{8, 3, true},
		{8, 4, false},
		{1, 2, false},
		{6, 23, false},
		{14, 22, true},
		{15, 1, true},
	}
	for _, tc := range cases {
		if got := h.sim.InHordeWindow(tc.day, tc.hour); got != tc.want {
			t.Fatalf("day %d hour %d: expected %v, got %v", tc.day, tc.hour, tc.want, got)
		}
	}
}

func TestWarningIssuedOncePerHordeDay(t *testing.T) {
	h := newHarness(world.TileGrass)

	h.worldAt(7, 17)
	h.sim.Tick()
	if n := h.out.count(protocol.KindChatMsg); n != 0 {
		t.Fatalf("expected no warning before 18:00, got %d", n)
	}

	h.worldAt(7, 18)
	h.sim.Tick()
	h.sim.Tick()
	h.sim.Tick()
	if n := h.out.count(protocol.KindChatMsg); n != 1 {
		t.Fatalf("expected exactly one warning, got %d", n)
	}
	var warn *protocol.ChatMsg
	for _, m := range h.out.broadcasts {
		if c, ok := m.(*protocol.ChatMsg); ok {
			warn = c
		}
	}
	if warn.Nick != "SYSTEM" || warn.Text == "" {
		t.Fatalf("unexpected warning %+v", warn)
	}
	if !h.sim.Horde().WarningIssued {
		t.Fatalf("expected warning flag set")
	}

	h.worldAt(8, 7)
	h.sim.Tick()
	if h.sim.Horde().WarningIssued {
		t.Fatalf("expected warning flag reset in the morning")
	}

	h.out.reset()
	h.worldAt(14, 18)
	h.sim.Tick()
	if n := h.out.count(protocol.KindChatMsg); n != 1 {
		t.Fatalf("expected a warning on the next horde day, got %d", n)
	}
}

func TestHordeRampsUpToCap(t *testing.T) {
	h := newHarness(world.TileBurntGround)
	h.roster.Join("p1", "ana", false, h.now)
	_ = h.roster.Move("p1", 100, 100, nil)

	h.worldAt(7, 22)
	for i := 0; i < 43; i++ {
		h.sim.Tick()
	}
	if got := h.sim.LiveHostiles(); got != 5 {
		t.Fatalf("expected 5 hostiles after 43 ticks, got %d", got)
	}
	h.sim.Tick()
	if got := h.sim.LiveHostiles(); got != 6 {
		t.Fatalf("expected cap reached after 44 ticks, got %d", got)
	}
	for i := 0; i < 30; i++ {
		h.sim.Tick()
	}
	if got := h.sim.LiveHostiles(); got != 6 {
		t.Fatalf("expected cap of 6 per member, got %d", got)
	}
	if n := h.out.count(protocol.KindSpawnEnemy); n != 6 {
		t.Fatalf("expected 6 spawn broadcasts, got %d", n)
	}

	torus := h.overlay.Torus()
	for _, hostile := range h.sim.Hostiles() {
		d := torus.DistanceSquared(hostile.X, hostile.Y, 100, 100)
		if d < 15*15-1e-6 || d > 25*25+1e-6 {
			t.Fatalf("hostile %s spawned outside the ring: dist² %.2f", hostile.ID, d)
		}
		if hostile.HP != 30 {
			t.Fatalf("expected fresh hostile hp 30, got %d", hostile.HP)
		}
	}
}

func TestHordeSkipsWhenNoGroundIsHazardous(t *testing.T) {
	h := newHarness(world.TileGrass)
	h.roster.Join("p1", "ana", false, h.now)

	h.worldAt(7, 22)
	for i := 0; i < 20; i++ {
		h.sim.Tick()
	}
	if got := h.sim.LiveHostiles(); got != 0 {
		t.Fatalf("expected no spawns on safe ground, got %d", got)
	}
}

func TestDaylightKillsHostiles(t *testing.T) {
	h := newHarness(world.TileBurntGround)
	h.roster.Join("p1", "ana", false, h.now)

	h.worldAt(7, 22)
	for i := 0; i < 4; i++ {
		h.sim.Tick()
	}
	if got := h.sim.LiveHostiles(); got != 2 {
		t.Fatalf("expected 2 hostiles during ramp up, got %d", got)
	}

	h.worldAt(8, 5)
	h.sim.Tick()
	if got := h.sim.LiveHostiles(); got != 0 {
		t.Fatalf("expected daylight to clear hostiles, got %d", got)
	}
	if h.sim.Horde().SpawnDelay != 0 {
		t.Fatalf("expected spawn delay reset")
	}

	h.out.reset()
	reaped := h.sim.ReapDead()
	if len(reaped) != 2 || h.out.count(protocol.KindEnemyDeath) != 2 {
		t.Fatalf("expected 2 deaths announced, got %d reaped and %d broadcasts", len(reaped), h.out.count(protocol.KindEnemyDeath))
	}
	if len(h.sim.Hostiles()) != 0 {
		t.Fatalf("expected dead hostiles removed")
	}
}

func TestHitHostileRewardsKiller(t *testing.T) {
	h := newHarness(world.TileBurntGround)
	h.roster.Join("p1", "ana", false, h.now)

	h.worldAt(7, 22)
	h.sim.Tick()
	h.sim.Tick()
	hostiles := h.sim.Hostiles()
	if len(hostiles) != 1 {
		t.Fatalf("expected one hostile, got %d", len(hostiles))
	}
	id := hostiles[0].ID

	if h.sim.HitHostile(id, 10, "p1") {
		t.Fatalf("first hit should not be fatal")
	}
	if h.sim.HitHostile("hostile-missing", 100, "p1") {
		t.Fatalf("unknown hostile reported as killed")
	}
	if !h.sim.HitHostile(id, 20, "p1") {
		t.Fatalf("expected the second hit to kill")
	}
	if h.sim.HitHostile(id, 20, "p1") {
		t.Fatalf("dead hostile killed twice")
	}

	h.out.reset()
	h.sim.ReapDead()
	var death *protocol.EnemyDeath
	for _, m := range h.out.broadcasts {
		if d, ok := m.(*protocol.EnemyDeath); ok {
			death = d
		}
	}
	if death == nil || death.ID != id || death.Killer != "p1" {
		t.Fatalf("unexpected death broadcast %+v", death)
	}
	m, _ := h.roster.Get("p1")
	if m.Stats.XP != 10 {
		t.Fatalf("expected kill xp 10, got %d", m.Stats.XP)
	}
}

func TestHiveWavesEveryThirdTick(t *testing.T) {
	h := newHarness(world.TileGrass)
	for i := 0; i < 6; i++ {
		h.sim.Tick()
	}
	waves := 0
	for _, m := range h.out.broadcasts {
		if w, ok := m.(*protocol.WaveSpawn); ok && w.Color == h.sim.Config().HiveWaveColor {
			waves++
		}
	}
	if waves != 2 {
		t.Fatalf("expected 2 hive waves in 6 ticks, got %d", waves)
	}
}

func TestStatusReportsHordeNight(t *testing.T) {
	h := newHarness(world.TileGrass)
	h.worldAt(7, 22)
	h.sim.Tick()

	st := h.sim.Status()
	if st.Day != 7 || st.Hour != 22 || !st.Horde || st.Daylight {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Ticks != 1 {
		t.Fatalf("expected 1 tick, got %d", st.Ticks)
	}
}
