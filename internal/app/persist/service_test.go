package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"bloomkeepers/internal/adapter/repo/memory"
	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/simulation"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	now   time.Time
	svc   *Service
	saves memory.WorldSaveRepo
	stats memory.MemberStatsRepo
}

func newFixture() *fixture {
	store := memory.NewStore()
	f := &fixture{
		now:   time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		saves: memory.NewWorldSaveRepo(store),
		stats: memory.NewMemberStatsRepo(store),
	}
	f.svc = New(Config{Now: func() time.Time { return f.now }}, Deps{
		Saves: f.saves,
		Stats: f.stats,
		Tx:    memory.NewTxManager(store),
	})
	return f
}

func sampleState() WorldState {
	clock := func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }
	ov := overlay.New(overlay.Config{Size: 4000, Now: clock})
	ov.AddGrowthTimer(5, 6, "p1")
	ov.SetTile(5, 6, world.TileGrass)
	ov.SetTile(-1, 2, world.TileSafeGrass)
	ov.SetWorldTime(world.Epoch.Add(90 * time.Minute))

	return WorldState{
		World: ov.Snapshot(),
		Book: map[string]roster.Stats{
			"ana": {Level: 2, XP: 40, HP: 80, MaxHP: 100, TilesCured: 12},
		},
		Hives: map[string]int{"ana": 1},
		Horde: simulation.HordeState{SpawnDelay: 3, WarningIssued: true},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	meta := Meta{Seed: "seed-1", Password: "pw", HostNickname: "keeper", HostLevel: 3}

	require.NoError(t, f.svc.Save(ctx, "room-1", meta, sampleState()))

	got, err := f.svc.Load(ctx, "room-1")
	require.NoError(t, err)
	require.False(t, got.FromBackup)
	require.Equal(t, meta, got.Meta)
	require.True(t, got.SavedAt.Equal(f.now))

	want := sampleState()
	want.Version = stateVersion
	if diff := cmp.Diff(want, got.State); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.stats.ListByWorld(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 12, rows[0].TilesCured)
}

func TestLoadFallsBackToBackup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	meta := Meta{Seed: "seed-1"}

	first := sampleState()
	require.NoError(t, f.svc.Save(ctx, "room-1", meta, first))
	f.now = f.now.Add(time.Minute)
	second := sampleState()
	second.Horde.SpawnDelay = 9
	require.NoError(t, f.svc.Save(ctx, "room-1", meta, second))

	backup, err := f.saves.Get(ctx, "room-1", ports.SlotBackup)
	require.NoError(t, err)
	require.True(t, backup.SavedAt.Equal(f.now.Add(-time.Minute)))

	cur, err := f.saves.Get(ctx, "room-1", ports.SlotCurrent)
	require.NoError(t, err)
	cur.Payload[len(cur.Payload)-1] ^= 0xff
	require.NoError(t, f.saves.Put(ctx, cur))

	got, err := f.svc.Load(ctx, "room-1")
	require.NoError(t, err)
	require.True(t, got.FromBackup)
	require.Equal(t, 3, got.State.Horde.SpawnDelay)
}

func TestLoadCorruptWithoutBackup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, "room-1", Meta{Seed: "s"}, sampleState()))

	cur, _ := f.saves.Get(ctx, "room-1", ports.SlotCurrent)
	cur.Checksum = []byte("nope")
	require.NoError(t, f.saves.Put(ctx, cur))

	_, err := f.svc.Load(ctx, "room-1")
	require.ErrorIs(t, err, ErrCorruptSave)
}

func TestSaveRejectsSeedChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, "room-1", Meta{Seed: "a"}, sampleState()))

	err := f.svc.Save(ctx, "room-1", Meta{Seed: "b"}, sampleState())
	require.ErrorIs(t, err, ports.ErrConflict)

	_, err = f.saves.Get(ctx, "room-1", ports.SlotBackup)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLoadMissing(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Load(context.Background(), "nowhere")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadFillsStatsFromRows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, "room-1", Meta{Seed: "s"}, sampleState()))
	require.NoError(t, f.stats.Upsert(ctx, []ports.MemberStatsRecord{
		{WorldID: "room-1", Nickname: "ana", Level: 9},
		{WorldID: "room-1", Nickname: "bea", Level: 4, HP: 70, MaxHP: 100},
	}))

	got, err := f.svc.Load(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, 2, got.State.Book["ana"].Level, "payload stats win")
	require.Equal(t, 4, got.State.Book["bea"].Level)
}

func TestListAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.svc.Save(ctx, "old", Meta{Seed: "s1", HostNickname: "a"}, sampleState()))
	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.svc.Save(ctx, "new", Meta{Seed: "s2", Password: "x"}, sampleState()))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].WorldID)
	require.True(t, list[0].HasPassword)
	require.Equal(t, "a", list[1].HostNickname)

	require.NoError(t, f.svc.Delete(ctx, "old"))
	rows, _ := f.stats.ListByWorld(ctx, "old")
	require.Empty(t, rows)
	require.ErrorIs(t, f.svc.Delete(ctx, "old"), ports.ErrNotFound)
}
