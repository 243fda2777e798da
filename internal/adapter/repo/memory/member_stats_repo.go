package memory

import (
	"context"
	"sort"

	"bloomkeepers/internal/app/ports"
)

type MemberStatsRepo struct {
	store *Store
}

func NewMemberStatsRepo(store *Store) MemberStatsRepo {
	return MemberStatsRepo{store: store}
}

func (r MemberStatsRepo) Upsert(_ context.Context, rows []ports.MemberStatsRecord) error {
	for _, row := range rows {
		byNick, ok := r.store.stats[row.WorldID]
		if !ok {
			byNick = make(map[string]ports.MemberStatsRecord)
			r.store.stats[row.WorldID] = byNick
		}
		byNick[row.Nickname] = row
	}
	return nil
}

func (r MemberStatsRepo) ListByWorld(_ context.Context, worldID string) ([]ports.MemberStatsRecord, error) {
	byNick := r.store.stats[worldID]
	out := make([]ports.MemberStatsRecord, 0, len(byNick))
	for _, row := range byNick {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out, nil
}

func (r MemberStatsRepo) DeleteByWorld(_ context.Context, worldID string) error {
	delete(r.store.stats, worldID)
	return nil
}
