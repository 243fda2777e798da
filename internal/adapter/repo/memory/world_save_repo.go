package memory

import (
	"context"
	"sort"

	"bloomkeepers/internal/app/ports"
)

type WorldSaveRepo struct {
	store *Store
}

func NewWorldSaveRepo(store *Store) WorldSaveRepo {
	return WorldSaveRepo{store: store}
}

func (r WorldSaveRepo) Get(_ context.Context, worldID string, slot ports.SaveSlot) (ports.SaveRecord, error) {
	rec, ok := r.store.saves[saveKey{worldID: worldID, slot: slot}]
	if !ok {
		return ports.SaveRecord{}, ports.ErrNotFound
	}
	rec.Payload = cloneBytes(rec.Payload)
	rec.Checksum = cloneBytes(rec.Checksum)
	return rec, nil
}

func (r WorldSaveRepo) Put(_ context.Context, rec ports.SaveRecord) error {
	rec.Payload = cloneBytes(rec.Payload)
	rec.Checksum = cloneBytes(rec.Checksum)
	r.store.saves[saveKey{worldID: rec.WorldID, slot: rec.Slot}] = rec
	return nil
}

func (r WorldSaveRepo) List(_ context.Context) ([]ports.SaveSummary, error) {
	out := make([]ports.SaveSummary, 0)
	for k, rec := range r.store.saves {
		if k.slot != ports.SlotCurrent {
			continue
		}
		out = append(out, ports.SaveSummary{
			WorldID:      rec.WorldID,
			Seed:         rec.Seed,
			HostNickname: rec.HostNickname,
			HostLevel:    rec.HostLevel,
			HasPassword:  rec.Password != "",
			SavedAt:      rec.SavedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].WorldID < out[j].WorldID
	})
	return out, nil
}

func (r WorldSaveRepo) Delete(_ context.Context, worldID string) error {
	found := false
	for _, slot := range []ports.SaveSlot{ports.SlotCurrent, ports.SlotBackup} {
		k := saveKey{worldID: worldID, slot: slot}
		if _, ok := r.store.saves[k]; ok {
			delete(r.store.saves, k)
			found = true
		}
	}
	if !found {
		return ports.ErrNotFound
	}
	return nil
}
