package memory

import (
	"sync"

	"bloomkeepers/internal/app/ports"
)

type saveKey struct {
	worldID string
	slot    ports.SaveSlot
}

// Store keeps saves in process memory. Repositories assume the caller holds
// the lock through TxManager.
type Store struct {
	mu    sync.Mutex
	saves map[saveKey]ports.SaveRecord
	stats map[string]map[string]ports.MemberStatsRecord
}

func NewStore() *Store {
	return &Store{
		saves: make(map[saveKey]ports.SaveRecord),
		stats: make(map[string]map[string]ports.MemberStatsRecord),
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
