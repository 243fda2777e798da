package inmemory

import (
	"sync"

	"bloomkeepers/internal/protocol"
)

type Snapshot struct {
	AuthAccepted uint64            `json:"auth_accepted"`
	AuthRejected uint64            `json:"auth_rejected"`
	Evictions    uint64            `json:"evictions"`
	Dropped      map[string]uint64 `json:"dropped"`
	Routed       map[string]uint64 `json:"routed"`
	Deliveries   uint64            `json:"deliveries"`
	Ticks        uint64            `json:"ticks"`
	Spawns       uint64            `json:"spawns"`
	Cures        uint64            `json:"cures"`
	Heals        uint64            `json:"heals"`
}

// Recorder counts relay and simulation events. It is safe for concurrent use.
type Recorder struct {
	mu           sync.Mutex
	authAccepted uint64
	authRejected uint64
	evictions    uint64
	dropped      map[string]uint64
	routed       map[string]uint64
	deliveries   uint64
	ticks        uint64
	spawns       uint64
	cures        uint64
	heals        uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		dropped: map[string]uint64{},
		routed:  map[string]uint64{},
	}
}

func (r *Recorder) RecordAuth(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.authAccepted++
		return
	}
	r.authRejected++
}

func (r *Recorder) RecordEviction() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictions++
}

func (r *Recorder) RecordDropped(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped[reason]++
}

func (r *Recorder) RecordRouted(kind protocol.Kind, deliveries int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routed[string(kind)]++
	r.deliveries += uint64(deliveries)
}

func (r *Recorder) RecordTick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
}

func (r *Recorder) RecordSpawn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawns++
}

func (r *Recorder) RecordCure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cures++
}

func (r *Recorder) RecordHeal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heals++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		AuthAccepted: r.authAccepted,
		AuthRejected: r.authRejected,
		Evictions:    r.evictions,
		Dropped:      make(map[string]uint64, len(r.dropped)),
		Routed:       make(map[string]uint64, len(r.routed)),
		Deliveries:   r.deliveries,
		Ticks:        r.ticks,
		Spawns:       r.spawns,
		Cures:        r.cures,
		Heals:        r.heals,
	}
	for k, v := range r.dropped {
		out.Dropped[k] = v
	}
	for k, v := range r.routed {
		out.Routed[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
