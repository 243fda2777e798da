package overlay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bloomkeepers/internal/domain/world"
)

// Snapshot is the wire and storage shape of an overlay. Keys are "x,y".
type Snapshot struct {
	Tiles        map[string]world.TileType `json:"tiles"`
	GrowthTimers map[string]TimerRecord    `json:"growthTimers"`
	WorldTime    int64                     `json:"worldTime"`
}

type TimerRecord struct {
	Time         int64  `json:"time"`
	LastHealTime int64  `json:"lastHealTime"`
	Owner        string `json:"owner,omitempty"`
}

// UnmarshalJSON accepts the legacy shape where a timer was a bare start timestamp.
func (r *TimerRecord) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		ms, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("legacy growth timer %q: %w", trimmed, err)
		}
		*r = TimerRecord{Time: int64(ms), LastHealTime: int64(ms)}
		return nil
	}
	type plain TimerRecord
	var aux struct {
		plain
		Owner *string `json:"owner"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = TimerRecord(aux.plain)
	if aux.Owner != nil {
		r.Owner = *aux.Owner
	}
	if r.LastHealTime == 0 {
		r.LastHealTime = r.Time
	}
	return nil
}

// UnmarshalJSON also reads saves that stored timers under "plants".
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var aux struct {
		Tiles        map[string]world.TileType `json:"tiles"`
		GrowthTimers map[string]TimerRecord    `json:"growthTimers"`
		Plants       map[string]TimerRecord    `json:"plants"`
		WorldTime    float64                   `json:"worldTime"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Tiles = aux.Tiles
	s.GrowthTimers = aux.GrowthTimers
	if s.GrowthTimers == nil {
		s.GrowthTimers = aux.Plants
	}
	s.WorldTime = int64(aux.WorldTime)
	return nil
}

func PointKey(p world.Point) string {
	return strconv.Itoa(p.X) + "," + strconv.Itoa(p.Y)
}

func ParsePointKey(key string) (world.Point, bool) {
	xs, ys, ok := strings.Cut(key, ",")
	if !ok {
		return world.Point{}, false
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return world.Point{}, false
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return world.Point{}, false
	}
	return world.Point{X: x, Y: y}, true
}

// Snapshot keys are canonical: both coordinates wrapped into [0, Size).
func (o *Overlay) Snapshot() Snapshot {
	out := Snapshot{
		Tiles:        make(map[string]world.TileType, len(o.tiles)),
		GrowthTimers: make(map[string]TimerRecord, len(o.timers)),
		WorldTime:    o.worldTime.UnixMilli(),
	}
	for p, t := range o.tiles {
		out.Tiles[PointKey(p)] = t
	}
	for p, timer := range o.timers {
		out.GrowthTimers[PointKey(p)] = TimerRecord{
			Time:         timer.StartedAt.UnixMilli(),
			LastHealTime: timer.LastHealAt.UnixMilli(),
			Owner:        timer.OwnerID,
		}
	}
	return out
}

// Restore replaces the overlay contents. Malformed keys are skipped and a
// missing world time falls back to the epoch. Keys outside the world are
// wrapped; when one collides with a canonical key the canonical entry wins.
func (o *Overlay) Restore(s Snapshot) {
	o.tiles = make(map[world.Point]world.TileType, len(s.Tiles))
	o.timers = make(map[world.Point]*GrowthTimer, len(s.GrowthTimers))
	for key, t := range s.Tiles {
		p, ok := restoreKeyIn(o, key, s.Tiles)
		if !ok {
			continue
		}
		o.tiles[p] = t
	}
	for key, rec := range s.GrowthTimers {
		p, ok := restoreKeyIn(o, key, s.GrowthTimers)
		if !ok {
			continue
		}
		started := time.UnixMilli(rec.Time).UTC()
		if rec.Time == 0 {
			started = o.stamp()
		}
		healed := time.UnixMilli(rec.LastHealTime).UTC()
		if rec.LastHealTime == 0 {
			healed = started
		}
		o.timers[p] = &GrowthTimer{StartedAt: started, LastHealAt: healed, OwnerID: rec.Owner}
	}
	if s.WorldTime == 0 {
		o.worldTime = o.epoch
	} else {
		o.worldTime = time.UnixMilli(s.WorldTime).UTC()
	}
}

func restoreKeyIn[V any](o *Overlay, key string, entries map[string]V) (world.Point, bool) {
	p, ok := ParsePointKey(key)
	if !ok {
		return world.Point{}, false
	}
	wrapped := o.torus.WrapPoint(p)
	if wrapped == p {
		return p, true
	}
	if _, taken := entries[PointKey(wrapped)]; taken {
		return world.Point{}, false
	}
	return wrapped, true
}
