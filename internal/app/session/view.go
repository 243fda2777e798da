package session

import (
	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/simulation"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"
)

// View is a read handle valid only inside a Query callback.
type View struct {
	s *Session
}

type Status struct {
	RoomID     string            `json:"room_id"`
	Seed       string            `json:"seed"`
	HostID     string            `json:"host_id"`
	Members    int               `json:"members"`
	Pending    int               `json:"pending"`
	Tiles      int               `json:"tiles"`
	Scheduled  int               `json:"scheduled"`
	Simulation simulation.Status `json:"simulation"`
}

type Member struct {
	ID       string       `json:"id"`
	Nickname string       `json:"nickname"`
	Host     bool         `json:"host"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Hive     int          `json:"hive"`
	Stats    roster.Stats `json:"stats"`
}

func (v View) Status() Status {
	s := v.s
	return Status{
		RoomID:     s.cfg.RoomID,
		Seed:       s.cfg.Seed,
		HostID:     s.host.ID(),
		Members:    s.roster.Count(),
		Pending:    s.host.Pending(),
		Tiles:      s.overlay.TileCount(),
		Scheduled:  s.queue.Len(),
		Simulation: s.sim.Status(),
	}
}

func (v View) Members() []Member {
	hives := v.s.roster.Hives()
	list := v.s.roster.List()
	out := make([]Member, 0, len(list))
	for _, m := range list {
		out = append(out, Member{
			ID:       m.ID,
			Nickname: m.Nickname,
			Host:     m.Host,
			X:        m.X,
			Y:        m.Y,
			Hive:     hives[m.Nickname],
			Stats:    m.Stats,
		})
	}
	return out
}

func (v View) Snapshot() overlay.Snapshot {
	return v.s.overlay.Snapshot()
}

func (v View) Hostiles() []simulation.Hostile {
	return v.s.sim.Hostiles()
}

// Overlaid returns base with every overridden tile replaced.
func (v View) Overlaid(base world.Chunk) world.Chunk {
	out := world.Chunk{Coord: base.Coord, Tiles: make([]world.Tile, len(base.Tiles))}
	for i, t := range base.Tiles {
		if tt, ok := v.s.overlay.Tile(t.X, t.Y); ok {
			t.Type = tt
		}
		out.Tiles[i] = t
	}
	return out
}
