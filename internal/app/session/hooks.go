package session

import (
	"bloomkeepers/internal/app/relay"
	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"
)

var (
	_ relay.Hooks    = (*Session)(nil)
	_ relay.Deferrer = (*Session)(nil)
)

// Open, Receive and Closed are the transport's entry points. They only
// enqueue; the relay runs on the session goroutine.
func (s *Session) Open(conn relay.Conn) {
	s.enqueue(func() { s.host.Open(conn) })
}

func (s *Session) Receive(id string, data []byte) {
	s.enqueue(func() { s.host.Receive(id, data) })
}

func (s *Session) Closed(id string) {
	s.enqueue(func() { s.host.Closed(id) })
}

func (s *Session) Joined(id, nickname string) {
	s.roster.Join(id, nickname, false, s.cfg.Now())
	s.roster.AssignHive(nickname)
}

func (s *Session) Welcome(id, nickname string) *protocol.AuthSuccess {
	out := &protocol.AuthSuccess{
		Seed:        s.cfg.Seed,
		WorldState:  s.overlay.Snapshot(),
		RosterStats: map[string]protocol.Stats{},
		HiveIndex:   s.roster.AssignHive(nickname),
	}
	if m, ok := s.roster.Get(id); ok {
		stats := m.Stats.Wire()
		out.PlayerData = &stats
	}
	for nick, st := range s.roster.Book() {
		out.RosterStats[nick] = st.Wire()
	}
	return out
}

func (s *Session) Departed(id string) {
	if m, ok := s.roster.Leave(id); ok {
		s.log.Debug().Str("peer", id).Str("nickname", m.Nickname).Int("level", m.Stats.Level).Msg("member stats kept")
		s.markDirty()
	}
}

// Deliver applies what the host itself needs from a routed frame. Tile
// changes the simulation refuses are not forwarded, and moves are folded
// onto the torus before anyone else sees them.
func (s *Session) Deliver(from string, f protocol.Frame) bool {
	switch msg := f.Msg.(type) {
	case *protocol.Move:
		torus := s.overlay.Torus()
		x, y := torus.WrapFloat(msg.X), torus.WrapFloat(msg.Y)
		if err := s.roster.Move(from, x, y, msg.Stats); err != nil {
			s.log.Debug().Err(err).Str("peer", from).Float64("x", msg.X).Float64("y", msg.Y).Msg("move refused")
			return false
		}
		msg.X, msg.Y = x, y
		return true
	case *protocol.TileChange:
		changed, err := s.sim.ApplyTileChange(from, msg.X, msg.Y, world.TileType(msg.TileType))
		if err != nil {
			s.log.Debug().Err(err).Str("peer", from).Str("tile", msg.TileType).Msg("tile change refused")
			return false
		}
		return changed
	case *protocol.EnemyHit:
		s.sim.HitHostile(msg.ID, msg.Damage, from)
		return true
	case *protocol.ChatMsg:
		s.log.Info().Str("peer", from).Str("nick", msg.Nick).Msg(msg.Text)
		return true
	}
	return true
}
