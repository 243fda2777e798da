// Package roster tracks members currently in the room and the progression
// stats remembered per nickname across visits.
package roster

import (
	"errors"
	"math"
	"sort"
	"time"

	"bloomkeepers/internal/protocol"
)

var (
	ErrUnknownMember   = errors.New("unknown member")
	ErrInvalidPosition = errors.New("invalid position")
)

const (
	DefaultMaxHP = 100
	xpPerLevel   = 100
	maxHives     = 7
)

type Stats struct {
	Level      int `json:"level"`
	XP         int `json:"xp"`
	HP         int `json:"hp"`
	MaxHP      int `json:"maxHp"`
	TilesCured int `json:"tilesCured"`
}

func NewStats() Stats {
	return Stats{Level: 1, HP: DefaultMaxHP, MaxHP: DefaultMaxHP}
}

func (s Stats) MaxXP() int {
	return xpPerLevel * max(s.Level, 1)
}

func (s Stats) normalized() Stats {
	if s.Level <= 0 {
		s.Level = 1
	}
	if s.MaxHP <= 0 {
		s.MaxHP = DefaultMaxHP
	}
	if s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
	if s.XP < 0 {
		s.XP = 0
	}
	return s
}

func (s Stats) Wire() protocol.Stats {
	return protocol.Stats{
		Level:      s.Level,
		XP:         s.XP,
		MaxXP:      s.MaxXP(),
		HP:         s.HP,
		MaxHP:      s.MaxHP,
		TilesCured: s.TilesCured,
	}
}

func StatsFromWire(w protocol.Stats) Stats {
	return Stats{Level: w.Level, XP: w.XP, HP: w.HP, MaxHP: w.MaxHP, TilesCured: w.TilesCured}.normalized()
}

type Member struct {
	ID       string
	Nickname string
	Host     bool
	X        float64
	Y        float64
	Stats    Stats
	JoinedAt time.Time
}

func (m Member) Alive() bool {
	return m.Stats.HP > 0
}

type Roster struct {
	members map[string]*Member
	book    map[string]Stats
	hives   map[string]int
}

func New() *Roster {
	return &Roster{
		members: map[string]*Member{},
		book:    map[string]Stats{},
		hives:   map[string]int{},
	}
}

// Join adds a member, seeding its stats from what was remembered for the nickname.
func (r *Roster) Join(id, nickname string, host bool, at time.Time) Member {
	stats, ok := r.book[nickname]
	if !ok {
		stats = NewStats()
	}
	m := &Member{ID: id, Nickname: nickname, Host: host, Stats: stats.normalized(), JoinedAt: at}
	r.members[id] = m
	return *m
}

// Leave removes a member and remembers its stats under its nickname.
func (r *Roster) Leave(id string) (Member, bool) {
	m, ok := r.members[id]
	if !ok {
		return Member{}, false
	}
	delete(r.members, id)
	r.remember(m)
	return *m, true
}

func (r *Roster) Get(id string) (Member, bool) {
	m, ok := r.members[id]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

func (r *Roster) Count() int {
	return len(r.members)
}

// List returns members ordered by join time, then id.
func (r *Roster) List() []Member {
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Roster) Alive() []Member {
	all := r.List()
	out := all[:0]
	for _, m := range all {
		if m.Alive() {
			out = append(out, m)
		}
	}
	return out
}

// Move records a reported position and, when present, the reported vitals.
func (r *Roster) Move(id string, x, y float64, reported *protocol.Stats) error {
	m, ok := r.members[id]
	if !ok {
		return ErrUnknownMember
	}
	if !finite(x) || !finite(y) {
		return ErrInvalidPosition
	}
	m.X, m.Y = x, y
	if reported != nil {
		m.Stats.HP = reported.HP
		if reported.MaxHP > 0 {
			m.Stats.MaxHP = reported.MaxHP
		}
		m.Stats = m.Stats.normalized()
	}
	return nil
}

// Heal raises hp up to max and returns the amount actually applied.
func (r *Roster) Heal(id string, amount int) (int, error) {
	m, ok := r.members[id]
	if !ok {
		return 0, ErrUnknownMember
	}
	before := m.Stats.HP
	m.Stats.HP = min(m.Stats.MaxHP, m.Stats.HP+amount)
	return m.Stats.HP - before, nil
}

// GainXP adds xp, carrying surplus across level ups. It returns the number of levels gained.
func (r *Roster) GainXP(id string, amount int) (int, error) {
	m, ok := r.members[id]
	if !ok {
		return 0, ErrUnknownMember
	}
	levels := 0
	m.Stats.XP += amount
	for m.Stats.XP >= m.Stats.MaxXP() {
		m.Stats.XP -= m.Stats.MaxXP()
		m.Stats.Level++
		levels++
	}
	r.remember(m)
	return levels, nil
}

func (r *Roster) RecordCure(id string) error {
	m, ok := r.members[id]
	if !ok {
		return ErrUnknownMember
	}
	m.Stats.TilesCured++
	r.remember(m)
	return nil
}

func (r *Roster) remember(m *Member) {
	if m.Nickname == "" {
		return
	}
	r.book[m.Nickname] = m.Stats
}

func (r *Roster) StatsFor(nickname string) (Stats, bool) {
	s, ok := r.book[nickname]
	return s, ok
}

// Book returns the remembered stats of every nickname, online members included.
func (r *Roster) Book() map[string]Stats {
	out := make(map[string]Stats, len(r.book)+len(r.members))
	for nick, s := range r.book {
		out[nick] = s
	}
	for _, m := range r.members {
		if m.Nickname != "" {
			out[m.Nickname] = m.Stats
		}
	}
	return out
}

func (r *Roster) RestoreBook(book map[string]Stats) {
	r.book = make(map[string]Stats, len(book))
	for nick, s := range book {
		r.book[nick] = s.normalized()
	}
}

// AssignHive gives a nickname the lowest free spawn hive in 1..7. It returns
// 0 when every hive is taken.
func (r *Roster) AssignHive(nickname string) int {
	if idx, ok := r.hives[nickname]; ok {
		return idx
	}
	used := make(map[int]bool, len(r.hives))
	for _, idx := range r.hives {
		used[idx] = true
	}
	for idx := 1; idx <= maxHives; idx++ {
		if !used[idx] {
			r.hives[nickname] = idx
			return idx
		}
	}
	return 0
}

func (r *Roster) Hives() map[string]int {
	out := make(map[string]int, len(r.hives))
	for k, v := range r.hives {
		out[k] = v
	}
	return out
}

func (r *Roster) RestoreHives(hives map[string]int) {
	r.hives = make(map[string]int, len(hives))
	for k, v := range hives {
		r.hives[k] = v
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
