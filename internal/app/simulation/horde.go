package simulation

import (
	"math"
	"time"

	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/protocol"

	"github.com/google/uuid"
)

type HostileClass string

const (
	ClassHunter  HostileClass = "hunter"
	ClassInvader HostileClass = "invader"
)

type Hostile struct {
	ID     string       `json:"id"`
	Class  HostileClass `json:"class"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	HP     int          `json:"hp"`
	Dead   bool         `json:"dead"`
	Killer string       `json:"killer,omitempty"`
}

// InHordeWindow is true from the start hour of every Nth day until the end
// hour of the following morning.
func (s *HostSimulation) InHordeWindow(day, hour int) bool {
	n := s.cfg.HordeEveryDays
	return (day%n == 0 && hour >= s.cfg.HordeStartHour) ||
		(day > 1 && (day-1)%n == 0 && hour < s.cfg.HordeEndHour)
}

func (s *HostSimulation) runHorde(worldTime time.Time) {
	day, hour := s.clock.Day(worldTime), s.clock.Hour(worldTime)

	if day%s.cfg.HordeEveryDays == 0 && hour == s.cfg.WarningHour && !s.horde.WarningIssued {
		s.horde.WarningIssued = true
		s.out.Broadcast(&protocol.ChatMsg{Nick: s.cfg.SystemNick, Text: s.cfg.WarningText})
		s.log.Info().Int("day", day).Msg("horde warning issued")
	}
	if hour >= s.cfg.WarningResetHour && hour < s.cfg.WarningHour {
		s.horde.WarningIssued = false
	}

	if s.InHordeWindow(day, hour) {
		s.spawnTick()
		return
	}
	if s.clock.Daylight(worldTime) {
		for _, h := range s.hostiles {
			if !h.Dead {
				h.Dead = true
				h.HP = 0
			}
		}
		s.horde.SpawnDelay = 0
	}
}

func (s *HostSimulation) spawnTick() {
	members := s.roster.Count()
	live := s.LiveHostiles()
	if live >= members*s.cfg.MaxHostilesPerMember {
		return
	}
	s.horde.SpawnDelay++
	threshold := s.cfg.ReplenishDelayTicks
	if live < members*s.cfg.RampUpPerMember {
		threshold = s.cfg.RampUpDelayTicks
	}
	if s.horde.SpawnDelay < threshold {
		return
	}
	s.horde.SpawnDelay = 0
	alive := s.roster.Alive()
	if len(alive) == 0 {
		return
	}
	s.spawnNear(alive[s.rng.IntN(len(alive))])
}

// spawnNear tries random points in an annulus around the target and spawns
// on the first one whose effective tile is hazardous.
func (s *HostSimulation) spawnNear(target roster.Member) (Hostile, bool) {
	span := s.cfg.SpawnMaxRadius - s.cfg.SpawnMinRadius
	for i := 0; i < s.cfg.SpawnAttempts; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		dist := s.cfg.SpawnMinRadius + s.rng.Float64()*span
		x := target.X + math.Cos(angle)*dist
		y := target.Y + math.Sin(angle)*dist
		tx, ty := int(math.Floor(x)), int(math.Floor(y))
		if !s.overlay.Effective(tx, ty, s.terrain).Hazardous() {
			continue
		}
		class := ClassHunter
		if s.rng.Float64() >= 0.5 {
			class = ClassInvader
		}
		h := &Hostile{ID: "hostile-" + uuid.NewString(), Class: class, X: x, Y: y, HP: s.cfg.HostileHP}
		s.hostiles[h.ID] = h
		s.metrics.RecordSpawn()
		s.out.Broadcast(&protocol.SpawnEnemy{ID: h.ID, X: x, Y: y, Class: string(class)})
		return *h, true
	}
	return Hostile{}, false
}

func (s *HostSimulation) LiveHostiles() int {
	n := 0
	for _, h := range s.hostiles {
		if !h.Dead {
			n++
		}
	}
	return n
}

func (s *HostSimulation) Hostiles() []Hostile {
	out := make([]Hostile, 0, len(s.hostiles))
	for _, h := range s.hostiles {
		out = append(out, *h)
	}
	return out
}

// HitHostile applies damage reported by a member. It returns true when the hit was fatal.
func (s *HostSimulation) HitHostile(id string, damage int, attacker string) bool {
	h, ok := s.hostiles[id]
	if !ok || h.Dead || damage <= 0 {
		return false
	}
	h.HP -= damage
	if h.HP > 0 {
		return false
	}
	h.HP = 0
	h.Dead = true
	h.Killer = attacker
	return true
}

// ReapDead removes dead hostiles, announces each death and rewards the killer.
func (s *HostSimulation) ReapDead() []Hostile {
	var reaped []Hostile
	for id, h := range s.hostiles {
		if !h.Dead {
			continue
		}
		delete(s.hostiles, id)
		reaped = append(reaped, *h)
		s.out.Broadcast(&protocol.EnemyDeath{ID: id, Killer: h.Killer})
		if h.Killer != "" {
			if _, err := s.roster.GainXP(h.Killer, s.cfg.KillXP); err == nil {
				s.onProgress()
			}
		}
	}
	return reaped
}

func (s *HostSimulation) runHiveWaves() {
	s.horde.HiveWaveTicks++
	if s.horde.HiveWaveTicks < s.cfg.HiveWaveEveryTicks {
		return
	}
	s.horde.HiveWaveTicks = 0
	for _, hive := range s.terrain.HiveLocations() {
		s.out.Broadcast(&protocol.WaveSpawn{
			X:      float64(hive.X),
			Y:      float64(hive.Y),
			Radius: s.cfg.HiveWaveRadius,
			Color:  s.cfg.HiveWaveColor,
			Amount: s.cfg.HiveWaveAmount,
		})
	}
}
