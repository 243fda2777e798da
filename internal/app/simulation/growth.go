package simulation

import (
	"errors"
	"time"

	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"
)

var (
	ErrTileNotAllowed = errors.New("tile change not allowed")
	ErrNotHarvestable = errors.New("tile is not a mature flower")
)

// nextStage returns the stage a tile moves to once enough time has passed
// since its timer started. Only one stage is taken per call.
func (s *HostSimulation) nextStage(cur world.TileType, sinceStart time.Duration) (world.TileType, bool) {
	switch {
	case cur == world.TileGrass && sinceStart > s.cfg.SproutAfter:
		return world.TileSprout, true
	case cur == world.TileSprout && sinceStart > s.cfg.SaplingAfter:
		return world.TileSapling, true
	case cur == world.TileSapling && sinceStart > s.cfg.FlowerAfter:
		return world.TileFlower, true
	case cur == world.TileFlowerCooldown && sinceStart > s.cfg.CooldownAfter:
		return world.TileFlower, true
	}
	return "", false
}

func (s *HostSimulation) advanceGrowth(now time.Time) bool {
	changed := false
	for _, p := range s.overlay.GrowthPoints() {
		timer, ok := s.overlay.Timer(p.X, p.Y)
		if !ok {
			continue
		}
		cur, ok := s.overlay.Tile(p.X, p.Y)
		if !ok || !cur.Growable() {
			s.overlay.RemoveGrowthTimer(p.X, p.Y)
			continue
		}
		if next, ok := s.nextStage(cur, now.Sub(timer.StartedAt)); ok {
			if s.changeTile(p.X, p.Y, next, timer.OwnerID) {
				changed = true
			}
		}
		if cur == world.TileFlower && now.Sub(timer.LastHealAt) >= s.cfg.HealInterval {
			s.pulse(p, timer.OwnerID, now)
		}
	}
	return changed
}

// pulse heals members around a mature flower and starts its organic spread.
func (s *HostSimulation) pulse(at world.Point, ownerID string, now time.Time) {
	s.overlay.MarkHealed(at.X, at.Y, now)
	s.out.Broadcast(&protocol.WaveSpawn{
		X:      float64(at.X),
		Y:      float64(at.Y),
		Radius: s.cfg.HealWaveRadius,
		Color:  s.cfg.HealWaveColor,
		Amount: s.cfg.HealAmount,
	})

	torus := s.overlay.Torus()
	radiusSq := s.cfg.HealRadius * s.cfg.HealRadius
	healed := 0
	for _, m := range s.roster.Alive() {
		if m.Stats.HP >= m.Stats.MaxHP {
			continue
		}
		if torus.DistanceSquared(m.X, m.Y, float64(at.X), float64(at.Y)) > radiusSq {
			continue
		}
		if m.Host {
			_, _ = s.roster.Heal(m.ID, s.cfg.HealAmount)
		} else if err := s.out.SendTo(m.ID, &protocol.PlayerHeal{Amount: s.cfg.HealAmount}); err != nil {
			continue
		}
		healed++
		s.metrics.RecordHeal()
	}
	if healed > 0 && ownerID != "" {
		if _, err := s.roster.GainXP(ownerID, s.cfg.PassiveXP); err == nil {
			s.onProgress()
		}
	}

	for _, task := range s.PlanSpread(at) {
		target := task.Target
		s.sched.Schedule(now.Add(task.Delay), func() { s.applyCure(target, ownerID) })
	}
}

// applyCure runs when a spread task comes due. The target may have changed
// since it was planned, so it is checked again.
func (s *HostSimulation) applyCure(p world.Point, ownerID string) {
	if !s.effective(p).Hazardous() {
		return
	}
	if !s.changeTile(p.X, p.Y, world.TileSafeGrass, ownerID) {
		return
	}
	s.metrics.RecordCure()
	if ownerID != "" {
		s.out.Broadcast(&protocol.FlowerCure{OwnerID: ownerID, X: p.X, Y: p.Y})
		if err := s.roster.RecordCure(ownerID); err == nil {
			_, _ = s.roster.GainXP(ownerID, s.cfg.PassiveXP)
		}
	}
	s.onProgress()
}

// ApplyTileChange validates and applies a member's tile request. Planting
// starts a growth timer owned by the member, harvesting restarts it.
func (s *HostSimulation) ApplyTileChange(from string, x, y int, t world.TileType) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	switch t {
	case world.TileHive, world.TileSprout, world.TileSapling, world.TileFlower:
		return false, ErrTileNotAllowed
	case world.TileFlowerCooldown:
		if cur, ok := s.overlay.Tile(x, y); !ok || cur != world.TileFlower {
			return false, ErrNotHarvestable
		}
	}

	changed := s.overlay.SetTile(x, y, t)
	switch t {
	case world.TileGrass:
		s.overlay.AddGrowthTimer(x, y, from)
	case world.TileFlowerCooldown:
		s.overlay.ResetGrowthTimer(x, y)
	}
	if changed {
		s.onProgress()
	}
	return changed, nil
}
