package simulation

import (
	"time"

	"bloomkeepers/internal/domain/world"
)

// SpreadTask is one planned cure. It is consumed once.
type SpreadTask struct {
	Target world.Point
	Depth  int
	Delay  time.Duration
}

// PlanSpread walks breadth-first from a source over at most SpreadMaxTiles
// cells within SpreadDepth steps, visiting neighbours in a random order so
// the shape looks organic. Cells currently hazardous become tasks whose delay
// grows with their distance from the source.
func (s *HostSimulation) PlanSpread(source world.Point) []SpreadTask {
	type node struct {
		p     world.Point
		depth int
	}
	torus := s.overlay.Torus()
	source = torus.WrapPoint(source)
	visited := map[world.Point]bool{source: true}
	queue := []node{{p: source}}
	shape := 0
	var tasks []SpreadTask

	for len(queue) > 0 && shape < s.cfg.SpreadMaxTiles {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= s.cfg.SpreadDepth {
			continue
		}
		neighbors := torus.Neighbors(cur.p)
		s.rng.Shuffle(len(neighbors), func(i, j int) {
			neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
		})
		for _, nb := range neighbors {
			if visited[nb] || shape >= s.cfg.SpreadMaxTiles {
				continue
			}
			visited[nb] = true
			shape++
			next := node{p: nb, depth: cur.depth + 1}
			queue = append(queue, next)
			if s.effective(nb).Hazardous() {
				tasks = append(tasks, SpreadTask{
					Target: nb,
					Depth:  next.depth,
					Delay:  time.Duration(next.depth) * s.cfg.SpreadStep,
				})
			}
		}
	}
	return tasks
}
