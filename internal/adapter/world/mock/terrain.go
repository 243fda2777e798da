package mock

import "bloomkeepers/internal/domain/world"

// Terrain is a flat world of one tile type with overrides at fixed points.
type Terrain struct {
	Base  world.TileType
	Tiles map[world.Point]world.TileType
	Hives []world.Point
}

func (t Terrain) TileAt(x, y int) world.TileType {
	if tt, ok := t.Tiles[world.Point{X: x, Y: y}]; ok {
		return tt
	}
	for _, h := range t.HiveLocations() {
		if h.X == x && h.Y == y {
			return world.TileHive
		}
	}
	if t.Base == "" {
		return world.TileBurntGround
	}
	return t.Base
}

func (t Terrain) HiveLocations() []world.Point {
	if len(t.Hives) == 0 {
		return []world.Point{{}}
	}
	return t.Hives
}
