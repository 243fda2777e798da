package ports

import "bloomkeepers/internal/domain/world"

// WorldGenerator is the deterministic base terrain for a seed.
type WorldGenerator interface {
	TileAt(x, y int) world.TileType
	HiveLocations() []world.Point
}
