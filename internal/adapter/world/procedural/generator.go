// Package procedural derives base terrain from a world seed. The same seed
// always yields the same tiles, so only overrides need to be stored.
package procedural

import (
	"context"
	"encoding/binary"
	"math"

	"bloomkeepers/internal/domain/world"

	"lukechampine.com/blake3"
)

type Config struct {
	Seed           string
	Size           int
	ChunkSize      int
	SafeRadius     float64
	HiveRingRadius float64
	HiveRingCount  int
	FlowerAbove    float64
	DryGrassAbove  float64
	ChunkStore     ChunkStore
}

// ChunkStore caches generated chunks per seed.
type ChunkStore interface {
	GetChunk(ctx context.Context, seed string, coord world.ChunkCoord) (world.Chunk, bool, error)
	SaveChunk(ctx context.Context, seed string, coord world.ChunkCoord, chunk world.Chunk) error
}

func DefaultConfig() Config {
	return Config{
		Size:           world.DefaultWorldSize,
		ChunkSize:      world.DefaultChunkSize,
		SafeRadius:     3,
		HiveRingRadius: 80,
		HiveRingCount:  7,
		FlowerAbove:    0.98,
		DryGrassAbove:  0.80,
	}
}

type Generator struct {
	cfg   Config
	torus world.Torus
	salt  uint64
	hives []world.Point
}

func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.SafeRadius <= 0 {
		cfg.SafeRadius = def.SafeRadius
	}
	if cfg.HiveRingRadius <= 0 {
		cfg.HiveRingRadius = def.HiveRingRadius
	}
	if cfg.HiveRingCount < 0 {
		cfg.HiveRingCount = 0
	} else if cfg.HiveRingCount == 0 {
		cfg.HiveRingCount = def.HiveRingCount
	}
	if cfg.FlowerAbove <= 0 {
		cfg.FlowerAbove = def.FlowerAbove
	}
	if cfg.DryGrassAbove <= 0 {
		cfg.DryGrassAbove = def.DryGrassAbove
	}
	g := &Generator{
		cfg:   cfg,
		torus: world.NewTorus(cfg.Size),
		salt:  seedSalt(cfg.Seed),
	}
	g.hives = g.placeHives()
	return g
}

func (g *Generator) Seed() string {
	return g.cfg.Seed
}

// HiveLocations lists the origin hive first, then the spawn ring in order.
func (g *Generator) HiveLocations() []world.Point {
	out := make([]world.Point, len(g.hives))
	copy(out, g.hives)
	return out
}

func (g *Generator) TileAt(x, y int) world.TileType {
	p := g.torus.WrapPoint(world.Point{X: x, Y: y})
	safeSq := g.cfg.SafeRadius * g.cfg.SafeRadius
	for _, h := range g.hives {
		if h == p {
			return world.TileHive
		}
		if g.torus.DistanceSquared(float64(p.X), float64(p.Y), float64(h.X), float64(h.Y)) < safeSq {
			return world.TileGrass
		}
	}

	v := g.noise(p.X, p.Y)
	switch {
	case v > g.cfg.FlowerAbove:
		return world.TileWildFlower
	case v > g.cfg.DryGrassAbove:
		return world.TileDryGrass
	default:
		return world.TileBurntGround
	}
}

// Chunk returns the base tiles of one chunk, reading through the store when
// one is configured.
func (g *Generator) Chunk(ctx context.Context, coord world.ChunkCoord) (world.Chunk, error) {
	if g.cfg.ChunkStore != nil {
		cached, ok, err := g.cfg.ChunkStore.GetChunk(ctx, g.cfg.Seed, coord)
		if err != nil {
			return world.Chunk{}, err
		}
		if ok {
			return cached, nil
		}
	}
	chunk := g.generateChunk(coord)
	if g.cfg.ChunkStore != nil {
		if err := g.cfg.ChunkStore.SaveChunk(ctx, g.cfg.Seed, coord, chunk); err != nil {
			return world.Chunk{}, err
		}
	}
	return chunk, nil
}

func (g *Generator) ChunkSize() int {
	return g.cfg.ChunkSize
}

func (g *Generator) generateChunk(coord world.ChunkCoord) world.Chunk {
	size := g.cfg.ChunkSize
	tiles := make([]world.Tile, 0, size*size)
	baseX := coord.X * size
	baseY := coord.Y * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			tiles = append(tiles, world.Tile{X: baseX + x, Y: baseY + y, Type: g.TileAt(baseX+x, baseY+y)})
		}
	}
	return world.Chunk{Coord: coord, Tiles: tiles}
}

func (g *Generator) placeHives() []world.Point {
	hives := []world.Point{{X: 0, Y: 0}}
	n := g.cfg.HiveRingCount
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		x := int(math.Round(math.Cos(angle) * g.cfg.HiveRingRadius))
		y := int(math.Round(math.Sin(angle) * g.cfg.HiveRingRadius))
		hives = append(hives, g.torus.WrapPoint(world.Point{X: x, Y: y}))
	}
	return hives
}

// noise maps a coordinate to [0, 1) using the seed salt.
func (g *Generator) noise(x, y int) float64 {
	v := mix(g.salt ^ uint64(tileSeed(x, y)))
	return float64(v>>11) / (1 << 53)
}

func seedSalt(seed string) uint64 {
	sum := blake3.Sum256([]byte(seed))
	return binary.LittleEndian.Uint64(sum[:8])
}

func tileSeed(x, y int) int {
	v := x*73856093 ^ y*19349663
	if v < 0 {
		v = -v
	}
	return v
}

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
