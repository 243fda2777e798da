package world

import "errors"

type TileType string

const (
	TileBurntGround    TileType = "burnt_ground"
	TileDryGrass       TileType = "dry_grass"
	TileWildFlower     TileType = "wild_flower"
	TileGrass          TileType = "grass"
	TileSprout         TileType = "sprout"
	TileSapling        TileType = "sapling"
	TileFlower         TileType = "flower"
	TileFlowerCooldown TileType = "flower_cooldown"
	TileSafeGrass      TileType = "safe_grass"
	TileHive           TileType = "hive"
)

var ErrUnknownTileType = errors.New("unknown tile type")

var knownTiles = map[TileType]struct{}{
	TileBurntGround:    {},
	TileDryGrass:       {},
	TileWildFlower:     {},
	TileGrass:          {},
	TileSprout:         {},
	TileSapling:        {},
	TileFlower:         {},
	TileFlowerCooldown: {},
	TileSafeGrass:      {},
	TileHive:           {},
}

func (t TileType) Validate() error {
	if _, ok := knownTiles[t]; !ok {
		return ErrUnknownTileType
	}
	return nil
}

// Growable reports whether a tile in this state carries a growth timer.
func (t TileType) Growable() bool {
	switch t {
	case TileGrass, TileSprout, TileSapling, TileFlower, TileFlowerCooldown:
		return true
	}
	return false
}

func (t TileType) Hazardous() bool {
	return t == TileBurntGround
}

type Tile struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Type TileType `json:"type"`
}
