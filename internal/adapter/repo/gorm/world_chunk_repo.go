package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bloomkeepers/internal/adapter/repo/gorm/model"
	"bloomkeepers/internal/domain/world"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorldChunkRepo caches generated base chunks per world seed.
type WorldChunkRepo struct {
	db *gorm.DB
}

func NewWorldChunkRepo(db *gorm.DB) WorldChunkRepo {
	return WorldChunkRepo{db: db}
}

func (r WorldChunkRepo) GetChunk(ctx context.Context, seed string, coord world.ChunkCoord) (world.Chunk, bool, error) {
	var row model.WorldChunk
	err := dbFor(ctx, r.db).
		Where(map[string]any{
			"seed":    seed,
			"chunk_x": int32(coord.X),
			"chunk_y": int32(coord.Y),
		}).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return world.Chunk{}, false, nil
		}
		return world.Chunk{}, false, err
	}
	tiles, err := decodeChunkTiles(row.Tiles)
	if err != nil {
		return world.Chunk{}, false, err
	}
	return world.Chunk{Coord: coord, Tiles: tiles}, true, nil
}

func (r WorldChunkRepo) SaveChunk(ctx context.Context, seed string, coord world.ChunkCoord, chunk world.Chunk) error {
	b, err := encodeChunkTiles(chunk.Tiles)
	if err != nil {
		return err
	}
	row := model.WorldChunk{
		Seed:      seed,
		ChunkX:    int32(coord.X),
		ChunkY:    int32(coord.Y),
		Tiles:     b,
		UpdatedAt: time.Now().UTC(),
	}
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seed"}, {Name: "chunk_x"}, {Name: "chunk_y"}},
		DoUpdates: clause.AssignmentColumns([]string{"tiles", "updated_at"}),
	}).Create(&row).Error
}

func encodeChunkTiles(tiles []world.Tile) ([]byte, error) {
	return json.Marshal(tiles)
}

func decodeChunkTiles(data []byte) ([]world.Tile, error) {
	out := []world.Tile{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
