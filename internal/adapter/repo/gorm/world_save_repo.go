package gormrepo

import (
	"context"
	"errors"

	"bloomkeepers/internal/adapter/repo/gorm/model"
	"bloomkeepers/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorldSaveRepo struct {
	db *gorm.DB
}

func NewWorldSaveRepo(db *gorm.DB) WorldSaveRepo {
	return WorldSaveRepo{db: db}
}

func (r WorldSaveRepo) Get(ctx context.Context, worldID string, slot ports.SaveSlot) (ports.SaveRecord, error) {
	var row model.WorldSave
	err := dbFor(ctx, r.db).
		Where("world_id = ? AND slot = ?", worldID, string(slot)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.SaveRecord{}, ports.ErrNotFound
		}
		return ports.SaveRecord{}, err
	}
	return ports.SaveRecord{
		WorldID:      row.WorldID,
		Slot:         ports.SaveSlot(row.Slot),
		Seed:         row.Seed,
		Password:     row.Password,
		HostNickname: row.HostNickname,
		HostLevel:    int(row.HostLevel),
		Payload:      row.Payload,
		Checksum:     row.Checksum,
		SavedAt:      row.SavedAt.UTC(),
	}, nil
}

func (r WorldSaveRepo) Put(ctx context.Context, rec ports.SaveRecord) error {
	row := model.WorldSave{
		WorldID:      rec.WorldID,
		Slot:         string(rec.Slot),
		Seed:         rec.Seed,
		Password:     rec.Password,
		HostNickname: rec.HostNickname,
		HostLevel:    int32(rec.HostLevel),
		Payload:      rec.Payload,
		Checksum:     rec.Checksum,
		SavedAt:      rec.SavedAt.UTC(),
	}
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "world_id"}, {Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"seed", "password", "host_nickname", "host_level", "payload", "checksum", "saved_at"}),
	}).Create(&row).Error
}

// List summarizes the current slot of every world, newest first.
func (r WorldSaveRepo) List(ctx context.Context) ([]ports.SaveSummary, error) {
	var rows []model.WorldSave
	err := dbFor(ctx, r.db).
		Select("world_id", "slot", "seed", "password", "host_nickname", "host_level", "saved_at").
		Where("slot = ?", string(ports.SlotCurrent)).
		Order("saved_at DESC").
		Order("world_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.SaveSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.SaveSummary{
			WorldID:      row.WorldID,
			Seed:         row.Seed,
			HostNickname: row.HostNickname,
			HostLevel:    int(row.HostLevel),
			HasPassword:  row.Password != "",
			SavedAt:      row.SavedAt.UTC(),
		})
	}
	return out, nil
}

func (r WorldSaveRepo) Delete(ctx context.Context, worldID string) error {
	res := dbFor(ctx, r.db).Where("world_id = ?", worldID).Delete(&model.WorldSave{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
