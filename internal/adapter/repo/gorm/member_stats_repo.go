package gormrepo

import (
	"context"

	"bloomkeepers/internal/adapter/repo/gorm/model"
	"bloomkeepers/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberStatsRepo struct {
	db *gorm.DB
}

func NewMemberStatsRepo(db *gorm.DB) MemberStatsRepo {
	return MemberStatsRepo{db: db}
}

func (r MemberStatsRepo) Upsert(ctx context.Context, rows []ports.MemberStatsRecord) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]model.MemberStat, 0, len(rows))
	for _, row := range rows {
		models = append(models, model.MemberStat{
			WorldID:    row.WorldID,
			Nickname:   row.Nickname,
			Level:      int32(row.Level),
			Xp:         int32(row.XP),
			Hp:         int32(row.HP),
			MaxHp:      int32(row.MaxHP),
			TilesCured: int32(row.TilesCured),
			UpdatedAt:  row.UpdatedAt.UTC(),
		})
	}
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "world_id"}, {Name: "nickname"}},
		DoUpdates: clause.AssignmentColumns([]string{"level", "xp", "hp", "max_hp", "tiles_cured", "updated_at"}),
	}).Create(&models).Error
}

func (r MemberStatsRepo) ListByWorld(ctx context.Context, worldID string) ([]ports.MemberStatsRecord, error) {
	var rows []model.MemberStat
	if err := dbFor(ctx, r.db).Where("world_id = ?", worldID).Order("nickname").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.MemberStatsRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.MemberStatsRecord{
			WorldID:    row.WorldID,
			Nickname:   row.Nickname,
			Level:      int(row.Level),
			XP:         int(row.Xp),
			HP:         int(row.Hp),
			MaxHP:      int(row.MaxHp),
			TilesCured: int(row.TilesCured),
			UpdatedAt:  row.UpdatedAt.UTC(),
		})
	}
	return out, nil
}

func (r MemberStatsRepo) DeleteByWorld(ctx context.Context, worldID string) error {
	return dbFor(ctx, r.db).Where("world_id = ?", worldID).Delete(&model.MemberStat{}).Error
}
