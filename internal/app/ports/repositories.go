package ports

import (
	"context"
	"time"
)

type SaveSlot string

const (
	SlotCurrent SaveSlot = "current"
	SlotBackup  SaveSlot = "backup"
)

type SaveRecord struct {
	WorldID      string
	Slot         SaveSlot
	Seed         string
	Password     string
	HostNickname string
	HostLevel    int
	Payload      []byte
	Checksum     []byte
	SavedAt      time.Time
}

type SaveSummary struct {
	WorldID      string
	Seed         string
	HostNickname string
	HostLevel    int
	HasPassword  bool
	SavedAt      time.Time
}

type WorldSaveRepository interface {
	Get(ctx context.Context, worldID string, slot SaveSlot) (SaveRecord, error)
	Put(ctx context.Context, rec SaveRecord) error
	List(ctx context.Context) ([]SaveSummary, error)
	Delete(ctx context.Context, worldID string) error
}

type MemberStatsRecord struct {
	WorldID    string
	Nickname   string
	Level      int
	XP         int
	HP         int
	MaxHP      int
	TilesCured int
	UpdatedAt  time.Time
}

type MemberStatsRepository interface {
	Upsert(ctx context.Context, rows []MemberStatsRecord) error
	ListByWorld(ctx context.Context, worldID string) ([]MemberStatsRecord, error)
	DeleteByWorld(ctx context.Context, worldID string) error
}
