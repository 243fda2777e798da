// Package persist saves and restores a room's world through the repository
// ports. Saves rotate through a current and a backup slot.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/roster"
	"bloomkeepers/internal/app/simulation"
	"bloomkeepers/internal/domain/overlay"

	"github.com/rs/zerolog"
)

const stateVersion = 1

// WorldState is everything a room needs to resume.
type WorldState struct {
	Version int                     `json:"version"`
	World   overlay.Snapshot        `json:"world"`
	Book    map[string]roster.Stats `json:"book,omitempty"`
	Hives   map[string]int          `json:"hives,omitempty"`
	Horde   simulation.HordeState   `json:"horde"`
}

type Meta struct {
	Seed         string
	Password     string
	HostNickname string
	HostLevel    int
}

type Save struct {
	WorldID    string
	Meta       Meta
	State      WorldState
	SavedAt    time.Time
	FromBackup bool
}

type Config struct {
	Now func() time.Time
}

type Deps struct {
	Saves  ports.WorldSaveRepository
	Stats  ports.MemberStatsRepository
	Tx     ports.TxManager
	Logger zerolog.Logger
}

type Service struct {
	saves ports.WorldSaveRepository
	stats ports.MemberStatsRepository
	tx    ports.TxManager
	now   func() time.Time
	log   zerolog.Logger
}

func New(cfg Config, deps Deps) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		saves: deps.Saves,
		stats: deps.Stats,
		tx:    deps.Tx,
		now:   cfg.Now,
		log:   deps.Logger.With().Str("component", "persist").Logger(),
	}
}

// Save writes a new current slot and moves the previous one to backup. A
// world id already holding a different seed is a conflict.
func (s *Service) Save(ctx context.Context, worldID string, meta Meta, state WorldState) error {
	if worldID == "" {
		return errors.New("save: empty world id")
	}
	state.Version = stateVersion
	payload, checksum, err := encode(state)
	if err != nil {
		return err
	}
	savedAt := s.now().UTC()

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		prev, err := s.saves.Get(ctx, worldID, ports.SlotCurrent)
		switch {
		case err == nil:
			if prev.Seed != meta.Seed {
				return fmt.Errorf("save %s: seed %q already stored: %w", worldID, prev.Seed, ports.ErrConflict)
			}
			prev.Slot = ports.SlotBackup
			if err := s.saves.Put(ctx, prev); err != nil {
				return fmt.Errorf("rotate backup: %w", err)
			}
		case !errors.Is(err, ports.ErrNotFound):
			return fmt.Errorf("read current save: %w", err)
		}

		rec := ports.SaveRecord{
			WorldID:      worldID,
			Slot:         ports.SlotCurrent,
			Seed:         meta.Seed,
			Password:     meta.Password,
			HostNickname: meta.HostNickname,
			HostLevel:    meta.HostLevel,
			Payload:      payload,
			Checksum:     checksum,
			SavedAt:      savedAt,
		}
		if err := s.saves.Put(ctx, rec); err != nil {
			return fmt.Errorf("write current save: %w", err)
		}
		if s.stats == nil || len(state.Book) == 0 {
			return nil
		}
		return s.stats.Upsert(ctx, statsRows(worldID, state.Book, savedAt))
	})
}

// Load returns the current save, falling back to the backup slot when the
// current one fails its checksum. Member stats stored outside the payload
// fill nicknames the payload does not know.
func (s *Service) Load(ctx context.Context, worldID string) (Save, error) {
	var out Save
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.saves.Get(ctx, worldID, ports.SlotCurrent)
		if err != nil {
			return err
		}
		state, decodeErr := decode(rec.Payload, rec.Checksum)
		fromBackup := false
		if decodeErr != nil {
			s.log.Warn().Err(decodeErr).Str("world", worldID).Msg("current save unreadable, trying backup")
			backup, err := s.saves.Get(ctx, worldID, ports.SlotBackup)
			if err != nil {
				return decodeErr
			}
			if state, err = decode(backup.Payload, backup.Checksum); err != nil {
				return err
			}
			rec, fromBackup = backup, true
		}

		if s.stats != nil {
			rows, err := s.stats.ListByWorld(ctx, worldID)
			if err != nil {
				return fmt.Errorf("list member stats: %w", err)
			}
			state.Book = mergeRows(state.Book, rows)
		}

		out = Save{
			WorldID: worldID,
			Meta: Meta{
				Seed:         rec.Seed,
				Password:     rec.Password,
				HostNickname: rec.HostNickname,
				HostLevel:    rec.HostLevel,
			},
			State:      state,
			SavedAt:    rec.SavedAt,
			FromBackup: fromBackup,
		}
		return nil
	})
	if err != nil {
		return Save{}, err
	}
	return out, nil
}

// List returns save summaries, newest first.
func (s *Service) List(ctx context.Context) ([]ports.SaveSummary, error) {
	var out []ports.SaveSummary
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.saves.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (s *Service) Delete(ctx context.Context, worldID string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.saves.Delete(ctx, worldID); err != nil {
			return err
		}
		if s.stats == nil {
			return nil
		}
		return s.stats.DeleteByWorld(ctx, worldID)
	})
}

func statsRows(worldID string, book map[string]roster.Stats, at time.Time) []ports.MemberStatsRecord {
	rows := make([]ports.MemberStatsRecord, 0, len(book))
	for nick, st := range book {
		rows = append(rows, ports.MemberStatsRecord{
			WorldID:    worldID,
			Nickname:   nick,
			Level:      st.Level,
			XP:         st.XP,
			HP:         st.HP,
			MaxHP:      st.MaxHP,
			TilesCured: st.TilesCured,
			UpdatedAt:  at,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Nickname < rows[j].Nickname })
	return rows
}

func mergeRows(book map[string]roster.Stats, rows []ports.MemberStatsRecord) map[string]roster.Stats {
	if book == nil && len(rows) > 0 {
		book = make(map[string]roster.Stats, len(rows))
	}
	for _, row := range rows {
		if _, ok := book[row.Nickname]; ok {
			continue
		}
		book[row.Nickname] = roster.Stats{
			Level:      row.Level,
			XP:         row.XP,
			HP:         row.HP,
			MaxHP:      row.MaxHP,
			TilesCured: row.TilesCured,
		}
	}
	return book
}
