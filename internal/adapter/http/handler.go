// Package httpadapter serves the read-mostly operator API of a running host.
package httpadapter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"bloomkeepers/internal/app/persist"
	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/session"
	"bloomkeepers/internal/app/simulation"
	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const defaultQueryTimeout = 2 * time.Second

var (
	ErrInvalidChunkCoord = errors.New("invalid chunk coordinate")
	ErrMissingWorldID    = errors.New("missing world id")
	ErrActiveWorld       = errors.New("cannot delete the world being hosted")
)

type SessionReader interface {
	Query(ctx context.Context, fn func(v session.View)) error
}

type SaveCatalog interface {
	List(ctx context.Context) ([]ports.SaveSummary, error)
	Delete(ctx context.Context, worldID string) error
}

type ChunkSource interface {
	Chunk(ctx context.Context, coord world.ChunkCoord) (world.Chunk, error)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

type Handler struct {
	Session      SessionReader
	Saves        SaveCatalog
	Chunks       ChunkSource
	KPI          kpiSnapshotProvider
	ActiveWorld  string
	QueryTimeout time.Duration
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())
	ops := s.Group("/ops")
	ops.GET("/session", h.session)
	ops.GET("/roster", h.roster)
	ops.GET("/world", h.world)
	ops.GET("/hostiles", h.hostiles)
	ops.GET("/chunk", h.chunk)
	ops.GET("/saves", h.saves)
	ops.DELETE("/saves/:id", h.deleteSave)
	ops.GET("/kpi", h.kpi)
}

type saveResponse struct {
	WorldID      string    `json:"world_id"`
	Seed         string    `json:"seed"`
	HostNickname string    `json:"host_nickname"`
	HostLevel    int       `json:"host_level"`
	HasPassword  bool      `json:"has_password"`
	SavedAt      time.Time `json:"saved_at"`
}

func (h Handler) query(c context.Context, fn func(v session.View)) error {
	if h.Session == nil {
		return errNotConfigured
	}
	timeout := h.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(c, timeout)
	defer cancel()
	return h.Session.Query(qctx, fn)
}

func (h Handler) session(c context.Context, ctx *app.RequestContext) {
	var out session.Status
	if err := h.query(c, func(v session.View) { out = v.Status() }); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, out)
}

func (h Handler) roster(c context.Context, ctx *app.RequestContext) {
	var out []session.Member
	if err := h.query(c, func(v session.View) { out = v.Members() }); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"members": out})
}

func (h Handler) world(c context.Context, ctx *app.RequestContext) {
	var out overlay.Snapshot
	if err := h.query(c, func(v session.View) { out = v.Snapshot() }); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, out)
}

func (h Handler) hostiles(c context.Context, ctx *app.RequestContext) {
	var out []simulation.Hostile
	if err := h.query(c, func(v session.View) { out = v.Hostiles() }); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"hostiles": out})
}

// chunk serves generated terrain with the live overlay applied on top.
func (h Handler) chunk(c context.Context, ctx *app.RequestContext) {
	if h.Chunks == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "chunk source not configured")
		return
	}
	coord, err := parseChunkCoord(string(ctx.Query("x")), string(ctx.Query("y")))
	if err != nil {
		writeError(ctx, err)
		return
	}
	base, err := h.Chunks.Chunk(c, coord)
	if err != nil {
		writeError(ctx, err)
		return
	}
	out := base
	if h.Session != nil {
		if err := h.query(c, func(v session.View) { out = v.Overlaid(base) }); err != nil {
			writeError(ctx, err)
			return
		}
	}
	ctx.JSON(consts.StatusOK, out)
}

func (h Handler) saves(c context.Context, ctx *app.RequestContext) {
	if h.Saves == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "save catalog not configured")
		return
	}
	list, err := h.Saves.List(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	out := make([]saveResponse, 0, len(list))
	for _, s := range list {
		out = append(out, saveResponse{
			WorldID:      s.WorldID,
			Seed:         s.Seed,
			HostNickname: s.HostNickname,
			HostLevel:    s.HostLevel,
			HasPassword:  s.HasPassword,
			SavedAt:      s.SavedAt,
		})
	}
	ctx.JSON(consts.StatusOK, map[string]any{"saves": out})
}

func (h Handler) deleteSave(c context.Context, ctx *app.RequestContext) {
	if h.Saves == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "save catalog not configured")
		return
	}
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		writeError(ctx, ErrMissingWorldID)
		return
	}
	if id == h.ActiveWorld {
		writeError(ctx, ErrActiveWorld)
		return
	}
	if err := h.Saves.Delete(c, id); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func parseChunkCoord(rawX, rawY string) (world.ChunkCoord, error) {
	x, err := strconv.Atoi(strings.TrimSpace(rawX))
	if err != nil {
		return world.ChunkCoord{}, ErrInvalidChunkCoord
	}
	y, err := strconv.Atoi(strings.TrimSpace(rawY))
	if err != nil {
		return world.ChunkCoord{}, ErrInvalidChunkCoord
	}
	return world.ChunkCoord{X: x, Y: y}, nil
}

var errNotConfigured = errors.New("session not configured")

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ErrInvalidChunkCoord),
		errors.Is(err, ErrMissingWorldID):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ErrActiveWorld):
		writeErrorBody(ctx, consts.StatusConflict, "world_active", err.Error())
	case errors.Is(err, errNotConfigured):
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", err.Error())
	case errors.Is(err, session.ErrClosed):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "session_closed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "session_busy", "session did not answer in time")
	case errors.Is(err, persist.ErrCorruptSave):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "corrupt_save", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
