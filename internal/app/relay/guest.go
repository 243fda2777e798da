package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"bloomkeepers/internal/domain/overlay"
	"bloomkeepers/internal/domain/world"
	"bloomkeepers/internal/protocol"

	"github.com/rs/zerolog"
)

type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusAuthenticated
	StatusRejected
	StatusFailed
	StatusHostLost
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	case StatusHostLost:
		return "host_lost"
	}
	return "unknown"
}

type StatusFunc func(s Status, detail string)

// FrameHandler receives every frame the host sends after it updated the replica.
type FrameHandler func(f protocol.Frame)

type GuestConfig struct {
	Nickname  string
	Password  string
	WorldSize int
	Now       func() time.Time
}

type GuestDeps struct {
	Dialer  Dialer
	Handler FrameHandler
	Status  StatusFunc
	Logger  zerolog.Logger
}

// Guest holds the single connection to a host and a read-only replica of the
// host's overlay. Replica accessors are safe to call from other goroutines.
type Guest struct {
	cfg  GuestConfig
	deps GuestDeps
	log  zerolog.Logger

	mu            sync.RWMutex
	conn          ClientConn
	authenticated bool
	selfID        string
	hostID        string
	seed          string
	hiveIndex     int
	self          *protocol.Stats
	replica       *overlay.Overlay
	remotes       map[string]protocol.Move
	peers         map[string]struct{}
}

func NewGuest(cfg GuestConfig, deps GuestDeps) *Guest {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Handler == nil {
		deps.Handler = func(protocol.Frame) {}
	}
	if deps.Status == nil {
		deps.Status = func(Status, string) {}
	}
	return &Guest{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger.With().Str("component", "guest").Logger(),
		replica: overlay.New(overlay.Config{Size: cfg.WorldSize, Now: cfg.Now}),
		remotes: map[string]protocol.Move{},
		peers:   map[string]struct{}{},
	}
}

// Run connects, authenticates and processes host traffic until the context
// ends or the session is over. Losing the host after authentication returns
// ErrHostLost; the session cannot be resumed.
func (g *Guest) Run(ctx context.Context) error {
	g.deps.Status(StatusConnecting, "")
	conn, err := g.deps.Dialer.Dial(ctx)
	if err != nil {
		g.deps.Status(StatusFailed, err.Error())
		return fmt.Errorf("%w: %v", ErrDial, err)
	}
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	defer conn.Close()
	g.deps.Status(StatusConnected, "")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	hello, err := protocol.Encode(&protocol.AuthRequest{Password: g.cfg.Password, Nickname: g.cfg.Nickname}, nil, "")
	if err != nil {
		return err
	}
	if err := conn.Send(hello); err != nil {
		g.deps.Status(StatusFailed, err.Error())
		return fmt.Errorf("%w: send handshake: %v", ErrDial, err)
	}

	for {
		data, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if g.Authenticated() {
				g.markLost()
				g.deps.Status(StatusHostLost, err.Error())
				return fmt.Errorf("%w: %v", ErrHostLost, err)
			}
			g.deps.Status(StatusFailed, err.Error())
			return fmt.Errorf("%w: closed during handshake: %v", ErrDial, err)
		}
		f, err := protocol.Decode(data)
		if err != nil {
			g.log.Debug().Err(err).Msg("dropping undecodable frame")
			continue
		}
		note, err := g.apply(f)
		if note != nil {
			g.deps.Status(note.status, note.detail)
		}
		if err != nil {
			return err
		}
		g.deps.Handler(f)
	}
}

type statusNote struct {
	status Status
	detail string
}

// apply folds a host frame into the replica. Status changes are returned so
// the callback runs without the lock held.
func (g *Guest) apply(f protocol.Frame) (*statusNote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch m := f.Msg.(type) {
	case *protocol.AuthSuccess:
		g.authenticated = true
		g.selfID = m.SelfID
		g.hostID = m.HostID
		g.seed = m.Seed
		g.hiveIndex = m.HiveIndex
		g.self = m.PlayerData
		g.replica.Restore(m.WorldState)
		g.peers = make(map[string]struct{}, len(m.Peers))
		for _, id := range m.Peers {
			g.peers[id] = struct{}{}
		}
		return &statusNote{status: StatusAuthenticated, detail: m.SelfID}, nil
	case *protocol.AuthFail:
		return &statusNote{status: StatusRejected, detail: m.Reason}, fmt.Errorf("%w: %s", ErrRejected, m.Reason)
	case *protocol.TileChange:
		t := world.TileType(m.TileType)
		if t.Validate() == nil {
			g.replica.SetTile(m.X, m.Y, t)
		}
	case *protocol.TimeSync:
		g.replica.SetWorldTime(time.UnixMilli(m.Time))
	case *protocol.Move:
		if m.ID != "" && m.ID != g.selfID {
			g.remotes[m.ID] = *m
			g.peers[m.ID] = struct{}{}
		}
	case *protocol.PeerDisconnect:
		delete(g.remotes, m.PeerID)
		delete(g.peers, m.PeerID)
	}
	return nil, nil
}

func (g *Guest) markLost() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated = false
	g.conn = nil
}

// Send forwards a message to the host; the host does the fan-out.
func (g *Guest) Send(msg protocol.Message, targets ...string) error {
	g.mu.RLock()
	conn, ok, self := g.conn, g.authenticated, g.selfID
	g.mu.RUnlock()
	if conn == nil || !ok {
		return ErrNotConnected
	}
	data, err := protocol.Encode(msg, protocol.Targets(targets), self)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

func (g *Guest) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

func (g *Guest) SelfID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.selfID
}

func (g *Guest) HostID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hostID
}

func (g *Guest) Seed() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.seed
}

func (g *Guest) HiveIndex() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hiveIndex
}

func (g *Guest) PlayerData() (protocol.Stats, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.self == nil {
		return protocol.Stats{}, false
	}
	return *g.self, true
}

func (g *Guest) Tile(x, y int) (world.TileType, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.replica.Tile(x, y)
}

func (g *Guest) WorldTime() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.replica.WorldTime()
}

func (g *Guest) Replica() overlay.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.replica.Snapshot()
}

func (g *Guest) Peers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.peers))
	for id := range g.peers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *Guest) Remote(id string) (protocol.Move, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.remotes[id]
	return m, ok
}

func IsFatal(err error) bool {
	return errors.Is(err, ErrHostLost) || errors.Is(err, ErrRejected)
}
