package relay

import (
	"sort"
	"strings"
	"time"

	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/protocol"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const reasonBadPassword = "invalid password"

type HostConfig struct {
	HostID      string
	Password    string
	RejectGrace time.Duration
	AuthTimeout time.Duration
	RateLimit   rate.Limit
	RateBurst   int
	Now         func() time.Time
}

func DefaultHostConfig() HostConfig {
	return HostConfig{
		HostID:      "host",
		RejectGrace: 500 * time.Millisecond,
		AuthTimeout: 10 * time.Second,
		RateLimit:   rate.Limit(40),
		RateBurst:   80,
		Now:         time.Now,
	}
}

type HostDeps struct {
	Hooks    Hooks
	Deferrer Deferrer
	Metrics  ports.RelayMetrics
	Logger   zerolog.Logger
}

type peer struct {
	conn          Conn
	authenticated bool
	rejected      bool
	nickname      string
	limiter       *rate.Limiter
	openedAt      time.Time
}

// Host is the routing node of a room. It is not safe for concurrent use:
// every method must be called from the loop that owns the room.
type Host struct {
	cfg      HostConfig
	password digest
	hooks    Hooks
	deferrer Deferrer
	metrics  ports.RelayMetrics
	log      zerolog.Logger
	peers    map[string]*peer
}

func NewHost(cfg HostConfig, deps HostDeps) *Host {
	def := DefaultHostConfig()
	if cfg.HostID == "" {
		cfg.HostID = def.HostID
	}
	if cfg.RejectGrace <= 0 {
		cfg.RejectGrace = def.RejectGrace
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = def.AuthTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRelayMetrics{}
	}
	return &Host{
		cfg:      cfg,
		password: passwordDigest(cfg.Password),
		hooks:    deps.Hooks,
		deferrer: deps.Deferrer,
		metrics:  deps.Metrics,
		log:      deps.Logger.With().Str("component", "relay").Logger(),
		peers:    map[string]*peer{},
	}
}

func (h *Host) ID() string {
	return h.cfg.HostID
}

// Open registers a new unauthenticated connection.
func (h *Host) Open(conn Conn) {
	id := conn.ID()
	if id == "" || id == h.cfg.HostID {
		h.metrics.RecordDropped("bad_conn_id")
		_ = conn.Close()
		return
	}
	if _, exists := h.peers[id]; exists {
		h.metrics.RecordDropped("duplicate_conn_id")
		_ = conn.Close()
		return
	}
	h.peers[id] = &peer{
		conn:     conn,
		limiter:  rate.NewLimiter(h.cfg.RateLimit, h.cfg.RateBurst),
		openedAt: h.cfg.Now(),
	}
	h.log.Debug().Str("peer", id).Msg("connection opened")
	h.deferrer.After(h.cfg.AuthTimeout, func() {
		p, ok := h.peers[id]
		if ok && p.conn == conn && !p.authenticated && !p.rejected {
			h.log.Info().Str("peer", id).Msg("closing connection that never authenticated")
			_ = conn.Close()
		}
	})
}

// Receive handles one inbound payload from a connection.
func (h *Host) Receive(id string, data []byte) {
	p, ok := h.peers[id]
	if !ok || p.rejected {
		h.metrics.RecordDropped("unknown_peer")
		return
	}
	if !p.limiter.Allow() {
		h.metrics.RecordDropped("rate_limited")
		return
	}
	f, err := protocol.Decode(data)
	if err != nil {
		h.metrics.RecordDropped("malformed")
		h.log.Debug().Err(err).Str("peer", id).Msg("dropping undecodable frame")
		return
	}
	if !p.authenticated {
		req, isAuth := f.Msg.(*protocol.AuthRequest)
		if !isAuth {
			h.metrics.RecordDropped("unauthenticated")
			return
		}
		h.handshake(id, p, req)
		return
	}
	kind := f.Msg.Kind()
	if kind.Reserved() {
		h.metrics.RecordDropped("reserved_kind")
		return
	}
	if kind.HostBound() && !f.Broadcast() && !hostOnlyTarget(f.Target, h.cfg.HostID) {
		h.metrics.RecordDropped("host_bound")
		return
	}
	f.From = id
	if s, ok := f.Msg.(protocol.SenderStamped); ok {
		s.StampSender(id)
	}
	h.route(id, f)
}

// Closed is called by the transport once a connection is gone.
func (h *Host) Closed(id string) {
	p, ok := h.peers[id]
	if !ok {
		return
	}
	delete(h.peers, id)
	if !p.authenticated {
		return
	}
	h.log.Info().Str("peer", id).Str("nickname", p.nickname).Msg("member left")
	h.Broadcast(&protocol.PeerDisconnect{PeerID: id})
	h.hooks.Departed(id)
}

func (h *Host) handshake(id string, p *peer, req *protocol.AuthRequest) {
	if h.cfg.Password != "" && !h.password.matches(req.Password) {
		h.metrics.RecordAuth(false)
		h.log.Info().Str("peer", id).Msg("rejected handshake")
		p.rejected = true
		h.send(p, &protocol.AuthFail{Reason: reasonBadPassword}, nil)
		conn := p.conn
		h.deferrer.After(h.cfg.RejectGrace, func() { _ = conn.Close() })
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		nickname = id
	}
	for otherID, other := range h.peers {
		if otherID != id && other.authenticated && other.nickname == nickname {
			h.evict(otherID)
		}
	}

	p.authenticated = true
	p.nickname = nickname
	h.metrics.RecordAuth(true)
	h.log.Info().Str("peer", id).Str("nickname", nickname).Msg("member joined")

	h.hooks.Joined(id, nickname)
	welcome := h.hooks.Welcome(id, nickname)
	welcome.HostID = h.cfg.HostID
	welcome.SelfID = id
	welcome.Peers = h.peerIDs(id)
	h.send(p, welcome, nil)
}

// evict drops a ghost connection superseded by a newer login of the same nickname.
func (h *Host) evict(id string) {
	p, ok := h.peers[id]
	if !ok {
		return
	}
	delete(h.peers, id)
	h.metrics.RecordEviction()
	h.log.Info().Str("peer", id).Str("nickname", p.nickname).Msg("evicting ghost connection")
	_ = p.conn.Close()
	h.Broadcast(&protocol.PeerDisconnect{PeerID: id})
	h.hooks.Departed(id)
}

func (h *Host) route(from string, f protocol.Frame) {
	if f.Broadcast() {
		if !h.hooks.Deliver(from, f) {
			h.metrics.RecordDropped("vetoed")
			return
		}
		data, err := protocol.EncodeFrame(f)
		if err != nil {
			h.log.Error().Err(err).Msg("encode broadcast")
			return
		}
		n := 0
		for _, id := range h.peerIDs(from) {
			if id == h.cfg.HostID {
				continue
			}
			if h.write(h.peers[id], data) {
				n++
			}
		}
		h.metrics.RecordRouted(f.Msg.Kind(), n+1)
		return
	}

	data, err := protocol.EncodeFrame(f)
	if err != nil {
		h.log.Error().Err(err).Msg("encode targeted frame")
		return
	}
	n := 0
	for _, target := range f.Target {
		if target == h.cfg.HostID {
			h.hooks.Deliver(from, f)
			n++
			continue
		}
		p, ok := h.peers[target]
		if !ok || !p.authenticated || target == from {
			continue
		}
		if h.write(p, data) {
			n++
		}
	}
	h.metrics.RecordRouted(f.Msg.Kind(), n)
}

// Broadcast sends a host-originated message to every authenticated member.
func (h *Host) Broadcast(msg protocol.Message) {
	data, err := protocol.Encode(msg, nil, h.cfg.HostID)
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(msg.Kind())).Msg("encode broadcast")
		return
	}
	for _, id := range h.peerIDs("") {
		if id == h.cfg.HostID {
			continue
		}
		h.write(h.peers[id], data)
	}
}

// SendTo sends a host-originated message to one member.
func (h *Host) SendTo(id string, msg protocol.Message) error {
	p, ok := h.peers[id]
	if !ok || !p.authenticated {
		return ErrUnknownPeer
	}
	if !h.send(p, msg, protocol.Targets{id}) {
		return ErrNotConnected
	}
	return nil
}

func (h *Host) send(p *peer, msg protocol.Message, target protocol.Targets) bool {
	data, err := protocol.Encode(msg, target, h.cfg.HostID)
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(msg.Kind())).Msg("encode message")
		return false
	}
	return h.write(p, data)
}

func (h *Host) write(p *peer, data []byte) bool {
	if err := p.conn.Send(data); err != nil {
		h.log.Warn().Err(err).Str("peer", p.conn.ID()).Msg("send failed")
		return false
	}
	return true
}

func hostOnlyTarget(target protocol.Targets, hostID string) bool {
	return len(target) == 1 && target[0] == hostID
}

// peerIDs lists the host and every authenticated member except skip, sorted.
func (h *Host) peerIDs(skip string) []string {
	out := make([]string, 0, len(h.peers)+1)
	if skip != h.cfg.HostID {
		out = append(out, h.cfg.HostID)
	}
	for id, p := range h.peers {
		if id != skip && p.authenticated {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Members returns authenticated guest ids, sorted.
func (h *Host) Members() []string {
	out := make([]string, 0, len(h.peers))
	for id, p := range h.peers {
		if p.authenticated {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (h *Host) Authenticated(id string) bool {
	p, ok := h.peers[id]
	return ok && p.authenticated
}

func (h *Host) Nickname(id string) (string, bool) {
	p, ok := h.peers[id]
	if !ok || !p.authenticated {
		return "", false
	}
	return p.nickname, true
}

// Pending counts connections that have not completed the handshake.
func (h *Host) Pending() int {
	n := 0
	for _, p := range h.peers {
		if !p.authenticated {
			n++
		}
	}
	return n
}

// Shutdown closes every connection without departure notices.
func (h *Host) Shutdown() {
	for id, p := range h.peers {
		_ = p.conn.Close()
		delete(h.peers, id)
	}
}
