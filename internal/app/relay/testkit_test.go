package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"bloomkeepers/internal/protocol"
)

type fakeConn struct {
	id     string
	sent   [][]byte
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	if c.closed {
		return errors.New("closed")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) frames() []protocol.Frame {
	out := make([]protocol.Frame, 0, len(c.sent))
	for _, raw := range c.sent {
		f, err := protocol.Decode(raw)
		if err != nil {
			panic(err)
		}
		out = append(out, f)
	}
	return out
}

func (c *fakeConn) kinds() []protocol.Kind {
	var out []protocol.Kind
	for _, f := range c.frames() {
		out = append(out, f.Msg.Kind())
	}
	return out
}

func (c *fakeConn) reset() { c.sent = nil }

type delivery struct {
	from  string
	frame protocol.Frame
}

type fakeHooks struct {
	joined    []string
	departed  []string
	delivered []delivery
	veto      map[protocol.Kind]bool
}

func (h *fakeHooks) Joined(id, _ string) { h.joined = append(h.joined, id) }

func (h *fakeHooks) Welcome(_, _ string) *protocol.AuthSuccess {
	return &protocol.AuthSuccess{Seed: "seed-1"}
}

func (h *fakeHooks) Deliver(from string, f protocol.Frame) bool {
	h.delivered = append(h.delivered, delivery{from: from, frame: f})
	return !h.veto[f.Msg.Kind()]
}

func (h *fakeHooks) Departed(id string) { h.departed = append(h.departed, id) }

type fakeDeferrer struct {
	pending []deferred
}

type deferred struct {
	after time.Duration
	fn    func()
}

func (d *fakeDeferrer) After(after time.Duration, fn func()) {
	d.pending = append(d.pending, deferred{after: after, fn: fn})
}

// runUpTo runs every deferred task whose delay is at most limit.
func (d *fakeDeferrer) runUpTo(limit time.Duration) {
	rest := d.pending[:0]
	var due []deferred
	for _, p := range d.pending {
		if p.after <= limit {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	d.pending = rest
	for _, p := range due {
		p.fn()
	}
}

func newTestHost(password string) (*Host, *fakeHooks, *fakeDeferrer) {
	hooks := &fakeHooks{veto: map[protocol.Kind]bool{}}
	def := &fakeDeferrer{}
	h := NewHost(HostConfig{HostID: "host", Password: password}, HostDeps{Hooks: hooks, Deferrer: def})
	return h, hooks, def
}

func mustEncode(msg protocol.Message, target ...string) []byte {
	data, err := protocol.Encode(msg, protocol.Targets(target), "")
	if err != nil {
		panic(err)
	}
	return data
}

func join(h *Host, id, nickname, password string) *fakeConn {
	c := &fakeConn{id: id}
	h.Open(c)
	h.Receive(id, mustEncode(&protocol.AuthRequest{Password: password, Nickname: nickname}))
	return c
}

// pipeConn is an in-memory ClientConn for guest tests.
type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16), out: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *pipeConn) Send(data []byte) error {
	select {
	case <-p.closed:
		return errors.New("closed")
	case p.out <- data:
		return nil
	}
}

func (p *pipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, errors.New("closed")
	case data := <-p.in:
		return data, nil
	}
}

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

type pipeDialer struct {
	conn *pipeConn
	err  error
}

func (d pipeDialer) Dial(context.Context) (ClientConn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}
