package relay

import (
	"testing"
	"time"

	"bloomkeepers/internal/protocol"
)

func TestHandshakeSuccessSendsWelcome(t *testing.T) {
	h, hooks, _ := newTestHost("secret")
	c := join(h, "g1", "ana", "secret")

	frames := c.frames()
	if len(frames) != 1 {
		t.Fatalf("expected one frame, got %d", len(frames))
	}
	welcome, ok := frames[0].Msg.(*protocol.AuthSuccess)
	if !ok {
		t.Fatalf("expected AUTH_SUCCESS, got %s", frames[0].Msg.Kind())
	}
	if welcome.Seed != "seed-1" || welcome.SelfID != "g1" || welcome.HostID != "host" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	if len(welcome.Peers) != 1 || welcome.Peers[0] != "host" {
		t.Fatalf("expected host in peers, got %v", welcome.Peers)
	}
	if !h.Authenticated("g1") || len(hooks.joined) != 1 {
		t.Fatalf("expected g1 authenticated and joined")
	}
}

func TestEmptyPasswordAcceptsAnything(t *testing.T) {
	h, _, _ := newTestHost("")
	join(h, "g1", "ana", "whatever")
	if !h.Authenticated("g1") {
		t.Fatalf("expected open room to accept any password")
	}
}

func TestHandshakeFailureClosesAfterGrace(t *testing.T) {
	h, hooks, def := newTestHost("secret")
	c := join(h, "g1", "ana", "wrong")

	kinds := c.kinds()
	if len(kinds) != 1 || kinds[0] != protocol.KindAuthFail {
		t.Fatalf("expected AUTH_FAIL, got %v", kinds)
	}
	if c.closed {
		t.Fatalf("connection closed before grace delay")
	}
	def.runUpTo(500 * time.Millisecond)
	if !c.closed {
		t.Fatalf("expected connection closed after grace delay")
	}
	h.Closed("g1")
	if h.Authenticated("g1") || len(hooks.departed) != 0 {
		t.Fatalf("rejected connection must not produce a departure")
	}
}

func TestUnauthenticatedTrafficIsSilent(t *testing.T) {
	h, hooks, _ := newTestHost("")
	member := join(h, "g1", "ana", "")
	member.reset()

	intruder := &fakeConn{id: "x"}
	h.Open(intruder)
	h.Receive("x", mustEncode(&protocol.ChatMsg{Nick: "x", Text: "hello"}))
	h.Receive("x", mustEncode(&protocol.Whisper{Nick: "x", Text: "psst"}, "g1"))
	h.Receive("x", mustEncode(&protocol.TileChange{X: 1, Y: 1, TileType: "grass"}, "host"))

	if len(member.sent) != 0 || len(intruder.sent) != 0 {
		t.Fatalf("expected no deliveries, member=%d intruder=%d", len(member.sent), len(intruder.sent))
	}
	if len(hooks.delivered) != 0 {
		t.Fatalf("expected no local deliveries, got %d", len(hooks.delivered))
	}
}

func TestAuthTimeoutClosesIdleConnection(t *testing.T) {
	h, _, def := newTestHost("")
	idle := &fakeConn{id: "idle"}
	h.Open(idle)
	join(h, "g1", "ana", "")

	def.runUpTo(10 * time.Second)
	if !idle.closed {
		t.Fatalf("expected idle connection closed")
	}
	if h.Pending() != 1 {
		t.Fatalf("expected idle peer pending until transport reports close")
	}
}

func TestGhostEviction(t *testing.T) {
	h, hooks, _ := newTestHost("")
	observer := join(h, "g0", "bia", "")
	first := join(h, "g1", "ana", "")
	observer.reset()

	second := join(h, "g2", "ana", "")

	if !first.closed {
		t.Fatalf("expected ghost connection closed")
	}
	members := h.Members()
	if len(members) != 2 || members[0] != "g0" || members[1] != "g2" {
		t.Fatalf("expected exactly g0 and g2 authenticated, got %v", members)
	}
	notices := 0
	for _, f := range observer.frames() {
		if pd, ok := f.Msg.(*protocol.PeerDisconnect); ok && pd.PeerID == "g1" {
			notices++
		}
	}
	if notices != 1 {
		t.Fatalf("expected one departure notice for g1, got %d", notices)
	}
	if len(hooks.departed) != 1 || hooks.departed[0] != "g1" {
		t.Fatalf("expected departed hook for g1, got %v", hooks.departed)
	}
	if second.kinds()[0] != protocol.KindAuthSuccess {
		t.Fatalf("expected second connection welcomed")
	}

	h.Closed("g1")
	if len(hooks.departed) != 1 {
		t.Fatalf("transport close of an evicted ghost must not notify twice")
	}
}

func TestBroadcastReachesEveryoneButSender(t *testing.T) {
	h, hooks, _ := newTestHost("")
	a := join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	c := join(h, "c", "cai", "")
	a.reset()
	b.reset()
	c.reset()

	h.Receive("a", mustEncode(&protocol.ChatMsg{Nick: "ana", Text: "hi", SenderID: "c"}))

	if len(a.sent) != 0 {
		t.Fatalf("sender must not receive its own broadcast")
	}
	for _, conn := range []*fakeConn{b, c} {
		frames := conn.frames()
		if len(frames) != 1 {
			t.Fatalf("%s expected exactly one frame, got %d", conn.id, len(frames))
		}
		chat := frames[0].Msg.(*protocol.ChatMsg)
		if frames[0].From != "a" || chat.SenderID != "a" {
			t.Fatalf("expected identity stamped with a, got from=%q sender=%q", frames[0].From, chat.SenderID)
		}
	}
	if len(hooks.delivered) != 1 || hooks.delivered[0].from != "a" {
		t.Fatalf("expected one local delivery, got %d", len(hooks.delivered))
	}
}

func TestVetoedBroadcastIsNotForwarded(t *testing.T) {
	h, hooks, _ := newTestHost("")
	join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	b.reset()
	hooks.veto[protocol.KindTileChange] = true

	h.Receive("a", mustEncode(&protocol.TileChange{X: 1, Y: 1, TileType: "lava"}))
	if len(b.sent) != 0 {
		t.Fatalf("expected vetoed frame not forwarded")
	}
}

func TestTargetedRoutingIsIsolated(t *testing.T) {
	h, hooks, _ := newTestHost("")
	a := join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	c := join(h, "c", "cai", "")
	a.reset()
	b.reset()
	c.reset()

	h.Receive("a", mustEncode(&protocol.Whisper{Nick: "ana", Text: "psst"}, "b"))
	if len(b.sent) != 1 || len(c.sent) != 0 || len(a.sent) != 0 {
		t.Fatalf("whisper leaked: a=%d b=%d c=%d", len(a.sent), len(b.sent), len(c.sent))
	}
	if len(hooks.delivered) != 0 {
		t.Fatalf("targeted guest traffic must not reach the host handler")
	}

	h.Receive("a", mustEncode(&protocol.PartyRescue{TargetID: "b"}, "host"))
	if len(hooks.delivered) != 1 || len(b.sent) != 1 || len(c.sent) != 0 {
		t.Fatalf("host-targeted frame should only reach the host handler")
	}

	b.reset()
	h.Receive("a", mustEncode(&protocol.PartyInvite{Nick: "ana"}, "b", "c", "ghost"))
	if len(b.sent) != 1 || len(c.sent) != 1 {
		t.Fatalf("multi-target should reach each target once: b=%d c=%d", len(b.sent), len(c.sent))
	}
}

func TestReservedKindsFromGuestsAreDropped(t *testing.T) {
	h, hooks, _ := newTestHost("")
	join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	b.reset()

	reserved := []protocol.Message{
		&protocol.PeerDisconnect{PeerID: "b"},
		&protocol.TimeSync{Time: 1},
		&protocol.SpawnEnemy{ID: "e1", X: 1, Y: 1, Class: "hunter"},
		&protocol.EnemyDeath{ID: "e1", Killer: "b"},
		&protocol.WaveSpawn{X: 1, Y: 1, Radius: 80, Color: "gold", Amount: 10},
		&protocol.FlowerCure{OwnerID: "b", X: 2, Y: 2},
		&protocol.PlayerHeal{Amount: 50},
		&protocol.AuthFail{Reason: "forged"},
	}
	for _, msg := range reserved {
		h.Receive("a", mustEncode(msg))
		h.Receive("a", mustEncode(msg, "b"))
	}
	if len(b.sent) != 0 {
		t.Fatalf("expected reserved kinds dropped, got %v", b.kinds())
	}
	if len(hooks.delivered) != 0 {
		t.Fatalf("reserved kinds reached the host handler: %d", len(hooks.delivered))
	}
}

func TestHostBoundKindsCannotBeAimedAtGuests(t *testing.T) {
	h, hooks, _ := newTestHost("")
	join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	b.reset()
	hooks.veto[protocol.KindTileChange] = true

	h.Receive("a", mustEncode(&protocol.TileChange{X: 1, Y: 1, TileType: "lava"}, "b"))
	h.Receive("a", mustEncode(&protocol.TileChange{X: 1, Y: 1, TileType: "lava"}, "host", "b"))
	h.Receive("a", mustEncode(&protocol.EnemyHit{ID: "e1", Damage: 9999}, "b"))
	if len(b.sent) != 0 {
		t.Fatalf("expected targeted host-bound frames dropped, got %v", b.kinds())
	}
	if len(hooks.delivered) != 0 {
		t.Fatalf("dropped frames should not reach the host handler, got %d", len(hooks.delivered))
	}

	h.Receive("a", mustEncode(&protocol.EnemyHit{ID: "e1", Damage: 5}, "host"))
	if len(hooks.delivered) != 1 || hooks.delivered[0].frame.Msg.Kind() != protocol.KindEnemyHit {
		t.Fatalf("expected hit addressed to the host delivered, got %+v", hooks.delivered)
	}
	if len(b.sent) != 0 {
		t.Fatalf("host-addressed hit leaked to b")
	}
}

func TestCloseBroadcastsDeparture(t *testing.T) {
	h, hooks, _ := newTestHost("")
	join(h, "a", "ana", "")
	b := join(h, "b", "bia", "")
	b.reset()

	h.Closed("a")
	frames := b.frames()
	if len(frames) != 1 {
		t.Fatalf("expected one departure notice, got %d", len(frames))
	}
	if pd := frames[0].Msg.(*protocol.PeerDisconnect); pd.PeerID != "a" {
		t.Fatalf("unexpected departure %+v", pd)
	}
	if len(hooks.departed) != 1 || hooks.departed[0] != "a" {
		t.Fatalf("expected departed hook, got %v", hooks.departed)
	}
}

func TestSendToUnknownPeer(t *testing.T) {
	h, _, _ := newTestHost("")
	if err := h.SendTo("nobody", &protocol.PlayerHeal{Amount: 10}); err != ErrUnknownPeer {
		t.Fatalf("expected ErrUnknownPeer, got %v", err)
	}
}

func TestRateLimitDropsFlood(t *testing.T) {
	hooks := &fakeHooks{veto: map[protocol.Kind]bool{}}
	h := NewHost(HostConfig{RateLimit: 1, RateBurst: 2}, HostDeps{Hooks: hooks, Deferrer: &fakeDeferrer{}})
	join(h, "a", "ana", "")
	for i := 0; i < 10; i++ {
		h.Receive("a", mustEncode(&protocol.ChatMsg{Nick: "ana", Text: "spam"}))
	}
	if len(hooks.delivered) > 1 {
		t.Fatalf("expected flood to be throttled, got %d deliveries", len(hooks.delivered))
	}
}
