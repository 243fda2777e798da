// Package protocol defines the messages exchanged between host and guests.
package protocol

import "bloomkeepers/internal/domain/overlay"

type Kind string

const (
	KindAuthRequest    Kind = "AUTH_REQUEST"
	KindAuthSuccess    Kind = "AUTH_SUCCESS"
	KindAuthFail       Kind = "AUTH_FAIL"
	KindMove           Kind = "MOVE"
	KindTileChange     Kind = "TILE_CHANGE"
	KindWaveSpawn      Kind = "WAVE_SPAWN"
	KindSpawnEnemy     Kind = "SPAWN_ENEMY"
	KindEnemyHit       Kind = "ENEMY_HIT"
	KindEnemyDeath     Kind = "ENEMY_DEATH"
	KindPlayerHeal     Kind = "PLAYER_HEAL"
	KindFlowerCure     Kind = "FLOWER_CURE"
	KindTimeSync       Kind = "TIME_SYNC"
	KindChatMsg        Kind = "CHAT_MSG"
	KindWhisper        Kind = "WHISPER"
	KindPartyInvite    Kind = "PARTY_INVITE"
	KindPartyAccept    Kind = "PARTY_ACCEPT"
	KindPartyLeave     Kind = "PARTY_LEAVE"
	KindPartyRescue    Kind = "PARTY_RESCUE"
	KindPeerDisconnect Kind = "PEER_DISCONNECT"
)

// Reserved reports kinds an authenticated guest may never relay: the
// handshake and every message only the host emits.
func (k Kind) Reserved() bool {
	switch k {
	case KindAuthRequest, KindAuthSuccess, KindAuthFail, KindPeerDisconnect, KindTimeSync,
		KindWaveSpawn, KindSpawnEnemy, KindEnemyDeath, KindPlayerHeal, KindFlowerCure:
		return true
	}
	return false
}

// HostBound reports kinds the host must accept before anyone else sees them.
// They may be broadcast or addressed to the host, never to another guest.
func (k Kind) HostBound() bool {
	return k == KindTileChange || k == KindEnemyHit
}

// Message is implemented only by pointers to the payload types in this package.
type Message interface {
	Kind() Kind
	sealed()
}

// SenderStamped messages carry an identity field the relay overwrites with
// the verified connection id.
type SenderStamped interface {
	Message
	StampSender(id string)
}

type Stats struct {
	Level      int `json:"level"`
	XP         int `json:"xp"`
	MaxXP      int `json:"maxXp,omitempty"`
	HP         int `json:"hp"`
	MaxHP      int `json:"maxHp"`
	TilesCured int `json:"tilesCured"`
}

type AuthRequest struct {
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type AuthSuccess struct {
	Seed        string           `json:"seed"`
	HostID      string           `json:"hostId"`
	SelfID      string           `json:"selfId"`
	WorldState  overlay.Snapshot `json:"worldState"`
	PlayerData  *Stats           `json:"playerData,omitempty"`
	RosterStats map[string]Stats `json:"rosterStats"`
	Peers       []string         `json:"peers"`
	HiveIndex   int              `json:"hiveIndex,omitempty"`
}

type AuthFail struct {
	Reason string `json:"reason"`
}

type Move struct {
	ID       string  `json:"id"`
	Nickname string  `json:"nickname,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Dir      string  `json:"dir,omitempty"`
	Stats    *Stats  `json:"stats,omitempty"`
}

type TileChange struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	TileType string `json:"tileType"`
	OwnerID  string `json:"ownerId,omitempty"`
}

type WaveSpawn struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
	Amount int     `json:"amount"`
}

type SpawnEnemy struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Class string  `json:"type"`
}

type EnemyHit struct {
	ID       string `json:"id"`
	Damage   int    `json:"damage"`
	Attacker string `json:"attacker,omitempty"`
}

type EnemyDeath struct {
	ID     string `json:"id"`
	Killer string `json:"killer,omitempty"`
}

type PlayerHeal struct {
	Amount int `json:"amount"`
}

type FlowerCure struct {
	OwnerID string `json:"ownerId"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

type TimeSync struct {
	Time int64 `json:"time"`
}

type ChatMsg struct {
	Nick     string `json:"nick"`
	Text     string `json:"text"`
	SenderID string `json:"senderId,omitempty"`
}

type Whisper struct {
	Nick     string `json:"nick"`
	Text     string `json:"text"`
	SenderID string `json:"senderId,omitempty"`
}

type PartyInvite struct {
	Nick     string `json:"nick"`
	SenderID string `json:"senderId,omitempty"`
}

type PartyAccept struct {
	Nick     string `json:"nick"`
	SenderID string `json:"senderId,omitempty"`
}

type PartyLeave struct {
	SenderID string `json:"senderId,omitempty"`
}

type PartyRescue struct {
	TargetID string `json:"targetId"`
	SenderID string `json:"senderId,omitempty"`
}

type PeerDisconnect struct {
	PeerID string `json:"peerId"`
}

func (*AuthRequest) Kind() Kind    { return KindAuthRequest }
func (*AuthSuccess) Kind() Kind    { return KindAuthSuccess }
func (*AuthFail) Kind() Kind       { return KindAuthFail }
func (*Move) Kind() Kind           { return KindMove }
func (*TileChange) Kind() Kind     { return KindTileChange }
func (*WaveSpawn) Kind() Kind      { return KindWaveSpawn }
func (*SpawnEnemy) Kind() Kind     { return KindSpawnEnemy }
func (*EnemyHit) Kind() Kind       { return KindEnemyHit }
func (*EnemyDeath) Kind() Kind     { return KindEnemyDeath }
func (*PlayerHeal) Kind() Kind     { return KindPlayerHeal }
func (*FlowerCure) Kind() Kind     { return KindFlowerCure }
func (*TimeSync) Kind() Kind       { return KindTimeSync }
func (*ChatMsg) Kind() Kind        { return KindChatMsg }
func (*Whisper) Kind() Kind        { return KindWhisper }
func (*PartyInvite) Kind() Kind    { return KindPartyInvite }
func (*PartyAccept) Kind() Kind    { return KindPartyAccept }
func (*PartyLeave) Kind() Kind     { return KindPartyLeave }
func (*PartyRescue) Kind() Kind    { return KindPartyRescue }
func (*PeerDisconnect) Kind() Kind { return KindPeerDisconnect }

func (*AuthRequest) sealed()    {}
func (*AuthSuccess) sealed()    {}
func (*AuthFail) sealed()       {}
func (*Move) sealed()           {}
func (*TileChange) sealed()     {}
func (*WaveSpawn) sealed()      {}
func (*SpawnEnemy) sealed()     {}
func (*EnemyHit) sealed()       {}
func (*EnemyDeath) sealed()     {}
func (*PlayerHeal) sealed()     {}
func (*FlowerCure) sealed()     {}
func (*TimeSync) sealed()       {}
func (*ChatMsg) sealed()        {}
func (*Whisper) sealed()        {}
func (*PartyInvite) sealed()    {}
func (*PartyAccept) sealed()    {}
func (*PartyLeave) sealed()     {}
func (*PartyRescue) sealed()    {}
func (*PeerDisconnect) sealed() {}

func (m *Move) StampSender(id string)        { m.ID = id }
func (m *TileChange) StampSender(id string)  { m.OwnerID = id }
func (m *EnemyHit) StampSender(id string)    { m.Attacker = id }
func (m *ChatMsg) StampSender(id string)     { m.SenderID = id }
func (m *Whisper) StampSender(id string)     { m.SenderID = id }
func (m *PartyInvite) StampSender(id string) { m.SenderID = id }
func (m *PartyAccept) StampSender(id string) { m.SenderID = id }
func (m *PartyLeave) StampSender(id string)  { m.SenderID = id }
func (m *PartyRescue) StampSender(id string) { m.SenderID = id }
