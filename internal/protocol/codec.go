package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind  = errors.New("unknown message kind")
	ErrMalformed    = errors.New("malformed message")
	ErrEmptyPayload = errors.New("empty payload")
)

// Targets is the optional recipient list. On the wire it is either a single
// id string or an array of ids.
type Targets []string

func (t Targets) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

func (t *Targets) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*t = nil
		} else {
			*t = Targets{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("%w: target: %v", ErrMalformed, err)
	}
	out := make(Targets, 0, len(many))
	seen := make(map[string]struct{}, len(many))
	for _, id := range many {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	*t = out
	return nil
}

type envelope struct {
	Type    Kind            `json:"type"`
	Target  Targets         `json:"target,omitempty"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Frame is a decoded envelope.
type Frame struct {
	Msg    Message
	Target Targets
	From   string
}

func (f Frame) Broadcast() bool {
	return len(f.Target) == 0
}

func Encode(msg Message, target Targets, from string) ([]byte, error) {
	if msg == nil {
		return nil, ErrEmptyPayload
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(envelope{Type: msg.Kind(), Target: target, From: from, Payload: payload})
}

func EncodeFrame(f Frame) ([]byte, error) {
	return Encode(f.Msg, f.Target, f.From)
}

func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msg, err := newMessage(env.Type)
	if err != nil {
		return Frame{}, err
	}
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return Frame{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
		}
	}
	return Frame{Msg: msg, Target: env.Target, From: env.From}, nil
}

// newMessage returns a zero payload for every known kind.
func newMessage(kind Kind) (Message, error) {
	switch kind {
	case KindAuthRequest:
		return &AuthRequest{}, nil
	case KindAuthSuccess:
		return &AuthSuccess{}, nil
	case KindAuthFail:
		return &AuthFail{}, nil
	case KindMove:
		return &Move{}, nil
	case KindTileChange:
		return &TileChange{}, nil
	case KindWaveSpawn:
		return &WaveSpawn{}, nil
	case KindSpawnEnemy:
		return &SpawnEnemy{}, nil
	case KindEnemyHit:
		return &EnemyHit{}, nil
	case KindEnemyDeath:
		return &EnemyDeath{}, nil
	case KindPlayerHeal:
		return &PlayerHeal{}, nil
	case KindFlowerCure:
		return &FlowerCure{}, nil
	case KindTimeSync:
		return &TimeSync{}, nil
	case KindChatMsg:
		return &ChatMsg{}, nil
	case KindWhisper:
		return &Whisper{}, nil
	case KindPartyInvite:
		return &PartyInvite{}, nil
	case KindPartyAccept:
		return &PartyAccept{}, nil
	case KindPartyLeave:
		return &PartyLeave{}, nil
	case KindPartyRescue:
		return &PartyRescue{}, nil
	case KindPeerDisconnect:
		return &PeerDisconnect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
