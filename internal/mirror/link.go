// Package mirror implements the authority and reconciliation layer: the
// authoritative side publishes per-enemy snapshots, the mirrored side merges
// them into local shadow records and garbage-collects what stops arriving.
package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PeerLink is the transport surface the mirror layer needs. The websocket
// implementation lives in internal/transport; tests use in-memory fakes.
type PeerLink interface {
	Broadcast(msg []byte) error
	SendToPeer(peerID string, msg []byte) error
}

// MessageType discriminates envelope payloads.
type MessageType string

const (
	MsgEnemySnapshot MessageType = "enemy_snapshot"
	MsgPlayerDamage  MessageType = "player_damage"
	MsgExpShare      MessageType = "exp_share"
	MsgPlayerState   MessageType = "player_state"
)

// Envelope is the outer wire frame.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EnemyEntry is the minimal per-enemy snapshot entry.
type EnemyEntry struct {
	ID        uint32  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Health    float64 `json:"health"`
	Archetype int32   `json:"archetype"`
	Boss      bool    `json:"boss,omitempty"`
}

// Snapshot is the authoritative enemy population at one sync interval,
// keyed by enemy id. Session identifies the publishing host process; a
// mirrored side seeing a new session discards everything it held.
type Snapshot struct {
	Session uuid.UUID             `json:"session"`
	SentAt  int64                 `json:"sentAt"` // UnixMilli
	Enemies map[uint32]EnemyEntry `json:"enemies"`
}

// PlayerDamage routes enemy damage to a remote player.
type PlayerDamage struct {
	PlayerID string  `json:"playerId"`
	Amount   float64 `json:"amount"`
}

// ExpShare routes an experience award to a remote player.
type ExpShare struct {
	PlayerID string  `json:"playerId"`
	Amount   float64 `json:"amount"`
}

// PlayerState is the upstream heartbeat keeping remote target proxies
// positioned on the host.
type PlayerState struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Level    int     `json:"level"`
}

// Encode wraps a payload into an envelope frame.
func Encode(t MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	frame, err := json.Marshal(Envelope{Type: t, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", t, err)
	}
	return frame, nil
}

// Decode parses an envelope frame.
func Decode(msg []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return env, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
