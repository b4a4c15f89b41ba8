// Package events defines the wire events the engine emits and the sink
// interfaces it emits them through. The transport layer implements the
// sinks; game packages depend only on this package, never on the
// transport, which keeps the dependency arrow pointing one way.
package events

import "github.com/vexelgames/polyrift/internal/model"

// Event names sent to clients. The payload structs below define each
// event's JSON body.
const (
	DamageBatch     = "damage-batch"
	TargetingUpdate = "targeting-update"
	EnemyKilled     = "enemy-killed"
	LevelUp         = "level-up"
	RoomCleared     = "room-cleared"
	ReturnToHub     = "return-to-hub"
	HubSnapshot     = "hub-snapshot"
	PlayerJoined    = "player-joined"
	PlayerLeft      = "player-left"
	PlayerMoved     = "player-moved"
	PlayerDamaged   = "player-damaged"
	PlayerDied      = "player-died"
	DungeonEntered  = "dungeon-entered"
	PartyUpdated    = "party-updated"
)

// Sink delivers events to connected clients. Best-effort and
// fire-and-forget: implementations drop events for missing or slow
// connections rather than blocking resolution.
type Sink interface {
	// SendToPlayer emits an event to a single connection.
	SendToPlayer(playerID uint32, event string, payload any)
	// BroadcastToParty emits an event to every member of a party.
	BroadcastToParty(partyID int32, event string, payload any)
	// BroadcastToHub emits an event to every hub occupant, optionally
	// excluding one player (0 = no exclusion).
	BroadcastToHub(event string, payload any, exceptID uint32)
}

// NopSink discards everything. Used in tests and as a safe default
// before the transport is wired.
type NopSink struct{}

func (NopSink) SendToPlayer(uint32, string, any)    {}
func (NopSink) BroadcastToParty(int32, string, any) {}
func (NopSink) BroadcastToHub(string, any, uint32)  {}

// DamageRecord is one enemy's outcome within a damage batch.
type DamageRecord struct {
	EnemyID   uint32 `json:"enemyId"`
	Damage    int32  `json:"damage"`
	Health    int32  `json:"health"`
	MaxHealth int32  `json:"maxHealth"`
}

// DamageBatchPayload carries every hit of one attack resolution,
// broadcast to the whole party.
type DamageBatchPayload struct {
	AttackerID uint32         `json:"attackerId"`
	Records    []DamageRecord `json:"records"`
}

// TargetingUpdatePayload lists the enemy ids considered in one
// resolution, sent to the acting player only.
type TargetingUpdatePayload struct {
	EnemyIDs []uint32 `json:"enemyIds"`
}

// EnemyKilledPayload announces a kill and its drop to the party.
type EnemyKilledPayload struct {
	EnemyID  uint32     `json:"enemyId"`
	KillerID uint32     `json:"killerId"`
	Loot     model.Loot `json:"loot"`
}

// LevelUpPayload reports a level gain on either progression track.
type LevelUpPayload struct {
	PlayerID uint32 `json:"playerId"`
	Level    int32  `json:"level"`
	// Track is "session" for the match-scoped track or "character"
	// for the durable one; the two level independently.
	Track string `json:"track"`
}

// RoomClearedPayload is broadcast to the party exactly once per room.
type RoomClearedPayload struct {
	RoomID int32 `json:"roomId"`
}

// ReturnToHubPayload is individually addressed; Position is the
// member's restored hub position.
type ReturnToHubPayload struct {
	Position model.Vector3 `json:"position"`
}

// HubOccupant is one player visible in the hub.
type HubOccupant struct {
	ID       uint32        `json:"id"`
	Username string        `json:"username"`
	Shape    string        `json:"shape"`
	Color    string        `json:"color"`
	Position model.Vector3 `json:"position"`
}

// NewHubOccupant snapshots a player's hub-visible state.
func NewHubOccupant(p *model.Player) HubOccupant {
	return HubOccupant{
		ID:       p.ID(),
		Username: p.Username(),
		Shape:    p.Shape(),
		Color:    p.Color(),
		Position: p.Position(),
	}
}

// HubSnapshotPayload is the full hub occupant list, sent on join and
// on hub return.
type HubSnapshotPayload struct {
	Occupants []HubOccupant `json:"occupants"`
}

// PlayerJoinedPayload announces a new hub occupant to the others.
type PlayerJoinedPayload struct {
	Player HubOccupant `json:"player"`
}

// PlayerLeftPayload announces a departure from the hub.
type PlayerLeftPayload struct {
	PlayerID uint32 `json:"playerId"`
}

// PlayerMovedPayload rebroadcasts a hub movement update.
type PlayerMovedPayload struct {
	PlayerID uint32        `json:"playerId"`
	Position model.Vector3 `json:"position"`
}

// PlayerDamagedPayload reports enemy retaliation damage to the party.
type PlayerDamagedPayload struct {
	PlayerID  uint32 `json:"playerId"`
	EnemyID   uint32 `json:"enemyId"`
	Damage    int32  `json:"damage"`
	Health    int32  `json:"health"`
	MaxHealth int32  `json:"maxHealth"`
}

// PlayerDiedPayload signals death to the downed player.
type PlayerDiedPayload struct {
	PlayerID uint32 `json:"playerId"`
	EnemyID  uint32 `json:"enemyId"`
}

// EnemySnapshot is an enemy's visible state inside a room snapshot.
type EnemySnapshot struct {
	ID        uint32        `json:"id"`
	Name      string        `json:"name"`
	Position  model.Vector3 `json:"position"`
	Health    int32         `json:"health"`
	MaxHealth int32         `json:"maxHealth"`
	Level     int32         `json:"level"`
}

// DungeonEnteredPayload carries the freshly created room to each party
// member.
type DungeonEnteredPayload struct {
	RoomID   int32           `json:"roomId"`
	Template string          `json:"template"`
	Enemies  []EnemySnapshot `json:"enemies"`
}

// PartyUpdatedPayload reflects the party roster after any change.
type PartyUpdatedPayload struct {
	PartyID  int32    `json:"partyId"`
	LeaderID uint32   `json:"leaderId"`
	Members  []uint32 `json:"members"`
	RoomID   int32    `json:"roomId"`
}
