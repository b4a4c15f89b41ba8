package gameserver

import (
	"github.com/vexelgames/polyrift/internal/game/progression"
	"github.com/vexelgames/polyrift/internal/model"
)

// Client operations. Every inbound frame carries one in its "op" field;
// the first frame of a connection must be OpConnect.
const (
	OpConnect         = "connect"
	OpMove            = "move"
	OpChangeWeapon    = "change-weapon"
	OpUpgradeWeapon   = "upgrade-weapon"
	OpUpgradeStat     = "upgrade-stat"
	OpPartyCreate     = "party-create"
	OpPartyInvite     = "party-invite"
	OpPartyAccept     = "party-accept"
	OpPartyLeave      = "party-leave"
	OpStartDungeon    = "start-dungeon"
	OpAttack          = "attack"
	OpGetCharacters   = "get-characters"
	OpSelectPrimary   = "select-primary"
	OpDeleteCharacter = "delete-character"
)

// Gateway response events. Engine events live in the events package;
// these are direct answers to client operations.
const (
	EventConnected     = "connected"
	EventStatsUpdate   = "stats-update"
	EventAttackResult  = "attack-result"
	EventCharacters    = "characters"
	EventPartyInvite   = "party-invite"
	EventPartyDeclined = "party-declined"
	EventError         = "error"
)

// Session stat names accepted by OpUpgradeStat. Flat stats take
// "amount", ratio stats take "mult".
const (
	StatHealth           = "health"
	StatMana             = "mana"
	StatDefense          = "defense"
	StatMovementSpeed    = "movementSpeed"
	StatDamageMultiplier = "damageMultiplier"
	StatAttackSpeed      = "attackSpeed"
)

// clientMessage is the single flat inbound frame shape. Fields beyond
// Op are op-specific; unused ones stay at their zero values.
type clientMessage struct {
	Op     string `json:"op"`
	Ticket string `json:"ticket,omitempty"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	WeaponType string  `json:"weaponType,omitempty"`
	Kind       string  `json:"kind,omitempty"`
	Stat       string  `json:"stat,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Mult       float64 `json:"mult,omitempty"`

	PlayerID uint32 `json:"playerId,omitempty"`
	Accepted bool   `json:"accepted,omitempty"`
	Template string `json:"template,omitempty"`
	EnemyID  uint32 `json:"enemyId,omitempty"`

	CharacterID int64 `json:"characterId,omitempty"`
}

// serverFrame is the outbound envelope: every frame names its event and
// carries one payload.
type serverFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// ConnectedPayload seals a successful handshake.
type ConnectedPayload struct {
	PlayerID    uint32                      `json:"playerId"`
	Username    string                      `json:"username"`
	Shape       string                      `json:"shape"`
	Color       string                      `json:"color"`
	CharacterID int64                       `json:"characterId,omitempty"`
	Stats       *progression.CharacterStats `json:"stats"`
}

// CharactersPayload answers OpGetCharacters and follows character
// mutations so the client always holds the current roster.
type CharactersPayload struct {
	Characters []model.Character `json:"characters"`
}

// PartyInvitePayload is delivered to the invited player.
type PartyInvitePayload struct {
	FromID   uint32 `json:"fromId"`
	FromName string `json:"fromName"`
}

// PartyDeclinedPayload tells the inviter their invite was turned down.
type PartyDeclinedPayload struct {
	PlayerID uint32 `json:"playerId"`
	Username string `json:"username"`
}

// ErrorPayload reports a rejected operation back to its sender.
type ErrorPayload struct {
	Op      string `json:"op"`
	Message string `json:"message"`
}
