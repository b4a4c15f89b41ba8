package model

import (
	"sync"
	"sync/atomic"
	"time"
)

// RoomState is the lifecycle state of a dungeon room.
type RoomState int32

const (
	RoomStateCreated   RoomState = iota // room built, enemies populated, party not yet fighting
	RoomStateActive                     // combat resolution mutates room state
	RoomStateCleared                    // live-enemy list emptied, hub return in progress
	RoomStateDestroyed                  // record removed, party binding released
)

// String returns a human-readable state name.
func (s RoomState) String() string {
	switch s {
	case RoomStateCreated:
		return "CREATED"
	case RoomStateActive:
		return "ACTIVE"
	case RoomStateCleared:
		return "CLEARED"
	case RoomStateDestroyed:
		return "DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// Room is a live, party-scoped dungeon instance. It owns its enemy
// collection: enemies enter through AddEnemy and leave through
// RemoveEnemy only, so an enemy can never be removed twice.
// Thread-safe for concurrent access.
type Room struct {
	mu sync.RWMutex

	id        int32
	partyID   int32
	template  string
	createdAt time.Time

	// members is a snapshot of the party at creation time. Room
	// membership equals party membership at creation and does not track
	// later party changes.
	members []uint32

	enemies []*Enemy
	loot    []Loot

	cleared atomic.Bool
	state   atomic.Int32 // RoomState
}

// NewRoom creates a room bound to a party with a member snapshot.
func NewRoom(id, partyID int32, template string, members []uint32) *Room {
	r := &Room{
		id:        id,
		partyID:   partyID,
		template:  template,
		createdAt: time.Now(),
		members:   append([]uint32(nil), members...),
		enemies:   make([]*Enemy, 0, 16),
	}
	r.state.Store(int32(RoomStateCreated))
	return r
}

func (r *Room) ID() int32 {
	return r.id
}

func (r *Room) PartyID() int32 {
	return r.partyID
}

// Template returns the dungeon template name this room was built from.
func (r *Room) Template() string {
	return r.template
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

// Members returns the member snapshot taken at creation.
func (r *Room) Members() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uint32(nil), r.members...)
}

func (r *Room) HasMember(playerID uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.members {
		if id == playerID {
			return true
		}
	}
	return false
}

// State returns the current lifecycle state.
func (r *Room) State() RoomState {
	return RoomState(r.state.Load())
}

func (r *Room) SetState(s RoomState) {
	r.state.Store(int32(s))
}

// AddEnemy appends an enemy to the live list.
func (r *Room) AddEnemy(e *Enemy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enemies = append(r.enemies, e)
}

// Enemies returns a snapshot of the live-enemy list.
func (r *Room) Enemies() []*Enemy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Enemy, len(r.enemies))
	copy(out, r.enemies)
	return out
}

// Enemy looks up a live enemy by ID (nil if absent or already removed).
func (r *Room) Enemy(enemyID uint32) *Enemy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.enemies {
		if e.ID() == enemyID {
			return e
		}
	}
	return nil
}

// RemoveEnemy removes an enemy from the live list by ID. Returns true
// only for the call that actually removed it, which keeps death
// processing single-shot even if two attackers kill in the same tick.
func (r *Room) RemoveEnemy(enemyID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.enemies {
		if e.ID() == enemyID {
			r.enemies = append(r.enemies[:i], r.enemies[i+1:]...)
			return true
		}
	}
	return false
}

// EnemyCount returns the number of live enemies.
func (r *Room) EnemyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.enemies)
}

// AddLoot appends a drop to the room's accumulated loot.
func (r *Room) AddLoot(l Loot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loot = append(r.loot, l)
}

// Loot returns a snapshot of the accumulated loot.
func (r *Room) Loot() []Loot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Loot, len(r.loot))
	copy(out, r.loot)
	return out
}

// IsCleared reports whether the clear transition has run.
func (r *Room) IsCleared() bool {
	return r.cleared.Load()
}

// MarkCleared claims the clear transition. The flag flips false→true
// exactly once; only the claiming caller may run the hub-return
// sequence.
func (r *Room) MarkCleared() bool {
	return r.cleared.CompareAndSwap(false, true)
}
