package model

import (
	"fmt"
	"sync"
)

// MaxPartyMembers is the maximum party size (leader + 3 members).
// A party of one is valid: solo players form an implicit party when
// entering a dungeon.
const MaxPartyMembers = 4

// PartyInvite is a pending invitation, held on the invited player until
// it is answered or replaced. A player carries at most one.
type PartyInvite struct {
	FromID   uint32
	FromName string
}

// Party represents a group of players running dungeons together.
// Thread-safe: all methods acquire the internal mutex.
type Party struct {
	mu      sync.RWMutex
	id      int32
	leader  *Player
	members []*Player // leader is always the first element
	roomID  int32     // 0 = party is not inside a dungeon room
}

// NewParty creates a party with the given leader.
// The leader is automatically added as the first member.
func NewParty(id int32, leader *Player) *Party {
	p := &Party{
		id:      id,
		leader:  leader,
		members: make([]*Player, 0, MaxPartyMembers),
	}
	p.members = append(p.members, leader)
	return p
}

// ID returns the immutable party ID.
func (p *Party) ID() int32 {
	return p.id
}

// Leader returns the current party leader.
func (p *Party) Leader() *Player {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leader
}

// SetLeader changes the party leader to the given player and swaps the
// new leader to index 0. Caller must ensure the player is a member.
func (p *Party) SetLeader(player *Player) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leader = player
	for i, m := range p.members {
		if m.ID() == player.ID() {
			p.members[0], p.members[i] = p.members[i], p.members[0]
			break
		}
	}
}

// Members returns a snapshot copy of the members slice.
// Safe to iterate without holding the lock.
func (p *Party) Members() []*Player {
	p.mu.RLock()
	defer p.mu.RUnlock()
	result := make([]*Player, len(p.members))
	copy(result, p.members)
	return result
}

// MemberIDs returns the player IDs of all members in order.
func (p *Party) MemberIDs() []uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]uint32, len(p.members))
	for i, m := range p.members {
		ids[i] = m.ID()
	}
	return ids
}

// MemberCount returns the number of members in the party.
func (p *Party) MemberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// IsMember checks whether a player with the given ID is in this party.
func (p *Party) IsMember(playerID uint32) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.members {
		if m.ID() == playerID {
			return true
		}
	}
	return false
}

// IsLeader checks whether a player with the given ID leads this party.
func (p *Party) IsLeader(playerID uint32) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leader.ID() == playerID
}

// AddMember adds a player to the party.
// Returns an error if the party is full or the player is already in it.
func (p *Party) AddMember(player *Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.members) >= MaxPartyMembers {
		return fmt.Errorf("party full (max %d members)", MaxPartyMembers)
	}

	for _, m := range p.members {
		if m.ID() == player.ID() {
			return fmt.Errorf("player %s already in party", player.Username())
		}
	}

	p.members = append(p.members, player)
	return nil
}

// RemoveMember removes a player from the party by ID. If the leader
// leaves, leadership passes to the next member in order. Returns true
// when the party is empty and should be disbanded.
func (p *Party) RemoveMember(playerID uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := -1
	for i, m := range p.members {
		if m.ID() == playerID {
			idx = i
			break
		}
	}

	if idx < 0 {
		return len(p.members) == 0
	}

	// Keep member order stable; loot and broadcast order depend on it.
	p.members = append(p.members[:idx], p.members[idx+1:]...)

	if p.leader.ID() == playerID && len(p.members) > 0 {
		p.leader = p.members[0]
	}

	return len(p.members) == 0
}

// GetMember returns a member by player ID (nil if not found).
func (p *Party) GetMember(playerID uint32) *Player {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.members {
		if m.ID() == playerID {
			return m
		}
	}
	return nil
}

// RoomID returns the dungeon room the party currently occupies, or 0.
func (p *Party) RoomID() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roomID
}

// SetRoomID binds the party to a dungeon room. Pass 0 to unbind.
func (p *Party) SetRoomID(roomID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomID = roomID
}
