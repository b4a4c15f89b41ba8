// Package world holds the process-wide mutable game state: connected
// players, parties, live dungeon rooms and the hub occupant set. A
// single State instance is constructed in main and injected into every
// component; nothing in this module reaches for package-level
// singletons.
package world

import (
	"sync"
	"sync/atomic"

	"github.com/vexelgames/polyrift/internal/model"
)

// State is the shared world registry. Thread-safe for concurrent
// access from the transport and the tick loops.
type State struct {
	mu sync.RWMutex

	players map[uint32]*model.Player
	parties map[int32]*model.Party
	rooms   map[int32]*model.Room

	// hub is the occupant set: players currently standing in the
	// shared hub (as opposed to a dungeon room).
	hub map[uint32]struct{}

	nextPartyID atomic.Int32
	nextRoomID  atomic.Int32

	ids *EntityIDGenerator
}

// NewState creates an empty world.
func NewState() *State {
	return &State{
		players: make(map[uint32]*model.Player, 256),
		parties: make(map[int32]*model.Party, 64),
		rooms:   make(map[int32]*model.Room, 32),
		hub:     make(map[uint32]struct{}, 256),
		ids:     NewEntityIDGenerator(),
	}
}

// IDs returns the entity ID generator.
func (s *State) IDs() *EntityIDGenerator {
	return s.ids
}

// --- Players ---

// AddPlayer registers a connected player.
func (s *State) AddPlayer(p *model.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID()] = p
}

// RemovePlayer unregisters a player and returns it, or nil if unknown.
func (s *State) RemovePlayer(playerID uint32) *model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil
	}
	delete(s.players, playerID)
	delete(s.hub, playerID)
	return p
}

// Player returns a player by ID, or nil.
func (s *State) Player(playerID uint32) *model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[playerID]
}

// PlayerCount returns the number of connected players.
func (s *State) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Players returns a snapshot of all connected players.
func (s *State) Players() []*model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	return out
}

// --- Hub occupancy ---

// EnterHub adds a player to the hub occupant set. Returns false if the
// player is unknown or already in the hub.
func (s *State) EnterHub(playerID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return false
	}
	if _, ok := s.hub[playerID]; ok {
		return false
	}
	s.hub[playerID] = struct{}{}
	return true
}

// LeaveHub removes a player from the hub occupant set. Returns false
// if the player was not in the hub.
func (s *State) LeaveHub(playerID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hub[playerID]; !ok {
		return false
	}
	delete(s.hub, playerID)
	return true
}

// InHub reports whether a player occupies the hub.
func (s *State) InHub(playerID uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hub[playerID]
	return ok
}

// HubOccupants returns a snapshot of the players currently in the hub.
func (s *State) HubOccupants() []*model.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Player, 0, len(s.hub))
	for id := range s.hub {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// --- Parties ---

// CreateParty creates a party led by the given player and binds the
// player's PartyID.
func (s *State) CreateParty(leader *model.Player) *model.Party {
	id := s.nextPartyID.Add(1)
	party := model.NewParty(id, leader)
	leader.SetPartyID(id)

	s.mu.Lock()
	s.parties[id] = party
	s.mu.Unlock()

	return party
}

// Party returns a party by ID, or nil.
func (s *State) Party(partyID int32) *model.Party {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parties[partyID]
}

// PlayerParty returns the party a player belongs to, or nil.
func (s *State) PlayerParty(playerID uint32) *model.Party {
	p := s.Player(playerID)
	if p == nil {
		return nil
	}
	partyID := p.PartyID()
	if partyID == 0 {
		return nil
	}
	return s.Party(partyID)
}

// DisbandParty drops a party record. Members' PartyID bindings are the
// caller's responsibility.
func (s *State) DisbandParty(partyID int32) {
	s.mu.Lock()
	delete(s.parties, partyID)
	s.mu.Unlock()
}

// PartyCount returns the number of active parties.
func (s *State) PartyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parties)
}

// --- Rooms ---

// NextRoomID reserves a room ID.
func (s *State) NextRoomID() int32 {
	return s.nextRoomID.Add(1)
}

// AddRoom registers a live room.
func (s *State) AddRoom(room *model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID()] = room
}

// Room returns a room by ID, or nil.
func (s *State) Room(roomID int32) *model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

// PlayerRoom returns the room a player is bound to, or nil.
func (s *State) PlayerRoom(playerID uint32) *model.Room {
	p := s.Player(playerID)
	if p == nil {
		return nil
	}
	roomID := p.RoomID()
	if roomID == 0 {
		return nil
	}
	return s.Room(roomID)
}

// RemoveRoom drops a room record.
func (s *State) RemoveRoom(roomID int32) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()
}

// RoomCount returns the number of live rooms.
func (s *State) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
