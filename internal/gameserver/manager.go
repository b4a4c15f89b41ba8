package gameserver

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/vexelgames/polyrift/internal/world"
)

// ClientManager tracks live connections and fans engine events out to
// them. It is the events.Sink the combat and dungeon packages emit
// through. Thread-safe for concurrent access.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[uint32]*Client // key: playerID

	state *world.State
}

func NewClientManager(state *world.State) *ClientManager {
	return &ClientManager{
		clients: make(map[uint32]*Client, 256),
		state:   state,
	}
}

// Register adds a client. A stale client under the same player id is
// closed and replaced.
func (cm *ClientManager) Register(c *Client) {
	cm.mu.Lock()
	old := cm.clients[c.playerID]
	cm.clients[c.playerID] = c
	cm.mu.Unlock()

	if old != nil && old != c {
		old.close()
	}
}

// Unregister removes a client, but only while it is still the one bound
// to the player id. A reconnect that already replaced it is left alone.
func (cm *ClientManager) Unregister(playerID uint32, c *Client) {
	cm.mu.Lock()
	if cm.clients[playerID] == c {
		delete(cm.clients, playerID)
	}
	cm.mu.Unlock()
}

// Get returns the client for a player id, or nil.
func (cm *ClientManager) Get(playerID uint32) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[playerID]
}

// Count returns the number of connected clients.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// SendToPlayer emits one event to a single connection. Missing clients
// and full queues drop the event.
func (cm *ClientManager) SendToPlayer(playerID uint32, event string, payload any) {
	c := cm.Get(playerID)
	if c == nil {
		return
	}
	frame, ok := marshalFrame(event, payload)
	if !ok {
		return
	}
	if !c.enqueue(frame) {
		slog.Debug("event dropped", "player", playerID, "event", event)
	}
}

// BroadcastToParty emits one event to every member of a party. The
// frame is marshaled once and shared across recipients.
func (cm *ClientManager) BroadcastToParty(partyID int32, event string, payload any) {
	party := cm.state.Party(partyID)
	if party == nil {
		return
	}
	frame, ok := marshalFrame(event, payload)
	if !ok {
		return
	}
	for _, id := range party.MemberIDs() {
		cm.deliver(id, event, frame)
	}
}

// BroadcastToHub emits one event to every hub occupant, optionally
// excluding one player (0 = no exclusion).
func (cm *ClientManager) BroadcastToHub(event string, payload any, exceptID uint32) {
	occupants := cm.state.HubOccupants()
	if len(occupants) == 0 {
		return
	}
	frame, ok := marshalFrame(event, payload)
	if !ok {
		return
	}
	for _, p := range occupants {
		if p.ID() == exceptID {
			continue
		}
		cm.deliver(p.ID(), event, frame)
	}
}

func (cm *ClientManager) deliver(playerID uint32, event string, frame []byte) {
	c := cm.Get(playerID)
	if c == nil {
		return
	}
	if !c.enqueue(frame) {
		slog.Debug("event dropped", "player", playerID, "event", event)
	}
}

func marshalFrame(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(serverFrame{Event: event, Payload: payload})
	if err != nil {
		slog.Error("event marshal failed", "event", event, "error", err)
		return nil, false
	}
	return data, true
}
