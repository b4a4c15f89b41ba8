package gameserver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// queuedFrame pops one frame off a client's send queue without a pump.
func queuedFrame(t *testing.T, c *Client) (string, json.RawMessage) {
	t.Helper()
	select {
	case data := <-c.send:
		var frame struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame.Event, frame.Payload
	default:
		t.Fatal("no frame queued")
		return "", nil
	}
}

func addStatePlayer(t *testing.T, state *world.State, name string) *model.Player {
	t.Helper()
	p := model.NewPlayer(state.IDs().NextPlayerID(), "user-"+name, name)
	state.AddPlayer(p)
	return p
}

func TestSendToPlayerQueuesEnvelope(t *testing.T) {
	state := world.NewState()
	cm := NewClientManager(state)
	p := addStatePlayer(t, state, "alice")
	c := newClient(p.ID(), p.UserID(), nil)
	cm.Register(c)

	cm.SendToPlayer(p.ID(), events.PlayerLeft, events.PlayerLeftPayload{PlayerID: 9})

	event, payload := queuedFrame(t, c)
	assert.Equal(t, events.PlayerLeft, event)
	var body events.PlayerLeftPayload
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.Equal(t, uint32(9), body.PlayerID)
}

func TestSendToPlayerUnknownIsNoop(t *testing.T) {
	cm := NewClientManager(world.NewState())
	cm.SendToPlayer(42, EventError, ErrorPayload{Op: "x", Message: "y"})
}

func TestRegisterReplacesStaleClient(t *testing.T) {
	state := world.NewState()
	cm := NewClientManager(state)
	p := addStatePlayer(t, state, "alice")

	old := newClient(p.ID(), p.UserID(), nil)
	cm.Register(old)
	fresh := newClient(p.ID(), p.UserID(), nil)
	cm.Register(fresh)

	select {
	case <-old.done:
	default:
		t.Fatal("stale client was not closed")
	}
	assert.Same(t, fresh, cm.Get(p.ID()))
	assert.Equal(t, 1, cm.Count())
}

func TestUnregisterIgnoresReplacedClient(t *testing.T) {
	state := world.NewState()
	cm := NewClientManager(state)
	p := addStatePlayer(t, state, "alice")

	old := newClient(p.ID(), p.UserID(), nil)
	cm.Register(old)
	fresh := newClient(p.ID(), p.UserID(), nil)
	cm.Register(fresh)

	// The stale connection's teardown races the reconnect; it must not
	// evict the fresh client.
	cm.Unregister(p.ID(), old)
	assert.Same(t, fresh, cm.Get(p.ID()))

	cm.Unregister(p.ID(), fresh)
	assert.Nil(t, cm.Get(p.ID()))
}

func TestBroadcastToPartyDeliversToEveryMember(t *testing.T) {
	state := world.NewState()
	cm := NewClientManager(state)

	leader := addStatePlayer(t, state, "alice")
	member := addStatePlayer(t, state, "bob")
	party := state.CreateParty(leader)
	require.NoError(t, party.AddMember(member))
	member.SetPartyID(party.ID())

	ca := newClient(leader.ID(), leader.UserID(), nil)
	cb := newClient(member.ID(), member.UserID(), nil)
	cm.Register(ca)
	cm.Register(cb)

	cm.BroadcastToParty(party.ID(), events.RoomCleared, events.RoomClearedPayload{RoomID: 3})

	for _, c := range []*Client{ca, cb} {
		event, payload := queuedFrame(t, c)
		assert.Equal(t, events.RoomCleared, event)
		var body events.RoomClearedPayload
		require.NoError(t, json.Unmarshal(payload, &body))
		assert.Equal(t, int32(3), body.RoomID)
	}
}

func TestBroadcastToPartyUnknownPartyIsNoop(t *testing.T) {
	cm := NewClientManager(world.NewState())
	cm.BroadcastToParty(99, events.RoomCleared, events.RoomClearedPayload{RoomID: 1})
}

func TestBroadcastToHubSkipsExcludedPlayer(t *testing.T) {
	state := world.NewState()
	cm := NewClientManager(state)

	alice := addStatePlayer(t, state, "alice")
	bob := addStatePlayer(t, state, "bob")
	require.True(t, state.EnterHub(alice.ID()))
	require.True(t, state.EnterHub(bob.ID()))

	ca := newClient(alice.ID(), alice.UserID(), nil)
	cb := newClient(bob.ID(), bob.UserID(), nil)
	cm.Register(ca)
	cm.Register(cb)

	cm.BroadcastToHub(events.PlayerJoined, events.PlayerJoinedPayload{}, alice.ID())

	assert.Empty(t, ca.send, "excluded player must not receive the frame")
	event, _ := queuedFrame(t, cb)
	assert.Equal(t, events.PlayerJoined, event)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	c := newClient(1, "user-1", nil)
	frame := []byte(`{"event":"x"}`)

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, c.enqueue(frame))
	}
	assert.False(t, c.enqueue(frame), "full queue must drop, not block")
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	c := newClient(1, "user-1", nil)
	c.close()
	assert.False(t, c.enqueue([]byte(`{}`)))
	c.close() // idempotent
}
