// Package dungeon drives the room lifecycle: a party enters a templated
// room full of enemies, combat empties it, and everyone is walked back
// to the hub. Created -> Active -> Cleared -> Destroyed, in that order,
// each room exactly once.
package dungeon

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// Scheduler enrolls room occupants in combat ticking. Satisfied by
// combat.TickManager; defined here so the dependency arrow stays
// pointed away from the combat package.
type Scheduler interface {
	Register(p *model.Player)
	Unregister(playerID uint32)
}

// Manager creates rooms from templates and runs the hub-return sequence
// when combat reports a room cleared. The template set is fixed at
// construction; lookups need no locking.
type Manager struct {
	state     *world.State
	sink      events.Sink
	ticks     Scheduler
	templates map[string]*Template
	names     []string
}

func NewManager(state *world.State, sink events.Sink, templates []Template) (*Manager, error) {
	if sink == nil {
		sink = events.NopSink{}
	}
	m := &Manager{
		state:     state,
		sink:      sink,
		templates: make(map[string]*Template, len(templates)),
	}
	for i := range templates {
		t := templates[i]
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		if _, dup := m.templates[t.Name]; dup {
			return nil, fmt.Errorf("template %q: %w", t.Name, ErrDuplicateTemplate)
		}
		m.templates[t.Name] = &t
		m.names = append(m.names, t.Name)
	}
	sort.Strings(m.names)
	return m, nil
}

// SetScheduler wires the combat tick scheduler. Members entering a room
// are registered with it and unregistered on their way out.
func (m *Manager) SetScheduler(s Scheduler) {
	m.ticks = s
}

// Template returns a registered layout by name, or nil.
func (m *Manager) Template(name string) *Template {
	return m.templates[name]
}

// TemplateNames returns the registered layout names, sorted.
func (m *Manager) TemplateNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// StartDungeon creates a room from the named template for the player's
// party and moves every member into it. A player without a party gets
// an implicit solo party. Only the leader may start, and only while the
// party has no room in flight.
func (m *Manager) StartDungeon(leaderID uint32, templateName string) (*model.Room, error) {
	p := m.state.Player(leaderID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	tmpl, ok := m.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("start dungeon %q: %w", templateName, ErrTemplateNotFound)
	}

	party := m.state.PlayerParty(leaderID)
	if party == nil {
		party = m.state.CreateParty(p)
	} else if !party.IsLeader(leaderID) {
		return nil, ErrNotPartyLeader
	}
	if party.RoomID() != 0 {
		return nil, ErrDungeonInProgress
	}

	room := model.NewRoom(m.state.NextRoomID(), party.ID(), tmpl.Name, party.MemberIDs())
	for _, spawn := range tmpl.Spawns {
		enemy := model.NewEnemy(m.state.IDs().NextEnemyID(), spawn.Name, spawn.Position,
			spawn.Health, spawn.Level, spawn.ExpReward)
		if spawn.LootType != "" {
			enemy.SetLootType(spawn.LootType)
		}
		if spawn.Evasion > 0 {
			enemy.SetEvasion(spawn.Evasion)
		}
		room.AddEnemy(enemy)
	}

	m.state.AddRoom(room)
	party.SetRoomID(room.ID())

	for _, member := range party.Members() {
		member.SetHubReturnPosition(member.Position())
		member.SetRoomID(room.ID())
		member.SetPosition(tmpl.Entry)
		if m.state.LeaveHub(member.ID()) {
			m.sink.BroadcastToHub(events.PlayerLeft, events.PlayerLeftPayload{PlayerID: member.ID()}, member.ID())
		}
		if m.ticks != nil {
			m.ticks.Register(member)
		}
	}

	room.SetState(model.RoomStateActive)

	m.sink.BroadcastToParty(party.ID(), events.DungeonEntered, events.DungeonEnteredPayload{
		RoomID:   room.ID(),
		Template: tmpl.Name,
		Enemies:  enemySnapshots(room),
	})

	slog.Info("dungeon started",
		"room", room.ID(),
		"party", party.ID(),
		"template", tmpl.Name,
		"members", party.MemberCount(),
		"enemies", room.EnemyCount())

	return room, nil
}

// HandleRoomCleared runs the clear sequence for a room whose transition
// was claimed by combat: one room-cleared broadcast for the party, then
// each member is returned to the hub, then the room record is dropped.
// The MarkCleared guard upstream guarantees single entry per room.
func (m *Manager) HandleRoomCleared(room *model.Room) {
	if room == nil {
		return
	}
	room.SetState(model.RoomStateCleared)

	m.sink.BroadcastToParty(room.PartyID(), events.RoomCleared, events.RoomClearedPayload{RoomID: room.ID()})

	party := m.state.Party(room.PartyID())
	var members []*model.Player
	if party != nil {
		members = party.Members()
	} else {
		// Party disbanded mid-run; fall back to the creation snapshot.
		for _, id := range room.Members() {
			if p := m.state.Player(id); p != nil {
				members = append(members, p)
			}
		}
	}

	for _, member := range members {
		m.returnToHub(member)
	}

	room.SetState(model.RoomStateDestroyed)
	m.state.RemoveRoom(room.ID())
	if party != nil {
		party.SetRoomID(0)
	}

	slog.Info("room destroyed", "room", room.ID(), "party", room.PartyID())
}

// ReturnMemberToHub walks a single player out of their room ahead of the
// clear sequence, for example when they quit the party mid-run. No-op
// for players without a room binding.
func (m *Manager) ReturnMemberToHub(p *model.Player) {
	if p == nil || p.RoomID() == 0 {
		return
	}
	m.returnToHub(p)
}

// returnToHub restores one member: saved hub position (origin when none
// was recorded), room binding dropped, occupant set rejoined, then an
// individually-addressed return event, a fresh hub snapshot, and a join
// announce for everyone else.
func (m *Manager) returnToHub(member *model.Player) {
	if m.ticks != nil {
		m.ticks.Unregister(member.ID())
	}

	pos, ok := member.HubReturnPosition()
	if !ok {
		pos = model.Vector3{}
	}
	member.SetPosition(pos)
	member.SetRoomID(0)
	member.ClearHubReturnPosition()
	m.state.EnterHub(member.ID())

	m.sink.SendToPlayer(member.ID(), events.ReturnToHub, events.ReturnToHubPayload{Position: pos})
	m.sink.SendToPlayer(member.ID(), events.HubSnapshot, events.HubSnapshotPayload{Occupants: m.hubOccupants()})
	m.sink.BroadcastToHub(events.PlayerJoined, events.PlayerJoinedPayload{Player: events.NewHubOccupant(member)}, member.ID())
}

func (m *Manager) hubOccupants() []events.HubOccupant {
	players := m.state.HubOccupants()
	out := make([]events.HubOccupant, 0, len(players))
	for _, p := range players {
		out = append(out, events.NewHubOccupant(p))
	}
	return out
}

func enemySnapshots(room *model.Room) []events.EnemySnapshot {
	enemies := room.Enemies()
	out := make([]events.EnemySnapshot, 0, len(enemies))
	for _, e := range enemies {
		out = append(out, events.EnemySnapshot{
			ID:        e.ID(),
			Name:      e.Name(),
			Position:  e.Position(),
			Health:    e.Health(),
			MaxHealth: e.MaxHealth(),
			Level:     e.Level(),
		})
	}
	return out
}
