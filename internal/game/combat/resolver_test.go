package combat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/game/weapon"
	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// recordingSink captures every emission for assertion.
type recordingSink struct {
	mu      sync.Mutex
	entries []sinkEntry
}

type sinkEntry struct {
	target  string
	event   string
	payload any
}

func (s *recordingSink) SendToPlayer(playerID uint32, event string, payload any) {
	s.record(fmt.Sprintf("player:%d", playerID), event, payload)
}

func (s *recordingSink) BroadcastToParty(partyID int32, event string, payload any) {
	s.record(fmt.Sprintf("party:%d", partyID), event, payload)
}

func (s *recordingSink) BroadcastToHub(event string, payload any, exceptID uint32) {
	s.record("hub", event, payload)
}

func (s *recordingSink) record(target, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, sinkEntry{target: target, event: event, payload: payload})
}

func (s *recordingSink) byEvent(event string) []sinkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sinkEntry
	for _, e := range s.entries {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type stubSession struct {
	mu        sync.Mutex
	awards    []int64
	leveledUp bool
	newLevel  int32
}

func (s *stubSession) AddExperience(p *model.Player, exp int64) (bool, int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awards = append(s.awards, exp)
	if s.leveledUp {
		return true, s.newLevel
	}
	return false, p.Level()
}

func (s *stubSession) awardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.awards)
}

type stubPersistent struct {
	mu        sync.Mutex
	awards    []int64
	leveledUp bool
	newLevel  int32
}

func (s *stubPersistent) AddExperience(ctx context.Context, userID string, characterID int64, exp int64) (bool, int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awards = append(s.awards, exp)
	return s.leveledUp, s.newLevel
}

func (s *stubPersistent) awardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.awards)
}

type combatFixture struct {
	state      *world.State
	sink       *recordingSink
	session    *stubSession
	persistent *stubPersistent
	resolver   *Resolver
	player     *model.Player
	party      *model.Party
	room       *model.Room

	clearedRooms []int32
}

func newCombatFixture(t *testing.T) *combatFixture {
	t.Helper()

	f := &combatFixture{
		state:      world.NewState(),
		sink:       &recordingSink{},
		session:    &stubSession{},
		persistent: &stubPersistent{},
	}

	f.player = model.NewPlayer(f.state.IDs().NextPlayerID(), "user-1", "Alice")
	f.player.SetCharacterID(77)
	f.state.AddPlayer(f.player)

	f.party = f.state.CreateParty(f.player)

	roomID := f.state.NextRoomID()
	f.room = model.NewRoom(roomID, f.party.ID(), "crypt", []uint32{f.player.ID()})
	f.room.SetState(model.RoomStateActive)
	f.state.AddRoom(f.room)
	f.player.SetRoomID(roomID)
	f.party.SetRoomID(roomID)

	f.resolver = NewResolver(f.state, weapon.NewModel(nil), f.sink, f.session, f.persistent)
	f.resolver.SetRoomClearedFunc(func(room *model.Room) {
		f.clearedRooms = append(f.clearedRooms, room.ID())
	})
	return f
}

func (f *combatFixture) addEnemy(t *testing.T, pos model.Vector3, health int32) *model.Enemy {
	t.Helper()
	e := model.NewEnemy(f.state.IDs().NextEnemyID(), "Slime", pos, health, 1, 10)
	f.room.AddEnemy(e)
	return e
}

// Fixed damage roll: no variation, exact base damage.
func (f *combatFixture) setFixedDamage(damage int32) {
	f.player.SetBaseDamageOverride(damage)
	f.player.SetDamageVariationOverride(0)
}

func TestResolveAttack_KillsSingleEnemy(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 5)

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Equal(t, 0, f.room.EnemyCount(), "enemy removed from the room")
	assert.True(t, enemy.IsDead())

	batches := f.sink.byEvent(events.DamageBatch)
	require.Len(t, batches, 1)
	batch := batches[0].payload.(events.DamageBatchPayload)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, enemy.ID(), batch.Records[0].EnemyID)
	assert.Equal(t, int32(10), batch.Records[0].Damage)
	assert.Equal(t, int32(0), batch.Records[0].Health, "health clamped at zero")

	killed := f.sink.byEvent(events.EnemyKilled)
	require.Len(t, killed, 1, "exactly one kill event")
	loot := killed[0].payload.(events.EnemyKilledPayload).Loot
	assert.Equal(t, enemy.ID(), loot.EnemyID)

	require.Len(t, f.room.Loot(), 1, "exactly one loot entry")
	assert.Equal(t, 1, f.session.awardCount(), "exactly one session XP award")
	assert.Equal(t, 1, f.persistent.awardCount(), "exactly one persistent XP award")
}

func TestResolveAttack_CooldownConsumedOnce(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(1)
	f.addEnemy(t, model.Vector3{X: 1}, 1000)

	f.resolver.ResolveAttack(context.Background(), f.player)
	f.resolver.ResolveAttack(context.Background(), f.player)

	batches := f.sink.byEvent(events.DamageBatch)
	assert.Len(t, batches, 1, "second call inside the cooldown window is a no-op")
}

func TestResolveAttack_EmptyTargetsKeepsCooldown(t *testing.T) {
	f := newCombatFixture(t)
	f.addEnemy(t, model.Vector3{X: 500}, 10) // far outside attack radius

	before := f.player.LastAttackTime()
	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Equal(t, before, f.player.LastAttackTime(), "cooldown not consumed on empty result")
	assert.Empty(t, f.sink.byEvent(events.DamageBatch))
	assert.Empty(t, f.sink.byEvent(events.TargetingUpdate))
}

func TestResolveAttack_NoRoomIsNoop(t *testing.T) {
	f := newCombatFixture(t)
	f.player.SetRoomID(0)

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Empty(t, f.sink.entries)
	assert.Equal(t, 0, f.session.awardCount())
}

func TestResolveAttack_ClearsRoomExactlyOnce(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(30)
	f.player.SetMaxTargetsOverride(3)
	f.player.SetAttackRadiusOverride(10)

	for i := range 3 {
		f.addEnemy(t, model.Vector3{X: float64(i + 1)}, 20)
	}

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Equal(t, 0, f.room.EnemyCount(), "one resolution empties the room")
	assert.Len(t, f.sink.byEvent(events.EnemyKilled), 3)
	assert.Len(t, f.room.Loot(), 3)
	assert.Equal(t, 3, f.session.awardCount(), "three XP credits")
	assert.Equal(t, 3, f.persistent.awardCount())
	assert.Equal(t, []int32{f.room.ID()}, f.clearedRooms, "exactly one clear transition")
	assert.True(t, f.room.IsCleared())
}

func TestResolveAttack_TargetingUpdateGoesToAttackerOnly(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(1)
	e := f.addEnemy(t, model.Vector3{X: 1}, 100)

	f.resolver.ResolveAttack(context.Background(), f.player)

	updates := f.sink.byEvent(events.TargetingUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, fmt.Sprintf("player:%d", f.player.ID()), updates[0].target)
	assert.Equal(t, []uint32{e.ID()}, updates[0].payload.(events.TargetingUpdatePayload).EnemyIDs)

	batches := f.sink.byEvent(events.DamageBatch)
	require.Len(t, batches, 1)
	assert.Equal(t, fmt.Sprintf("party:%d", f.party.ID()), batches[0].target, "damage batch goes to the party")
}

func TestResolveAttack_SessionLevelUpRestoresPools(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	f.session.leveledUp = true
	f.session.newLevel = 2
	f.addEnemy(t, model.Vector3{X: 1}, 5)

	f.player.ReduceHealth(60)
	f.player.SetMana(5)

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Equal(t, f.player.MaxHealth(), f.player.Health(), "level-up refills health")
	assert.Equal(t, f.player.MaxMana(), f.player.Mana(), "level-up refills mana")

	levelUps := f.sink.byEvent(events.LevelUp)
	require.Len(t, levelUps, 1)
	payload := levelUps[0].payload.(events.LevelUpPayload)
	assert.Equal(t, "session", payload.Track)
	assert.Equal(t, int32(2), payload.Level)
}

func TestResolveAttack_PersistentLevelUpEmitsDurableEvent(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	f.persistent.leveledUp = true
	f.persistent.newLevel = 4
	f.addEnemy(t, model.Vector3{X: 1}, 5)

	f.resolver.ResolveAttack(context.Background(), f.player)

	levelUps := f.sink.byEvent(events.LevelUp)
	require.Len(t, levelUps, 1)
	payload := levelUps[0].payload.(events.LevelUpPayload)
	assert.Equal(t, "character", payload.Track)
	assert.Equal(t, int32(4), payload.Level)
	assert.Equal(t, fmt.Sprintf("player:%d", f.player.ID()), levelUps[0].target)
}

func TestResolveAttack_PersistentLevelUpDroppedAfterDisconnect(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	f.addEnemy(t, model.Vector3{X: 1}, 5)

	// The persistent track simulates a level-up landing after the player
	// disconnected mid-resolution.
	disconnecting := &disconnectingPersistent{state: f.state, playerID: f.player.ID()}
	f.resolver.persistent = disconnecting

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Empty(t, f.sink.byEvent(events.LevelUp), "durable level-up dropped for a gone player")
}

type disconnectingPersistent struct {
	state    *world.State
	playerID uint32
}

func (d *disconnectingPersistent) AddExperience(ctx context.Context, userID string, characterID int64, exp int64) (bool, int32) {
	d.state.RemovePlayer(d.playerID)
	return true, 9
}

func TestResolveAttack_SkipsPersistentWithoutCharacter(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	f.player.SetCharacterID(0)
	f.addEnemy(t, model.Vector3{X: 1}, 5)

	f.resolver.ResolveAttack(context.Background(), f.player)

	assert.Equal(t, 1, f.session.awardCount())
	assert.Equal(t, 0, f.persistent.awardCount(), "no persistent write without a bound character")
}

func TestAttackEnemy(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 25)

	res := f.resolver.AttackEnemy(context.Background(), f.player, enemy.ID())

	require.True(t, res.Success)
	assert.Equal(t, int32(10), res.Damage)
	require.NotNil(t, res.Enemy)
	assert.Equal(t, int32(15), res.Enemy.Health)
	assert.Equal(t, 1, f.room.EnemyCount(), "enemy survives")
	assert.Len(t, f.sink.byEvent(events.DamageBatch), 1)
}

func TestAttackEnemy_KillRunsFullPipeline(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 5)

	res := f.resolver.AttackEnemy(context.Background(), f.player, enemy.ID())

	require.True(t, res.Success)
	assert.Equal(t, 0, f.room.EnemyCount())
	assert.Len(t, f.sink.byEvent(events.EnemyKilled), 1)
	assert.Len(t, f.room.Loot(), 1)
	assert.Equal(t, 1, f.session.awardCount())
	assert.Equal(t, []int32{f.room.ID()}, f.clearedRooms, "last kill clears the room")
}

func TestAttackEnemy_Failures(t *testing.T) {
	f := newCombatFixture(t)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 10)

	res := f.resolver.AttackEnemy(context.Background(), f.player, 0xdeadbeef)
	assert.False(t, res.Success)
	assert.Equal(t, "enemy not found", res.Message)

	f.player.SetRoomID(0)
	res = f.resolver.AttackEnemy(context.Background(), f.player, enemy.ID())
	assert.False(t, res.Success)
	assert.Equal(t, "not in a dungeon", res.Message)

	res = f.resolver.AttackEnemy(context.Background(), nil, enemy.ID())
	assert.False(t, res.Success)
}

func TestEnemyAttackPlayer(t *testing.T) {
	f := newCombatFixture(t)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 10)

	f.resolver.EnemyAttackPlayer(enemy, f.player)

	hits := f.sink.byEvent(events.PlayerDamaged)
	require.Len(t, hits, 1)
	payload := hits[0].payload.(events.PlayerDamagedPayload)
	assert.GreaterOrEqual(t, payload.Damage, enemyDamageMin)
	assert.LessOrEqual(t, payload.Damage, enemyDamageMax)
	assert.Equal(t, payload.Health, f.player.Health())
	assert.Empty(t, f.sink.byEvent(events.PlayerDied))
}

func TestEnemyAttackPlayer_DeathSignaledOnce(t *testing.T) {
	f := newCombatFixture(t)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 10)
	f.player.ReduceHealth(f.player.MaxHealth() - 1) // one hit from death

	f.resolver.EnemyAttackPlayer(enemy, f.player)
	require.True(t, f.player.IsDead())

	// A second swing at a corpse must not re-signal death.
	f.resolver.EnemyAttackPlayer(enemy, f.player)

	assert.Len(t, f.sink.byEvent(events.PlayerDied), 1, "death signaled exactly once")
}

func TestEnemyAttackPlayer_DeadEnemyCannotStrike(t *testing.T) {
	f := newCombatFixture(t)
	enemy := f.addEnemy(t, model.Vector3{X: 1}, 10)
	enemy.ReduceHealth(10)

	f.resolver.EnemyAttackPlayer(enemy, f.player)

	assert.Empty(t, f.sink.entries)
}

func TestTickManager_RegisterUnregister(t *testing.T) {
	f := newCombatFixture(t)
	tm := NewTickManager(f.resolver, f.state)

	tm.Register(f.player)
	tm.Register(f.player) // duplicate is a no-op
	if got := tm.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	tm.Unregister(f.player.ID())
	tm.Unregister(f.player.ID())
	if got := tm.Count(); got != 0 {
		t.Errorf("Count() after unregister = %d, want 0", got)
	}
}

func TestTickManager_DrivesResolution(t *testing.T) {
	f := newCombatFixture(t)
	f.setFixedDamage(10)
	f.addEnemy(t, model.Vector3{X: 1}, 5)

	tm := NewTickManager(f.resolver, f.state)
	tm.interval = 5 * time.Millisecond
	tm.Register(f.player)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tm.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for f.room.EnemyCount() > 0 {
		select {
		case <-deadline:
			t.Fatal("tick manager never resolved the attack")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}
	assert.True(t, f.room.IsCleared())
}

func TestTickManager_StopTerminatesLoop(t *testing.T) {
	f := newCombatFixture(t)
	tm := NewTickManager(f.resolver, f.state)
	tm.interval = 5 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- tm.Start(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	tm.Stop()
	tm.Stop() // idempotent

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestTickManager_EnemyRetaliation(t *testing.T) {
	f := newCombatFixture(t)
	// Park the enemy on top of the player with enough health that the
	// fixed 1-damage swings cannot kill it before it swings back.
	f.setFixedDamage(1)
	f.addEnemy(t, model.Vector3{X: 0.5}, 100000)

	tm := NewTickManager(f.resolver, f.state)
	tm.interval = 5 * time.Millisecond
	tm.Register(f.player)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tm.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(f.sink.byEvent(events.PlayerDamaged)) == 0 {
		select {
		case <-deadline:
			t.Fatal("enemy never retaliated")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hit := f.sink.byEvent(events.PlayerDamaged)[0].payload.(events.PlayerDamagedPayload)
	assert.GreaterOrEqual(t, hit.Damage, enemyDamageMin)
	assert.LessOrEqual(t, hit.Damage, enemyDamageMax)
}
