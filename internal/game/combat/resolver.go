package combat

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vexelgames/polyrift/internal/events"
	"github.com/vexelgames/polyrift/internal/game/weapon"
	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// Retaliation damage range, inclusive.
const (
	enemyDamageMin int32 = 5
	enemyDamageMax int32 = 9
)

// SessionTrack is the in-memory progression surface the resolver routes
// kill experience into.
type SessionTrack interface {
	AddExperience(p *model.Player, exp int64) (leveledUp bool, newLevel int32)
}

// PersistentTrack is the durable progression surface. Defined here so
// combat doesn't import the progression package's cache machinery.
type PersistentTrack interface {
	AddExperience(ctx context.Context, userID string, characterID int64, exp int64) (leveledUp bool, newLevel int32)
}

// AttackResult is the direct response of the single-target attack path.
type AttackResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Damage  int32                 `json:"damage,omitempty"`
	Enemy   *events.EnemySnapshot `json:"enemy,omitempty"`
}

// Resolver runs attack resolution: cooldown gating, target acquisition,
// damage, kill processing, experience routing and event emission.
type Resolver struct {
	state   *world.State
	weapons *weapon.Model
	sink    events.Sink

	session    SessionTrack
	persistent PersistentTrack

	// onRoomCleared is injected to avoid an import cycle with the
	// dungeon package. Wired by cmd/gameserver.
	onRoomCleared func(room *model.Room)
}

func NewResolver(
	state *world.State,
	weapons *weapon.Model,
	sink events.Sink,
	session SessionTrack,
	persistent PersistentTrack,
) *Resolver {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Resolver{
		state:      state,
		weapons:    weapons,
		sink:       sink,
		session:    session,
		persistent: persistent,
	}
}

// SetRoomClearedFunc sets the callback invoked exactly once when a
// room's last enemy dies.
func (r *Resolver) SetRoomClearedFunc(fn func(room *model.Room)) {
	r.onRoomCleared = fn
}

// kill is one enemy death produced by a resolution.
type kill struct {
	enemyID uint32
	loot    model.Loot
	exp     int64
}

// ResolveAttack runs one combat resolution for a player. It is the
// atomic unit of combat work the attack ticker schedules:
//
//  1. No-op without a bound room or while the weapon cooldown runs.
//  2. Acquire targets; an empty result does NOT consume the cooldown.
//  3. Damage each target, collect per-enemy records.
//  4. Process deaths exactly once: remove from room, roll loot,
//     compute the experience reward.
//  5. Stamp the attack time.
//  6. Emit the damage batch to the party and the considered-target
//     list to the attacker alone.
//  7. Per kill: emit enemy-killed and route experience into both
//     progression tracks.
//  8. If the room just emptied, trigger the clear transition once.
func (r *Resolver) ResolveAttack(ctx context.Context, p *model.Player) {
	if p == nil {
		return
	}
	room := r.state.PlayerRoom(p.ID())
	if room == nil {
		return
	}

	stats := r.weapons.GetStats(p)

	now := time.Now()
	if now.Sub(stats.LastAttackTime) < stats.CooldownDuration() {
		return
	}

	targets := r.weapons.FindTargets(p, room)
	if len(targets) == 0 {
		return
	}

	records := make([]events.DamageRecord, 0, len(targets))
	targetIDs := make([]uint32, 0, len(targets))
	var kills []kill

	for _, enemy := range targets {
		damage := rollDamage(stats)
		remaining := enemy.ReduceHealth(damage)
		records = append(records, events.DamageRecord{
			EnemyID:   enemy.ID(),
			Damage:    damage,
			Health:    remaining,
			MaxHealth: enemy.MaxHealth(),
		})
		targetIDs = append(targetIDs, enemy.ID())

		if remaining <= 0 {
			if k, ok := r.processKill(room, enemy); ok {
				kills = append(kills, k)
			}
		}
	}

	p.SetLastAttackTime(now)

	r.sink.BroadcastToParty(room.PartyID(), events.DamageBatch, events.DamageBatchPayload{
		AttackerID: p.ID(),
		Records:    records,
	})
	r.sink.SendToPlayer(p.ID(), events.TargetingUpdate, events.TargetingUpdatePayload{
		EnemyIDs: targetIDs,
	})

	for _, k := range kills {
		r.sink.BroadcastToParty(room.PartyID(), events.EnemyKilled, events.EnemyKilledPayload{
			EnemyID:  k.enemyID,
			KillerID: p.ID(),
			Loot:     k.loot,
		})
		r.routeExperience(ctx, room.PartyID(), p, k.exp)
	}

	if len(kills) > 0 {
		slog.Debug("attack resolved",
			"player", p.ID(),
			"room", room.ID(),
			"targets", len(targets),
			"kills", len(kills))
	}

	r.maybeClearRoom(room)
}

// processKill claims the death of an enemy that reached zero health.
// Exactly one resolution wins the claim; only the winner removes the
// enemy from the room and rolls loot and experience.
func (r *Resolver) processKill(room *model.Room, enemy *model.Enemy) (kill, bool) {
	if !enemy.MarkKilled() {
		return kill{}, false
	}
	if !room.RemoveEnemy(enemy.ID()) {
		return kill{}, false
	}

	loot := GenerateLoot(r.state.IDs(), enemy)
	room.AddLoot(loot)

	return kill{
		enemyID: enemy.ID(),
		loot:    loot,
		exp:     RewardFor(enemy),
	}, true
}

// routeExperience feeds one kill's reward into both progression tracks.
// The session track applies immediately; the persistent round-trip is
// awaited in full before its level result is read, and the player must
// still be connected for the durable level-up event to go out.
func (r *Resolver) routeExperience(ctx context.Context, partyID int32, p *model.Player, exp int64) {
	if r.session != nil {
		if leveledUp, newLevel := r.session.AddExperience(p, exp); leveledUp {
			// A fresh level refills the pools.
			p.SetHealth(p.MaxHealth())
			p.SetMana(p.MaxMana())
			r.sink.BroadcastToParty(partyID, events.LevelUp, events.LevelUpPayload{
				PlayerID: p.ID(),
				Level:    newLevel,
				Track:    "session",
			})
			slog.Info("player leveled up",
				"player", p.ID(),
				"level", newLevel,
				"track", "session")
		}
	}

	if r.persistent == nil || p.CharacterID() == 0 {
		return
	}
	leveledUp, newLevel := r.persistent.AddExperience(ctx, p.UserID(), p.CharacterID(), exp)
	if !leveledUp {
		return
	}
	if r.state.Player(p.ID()) == nil {
		// Disconnected while the write was in flight; drop the event.
		return
	}
	r.sink.SendToPlayer(p.ID(), events.LevelUp, events.LevelUpPayload{
		PlayerID: p.ID(),
		Level:    newLevel,
		Track:    "character",
	})
	slog.Info("player leveled up",
		"player", p.ID(),
		"level", newLevel,
		"track", "character")
}

// maybeClearRoom triggers the clear transition when the last enemy is
// gone. MarkCleared's check-and-set guarantees one winner no matter how
// many resolutions observe the empty room.
func (r *Resolver) maybeClearRoom(room *model.Room) {
	if room.EnemyCount() > 0 {
		return
	}
	if !room.MarkCleared() {
		return
	}
	slog.Info("room cleared", "room", room.ID(), "party", room.PartyID())
	if r.onRoomCleared != nil {
		r.onRoomCleared(room)
	}
}

// AttackEnemy is the single-target attack path driven directly by a
// client message. It applies the same damage, kill, loot and experience
// pipeline as ResolveAttack to exactly one enemy and answers with an
// explicit result instead of events alone.
func (r *Resolver) AttackEnemy(ctx context.Context, p *model.Player, enemyID uint32) AttackResult {
	if p == nil {
		return AttackResult{Message: "player not found"}
	}
	room := r.state.PlayerRoom(p.ID())
	if room == nil {
		return AttackResult{Message: "not in a dungeon"}
	}
	enemy := room.Enemy(enemyID)
	if enemy == nil {
		return AttackResult{Message: "enemy not found"}
	}
	if enemy.IsDead() {
		return AttackResult{Message: "enemy already dead"}
	}

	stats := r.weapons.GetStats(p)
	damage := rollDamage(stats)
	remaining := enemy.ReduceHealth(damage)

	r.sink.BroadcastToParty(room.PartyID(), events.DamageBatch, events.DamageBatchPayload{
		AttackerID: p.ID(),
		Records: []events.DamageRecord{{
			EnemyID:   enemy.ID(),
			Damage:    damage,
			Health:    remaining,
			MaxHealth: enemy.MaxHealth(),
		}},
	})

	if remaining <= 0 {
		if k, ok := r.processKill(room, enemy); ok {
			r.sink.BroadcastToParty(room.PartyID(), events.EnemyKilled, events.EnemyKilledPayload{
				EnemyID:  k.enemyID,
				KillerID: p.ID(),
				Loot:     k.loot,
			})
			r.routeExperience(ctx, room.PartyID(), p, k.exp)
		}
		r.maybeClearRoom(room)
	}

	return AttackResult{
		Success: true,
		Damage:  damage,
		Enemy: &events.EnemySnapshot{
			ID:        enemy.ID(),
			Name:      enemy.Name(),
			Position:  enemy.Position(),
			Health:    remaining,
			MaxHealth: enemy.MaxHealth(),
			Level:     enemy.Level(),
		},
	}
}

// EnemyAttackPlayer is the retaliation entry point: a fixed 5-9 damage
// swing against a player. Broadcasts the hit to the party and signals
// death to the target the moment health bottoms out.
func (r *Resolver) EnemyAttackPlayer(enemy *model.Enemy, p *model.Player) {
	if enemy == nil || p == nil || enemy.IsDead() || p.IsDead() {
		return
	}

	damage := enemyDamageMin + rand.Int32N(enemyDamageMax-enemyDamageMin+1)
	remaining := p.ReduceHealth(damage)

	payload := events.PlayerDamagedPayload{
		PlayerID:  p.ID(),
		EnemyID:   enemy.ID(),
		Damage:    damage,
		Health:    remaining,
		MaxHealth: p.MaxHealth(),
	}
	if partyID := p.PartyID(); partyID != 0 {
		r.sink.BroadcastToParty(partyID, events.PlayerDamaged, payload)
	} else {
		r.sink.SendToPlayer(p.ID(), events.PlayerDamaged, payload)
	}

	if remaining <= 0 && p.DoDie() {
		r.sink.SendToPlayer(p.ID(), events.PlayerDied, events.PlayerDiedPayload{
			PlayerID: p.ID(),
			EnemyID:  enemy.ID(),
		})
		slog.Info("player died", "player", p.ID(), "enemy", enemy.ID())
	}
}

// rollDamage is the shared damage roll: base plus a uniform slice of
// the variation range.
func rollDamage(stats *weapon.Stats) int32 {
	damage := stats.BaseDamage
	if stats.DamageVariation > 0 {
		damage += rand.Int32N(stats.DamageVariation)
	}
	return damage
}
