package model

import (
	"sync"
	"time"
)

// Enemy defaults used when a spawn template leaves the field unset.
const (
	DefaultEnemyLevel     int32 = 1
	DefaultEnemyExpReward int64 = 10
)

// Enemy is a hostile NPC living inside a dungeon room. Enemies never
// respawn; once killed the room removes them.
type Enemy struct {
	mu sync.RWMutex

	killOnce sync.Once // first caller wins the kill

	id        uint32
	name      string
	position  Vector3
	health    int32
	maxHealth int32
	level     int32
	expReward int64
	evasion   float64 // hit-chance reduction, 0..1

	// lootType forces the drop category ("gold", "health", "mana").
	// Empty means the drop roll picks one at random.
	lootType string

	lastAttackTime time.Time
}

// NewEnemy builds a fully-populated enemy. Zero or negative level and
// experience reward fall back to defaults so reward math never re-checks.
func NewEnemy(id uint32, name string, pos Vector3, maxHealth, level int32, expReward int64) *Enemy {
	if maxHealth < 1 {
		maxHealth = 1
	}
	if level < 1 {
		level = DefaultEnemyLevel
	}
	if expReward <= 0 {
		expReward = DefaultEnemyExpReward
	}
	return &Enemy{
		id:        id,
		name:      name,
		position:  pos,
		health:    maxHealth,
		maxHealth: maxHealth,
		level:     level,
		expReward: expReward,
	}
}

func (e *Enemy) ID() uint32 {
	return e.id
}

func (e *Enemy) Name() string {
	return e.name
}

func (e *Enemy) Position() Vector3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

func (e *Enemy) SetPosition(pos Vector3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = pos
}

func (e *Enemy) Health() int32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health
}

func (e *Enemy) MaxHealth() int32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxHealth
}

// ReduceHealth applies damage and returns the remaining health, floored
// at zero.
func (e *Enemy) ReduceHealth(damage int32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.health = max(e.health-damage, 0)
	return e.health
}

func (e *Enemy) IsDead() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.health <= 0
}

// MarkKilled claims the kill. Exactly one caller receives true no matter
// how many attackers drop the enemy to zero in the same tick; loot and
// experience are granted only on that call.
func (e *Enemy) MarkKilled() bool {
	claimed := false
	e.killOnce.Do(func() {
		e.mu.Lock()
		e.health = 0
		e.mu.Unlock()
		claimed = true
	})
	return claimed
}

func (e *Enemy) Level() int32 {
	return e.level
}

func (e *Enemy) ExpReward() int64 {
	return e.expReward
}

func (e *Enemy) LootType() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lootType
}

func (e *Enemy) SetLootType(lootType string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lootType = lootType
}

// ClaimStrike reserves a retaliation swing. Returns true and records
// the swing time when the enemy's own cooldown has elapsed; one winner
// per window even under concurrent callers.
func (e *Enemy) ClaimStrike(now time.Time, cooldown time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.lastAttackTime.IsZero() && now.Sub(e.lastAttackTime) < cooldown {
		return false
	}
	e.lastAttackTime = now
	return true
}

func (e *Enemy) Evasion() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.evasion
}

// SetEvasion clamps to 0..1.
func (e *Enemy) SetEvasion(evasion float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if evasion < 0 {
		evasion = 0
	}
	if evasion > 1 {
		evasion = 1
	}
	e.evasion = evasion
}
