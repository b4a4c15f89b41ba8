package model

import (
	"sync"
	"time"
)

// Session-stat defaults applied when a player enters the world. Session
// stats live only for the lifetime of the connection; the persistent
// character record keeps its own copy of the long-lived ones.
const (
	DefaultMaxHealth             int32   = 100
	DefaultMaxMana               int32   = 50
	DefaultMovementSpeed         float64 = 1.0
	DefaultDamageMultiplier      float64 = 1.0
	DefaultAttackSpeedMultiplier float64 = 1.0
	DefaultDefense               int32   = 0
	DefaultLevel                 int32   = 1
	DefaultExperienceToNext      int64   = 100
	DefaultWeaponType                    = "basic"
)

// WeaponOverrides carries per-player stat overrides applied on top of the
// weapon catalogue entry. A nil field means the catalogue value applies.
// Overrides survive weapon changes: swapping weapon type reassigns the
// type only.
type WeaponOverrides struct {
	AttackRadius    *float64
	AttackCooldown  *float64 // milliseconds
	BaseDamage      *int32
	DamageVariation *int32
	MaxTargets      *int32
}

// Clone returns a deep copy so callers can read a snapshot without
// holding the player lock.
func (w WeaponOverrides) Clone() WeaponOverrides {
	out := WeaponOverrides{}
	if w.AttackRadius != nil {
		v := *w.AttackRadius
		out.AttackRadius = &v
	}
	if w.AttackCooldown != nil {
		v := *w.AttackCooldown
		out.AttackCooldown = &v
	}
	if w.BaseDamage != nil {
		v := *w.BaseDamage
		out.BaseDamage = &v
	}
	if w.DamageVariation != nil {
		v := *w.DamageVariation
		out.DamageVariation = &v
	}
	if w.MaxTargets != nil {
		v := *w.MaxTargets
		out.MaxTargets = &v
	}
	return out
}

// Player is the live in-world representation of a connected user.
// One instance per connection; all fields are guarded by mu unless
// noted otherwise.
type Player struct {
	mu sync.RWMutex

	deathOnce sync.Once // protects death processing from double execution

	id       uint32
	userID   string
	username string
	shape    string
	color    string

	position Vector3

	health    int32
	maxHealth int32
	mana      int32
	maxMana   int32

	movementSpeed         float64
	damageMultiplier      float64
	attackSpeedMultiplier float64
	defense               int32

	level            int32
	experience       int64
	experienceToNext int64

	weaponType      string
	weaponOverrides WeaponOverrides

	// lastAttackTime only ever advances; SetLastAttackTime ignores
	// timestamps at or before the stored value.
	lastAttackTime time.Time

	characterID int64 // 0 = no persistent character bound

	roomID  int32 // 0 = not in a dungeon room
	partyID int32 // 0 = not in a party

	pendingInvite *PartyInvite

	hubReturnPosition    Vector3
	hasHubReturnPosition bool
}

// NewPlayer creates a player with full session defaults. Every stat is
// populated here so downstream code never re-checks for absent fields.
func NewPlayer(id uint32, userID, username string) *Player {
	return &Player{
		id:                    id,
		userID:                userID,
		username:              username,
		health:                DefaultMaxHealth,
		maxHealth:             DefaultMaxHealth,
		mana:                  DefaultMaxMana,
		maxMana:               DefaultMaxMana,
		movementSpeed:         DefaultMovementSpeed,
		damageMultiplier:      DefaultDamageMultiplier,
		attackSpeedMultiplier: DefaultAttackSpeedMultiplier,
		defense:               DefaultDefense,
		level:                 DefaultLevel,
		experienceToNext:      DefaultExperienceToNext,
		weaponType:            DefaultWeaponType,
	}
}

func (p *Player) ID() uint32 {
	return p.id
}

func (p *Player) UserID() string {
	return p.userID
}

func (p *Player) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.username
}

func (p *Player) SetUsername(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.username = name
}

func (p *Player) Shape() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.shape
}

func (p *Player) SetShape(shape string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shape = shape
}

func (p *Player) Color() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.color
}

func (p *Player) SetColor(color string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = color
}

func (p *Player) Position() Vector3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Player) SetPosition(pos Vector3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
}

func (p *Player) Health() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

func (p *Player) MaxHealth() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxHealth
}

// SetHealth clamps to 0..maxHealth.
func (p *Player) SetHealth(hp int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hp < 0 {
		hp = 0
	}
	if hp > p.maxHealth {
		hp = p.maxHealth
	}
	p.health = hp
}

// SetMaxHealth raises or lowers the cap and trims current health to fit.
func (p *Player) SetMaxHealth(maxHP int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxHP < 1 {
		maxHP = 1
	}
	p.maxHealth = maxHP
	if p.health > p.maxHealth {
		p.health = p.maxHealth
	}
}

// ReduceHealth applies damage and returns the remaining health.
func (p *Player) ReduceHealth(damage int32) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health = max(p.health-damage, 0)
	return p.health
}

// Heal restores health up to the cap and returns the new value.
func (p *Player) Heal(amount int32) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health = min(p.health+amount, p.maxHealth)
	return p.health
}

func (p *Player) IsDead() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health <= 0
}

// DoDie runs death processing exactly once per life. Returns true for the
// caller that performed the death; concurrent or repeated calls return
// false until Revive resets the guard.
func (p *Player) DoDie() bool {
	executed := false
	p.deathOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.health = 0
		executed = true
	})
	return executed
}

// Revive restores full health and mana and re-arms the death guard.
func (p *Player) Revive() {
	p.mu.Lock()
	p.health = p.maxHealth
	p.mana = p.maxMana
	p.mu.Unlock()
	p.deathOnce = sync.Once{}
}

func (p *Player) Mana() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mana
}

func (p *Player) MaxMana() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxMana
}

// SetMana clamps to 0..maxMana.
func (p *Player) SetMana(mp int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mp < 0 {
		mp = 0
	}
	if mp > p.maxMana {
		mp = p.maxMana
	}
	p.mana = mp
}

func (p *Player) SetMaxMana(maxMP int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxMP < 1 {
		maxMP = 1
	}
	p.maxMana = maxMP
	if p.mana > p.maxMana {
		p.mana = p.maxMana
	}
}

// RestoreMana adds mana up to the cap and returns the new value.
func (p *Player) RestoreMana(amount int32) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mana = min(p.mana+amount, p.maxMana)
	return p.mana
}

func (p *Player) MovementSpeed() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.movementSpeed
}

func (p *Player) SetMovementSpeed(speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if speed < 0 {
		speed = 0
	}
	p.movementSpeed = speed
}

func (p *Player) DamageMultiplier() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.damageMultiplier
}

func (p *Player) SetDamageMultiplier(mult float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mult < 0 {
		mult = 0
	}
	p.damageMultiplier = mult
}

func (p *Player) AttackSpeedMultiplier() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attackSpeedMultiplier
}

func (p *Player) SetAttackSpeedMultiplier(mult float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mult < 0 {
		mult = 0
	}
	p.attackSpeedMultiplier = mult
}

func (p *Player) Defense() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defense
}

func (p *Player) SetDefense(defense int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if defense < 0 {
		defense = 0
	}
	p.defense = defense
}

func (p *Player) Level() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

func (p *Player) SetLevel(level int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level < 1 {
		level = 1
	}
	p.level = level
}

func (p *Player) Experience() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.experience
}

func (p *Player) SetExperience(exp int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if exp < 0 {
		exp = 0
	}
	p.experience = exp
}

func (p *Player) ExperienceToNext() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.experienceToNext
}

func (p *Player) SetExperienceToNext(threshold int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if threshold < 1 {
		threshold = 1
	}
	p.experienceToNext = threshold
}

func (p *Player) WeaponType() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.weaponType
}

func (p *Player) SetWeaponType(weaponType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponType = weaponType
}

// WeaponOverrides returns a snapshot of the current overrides.
func (p *Player) WeaponOverrides() WeaponOverrides {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.weaponOverrides.Clone()
}

func (p *Player) SetAttackRadiusOverride(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponOverrides.AttackRadius = &v
}

func (p *Player) SetAttackCooldownOverride(ms float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponOverrides.AttackCooldown = &ms
}

func (p *Player) SetBaseDamageOverride(v int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponOverrides.BaseDamage = &v
}

func (p *Player) SetDamageVariationOverride(v int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponOverrides.DamageVariation = &v
}

func (p *Player) SetMaxTargetsOverride(v int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weaponOverrides.MaxTargets = &v
}

func (p *Player) LastAttackTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAttackTime
}

// SetLastAttackTime records a swing timestamp. Stale timestamps are
// dropped so the cooldown clock never moves backwards.
func (p *Player) SetLastAttackTime(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.After(p.lastAttackTime) {
		p.lastAttackTime = t
	}
}

func (p *Player) CharacterID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.characterID
}

func (p *Player) SetCharacterID(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.characterID = id
}

func (p *Player) RoomID() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.roomID
}

func (p *Player) SetRoomID(id int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roomID = id
}

func (p *Player) PartyID() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.partyID
}

func (p *Player) SetPartyID(id int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partyID = id
}

// PendingPartyInvite returns the invitation awaiting this player's
// answer, or nil.
func (p *Player) PendingPartyInvite() *PartyInvite {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pendingInvite
}

func (p *Player) SetPendingPartyInvite(invite *PartyInvite) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingInvite = invite
}

func (p *Player) ClearPendingPartyInvite() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingInvite = nil
}

// SetHubReturnPosition remembers where the player stood before entering
// a dungeon so the return trip can restore it.
func (p *Player) SetHubReturnPosition(pos Vector3) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hubReturnPosition = pos
	p.hasHubReturnPosition = true
}

func (p *Player) HubReturnPosition() (Vector3, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hubReturnPosition, p.hasHubReturnPosition
}

func (p *Player) ClearHubReturnPosition() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hubReturnPosition = Vector3{}
	p.hasHubReturnPosition = false
}
