package progression

import (
	"fmt"
	"math"

	"github.com/vexelgames/polyrift/internal/game/weapon"
	"github.com/vexelgames/polyrift/internal/model"
)

// sessionLevelGrowth is the per-level threshold multiplier of the
// session track. The persistent track grows on its own, shallower
// curve; the two never sync.
const sessionLevelGrowth = 1.5

// CharacterStats is the display snapshot of a progression track. Ratio
// stats are pre-rendered to two decimals for the client.
type CharacterStats struct {
	Health                int32  `json:"health"`
	MaxHealth             int32  `json:"maxHealth"`
	Mana                  int32  `json:"mana"`
	MaxMana               int32  `json:"maxMana"`
	MovementSpeed         string `json:"movementSpeed"`
	DamageMultiplier      string `json:"damageMultiplier"`
	AttackSpeedMultiplier string `json:"attackSpeedMultiplier"`
	Defense               int32  `json:"defense"`
	Level                 int32  `json:"level"`
	Experience            int64  `json:"experience"`
	ExperienceToNextLevel int64  `json:"experienceToNextLevel"`
	WeaponType            string `json:"weaponType"`
}

// Session is the match-scoped progression track. Everything it mutates
// lives on the runtime player and dies with the connection; the durable
// counterpart is Persistent.
type Session struct {
	weapons *weapon.Model
}

func NewSession(weapons *weapon.Model) *Session {
	return &Session{weapons: weapons}
}

// Initialize backfills session defaults for any stat still at its zero
// value. model.NewPlayer populates everything up front, so for the
// normal connect path this changes nothing; it exists so a player
// record can never enter the world half-filled.
func (s *Session) Initialize(p *model.Player) {
	if p == nil {
		return
	}
	if p.MaxHealth() <= 0 {
		p.SetMaxHealth(model.DefaultMaxHealth)
		p.SetHealth(model.DefaultMaxHealth)
	}
	if p.MaxMana() <= 0 {
		p.SetMaxMana(model.DefaultMaxMana)
		p.SetMana(model.DefaultMaxMana)
	}
	if p.MovementSpeed() <= 0 {
		p.SetMovementSpeed(model.DefaultMovementSpeed)
	}
	if p.DamageMultiplier() <= 0 {
		p.SetDamageMultiplier(model.DefaultDamageMultiplier)
	}
	if p.AttackSpeedMultiplier() <= 0 {
		p.SetAttackSpeedMultiplier(model.DefaultAttackSpeedMultiplier)
	}
	if p.Level() <= 0 {
		p.SetLevel(model.DefaultLevel)
	}
	if p.ExperienceToNext() <= 0 {
		p.SetExperienceToNext(model.DefaultExperienceToNext)
	}
	if p.WeaponType() == "" {
		p.SetWeaponType(model.DefaultWeaponType)
	}
}

// UpgradeHealth raises the health cap by amount and heals the same
// amount, capped at the new maximum. A health upgrade is also a heal.
func (s *Session) UpgradeHealth(p *model.Player, amount int32) bool {
	if p == nil {
		return false
	}
	current := p.Health()
	p.SetMaxHealth(p.MaxHealth() + amount)
	p.SetHealth(current + amount)
	return true
}

// UpgradeMana raises the mana cap by amount and restores the same
// amount, capped at the new maximum.
func (s *Session) UpgradeMana(p *model.Player, amount int32) bool {
	if p == nil {
		return false
	}
	current := p.Mana()
	p.SetMaxMana(p.MaxMana() + amount)
	p.SetMana(current + amount)
	return true
}

// UpgradeMovementSpeed stacks multiplicatively, so it serves both buffs
// (mult > 1) and debuffs (mult < 1).
func (s *Session) UpgradeMovementSpeed(p *model.Player, mult float64) bool {
	if p == nil || mult <= 0 {
		return false
	}
	p.SetMovementSpeed(p.MovementSpeed() * mult)
	return true
}

// UpgradeDamageMultiplier stacks multiplicatively.
func (s *Session) UpgradeDamageMultiplier(p *model.Player, mult float64) bool {
	if p == nil || mult <= 0 {
		return false
	}
	p.SetDamageMultiplier(p.DamageMultiplier() * mult)
	return true
}

// UpgradeAttackSpeed stacks the attack speed multiplier and recomputes
// the weapon cooldown from its current effective value divided by the
// new factor. Repeated upgrades compound against whatever cooldown is
// presently in effect, not the weapon's base. The result floors at the
// catalogue's cooldown minimum.
func (s *Session) UpgradeAttackSpeed(p *model.Player, mult float64) bool {
	if p == nil || mult <= 0 {
		return false
	}

	newMult := p.AttackSpeedMultiplier() * mult
	p.SetAttackSpeedMultiplier(newMult)

	stats := s.weapons.GetStats(p)
	newCooldown := stats.AttackCooldown / newMult

	entry, ok := s.weapons.Catalogue().Entry(p.WeaponType())
	if !ok {
		entry = s.weapons.Catalogue().Basic()
	}
	if floor := entry.Upgrades.Cooldown.Min; newCooldown < floor {
		newCooldown = floor
	}

	p.SetAttackCooldownOverride(newCooldown)
	return true
}

// UpgradeDefense is additive; a negative amount is a defense shred.
func (s *Session) UpgradeDefense(p *model.Player, amount int32) bool {
	if p == nil {
		return false
	}
	p.SetDefense(p.Defense() + amount)
	return true
}

// AddExperience accumulates experience and levels up while the total
// crosses the threshold, which grows ×1.5 (floored) per level. A single
// large award can carry several levels at once.
func (s *Session) AddExperience(p *model.Player, exp int64) (leveledUp bool, newLevel int32) {
	if p == nil {
		return false, 0
	}

	experience := p.Experience() + exp
	level := p.Level()
	threshold := p.ExperienceToNext()

	for experience >= threshold {
		experience -= threshold
		level++
		threshold = int64(math.Floor(float64(threshold) * sessionLevelGrowth))
		leveledUp = true
	}

	p.SetExperience(experience)
	p.SetLevel(level)
	p.SetExperienceToNext(threshold)
	return leveledUp, level
}

// GetCharacterStats renders the session track for display. Nil player
// yields nil.
func (s *Session) GetCharacterStats(p *model.Player) *CharacterStats {
	if p == nil {
		return nil
	}
	return &CharacterStats{
		Health:                p.Health(),
		MaxHealth:             p.MaxHealth(),
		Mana:                  p.Mana(),
		MaxMana:               p.MaxMana(),
		MovementSpeed:         formatRatio(p.MovementSpeed()),
		DamageMultiplier:      formatRatio(p.DamageMultiplier()),
		AttackSpeedMultiplier: formatRatio(p.AttackSpeedMultiplier()),
		Defense:               p.Defense(),
		Level:                 p.Level(),
		Experience:            p.Experience(),
		ExperienceToNextLevel: p.ExperienceToNext(),
		WeaponType:            p.WeaponType(),
	}
}

func formatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
