package weapon

import (
	"sort"
	"time"

	"github.com/vexelgames/polyrift/internal/model"
)

// Upgrade kinds accepted by ApplyUpgrade.
const (
	UpgradeRadius     = "radius"
	UpgradeDamage     = "damage"
	UpgradeCooldown   = "cooldown"
	UpgradeMaxTargets = "maxTargets"
)

// Stats is the effective weapon loadout of one player: the catalogue
// entry for the player's weapon type merged with per-player overrides.
type Stats struct {
	Type            string
	AttackRadius    float64
	AttackCooldown  float64 // milliseconds
	BaseDamage      int32
	DamageVariation int32
	MaxTargets      int32
	LastAttackTime  time.Time
}

// CooldownDuration converts the millisecond cooldown to a time.Duration.
func (s *Stats) CooldownDuration() time.Duration {
	return time.Duration(s.AttackCooldown * float64(time.Millisecond))
}

// Model resolves effective per-player weapon stats against the catalogue
// and applies bounded upgrades.
type Model struct {
	catalogue *Catalogue
}

func NewModel(catalogue *Catalogue) *Model {
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	return &Model{catalogue: catalogue}
}

// Catalogue returns the weapon table the model resolves against.
func (m *Model) Catalogue() *Catalogue {
	return m.catalogue
}

// GetStats merges the player's overrides onto the catalogue entry for
// the player's weapon type. An unrecognized type resolves to the basic
// entry's stats while the stored type string stays untouched, so adding
// the type to the catalogue later brings it to life without a migration.
// Nil player yields nil.
func (m *Model) GetStats(p *model.Player) *Stats {
	if p == nil {
		return nil
	}

	weaponType := p.WeaponType()
	entry, ok := m.catalogue.Entry(weaponType)
	if !ok {
		entry = m.catalogue.Basic()
	}

	stats := &Stats{
		Type:            weaponType,
		AttackRadius:    entry.Base.AttackRadius,
		AttackCooldown:  entry.Base.AttackCooldown,
		BaseDamage:      entry.Base.BaseDamage,
		DamageVariation: entry.Base.DamageVariation,
		MaxTargets:      entry.Base.MaxTargets,
		LastAttackTime:  p.LastAttackTime(),
	}

	ov := p.WeaponOverrides()
	if ov.AttackRadius != nil {
		stats.AttackRadius = *ov.AttackRadius
	}
	if ov.AttackCooldown != nil {
		stats.AttackCooldown = *ov.AttackCooldown
	}
	if ov.BaseDamage != nil {
		stats.BaseDamage = *ov.BaseDamage
	}
	if ov.DamageVariation != nil {
		stats.DamageVariation = *ov.DamageVariation
	}
	if ov.MaxTargets != nil {
		stats.MaxTargets = *ov.MaxTargets
	}
	return stats
}

// FindTargets returns the live enemies within the player's attack radius
// on the horizontal plane, closest first, truncated to maxTargets.
func (m *Model) FindTargets(p *model.Player, room *model.Room) []*model.Enemy {
	if p == nil || room == nil {
		return nil
	}
	stats := m.GetStats(p)
	if stats.MaxTargets < 1 {
		return nil
	}

	origin := p.Position()

	type candidate struct {
		enemy *model.Enemy
		dist  float64
	}
	var candidates []candidate
	for _, e := range room.Enemies() {
		if e.IsDead() {
			continue
		}
		d := origin.HorizontalDistance(e.Position())
		if d > stats.AttackRadius {
			continue
		}
		candidates = append(candidates, candidate{enemy: e, dist: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if len(candidates) > int(stats.MaxTargets) {
		candidates = candidates[:stats.MaxTargets]
	}

	out := make([]*model.Enemy, len(candidates))
	for i, c := range candidates {
		out[i] = c.enemy
	}
	return out
}

// ApplyUpgrade adjusts one weapon stat by amount and records the result
// as a per-player override. Radius, damage and target-count upgrades add
// the amount; a cooldown upgrade subtracts it (it is a reduction). The
// result clamps to the catalogue's bounds in both directions, so stacked
// or negative amounts can never escape them. Unknown kinds and nil
// players change nothing and return false.
func (m *Model) ApplyUpgrade(p *model.Player, kind string, amount float64) bool {
	if p == nil {
		return false
	}

	entry, ok := m.catalogue.Entry(p.WeaponType())
	if !ok {
		entry = m.catalogue.Basic()
	}
	stats := m.GetStats(p)

	switch kind {
	case UpgradeRadius:
		b := entry.Upgrades.Radius
		p.SetAttackRadiusOverride(clamp(stats.AttackRadius+amount, b.Min, b.Max))
	case UpgradeDamage:
		b := entry.Upgrades.Damage
		p.SetBaseDamageOverride(int32(clamp(float64(stats.BaseDamage)+amount, b.Min, b.Max)))
	case UpgradeMaxTargets:
		b := entry.Upgrades.MaxTargets
		p.SetMaxTargetsOverride(int32(clamp(float64(stats.MaxTargets)+amount, b.Min, b.Max)))
	case UpgradeCooldown:
		b := entry.Upgrades.Cooldown
		p.SetAttackCooldownOverride(clamp(stats.AttackCooldown-amount, b.Min, b.Max))
	default:
		return false
	}
	return true
}

// ChangeWeapon reassigns the player's weapon type. Per-stat overrides
// persist across switches: upgrades are bought for the player, not the
// weapon. Unknown types are accepted; they resolve to basic stats until
// the catalogue learns them.
func (m *Model) ChangeWeapon(p *model.Player, weaponType string) bool {
	if p == nil || weaponType == "" {
		return false
	}
	p.SetWeaponType(weaponType)
	return true
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
