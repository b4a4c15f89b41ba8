package combat

import (
	"math"
	"math/rand/v2"

	"github.com/vexelgames/polyrift/internal/model"
)

// ApplyDefense reduces raw damage by a defense rating.
// Formula: floor(raw × (1 − defense/(defense+100))), minimum 1, so even
// an armored wall takes chip damage. Non-positive defense changes
// nothing.
func ApplyDefense(raw, defense int32) int32 {
	if defense <= 0 {
		return raw
	}
	reduction := 1.0 - float64(defense)/float64(defense+100)
	damage := int32(math.Floor(float64(raw) * reduction))
	if damage < 1 {
		damage = 1
	}
	return damage
}

// CalculateCritical rolls a critical strike: with probability chance the
// damage becomes floor(base × mult), otherwise base passes through.
func CalculateCritical(base int32, chance, mult float64) int32 {
	if chance > 0 && rand.Float64() < chance {
		return int32(math.Floor(float64(base) * mult))
	}
	return base
}

// CalculateHit rolls whether a swing lands. Hit chance is
// accuracy − evasion clamped to [0,1]; a fully evasive enemy shrugs off
// low-accuracy attacks entirely.
func CalculateHit(accuracy float64, enemy *model.Enemy) bool {
	if enemy == nil {
		return false
	}
	chance := min(max(accuracy-enemy.Evasion(), 0), 1)
	return rand.Float64() < chance
}

// AoEHit is one enemy caught in an area effect and the falloff-adjusted
// damage it takes.
type AoEHit struct {
	Enemy  *model.Enemy
	Damage int32
}

// CalculateAoEDamage spreads damage over every enemy within radius of
// center. Unlike regular targeting this uses full 3D distance. Damage
// falls off linearly to half strength at the edge:
// floor(damage × (1 − 0.5·d/r)). Enemies outside the radius are
// excluded entirely.
func CalculateAoEDamage(center model.Vector3, radius float64, damage int32, enemies []*model.Enemy) []AoEHit {
	if radius <= 0 {
		return nil
	}
	var hits []AoEHit
	for _, e := range enemies {
		d := center.Distance(e.Position())
		if d > radius {
			continue
		}
		falloff := 1.0 - 0.5*d/radius
		hits = append(hits, AoEHit{
			Enemy:  e,
			Damage: int32(math.Floor(float64(damage) * falloff)),
		})
	}
	return hits
}

// CalculateKnockback returns the displacement an impact pushes the
// target: the attacker→target direction on the horizontal plane scaled
// by force, never vertical. Coincident positions produce no push.
func CalculateKnockback(attacker, target model.Vector3, force float64) model.Vector3 {
	return target.Sub(attacker).NormalizedXZ().Scale(force)
}

// CalculateLifesteal converts dealt damage into healing:
// floor(damage × pct) for a positive percentage, otherwise zero.
func CalculateLifesteal(damage int32, pct float64) int32 {
	if pct <= 0 {
		return 0
	}
	return int32(math.Floor(float64(damage) * pct))
}
