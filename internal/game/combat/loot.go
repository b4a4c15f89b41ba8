package combat

import (
	"math/rand/v2"

	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

// Drop amount ranges per loot type, half-open [min, max).
const (
	goldAmountMin   = 10
	goldAmountMax   = 30
	healthAmountMin = 20
	healthAmountMax = 50
	manaAmountMin   = 10
	manaAmountMax   = 30
)

var lootTypes = []string{model.LootTypeGold, model.LootTypeHealth, model.LootTypeMana}

// GenerateLoot rolls the drop for a dead enemy. The enemy's declared
// loot type wins; an empty declaration picks uniformly among gold,
// health and mana. The drop lands where the enemy stood.
func GenerateLoot(ids *world.EntityIDGenerator, enemy *model.Enemy) model.Loot {
	lootType := enemy.LootType()
	if lootType == "" {
		lootType = lootTypes[rand.IntN(len(lootTypes))]
	}

	var amount int32
	switch lootType {
	case model.LootTypeHealth:
		amount = rollAmount(healthAmountMin, healthAmountMax)
	case model.LootTypeMana:
		amount = rollAmount(manaAmountMin, manaAmountMax)
	default:
		amount = rollAmount(goldAmountMin, goldAmountMax)
	}

	return model.Loot{
		ID:       ids.NextLootID(),
		EnemyID:  enemy.ID(),
		Type:     lootType,
		Amount:   amount,
		Position: enemy.Position(),
	}
}

func rollAmount(minAmount, maxAmount int32) int32 {
	return minAmount + rand.Int32N(maxAmount-minAmount)
}

// RewardFor computes the experience a kill grants: the enemy's base
// reward scaled by its level, plus up to half that again as variance.
func RewardFor(enemy *model.Enemy) int64 {
	base := enemy.ExpReward() * int64(enemy.Level())
	return base + int64(rand.Float64()*float64(base)*0.5)
}
