package model

// Loot drop categories.
const (
	LootTypeGold   = "gold"
	LootTypeHealth = "health"
	LootTypeMana   = "mana"
)

// Loot is a pickup spawned at an enemy's death position. Value type;
// once created it is only carried around and eventually consumed.
type Loot struct {
	ID       uint32  `json:"id"`
	EnemyID  uint32  `json:"enemyId"`
	Type     string  `json:"type"`
	Amount   int32   `json:"amount"`
	Position Vector3 `json:"position"`
}
