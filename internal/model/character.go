package model

import (
	"math"
	"time"
)

// Character base-stat defaults used when the service creates a record.
const (
	DefaultCharacterHealth  int32   = 100
	DefaultCharacterMana    int32   = 50
	DefaultCharacterSpeed   float64 = 1.0
	DefaultCharacterDamage  float64 = 1.0
	DefaultCharacterAtkSpd  float64 = 1.0
	DefaultCharacterDefense int32   = 0
)

// Character is the durable, account-scoped progression record. It is
// owned by the character service and cached by the game server; the
// JSON tags define the wire shape both sides speak.
//
// The service applies its own level curve to Experience
// (threshold = floor(100 * 1.2^(level-1))); the session track grows
// at x1.5 and the two never reconcile.
type Character struct {
	ID               int64  `json:"id"`
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	Shape            string `json:"shape"`
	Color            string `json:"color"`
	IsPrimary        bool   `json:"isPrimary"`
	Level            int32  `json:"level"`
	Experience       int64  `json:"experience"`
	ExperienceToNext int64  `json:"experienceToNextLevel"`

	BaseHealth           int32   `json:"baseHealth"`
	BaseMana             int32   `json:"baseMana"`
	BaseMovementSpeed    float64 `json:"baseMovementSpeed"`
	BaseDamageMultiplier float64 `json:"baseDamageMultiplier"`
	BaseAttackSpeed      float64 `json:"baseAttackSpeed"`
	BaseDefense          int32   `json:"baseDefense"`

	TotalKills      int32  `json:"totalKills"`
	TotalDeaths     int32  `json:"totalDeaths"`
	PlayTimeSeconds int64  `json:"playTimeSeconds"`
	WeaponType      string `json:"weaponType"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CharacterLevelThreshold returns the service-side experience needed to
// go from the given level to the next: floor(100 * 1.2^(level-1)).
func CharacterLevelThreshold(level int32) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(100 * math.Pow(1.2, float64(level-1))))
}
