package world

import "sync/atomic"

// EntityIDGenerator hands out unique runtime IDs for players, enemies
// and loot. Ranges keep the ID spaces disjoint so a stray ID can never
// be mistaken for the wrong entity kind.
//
// ID ranges:
//
//	0x00000000 .. 0x0FFFFFFF: reserved (0 = invalid)
//	0x10000000 .. 0x1FFFFFFF: players
//	0x20000000 .. 0x2FFFFFFF: enemies
//	0x30000000 .. 0x3FFFFFFF: loot
type EntityIDGenerator struct {
	nextPlayerID atomic.Uint32
	nextEnemyID  atomic.Uint32
	nextLootID   atomic.Uint32
}

// NewEntityIDGenerator creates a generator with range bases seeded.
func NewEntityIDGenerator() *EntityIDGenerator {
	gen := &EntityIDGenerator{}
	gen.nextPlayerID.Store(0x10000000)
	gen.nextEnemyID.Store(0x20000000)
	gen.nextLootID.Store(0x30000000)
	return gen
}

// NextPlayerID returns the next unique player ID.
func (g *EntityIDGenerator) NextPlayerID() uint32 {
	return g.nextPlayerID.Add(1)
}

// NextEnemyID returns the next unique enemy ID.
func (g *EntityIDGenerator) NextEnemyID() uint32 {
	return g.nextEnemyID.Add(1)
}

// NextLootID returns the next unique loot ID.
func (g *EntityIDGenerator) NextLootID() uint32 {
	return g.nextLootID.Add(1)
}
