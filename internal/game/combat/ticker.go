package combat

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vexelgames/polyrift/internal/model"
	"github.com/vexelgames/polyrift/internal/world"
)

const (
	// TickInterval is the combat scheduling cadence. Weapon cooldowns
	// gate actual swings, so per-player attack rates stay correct
	// regardless of the tick rate.
	TickInterval = 250 * time.Millisecond

	// enemyAttackRange is how close an enemy must stand to retaliate.
	enemyAttackRange = 2.5

	// enemyAttackCooldown gates each enemy's retaliation cadence.
	enemyAttackCooldown = 1500 * time.Millisecond
)

// tickEntry serializes one player's resolutions: a tick skips the
// player while the previous resolution (which may be waiting on a
// persistence round-trip) is still running.
type tickEntry struct {
	player *model.Player
	busy   atomic.Bool
}

// TickManager drives combat for every player inside a dungeon room.
// Players are registered on dungeon entry and unregistered on room
// clear or disconnect.
type TickManager struct {
	resolver *Resolver
	state    *world.State
	interval time.Duration

	entries    sync.Map // map[uint32]*tickEntry keyed by player id
	entryCount atomic.Int32

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewTickManager(resolver *Resolver, state *world.State) *TickManager {
	return &TickManager{
		resolver: resolver,
		state:    state,
		interval: TickInterval,
		stopCh:   make(chan struct{}),
	}
}

// Register schedules a player for combat resolution.
func (m *TickManager) Register(p *model.Player) {
	if p == nil {
		return
	}
	if _, loaded := m.entries.LoadOrStore(p.ID(), &tickEntry{player: p}); loaded {
		return
	}
	m.entryCount.Add(1)
	slog.Debug("combat tick registered", "player", p.ID())
}

// Unregister removes a player from combat scheduling.
func (m *TickManager) Unregister(playerID uint32) {
	if _, ok := m.entries.LoadAndDelete(playerID); !ok {
		return
	}
	m.entryCount.Add(-1)
	slog.Debug("combat tick unregistered", "player", playerID)
}

// Count returns the number of scheduled players.
func (m *TickManager) Count() int {
	return int(m.entryCount.Load())
}

// Start runs the tick loop until the context is canceled or Stop is
// called.
func (m *TickManager) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	slog.Info("combat tick manager started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("combat tick manager stopping")
			return ctx.Err()

		case <-m.stopCh:
			slog.Info("combat tick manager stopped")
			return nil

		case <-ticker.C:
			m.tickAll(ctx)
		}
	}
}

// Stop terminates the tick loop.
func (m *TickManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// tickAll launches one resolution per scheduled player. Resolutions run
// concurrently across players but never overlap for the same player.
func (m *TickManager) tickAll(ctx context.Context) {
	m.entries.Range(func(_, value any) bool {
		e := value.(*tickEntry)
		if !e.busy.CompareAndSwap(false, true) {
			return true
		}
		go func() {
			defer e.busy.Store(false)
			m.resolver.ResolveAttack(ctx, e.player)
			m.retaliate(e.player)
		}()
		return true
	})
}

// retaliate lets enemies near the player strike back. Each enemy's
// ClaimStrike gates its own cadence.
func (m *TickManager) retaliate(p *model.Player) {
	if p.IsDead() {
		return
	}
	room := m.state.PlayerRoom(p.ID())
	if room == nil {
		return
	}

	now := time.Now()
	pos := p.Position()
	for _, enemy := range room.Enemies() {
		if enemy.IsDead() {
			continue
		}
		if pos.HorizontalDistance(enemy.Position()) > enemyAttackRange {
			continue
		}
		if !enemy.ClaimStrike(now, enemyAttackCooldown) {
			continue
		}
		m.resolver.EnemyAttackPlayer(enemy, p)
	}
}
