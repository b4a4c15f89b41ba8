package progression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vexelgames/polyrift/internal/charclient"
	"github.com/vexelgames/polyrift/internal/model"
)

const (
	// cacheTTL bounds how stale a served character list may be. The
	// only time-based expiry in the whole server.
	cacheTTL = 60 * time.Second

	// defaultCharacterName names the character created lazily for a
	// user who owns none yet. Players rename it later through the
	// regular update path.
	defaultCharacterName = "Hero"
)

type cacheEntry struct {
	characters []model.Character
	fetchedAt  time.Time
}

// Persistent is the durable progression track: a read-through cache in
// front of the character service. Reads degrade to stale data when the
// service is unreachable; mutations invalidate the owner's entry so the
// next read refetches instead of patching the cache blind.
type Persistent struct {
	client *charclient.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	// group collapses concurrent fetches for the same user into one
	// request, so two kills landing together cost one round-trip.
	group singleflight.Group
}

func NewPersistent(client *charclient.Client) *Persistent {
	return &Persistent{
		client: client,
		ttl:    cacheTTL,
		cache:  make(map[string]cacheEntry),
	}
}

// GetUserCharacters returns the user's characters, serving the cache
// while fresh. A user who owns none gets exactly one default character
// created and flagged primary by the service. Transport failure serves
// the stale cache when present and an empty list otherwise; it never
// propagates.
func (p *Persistent) GetUserCharacters(ctx context.Context, userID, fallbackShape, fallbackColor string) []model.Character {
	if chars, ok := p.fresh(userID); ok {
		return chars
	}

	chars, err := p.fetch(ctx, userID)
	if err != nil {
		if stale, ok := p.stale(userID); ok {
			slog.Warn("character service unavailable, serving stale cache", "user_id", userID, "error", err)
			return stale
		}
		slog.Warn("character service unavailable, no cache to fall back on", "user_id", userID, "error", err)
		return nil
	}

	if len(chars) == 0 {
		created, err := p.client.CreateCharacter(ctx, userID, charclient.CreateRequest{
			Name:  defaultCharacterName,
			Shape: fallbackShape,
			Color: fallbackColor,
		})
		if err != nil {
			slog.Warn("default character creation failed", "user_id", userID, "error", err)
			return nil
		}
		chars = []model.Character{*created}
		p.store(userID, chars)
		slog.Info("created default character", "user_id", userID, "character_id", created.ID)
	}
	return chars
}

// GetPrimaryCharacter asks the service for the flagged primary and
// falls back to the cache on any failure: the cached flagged-primary
// first, then the cached first entry, then nothing.
func (p *Persistent) GetPrimaryCharacter(ctx context.Context, userID string) *model.Character {
	c, err := p.client.GetPrimaryCharacter(ctx, userID)
	if err == nil {
		return c
	}
	slog.Warn("primary character fetch failed, falling back to cache", "user_id", userID, "error", err)

	chars, ok := p.stale(userID)
	if !ok || len(chars) == 0 {
		return nil
	}
	for i := range chars {
		if chars[i].IsPrimary {
			return &chars[i]
		}
	}
	return &chars[0]
}

// SetPrimaryCharacter flags the character primary; the service demotes
// the user's other characters.
func (p *Persistent) SetPrimaryCharacter(ctx context.Context, userID string, characterID int64) bool {
	yes := true
	if _, err := p.client.UpdateCharacter(ctx, characterID, charclient.UpdateRequest{IsPrimary: &yes}); err != nil {
		slog.Warn("set primary failed", "user_id", userID, "character_id", characterID, "error", err)
		return false
	}
	p.invalidate(userID)
	return true
}

// CreateCharacter creates an additional character for the user.
func (p *Persistent) CreateCharacter(ctx context.Context, userID, name, shape, color string) *model.Character {
	created, err := p.client.CreateCharacter(ctx, userID, charclient.CreateRequest{
		Name:  name,
		Shape: shape,
		Color: color,
	})
	if err != nil {
		slog.Warn("character creation failed", "user_id", userID, "error", err)
		return nil
	}
	p.invalidate(userID)
	return created
}

// GetCharacter resolves one character through the user-list read path;
// the service exposes no by-id endpoint.
func (p *Persistent) GetCharacter(ctx context.Context, userID string, characterID int64) *model.Character {
	chars, ok := p.fresh(userID)
	if !ok {
		fetched, err := p.fetch(ctx, userID)
		if err != nil {
			if stale, staleOK := p.stale(userID); staleOK {
				chars = stale
			} else {
				slog.Warn("character lookup failed", "user_id", userID, "character_id", characterID, "error", err)
				return nil
			}
		} else {
			chars = fetched
		}
	}
	for i := range chars {
		if chars[i].ID == characterID {
			return &chars[i]
		}
	}
	return nil
}

// UpdateCharacter applies the non-nil fields of req.
func (p *Persistent) UpdateCharacter(ctx context.Context, userID string, characterID int64, req charclient.UpdateRequest) *model.Character {
	updated, err := p.client.UpdateCharacter(ctx, characterID, req)
	if err != nil {
		slog.Warn("character update failed", "user_id", userID, "character_id", characterID, "error", err)
		return nil
	}
	p.invalidate(userID)
	return updated
}

// DeleteCharacter is the one path that propagates the service's
// rejection, so callers can show "cannot delete the last character"
// instead of a generic failure.
func (p *Persistent) DeleteCharacter(ctx context.Context, userID string, characterID int64) error {
	if err := p.client.DeleteCharacter(ctx, characterID, userID); err != nil {
		return fmt.Errorf("delete character %d: %w", characterID, err)
	}
	p.invalidate(userID)
	return nil
}

// RecordPlayTime folds a finished connection's duration into the
// durable record. Best-effort: a failed write is logged and dropped,
// teardown never blocks on it.
func (p *Persistent) RecordPlayTime(ctx context.Context, userID string, characterID int64, seconds int64) {
	if seconds <= 0 {
		return
	}
	if _, err := p.client.UpdateStats(ctx, characterID, charclient.StatsRequest{PlayTime: &seconds}); err != nil {
		slog.Warn("play time persist failed", "user_id", userID, "character_id", characterID, "error", err)
		return
	}
	p.invalidate(userID)
}

// AddExperience submits an experience delta and waits for the service's
// answer; the service applies its own level curve. leveledUp compares
// the previous cached level against the returned one and is
// conservatively false when the user had no cache entry.
func (p *Persistent) AddExperience(ctx context.Context, userID string, characterID int64, exp int64) (leveledUp bool, newLevel int32) {
	prevLevel, hadCache := p.cachedLevel(userID, characterID)

	updated, err := p.client.UpdateStats(ctx, characterID, charclient.StatsRequest{Experience: &exp})
	if err != nil {
		slog.Warn("experience persist failed", "user_id", userID, "character_id", characterID, "error", err)
		return false, 0
	}
	p.invalidate(userID)

	return hadCache && prevLevel < updated.Level, updated.Level
}

// GetCharacterStats projects a durable character into the same display
// shape the session track renders; health and mana mirror the base
// pools since a stored character is never mid-fight.
func (p *Persistent) GetCharacterStats(c *model.Character) *CharacterStats {
	if c == nil {
		return nil
	}
	return &CharacterStats{
		Health:                c.BaseHealth,
		MaxHealth:             c.BaseHealth,
		Mana:                  c.BaseMana,
		MaxMana:               c.BaseMana,
		MovementSpeed:         formatRatio(c.BaseMovementSpeed),
		DamageMultiplier:      formatRatio(c.BaseDamageMultiplier),
		AttackSpeedMultiplier: formatRatio(c.BaseAttackSpeed),
		Defense:               c.BaseDefense,
		Level:                 c.Level,
		Experience:            c.Experience,
		ExperienceToNextLevel: c.ExperienceToNext,
		WeaponType:            c.WeaponType,
	}
}

// fetch asks the service for the user's characters and refreshes the
// cache. Concurrent callers for one user share a single request.
func (p *Persistent) fetch(ctx context.Context, userID string) ([]model.Character, error) {
	v, err, _ := p.group.Do(userID, func() (any, error) {
		chars, err := p.client.GetUserCharacters(ctx, userID)
		if err != nil {
			return nil, err
		}
		p.store(userID, chars)
		return chars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Character), nil
}

func (p *Persistent) fresh(userID string) ([]model.Character, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.cache[userID]
	if !ok || time.Since(e.fetchedAt) >= p.ttl {
		return nil, false
	}
	return e.characters, true
}

// stale returns whatever the cache holds regardless of age.
func (p *Persistent) stale(userID string) ([]model.Character, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.cache[userID]
	if !ok {
		return nil, false
	}
	return e.characters, true
}

func (p *Persistent) cachedLevel(userID string, characterID int64) (int32, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.cache[userID]
	if !ok {
		return 0, false
	}
	for i := range e.characters {
		if e.characters[i].ID == characterID {
			return e.characters[i].Level, true
		}
	}
	return 0, false
}

func (p *Persistent) store(userID string, chars []model.Character) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[userID] = cacheEntry{characters: chars, fetchedAt: time.Now()}
}

func (p *Persistent) invalidate(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, userID)
}
