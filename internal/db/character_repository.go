package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexelgames/polyrift/internal/model"
)

// ErrLastCharacter rejects deleting a user's only character.
var ErrLastCharacter = errors.New("cannot delete the last character")

const characterColumns = `id, user_id, name, shape, color, is_primary,
	level, experience, experience_to_next,
	base_health, base_mana, base_movement_speed, base_damage_multiplier, base_attack_speed, base_defense,
	total_kills, total_deaths, play_time_seconds, weapon_type,
	created_at, updated_at`

// StatsDelta carries gameplay counter increments; nil fields stay
// untouched. WeaponType replaces instead of incrementing.
type StatsDelta struct {
	Experience *int64
	Kills      *int32
	Deaths     *int32
	PlayTime   *int64
	WeaponType *string
}

// CharacterRepository persists durable characters.
type CharacterRepository struct {
	pool *pgxpool.Pool
}

func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// ListByUser returns every character a user owns, oldest first.
func (r *CharacterRepository) ListByUser(ctx context.Context, userID string) ([]model.Character, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing characters for %q: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating characters for %q: %w", userID, err)
	}
	return out, nil
}

// GetByID loads one character. Returns nil, nil when absent.
func (r *CharacterRepository) GetByID(ctx context.Context, characterID int64) (*model.Character, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1`, characterID)
	c, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %d: %w", characterID, err)
	}
	return &c, nil
}

// GetPrimary loads the user's flagged-primary character. Returns
// nil, nil when the user has none.
func (r *CharacterRepository) GetPrimary(ctx context.Context, userID string) (*model.Character, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE user_id = $1 AND is_primary`, userID)
	c, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying primary character for %q: %w", userID, err)
	}
	return &c, nil
}

// Create inserts a character with default stats. The user's first
// character is flagged primary.
func (r *CharacterRepository) Create(ctx context.Context, userID, name, shape, color string) (*model.Character, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM characters WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting characters for %q: %w", userID, err)
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO characters (user_id, name, shape, color, is_primary)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+characterColumns,
		userID, name, shape, color, count == 0)
	c, err := scanCharacter(row)
	if err != nil {
		return nil, fmt.Errorf("inserting character for %q: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create tx: %w", err)
	}
	slog.Info("character created", "user_id", userID, "character_id", c.ID, "primary", c.IsPrimary)
	return &c, nil
}

// UpdateProfile applies the non-nil fields. Promoting a character to
// primary demotes the owner's others in the same transaction. Returns
// nil, nil when the character doesn't exist.
func (r *CharacterRepository) UpdateProfile(ctx context.Context, characterID int64, name, shape, color *string, isPrimary *bool) (*model.Character, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if isPrimary != nil && *isPrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE characters SET is_primary = FALSE, updated_at = now()
			 WHERE is_primary AND user_id = (SELECT user_id FROM characters WHERE id = $1)`,
			characterID); err != nil {
			return nil, fmt.Errorf("demoting primary for character %d: %w", characterID, err)
		}
	}

	row := tx.QueryRow(ctx,
		`UPDATE characters SET
			name = COALESCE($2, name),
			shape = COALESCE($3, shape),
			color = COALESCE($4, color),
			is_primary = COALESCE($5, is_primary),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+characterColumns,
		characterID, name, shape, color, isPrimary)
	c, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating character %d: %w", characterID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing update tx: %w", err)
	}
	return &c, nil
}

// ApplyStats increments gameplay counters under a row lock and runs the
// level curve over any experience gain: while experience crosses
// floor(100 * 1.2^(level-1)), the character levels. Returns nil, nil
// when the character doesn't exist.
func (r *CharacterRepository) ApplyStats(ctx context.Context, characterID int64, delta StatsDelta) (*model.Character, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning stats tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = $1 FOR UPDATE`, characterID)
	c, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locking character %d: %w", characterID, err)
	}

	prevLevel := c.Level
	if delta.Experience != nil {
		c.Experience += *delta.Experience
		if c.Experience < 0 {
			c.Experience = 0
		}
		for c.Experience >= c.ExperienceToNext {
			c.Experience -= c.ExperienceToNext
			c.Level++
			c.ExperienceToNext = model.CharacterLevelThreshold(c.Level)
		}
	}
	if delta.Kills != nil {
		c.TotalKills += *delta.Kills
	}
	if delta.Deaths != nil {
		c.TotalDeaths += *delta.Deaths
	}
	if delta.PlayTime != nil {
		c.PlayTimeSeconds += *delta.PlayTime
	}
	if delta.WeaponType != nil {
		c.WeaponType = *delta.WeaponType
	}

	err = tx.QueryRow(ctx,
		`UPDATE characters SET
			level = $2, experience = $3, experience_to_next = $4,
			total_kills = $5, total_deaths = $6, play_time_seconds = $7,
			weapon_type = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		characterID, c.Level, c.Experience, c.ExperienceToNext,
		c.TotalKills, c.TotalDeaths, c.PlayTimeSeconds, c.WeaponType,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("writing stats for character %d: %w", characterID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing stats tx: %w", err)
	}

	if c.Level > prevLevel {
		slog.Info("character leveled up", "character_id", characterID, "level", c.Level)
	}
	return &c, nil
}

// Delete removes a character, refusing to delete the user's last one.
// When the primary goes, the oldest remaining character is promoted so
// the user always keeps a primary. Returns false, nil when the
// character doesn't belong to the user or doesn't exist.
func (r *CharacterRepository) Delete(ctx context.Context, characterID int64, userID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, is_primary FROM characters WHERE user_id = $1 ORDER BY created_at, id FOR UPDATE`, userID)
	if err != nil {
		return false, fmt.Errorf("locking characters for %q: %w", userID, err)
	}

	var total int
	var found, wasPrimary bool
	for rows.Next() {
		var id int64
		var primary bool
		if err := rows.Scan(&id, &primary); err != nil {
			rows.Close()
			return false, fmt.Errorf("scanning character lock row: %w", err)
		}
		total++
		if id == characterID {
			found = true
			wasPrimary = primary
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating character lock rows: %w", err)
	}

	if !found {
		return false, nil
	}
	if total <= 1 {
		return false, ErrLastCharacter
	}

	if _, err := tx.Exec(ctx, `DELETE FROM characters WHERE id = $1`, characterID); err != nil {
		return false, fmt.Errorf("deleting character %d: %w", characterID, err)
	}

	if wasPrimary {
		if _, err := tx.Exec(ctx,
			`UPDATE characters SET is_primary = TRUE, updated_at = now()
			 WHERE id = (SELECT id FROM characters WHERE user_id = $1 ORDER BY created_at, id LIMIT 1)`,
			userID); err != nil {
			return false, fmt.Errorf("promoting replacement primary for %q: %w", userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing delete tx: %w", err)
	}
	slog.Info("character deleted", "user_id", userID, "character_id", characterID)
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (model.Character, error) {
	var c model.Character
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Shape, &c.Color, &c.IsPrimary,
		&c.Level, &c.Experience, &c.ExperienceToNext,
		&c.BaseHealth, &c.BaseMana, &c.BaseMovementSpeed, &c.BaseDamageMultiplier, &c.BaseAttackSpeed, &c.BaseDefense,
		&c.TotalKills, &c.TotalDeaths, &c.PlayTimeSeconds, &c.WeaponType,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}
