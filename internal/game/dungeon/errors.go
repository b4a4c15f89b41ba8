package dungeon

import "errors"

// Sentinel errors for dungeon runs and template validation.
var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTemplateNotFound   = errors.New("dungeon template not found")
	ErrNotPartyLeader     = errors.New("only the party leader can start a dungeon")
	ErrDungeonInProgress  = errors.New("party already has a dungeon in progress")
	ErrEmptyTemplateName  = errors.New("empty template name")
	ErrDuplicateTemplate  = errors.New("duplicate template name")
	ErrNoSpawns           = errors.New("template has no enemy spawns")
	ErrEmptySpawnName     = errors.New("spawn has no name")
	ErrInvalidSpawnHealth = errors.New("spawn health must be positive")
	ErrInvalidEvasion     = errors.New("evasion must be within 0..1")
)
