package dungeon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vexelgames/polyrift/internal/model"
)

// EnemySpawn describes one enemy of a dungeon layout.
type EnemySpawn struct {
	Name     string        `yaml:"name"`
	Position model.Vector3 `yaml:"position"`
	Health   int32         `yaml:"health"`
	Level    int32         `yaml:"level"`
	// ExpReward and Level fall back to the enemy defaults when zero.
	ExpReward int64 `yaml:"exp_reward"`
	// LootType forces the drop category; empty rolls at random.
	LootType string  `yaml:"loot_type"`
	Evasion  float64 `yaml:"evasion"`
}

// Template is a named dungeon layout: where the party lands and what is
// waiting for it.
type Template struct {
	Name   string        `yaml:"name"`
	Entry  model.Vector3 `yaml:"entry"`
	Spawns []EnemySpawn  `yaml:"spawns"`
}

// Validate checks the layout is playable.
func (t *Template) Validate() error {
	if t.Name == "" {
		return ErrEmptyTemplateName
	}
	if len(t.Spawns) == 0 {
		return ErrNoSpawns
	}
	for i := range t.Spawns {
		s := &t.Spawns[i]
		if s.Name == "" {
			return fmt.Errorf("spawn %d: %w", i, ErrEmptySpawnName)
		}
		if s.Health < 1 {
			return fmt.Errorf("spawn %d (%s): %w", i, s.Name, ErrInvalidSpawnHealth)
		}
		if s.Evasion < 0 || s.Evasion > 1 {
			return fmt.Errorf("spawn %d (%s): %w", i, s.Name, ErrInvalidEvasion)
		}
	}
	return nil
}

type templateFile struct {
	Dungeons []Template `yaml:"dungeons"`
}

// LoadTemplates loads dungeon layouts from a YAML file. If the file
// doesn't exist, returns the compiled-in defaults.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTemplates(), nil
		}
		return nil, fmt.Errorf("reading dungeon templates %s: %w", path, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing dungeon templates %s: %w", path, err)
	}
	if len(file.Dungeons) == 0 {
		return nil, fmt.Errorf("dungeon templates %s: %w", path, ErrNoSpawns)
	}
	for i := range file.Dungeons {
		if err := file.Dungeons[i].Validate(); err != nil {
			return nil, fmt.Errorf("validating dungeon templates %s: %w", path, err)
		}
	}
	return file.Dungeons, nil
}

// DefaultTemplates returns the compiled-in dungeon layouts, ordered
// roughly by difficulty.
func DefaultTemplates() []Template {
	return []Template{
		{
			Name:  "crypt",
			Entry: model.Vector3{Z: -5},
			Spawns: []EnemySpawn{
				{Name: "Skeleton Warrior", Position: model.Vector3{X: 4, Z: 3}, Health: 40, Level: 1, ExpReward: 10},
				{Name: "Skeleton Warrior", Position: model.Vector3{X: -3, Z: 5}, Health: 40, Level: 1, ExpReward: 10},
				{Name: "Skeleton Archer", Position: model.Vector3{Z: 9}, Health: 25, Level: 2, ExpReward: 15, Evasion: 0.15},
				{Name: "Crypt Keeper", Position: model.Vector3{Z: 14}, Health: 80, Level: 2, ExpReward: 25, LootType: model.LootTypeGold},
			},
		},
		{
			Name:  "ruins",
			Entry: model.Vector3{Z: -5},
			Spawns: []EnemySpawn{
				{Name: "Stone Sentinel", Position: model.Vector3{X: 5, Z: 4}, Health: 60, Level: 2, ExpReward: 18},
				{Name: "Stone Sentinel", Position: model.Vector3{X: -5, Z: 4}, Health: 60, Level: 2, ExpReward: 18},
				{Name: "Ruin Stalker", Position: model.Vector3{Z: 8}, Health: 35, Level: 3, ExpReward: 22, Evasion: 0.25},
				{Name: "Golem Warden", Position: model.Vector3{Z: 15}, Health: 120, Level: 3, ExpReward: 35, LootType: model.LootTypeGold},
			},
		},
		{
			Name:  "depths",
			Entry: model.Vector3{Z: -6},
			Spawns: []EnemySpawn{
				{Name: "Abyss Crawler", Position: model.Vector3{X: 4, Z: 4}, Health: 45, Level: 3, ExpReward: 20, Evasion: 0.1},
				{Name: "Abyss Crawler", Position: model.Vector3{X: -4, Z: 4}, Health: 45, Level: 3, ExpReward: 20, Evasion: 0.1},
				{Name: "Abyss Crawler", Position: model.Vector3{Z: 7}, Health: 45, Level: 3, ExpReward: 20, Evasion: 0.1},
				{Name: "Deep One", Position: model.Vector3{X: 3, Z: 12}, Health: 70, Level: 4, ExpReward: 30, LootType: model.LootTypeMana},
				{Name: "Abyss Tyrant", Position: model.Vector3{Z: 18}, Health: 160, Level: 5, ExpReward: 60, LootType: model.LootTypeGold},
			},
		},
	}
}
