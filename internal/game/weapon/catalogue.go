package weapon

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TypeBasic is the fallback weapon type. Every catalogue must carry it:
// players spawn with it, and unrecognized weapon types resolve to its
// stats.
const TypeBasic = "basic"

var (
	ErrMissingBasicEntry = errors.New("weapon catalogue has no basic entry")
	ErrDuplicateType     = errors.New("duplicate weapon type")
	ErrEmptyType         = errors.New("weapon type is empty")
)

// BaseStats are the stock combat numbers of one weapon type.
type BaseStats struct {
	AttackRadius    float64 `yaml:"attack_radius"`
	AttackCooldown  float64 `yaml:"attack_cooldown_ms"`
	BaseDamage      int32   `yaml:"base_damage"`
	DamageVariation int32   `yaml:"damage_variation"`
	MaxTargets      int32   `yaml:"max_targets"`
}

// StatBounds caps one upgradeable stat. Increment is the step a single
// upgrade purchase applies; Min/Max bound the effective value no matter
// how many upgrades stack.
type StatBounds struct {
	Increment float64 `yaml:"increment"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
}

// UpgradePath bounds every upgradeable stat of a weapon type.
type UpgradePath struct {
	Radius     StatBounds `yaml:"radius"`
	Damage     StatBounds `yaml:"damage"`
	Cooldown   StatBounds `yaml:"cooldown"`
	MaxTargets StatBounds `yaml:"max_targets"`
}

// CatalogueEntry is one weapon type: base stats plus the bounds its
// upgrades must respect.
type CatalogueEntry struct {
	Type        string      `yaml:"type"`
	DisplayName string      `yaml:"display_name"`
	Base        BaseStats   `yaml:"base"`
	Upgrades    UpgradePath `yaml:"upgrades"`
}

// Catalogue is the static weapon table. Immutable after load.
type Catalogue struct {
	entries map[string]CatalogueEntry
	types   []string // declaration order
}

// catalogueFile is the YAML shape of a weapons config file.
type catalogueFile struct {
	Weapons []CatalogueEntry `yaml:"weapons"`
}

// NewCatalogue builds a catalogue from entries. The basic entry is
// mandatory.
func NewCatalogue(entries []CatalogueEntry) (*Catalogue, error) {
	c := &Catalogue{entries: make(map[string]CatalogueEntry, len(entries))}
	for _, e := range entries {
		if e.Type == "" {
			return nil, ErrEmptyType
		}
		if _, exists := c.entries[e.Type]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, e.Type)
		}
		c.entries[e.Type] = e
		c.types = append(c.types, e.Type)
	}
	if _, ok := c.entries[TypeBasic]; !ok {
		return nil, ErrMissingBasicEntry
	}
	return c, nil
}

// DefaultCatalogue returns the compiled-in weapon table.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(defaultEntries())
	if err != nil {
		// Compiled-in entries are validated by tests; this cannot
		// fire outside a broken build.
		panic(err)
	}
	return c
}

// LoadCatalogue loads the weapon table from a YAML file. If the file
// doesn't exist, returns the compiled-in defaults.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalogue(), nil
		}
		return nil, fmt.Errorf("reading weapon catalogue %s: %w", path, err)
	}

	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing weapon catalogue %s: %w", path, err)
	}

	c, err := NewCatalogue(file.Weapons)
	if err != nil {
		return nil, fmt.Errorf("validating weapon catalogue %s: %w", path, err)
	}
	return c, nil
}

// Entry returns the catalogue entry for a weapon type.
func (c *Catalogue) Entry(weaponType string) (CatalogueEntry, bool) {
	e, ok := c.entries[weaponType]
	return e, ok
}

// Basic returns the fallback entry. NewCatalogue guarantees it exists.
func (c *Catalogue) Basic() CatalogueEntry {
	return c.entries[TypeBasic]
}

// Has reports whether a weapon type is known.
func (c *Catalogue) Has(weaponType string) bool {
	_, ok := c.entries[weaponType]
	return ok
}

// Types returns all weapon type keys in declaration order.
func (c *Catalogue) Types() []string {
	out := make([]string, len(c.types))
	copy(out, c.types)
	return out
}

func defaultEntries() []CatalogueEntry {
	return []CatalogueEntry{
		{
			Type:        TypeBasic,
			DisplayName: "Training Blade",
			Base: BaseStats{
				AttackRadius:    3.0,
				AttackCooldown:  1000,
				BaseDamage:      10,
				DamageVariation: 5,
				MaxTargets:      1,
			},
			Upgrades: UpgradePath{
				Radius:     StatBounds{Increment: 0.5, Min: 1.0, Max: 10.0},
				Damage:     StatBounds{Increment: 5, Min: 1, Max: 60},
				Cooldown:   StatBounds{Increment: 50, Min: 250, Max: 2000},
				MaxTargets: StatBounds{Increment: 1, Min: 1, Max: 5},
			},
		},
		{
			Type:        "blade",
			DisplayName: "Rift Blade",
			Base: BaseStats{
				AttackRadius:    2.5,
				AttackCooldown:  800,
				BaseDamage:      18,
				DamageVariation: 6,
				MaxTargets:      2,
			},
			Upgrades: UpgradePath{
				Radius:     StatBounds{Increment: 0.5, Min: 1.0, Max: 8.0},
				Damage:     StatBounds{Increment: 6, Min: 1, Max: 80},
				Cooldown:   StatBounds{Increment: 50, Min: 200, Max: 1600},
				MaxTargets: StatBounds{Increment: 1, Min: 1, Max: 4},
			},
		},
		{
			Type:        "bow",
			DisplayName: "Longbow",
			Base: BaseStats{
				AttackRadius:    8.0,
				AttackCooldown:  1200,
				BaseDamage:      14,
				DamageVariation: 8,
				MaxTargets:      1,
			},
			Upgrades: UpgradePath{
				Radius:     StatBounds{Increment: 1.0, Min: 2.0, Max: 15.0},
				Damage:     StatBounds{Increment: 5, Min: 1, Max: 70},
				Cooldown:   StatBounds{Increment: 60, Min: 300, Max: 2400},
				MaxTargets: StatBounds{Increment: 1, Min: 1, Max: 3},
			},
		},
		{
			Type:        "staff",
			DisplayName: "Arc Staff",
			Base: BaseStats{
				AttackRadius:    5.0,
				AttackCooldown:  1500,
				BaseDamage:      22,
				DamageVariation: 10,
				MaxTargets:      3,
			},
			Upgrades: UpgradePath{
				Radius:     StatBounds{Increment: 0.5, Min: 2.0, Max: 12.0},
				Damage:     StatBounds{Increment: 8, Min: 1, Max: 90},
				Cooldown:   StatBounds{Increment: 75, Min: 400, Max: 3000},
				MaxTargets: StatBounds{Increment: 1, Min: 1, Max: 6},
			},
		},
	}
}
