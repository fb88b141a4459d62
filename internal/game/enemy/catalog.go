package enemy

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
)

// ErrUnknownKind is returned when a kind has no archetype in the catalog.
var ErrUnknownKind = errors.New("unknown enemy kind")

const (
	// DefaultChapterHPStep is the per-chapter linear HP growth.
	DefaultChapterHPStep = 0.15
	// DefaultNightHPMultiplier scales HP on the night stage.
	DefaultNightHPMultiplier = 1.8
)

// Scaling holds the HP multiplier coefficients.
type Scaling struct {
	ChapterHPStep     float64 `yaml:"chapter_hp_step"`
	NightHPMultiplier float64 `yaml:"night_hp_multiplier"`
}

// Catalog is the immutable registry of archetypes and weight tables.
//
// Catalog is safe for concurrent reads.
type Catalog struct {
	archetypes map[Kind]*Archetype
	order      []Kind
	tables     []WeightTable
	fallback   WeightTable
	scaling    Scaling
}

// NewCatalog validates and indexes archetypes and tables.
//
// Precondition: archetypes must be non-empty with unique kinds; every table
// entry must name a known kind. fallback is used when no table matches;
// a zero fallback uses the first table. Zero scaling fields take defaults.
// Postcondition: Returns a ready Catalog or the first validation error.
func NewCatalog(archetypes []*Archetype, tables []WeightTable, fallback WeightTable, scaling Scaling) (*Catalog, error) {
	if len(archetypes) == 0 {
		return nil, fmt.Errorf("enemy catalog: no archetypes")
	}
	c := &Catalog{archetypes: make(map[Kind]*Archetype, len(archetypes))}
	for _, a := range archetypes {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.archetypes[a.Kind]; dup {
			return nil, fmt.Errorf("enemy catalog: duplicate archetype %q", a.Kind)
		}
		cp := *a
		c.archetypes[a.Kind] = &cp
		c.order = append(c.order, a.Kind)
	}

	if len(fallback.Entries) == 0 {
		if len(tables) == 0 {
			return nil, fmt.Errorf("enemy catalog: no weight tables")
		}
		fallback = tables[0]
	}
	for _, t := range append([]WeightTable{fallback}, tables...) {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("enemy catalog: %w", err)
		}
		for _, e := range t.Entries {
			if _, ok := c.archetypes[e.Kind]; !ok {
				return nil, fmt.Errorf("enemy catalog: weight table references %q: %w", e.Kind, ErrUnknownKind)
			}
		}
	}
	c.tables = append([]WeightTable(nil), tables...)
	c.fallback = fallback

	if scaling.ChapterHPStep == 0 {
		scaling.ChapterHPStep = DefaultChapterHPStep
	}
	if scaling.NightHPMultiplier == 0 {
		scaling.NightHPMultiplier = DefaultNightHPMultiplier
	}
	c.scaling = scaling
	return c, nil
}

// Get returns the archetype for kind.
//
// Postcondition: Returns ErrUnknownKind when kind is not registered.
func (c *Catalog) Get(kind Kind) (*Archetype, error) {
	a, ok := c.archetypes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return a, nil
}

// Kinds returns the registered kinds in registration order.
func (c *Catalog) Kinds() []Kind {
	return append([]Kind(nil), c.order...)
}

// TableFor returns the first table matching chapter and stage, or the fallback.
func (c *Catalog) TableFor(chapter, stage int) WeightTable {
	for _, t := range c.tables {
		if t.Matches(chapter, stage) {
			return t
		}
	}
	return c.fallback
}

// SelectKind draws one kind for the given chapter and stage.
//
// Precondition: src must be non-nil.
func (c *Catalog) SelectKind(chapter, stage int, src rng.Source) Kind {
	return c.TableFor(chapter, stage).Pick(src.Float64())
}

// HPMultiplier returns HPScale × chapter factor × night factor.
//
// Postcondition: Returns HPScale × (1 + (Chapter−1) × ChapterHPStep) ×
// (NightHPMultiplier if IsNight, else 1).
func (c *Catalog) HPMultiplier(p progression.State) float64 {
	chapterFactor := 1 + float64(p.Chapter-1)*c.scaling.ChapterHPStep
	nightFactor := 1.0
	if p.IsNight {
		nightFactor = c.scaling.NightHPMultiplier
	}
	return p.HPScale * chapterFactor * nightFactor
}
