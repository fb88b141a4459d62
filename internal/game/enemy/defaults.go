package enemy

// DefaultArchetypes returns the built-in swarm, runner and tank archetypes.
func DefaultArchetypes() []*Archetype {
	return []*Archetype{
		{
			Kind: Swarm, Name: "Swarm", Icon: "scorpion",
			VisualSize: 28, MoveSpeed: 120, MaxHP: 10, MeleeDamage: 8, Reward: 10,
			Melee: MeleeProfile{EngageRange: 26, WindupSec: 0.50, ActiveSec: 0.20, LungeDistance: 12, AttacksPerSec: 0.9, RecoilSec: 0.18},
		},
		{
			Kind: Runner, Name: "Runner", Icon: "eagle",
			VisualSize: 24, MoveSpeed: 170, MaxHP: 20, MeleeDamage: 10, Reward: 10,
			Melee: MeleeProfile{EngageRange: 24, WindupSec: 0.35, ActiveSec: 0.16, LungeDistance: 16, AttacksPerSec: 1.2, RecoilSec: 0.12},
		},
		{
			Kind: Tank, Name: "Tank", Icon: "rhino",
			VisualSize: 36, MoveSpeed: 90, MaxHP: 60, MeleeDamage: 20, Reward: 40,
			Melee: MeleeProfile{EngageRange: 30, WindupSec: 0.65, ActiveSec: 0.22, LungeDistance: 10, AttacksPerSec: 0.6, RecoilSec: 0.22},
		},
	}
}

func table(stageFrom, stageTo int, swarm, runner, tank float64) WeightTable {
	return WeightTable{
		StageFrom: stageFrom,
		StageTo:   stageTo,
		Entries: []WeightEntry{
			{Kind: Swarm, Weight: swarm},
			{Kind: Runner, Weight: runner},
			{Kind: Tank, Weight: tank},
		},
	}
}

// DefaultWeightTables returns the stage-banded spawn distributions.
func DefaultWeightTables() []WeightTable {
	return []WeightTable{
		table(1, 3, 0.70, 0.20, 0.10),
		table(4, 7, 0.55, 0.30, 0.15),
		table(8, 10, 0.45, 0.33, 0.22),
	}
}

// DefaultFallbackTable is used when no stage band matches.
func DefaultFallbackTable() WeightTable {
	return table(0, 0, 0.60, 0.25, 0.15)
}

// DefaultCatalog returns the built-in catalog.
//
// Postcondition: Never returns nil; panics only if the built-in data is invalid.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultArchetypes(), DefaultWeightTables(), DefaultFallbackTable(), Scaling{})
	if err != nil {
		panic("enemy: built-in catalog is invalid: " + err.Error())
	}
	return c
}
