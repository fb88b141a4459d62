package sim

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/event"
)

// resolveKills pays out and removes every entity at or below zero HP.
//
// Gold is max(1, round(Reward × GoldMultiplier)). On the night stage each
// kill rolls DiamondChance for one diamond.
func (s *Simulation) resolveKills() {
	for i := len(s.state.Entities) - 1; i >= 0; i-- {
		e := s.state.Entities[i]
		if e.Alive() {
			continue
		}

		gold := max(1, int(math.Round(e.Archetype.Reward*s.goldMultiplier())))
		s.wallet.AddGold(gold)

		gained := s.exp.ExpFromKill(s.state.Progress, e.Kind())
		s.exp.AddExp(gained, "kill")

		diamonds := 0
		if s.state.Progress.IsNight && s.src.Float64() < s.cfg.DiamondChance {
			diamonds = 1
			s.wallet.AddDiamonds(diamonds)
			s.publish(event.Event{Type: event.DiamondDropped, EntityID: e.ID, Kind: e.Kind(), Diamonds: diamonds})
			s.logger.Info("diamond dropped",
				zap.Uint64("entity_id", e.ID),
				zap.Int("diamonds", s.wallet.Diamonds()),
			)
		}

		s.publish(event.Event{
			Type:     event.EnemyKilled,
			EntityID: e.ID,
			Kind:     e.Kind(),
			Gold:     gold,
			Exp:      gained,
			Diamonds: diamonds,
		})
		s.remove(i, "kill", true)
	}
}

func (s *Simulation) goldMultiplier() float64 {
	m := s.upgrades.GoldMultiplier()
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return 1
	}
	return m
}
