package effects

import (
	"go.uber.org/zap"
)

// Holder owns a mutable effect list; implemented by the game's player
// type.
type Holder interface {
	PlayerID() string
	Effects() []Effect
	SetEffects([]Effect)
}

// Scheduler applies and expires player effects at well-defined points
// in the turn cycle.
type Scheduler struct {
	log *zap.Logger
}

// NewScheduler creates an effect scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{log: logger}
}

// EnactAll runs one scheduling pass over every player: purge flagged
// effects, enact each remaining effect once, purge flagged effects
// again. Both sweeps are required: Enact may flag the effect itself or
// any other effect on the same player.
func (s *Scheduler) EnactAll(holders []Holder, eng Engine) {
	for _, h := range holders {
		s.purge(h)

		for _, eff := range h.Effects() {
			eff.Enact(eng)
			s.log.Debug("enacted effect",
				zap.String("player_id", h.PlayerID()),
				zap.String("effect_type", eff.Type()),
				zap.String("effect_id", eff.ID()),
			)
		}

		s.purge(h)
	}
}

func (s *Scheduler) purge(h Holder) {
	current := h.Effects()
	kept := current[:0]
	for _, eff := range current {
		if eff.ShouldRemove() {
			s.log.Debug("removed effect",
				zap.String("player_id", h.PlayerID()),
				zap.String("effect_type", eff.Type()),
				zap.String("effect_id", eff.ID()),
			)
			continue
		}
		kept = append(kept, eff)
	}
	h.SetEffects(kept)
}
