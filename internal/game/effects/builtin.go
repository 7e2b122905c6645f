package effects

import (
	"encoding/json"
)

const (
	TypeExtraTurn    = "EXTRA_TURN"
	TypeSkipTurn     = "SKIP_TURN"
	TypeRollModifier = "ROLL_MODIFIER"
	TypeCleanse      = "CLEANSE"
)

func registerBuiltins(r *Registry) {
	r.Register(TypeExtraTurn, newExtraTurn)
	r.Register(TypeSkipTurn, newSkipTurn)
	r.Register(TypeRollModifier, newRollModifier)
	r.Register(TypeCleanse, newCleanse)
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}

// extraTurnEffect grants its owner another turn. It is designed to run
// during the END_TURN pass and removes itself once granted.
type extraTurnEffect struct {
	baseEffect
}

func newExtraTurn(ownerID string, _ json.RawMessage) (Effect, error) {
	return &extraTurnEffect{baseEffect: newBase(TypeExtraTurn, ownerID, -1)}, nil
}

func (eff *extraTurnEffect) Enact(e Engine) {
	if e.TurnPhase() != "END_TURN" {
		return
	}
	e.GrantExtraTurn(eff.ownerID)
	eff.MarkRemove()
}

// skipTurnEffect flags the owner to be skipped at the next CHANGE_TURN
// and removes itself.
type skipTurnEffect struct {
	baseEffect
}

func newSkipTurn(ownerID string, _ json.RawMessage) (Effect, error) {
	return &skipTurnEffect{baseEffect: newBase(TypeSkipTurn, ownerID, -1)}, nil
}

func (eff *skipTurnEffect) Enact(e Engine) {
	if e.TurnPhase() != "CHANGE_TURN" {
		return
	}
	e.FlagSkipTurn(eff.ownerID)
	eff.MarkRemove()
}

// rollModifierEffect adjusts the owner's rolls while it lasts. The
// engine clears accumulated modifiers at CHANGE_TURN, so the effect
// re-registers its delta every pass there.
type rollModifierEffect struct {
	baseEffect
	Delta int `json:"delta"`
}

func newRollModifier(ownerID string, payload json.RawMessage) (Effect, error) {
	eff := &rollModifierEffect{}
	var p struct {
		Delta int `json:"delta"`
		Turns int `json:"turns"`
	}
	if err := unmarshalPayload(payload, &p); err != nil {
		return nil, err
	}
	turns := p.Turns
	if turns == 0 {
		turns = -1
	}
	eff.baseEffect = newBase(TypeRollModifier, ownerID, turns)
	eff.Delta = p.Delta
	return eff, nil
}

func (eff *rollModifierEffect) Enact(e Engine) {
	if e.TurnPhase() == "CHANGE_TURN" {
		e.AddRollModifier(eff.ownerID, eff.Delta)
	}
	eff.tick(e)
}

// cleanseEffect marks every effect of a target type on its owner for
// removal, then removes itself. Relies on the scheduler's second purge
// sweep to take the marked effects out within the same pass.
type cleanseEffect struct {
	baseEffect
	TargetType string `json:"targetType"`
}

func newCleanse(ownerID string, payload json.RawMessage) (Effect, error) {
	eff := &cleanseEffect{}
	if err := unmarshalPayload(payload, eff); err != nil {
		return nil, err
	}
	eff.baseEffect = newBase(TypeCleanse, ownerID, -1)
	return eff, nil
}

func (eff *cleanseEffect) Enact(e Engine) {
	e.MarkEffectsForRemoval(eff.ownerID, eff.TargetType)
	eff.MarkRemove()
}
