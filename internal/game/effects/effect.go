package effects

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Engine is the narrow view of the turn engine an effect enacts
// against.
type Engine interface {
	TurnPhase() string
	GrantExtraTurn(playerID string)
	FlagSkipTurn(playerID string)
	AddRollModifier(playerID string, delta int)
	MarkEffectsForRemoval(playerID, effectType string)
}

// Effect is a timed or conditional modifier attached to a player.
// Enact is called once per scheduling pass; an effect may set its own
// removal flag (or another effect's, through the engine) from within
// Enact.
type Effect interface {
	ID() string
	Type() string
	OwnerID() string
	Enact(e Engine)
	MarkRemove()
	ShouldRemove() bool
}

// Factory builds an effect for an owner from its opaque payload.
type Factory func(ownerID string, payload json.RawMessage) (Effect, error)

// Registry maps effect type strings to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry preloaded with the built-in effects.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltins(r)
	return r
}

// Register installs a factory for a type string.
func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// NewFromJSON materializes an effect from {type, payload} for a player.
func (r *Registry) NewFromJSON(typ, ownerID string, payload json.RawMessage) (Effect, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown effect type %q", typ)
	}
	eff, err := f(ownerID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s effect: %w", typ, err)
	}
	return eff, nil
}

// baseEffect carries the fields shared by every built-in effect.
// RemainingTurns counts down once per END_TURN pass; -1 is permanent.
type baseEffect struct {
	id             string
	typ            string
	ownerID        string
	remainingTurns int
	toRemove       bool
}

func newBase(typ, ownerID string, remainingTurns int) baseEffect {
	return baseEffect{
		id:             uuid.NewString(),
		typ:            typ,
		ownerID:        ownerID,
		remainingTurns: remainingTurns,
	}
}

func (b *baseEffect) ID() string         { return b.id }
func (b *baseEffect) Type() string       { return b.typ }
func (b *baseEffect) OwnerID() string    { return b.ownerID }
func (b *baseEffect) MarkRemove()        { b.toRemove = true }
func (b *baseEffect) ShouldRemove() bool { return b.toRemove }

// tick counts the effect down during the END_TURN pass. Passes at
// CHANGE_TURN and IN_GAME entry do not consume duration.
func (b *baseEffect) tick(e Engine) {
	if b.remainingTurns < 0 || e.TurnPhase() != "END_TURN" {
		return
	}
	b.remainingTurns--
	if b.remainingTurns <= 0 {
		b.toRemove = true
	}
}
