package events

import (
	"encoding/json"
	"fmt"
)

const (
	TriggerAlways         = "ALWAYS"
	TriggerPlayerOnSpace  = "PLAYER_ON_SPACE"
	TriggerAnyOnSpace     = "ANY_PLAYER_ON_SPACE"
	TriggerMovesExhausted = "MOVES_EXHAUSTED"
)

// TriggerFactory builds a trigger predicate from its opaque payload.
type TriggerFactory func(payload json.RawMessage) (Trigger, error)

// TriggerRegistry maps trigger type strings to factories.
type TriggerRegistry struct {
	factories map[string]TriggerFactory
}

// NewTriggerRegistry creates a registry preloaded with the built-in
// triggers.
func NewTriggerRegistry() *TriggerRegistry {
	r := &TriggerRegistry{factories: make(map[string]TriggerFactory)}
	r.Register(TriggerAlways, newAlways)
	r.Register(TriggerPlayerOnSpace, newPlayerOnSpace)
	r.Register(TriggerAnyOnSpace, newAnyOnSpace)
	r.Register(TriggerMovesExhausted, newMovesExhausted)
	return r
}

// Register installs a factory for a type string.
func (r *TriggerRegistry) Register(typ string, f TriggerFactory) {
	r.factories[typ] = f
}

// NewFromJSON materializes a trigger from {type, payload}.
func (r *TriggerRegistry) NewFromJSON(typ string, payload json.RawMessage) (Trigger, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown trigger type %q", typ)
	}
	trig, err := f(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s trigger: %w", typ, err)
	}
	return trig, nil
}

func newAlways(json.RawMessage) (Trigger, error) {
	return func(TriggerContext) bool { return true }, nil
}

// newPlayerOnSpace holds while the current player stands on the event's
// space.
func newPlayerOnSpace(json.RawMessage) (Trigger, error) {
	return func(ctx TriggerContext) bool {
		return ctx.State.PlayerSpaceID(ctx.State.CurrentPlayerID()) == ctx.Space.ID
	}, nil
}

// newAnyOnSpace holds while any player stands on the event's space.
func newAnyOnSpace(json.RawMessage) (Trigger, error) {
	return func(ctx TriggerContext) bool {
		for _, id := range ctx.State.PlayerIDs() {
			if ctx.State.PlayerSpaceID(id) == ctx.Space.ID {
				return true
			}
		}
		return false
	}, nil
}

// newMovesExhausted holds when the current player ends their movement
// on the event's space.
func newMovesExhausted(json.RawMessage) (Trigger, error) {
	return func(ctx TriggerContext) bool {
		return ctx.State.RemainingMoves() == 0 &&
			ctx.State.PlayerSpaceID(ctx.State.CurrentPlayerID()) == ctx.Space.ID
	}, nil
}
