package actions

import (
	"encoding/json"
	"fmt"
)

// Engine is the narrow view of the turn engine an action executes
// against. The concrete engine implements it; actions never see more.
type Engine interface {
	CurrentPlayerID() string
	PlayerSpaceID(playerID string) string
	MovePlayerTo(playerID, spaceID string)
	StepPlayer(playerID string, steps int)
	GrantMoves(n int)
	FlagSkipTurn(playerID string)
	FinishPlayer(playerID string)
	ApplyEffect(playerID, effectType string, payload json.RawMessage) error
	ShowPrompt(title string, options []string, onChoice func(choice string))
}

// Action is a polymorphic command attached to a board event. Execute
// must invoke done exactly once; synchronous actions call it inline,
// prompt-style actions defer it until player input arrives.
type Action interface {
	Type() string
	Execute(e Engine, authoritative bool, done func())
}

// Factory builds an action from its opaque payload.
type Factory func(payload json.RawMessage) (Action, error)

// Registry maps action type strings to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry preloaded with the built-in actions.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltins(r)
	return r
}

// Register installs a factory for a type string, replacing any previous
// registration.
func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// NewFromJSON materializes an action from {type, payload}.
func (r *Registry) NewFromJSON(typ string, payload json.RawMessage) (Action, error) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", typ)
	}
	a, err := f(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s action: %w", typ, err)
	}
	return a, nil
}

// Types returns the registered type strings.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	return out
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
