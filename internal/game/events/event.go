package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/game/actions"
)

// State tracks whether an event may still fire within the current
// processing cycle.
type State string

const (
	Ready           State = "READY"
	CompletedAction State = "COMPLETED_ACTION"
)

// StateView is the read-only slice of game state trigger predicates
// evaluate against.
type StateView interface {
	CurrentPlayerID() string
	PlayerIDs() []string
	PlayerSpaceID(playerID string) string
	RemainingMoves() int
}

// TriggerContext is the input to a trigger predicate.
type TriggerContext struct {
	State StateView
	Space *board.Space
}

// Trigger is a predicate deciding whether an event currently holds.
type Trigger func(TriggerContext) bool

// GameEvent belongs to exactly one space. It transitions
// READY -> COMPLETED_ACTION on successful execution, which removes it
// from subsequent trigger scans until the cycle resets it.
type GameEvent struct {
	ID       string
	SpaceID  string
	Priority int
	Trigger  Trigger
	Action   actions.Action

	state State
}

// NewGameEvent creates a READY event bound to a space.
func NewGameEvent(spaceID string, priority int, trigger Trigger, action actions.Action) *GameEvent {
	return &GameEvent{
		ID:       uuid.NewString(),
		SpaceID:  spaceID,
		Priority: priority,
		Trigger:  trigger,
		Action:   action,
		state:    Ready,
	}
}

// State returns the event's firing state.
func (ev *GameEvent) State() State { return ev.state }

// Complete marks the event so it is skipped by subsequent scans within
// the same cycle.
func (ev *GameEvent) Complete() { ev.state = CompletedAction }

// Reset makes the event eligible to fire again on a future visit.
func (ev *GameEvent) Reset() { ev.state = Ready }

// Materialize builds the per-space event lists from the board's event
// definitions using the trigger and action factories. The returned map
// lives in the game state; the board itself stays untouched.
func Materialize(b *board.Board, triggers *TriggerRegistry, acts *actions.Registry) (map[string][]*GameEvent, error) {
	out := make(map[string][]*GameEvent)
	for _, spaceID := range b.SpaceIDs() {
		sp := b.GetSpace(spaceID)
		for i, def := range sp.Events {
			trig, err := triggers.NewFromJSON(def.Trigger.Type, def.Trigger.Payload)
			if err != nil {
				return nil, fmt.Errorf("space %q event %d: %w", spaceID, i, err)
			}
			act, err := acts.NewFromJSON(def.Action.Type, def.Action.Payload)
			if err != nil {
				return nil, fmt.Errorf("space %q event %d: %w", spaceID, i, err)
			}
			out[spaceID] = append(out[spaceID], NewGameEvent(spaceID, def.Priority, trig, act))
		}
	}
	return out, nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}
