package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/game/actions"
	"github.com/boardfree/board-server-go/internal/game/effects"
	"github.com/boardfree/board-server-go/internal/game/events"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// GameState owns the replicated match data: the space graph, the player
// list, the two phase values, remaining moves, and the materialized
// event cache. It is created once per match and mutated only through
// its methods; every mutation bumps the version and timestamp, which
// are the only means peers have to detect staleness.
type GameState struct {
	players []*Player
	b       *board.Board

	gamePhase phase.GamePhase
	turnPhase phase.TurnPhase

	remainingMoves int

	// overridePlayerID beats the min-turns-taken derivation when set.
	overridePlayerID string

	eventsBySpace map[string][]*events.GameEvent

	pluginState map[string]json.RawMessage

	version   uint64
	timestamp int64 // unix milliseconds
}

// NewGameState creates the match state and materializes the board's
// event definitions through the given factories.
func NewGameState(b *board.Board, players []*Player, triggers *events.TriggerRegistry, acts *actions.Registry) (*GameState, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("a game needs at least one player")
	}

	evs, err := events.Materialize(b, triggers, acts)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize board events: %w", err)
	}

	for _, p := range players {
		if p.SpaceID == "" {
			p.SpaceID = b.StartSpace
		}
	}

	gs := &GameState{
		players:       players,
		b:             b,
		eventsBySpace: evs,
		pluginState:   make(map[string]json.RawMessage),
	}
	gs.touch()
	return gs, nil
}

func (gs *GameState) touch() {
	gs.version++
	gs.timestamp = time.Now().UnixMilli()
}

// Board returns the read-only space graph.
func (gs *GameState) Board() *board.Board { return gs.b }

// Players returns the player list in turn order.
func (gs *GameState) Players() []*Player { return gs.players }

// Player returns the player with the given id, or nil.
func (gs *GameState) Player(id string) *Player {
	for _, p := range gs.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// EventsBySpace returns the materialized per-space event cache.
func (gs *GameState) EventsBySpace() map[string][]*events.GameEvent {
	return gs.eventsBySpace
}

// CurrentPlayer derives the player whose turn it is: the explicit
// override when set, else the player with the fewest turns taken, ties
// broken by turn order slot. Ineligible players are still derived; the
// orchestrator skips them at CHANGE_TURN so their turn counter keeps
// advancing with everyone else's.
func (gs *GameState) CurrentPlayer() *Player {
	if gs.overridePlayerID != "" {
		if p := gs.Player(gs.overridePlayerID); p != nil {
			return p
		}
	}

	var current *Player
	for _, p := range gs.players {
		if current == nil || p.TurnsTaken < current.TurnsTaken ||
			(p.TurnsTaken == current.TurnsTaken && p.Order < current.Order) {
			current = p
		}
	}
	return current
}

// AnyEligible reports whether at least one player can still take a
// turn.
func (gs *GameState) AnyEligible() bool {
	for _, p := range gs.players {
		if p.Eligible() {
			return true
		}
	}
	return false
}

// SetCurrentPlayerOverride pins the current player regardless of the
// turns-taken derivation (extra turns).
func (gs *GameState) SetCurrentPlayerOverride(playerID string) {
	gs.overridePlayerID = playerID
	gs.touch()
}

// ClearCurrentPlayerOverride returns to derived turn order.
func (gs *GameState) ClearCurrentPlayerOverride() {
	if gs.overridePlayerID == "" {
		return
	}
	gs.overridePlayerID = ""
	gs.touch()
}

// SetGamePhase records the committed game phase into the replicated
// state.
func (gs *GameState) SetGamePhase(p phase.GamePhase) {
	gs.gamePhase = p
	gs.touch()
}

// SetTurnPhase records the committed turn phase into the replicated
// state.
func (gs *GameState) SetTurnPhase(p phase.TurnPhase) {
	gs.turnPhase = p
	gs.touch()
}

// GamePhase returns the replicated game phase.
func (gs *GameState) GamePhase() phase.GamePhase { return gs.gamePhase }

// TurnPhase returns the replicated turn phase.
func (gs *GameState) TurnPhase() phase.TurnPhase { return gs.turnPhase }

// MovePlayer places a player on a space.
func (gs *GameState) MovePlayer(playerID, spaceID string) error {
	p := gs.Player(playerID)
	if p == nil {
		return fmt.Errorf("unknown player %q", playerID)
	}
	if gs.b.GetSpace(spaceID) == nil {
		return fmt.Errorf("unknown space %q", spaceID)
	}
	p.SpaceID = spaceID
	gs.touch()
	return nil
}

// SetPlayerFinished marks a player as having completed the game.
func (gs *GameState) SetPlayerFinished(playerID string) error {
	p := gs.Player(playerID)
	if p == nil {
		return fmt.Errorf("unknown player %q", playerID)
	}
	p.Finished = true
	gs.touch()
	return nil
}

// SetPlayerConnected updates a player's connectivity flag.
func (gs *GameState) SetPlayerConnected(playerID string, connected bool) error {
	p := gs.Player(playerID)
	if p == nil {
		return fmt.Errorf("unknown player %q", playerID)
	}
	p.Connected = connected
	gs.touch()
	return nil
}

// SetPlayerSkipNext sets or clears a player's skip flag.
func (gs *GameState) SetPlayerSkipNext(playerID string, skip bool) {
	p := gs.Player(playerID)
	if p == nil || p.SkipNext == skip {
		return
	}
	p.SkipNext = skip
	gs.touch()
}

// IncrementTurnsTaken advances a player's turn counter.
func (gs *GameState) IncrementTurnsTaken(playerID string) {
	p := gs.Player(playerID)
	if p == nil {
		return
	}
	p.TurnsTaken++
	gs.touch()
}

// AddPlayerEffect attaches an effect to a player.
func (gs *GameState) AddPlayerEffect(playerID string, eff effects.Effect) error {
	p := gs.Player(playerID)
	if p == nil {
		return fmt.Errorf("unknown player %q", playerID)
	}
	p.AddEffect(eff)
	gs.touch()
	return nil
}

// RemainingMoves returns the moves left this turn.
func (gs *GameState) RemainingMoves() int { return gs.remainingMoves }

// SetRemainingMoves sets the move counter, clamped at zero.
func (gs *GameState) SetRemainingMoves(n int) {
	if n < 0 {
		n = 0
	}
	gs.remainingMoves = n
	gs.touch()
}

// DecrementMoves consumes one move; already-zero stays zero.
func (gs *GameState) DecrementMoves() {
	if gs.remainingMoves == 0 {
		return
	}
	gs.remainingMoves--
	gs.touch()
}

// AllFinished reports whether every non-spectating player completed the
// game.
func (gs *GameState) AllFinished() bool {
	any := false
	for _, p := range gs.players {
		if p.Spectating {
			continue
		}
		any = true
		if !p.Finished {
			return false
		}
	}
	return any
}

// Version returns the monotonic mutation counter.
func (gs *GameState) Version() uint64 { return gs.version }

// Timestamp returns the unix-millisecond time of the last mutation.
func (gs *GameState) Timestamp() int64 { return gs.timestamp }

// SetPluginState stores an opaque per-plugin blob carried in the wire
// shape.
func (gs *GameState) SetPluginState(key string, raw json.RawMessage) {
	gs.pluginState[key] = raw
	gs.touch()
}

// CurrentPlayerID implements events.StateView.
func (gs *GameState) CurrentPlayerID() string {
	if p := gs.CurrentPlayer(); p != nil {
		return p.ID
	}
	return ""
}

// PlayerIDs implements events.StateView.
func (gs *GameState) PlayerIDs() []string {
	out := make([]string, 0, len(gs.players))
	for _, p := range gs.players {
		out = append(out, p.ID)
	}
	return out
}

// PlayerSpaceID implements events.StateView.
func (gs *GameState) PlayerSpaceID(playerID string) string {
	if p := gs.Player(playerID); p != nil {
		return p.SpaceID
	}
	return ""
}
