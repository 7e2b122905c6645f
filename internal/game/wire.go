package game

import (
	"encoding/json"
	"fmt"

	"github.com/boardfree/board-server-go/internal/game/movement"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// StateTypeGame identifies the game-state wire message.
const StateTypeGame = "game_state"

// WirePlayer is a player's replicated shape.
type WirePlayer struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Order      int               `json:"order"`
	SpaceID    string            `json:"spaceId"`
	TurnsTaken int               `json:"turnsTaken"`
	Finished   bool              `json:"finished"`
	Spectating bool              `json:"spectating"`
	Connected  bool              `json:"connected"`
	SkipNext   bool              `json:"skipNext"`
	Pieces     []*movement.Piece `json:"pieces,omitempty"`
	Effects    []string          `json:"effects,omitempty"`
}

// WireState is the replicated shape of GameState consumed by the
// network layer. Version and Timestamp are bumped on every mutation and
// are the only means peers have to detect staleness.
type WireState struct {
	StateType      string                     `json:"stateType"`
	GamePhase      string                     `json:"gamePhase"`
	TurnPhase      string                     `json:"turnPhase"`
	RemainingMoves int                        `json:"remainingMoves"`
	Players        []WirePlayer               `json:"players"`
	Board          string                     `json:"board"`
	PluginState    map[string]json.RawMessage `json:"pluginState,omitempty"`
	Version        uint64                     `json:"_version"`
	Timestamp      int64                      `json:"_timestamp"`
}

// Snapshot renders the replicated wire shape of the state.
func (gs *GameState) Snapshot() *WireState {
	ws := &WireState{
		StateType:      StateTypeGame,
		GamePhase:      string(gs.gamePhase),
		TurnPhase:      string(gs.turnPhase),
		RemainingMoves: gs.remainingMoves,
		Board:          gs.b.Name,
		PluginState:    gs.pluginState,
		Version:        gs.version,
		Timestamp:      gs.timestamp,
	}
	for _, p := range gs.players {
		ws.Players = append(ws.Players, WirePlayer{
			ID:         p.ID,
			Name:       p.Name,
			Order:      p.Order,
			SpaceID:    p.SpaceID,
			TurnsTaken: p.TurnsTaken,
			Finished:   p.Finished,
			Spectating: p.Spectating,
			Connected:  p.Connected,
			SkipNext:   p.SkipNext,
			Pieces:     p.Pieces,
			Effects:    p.EffectTypes(),
		})
	}
	return ws
}

// MarshalWire renders the state as its JSON wire bytes.
func (gs *GameState) MarshalWire() ([]byte, error) {
	return json.Marshal(gs.Snapshot())
}

// ApplyWire replaces the replicated fields with an authoritative
// snapshot. Local effect objects are left in place: non-owning peers
// never enact them, and the owner never applies foreign snapshots for
// its own turn. Stale snapshots are rejected.
func (gs *GameState) ApplyWire(ws *WireState) error {
	if ws.StateType != StateTypeGame {
		return fmt.Errorf("unexpected state type %q", ws.StateType)
	}
	if ws.Version < gs.version {
		return fmt.Errorf("stale snapshot: version %d behind local %d", ws.Version, gs.version)
	}

	gs.gamePhase = phase.GamePhase(ws.GamePhase)
	gs.turnPhase = phase.TurnPhase(ws.TurnPhase)
	gs.remainingMoves = ws.RemainingMoves

	for _, wp := range ws.Players {
		p := gs.Player(wp.ID)
		if p == nil {
			continue
		}
		p.SpaceID = wp.SpaceID
		p.TurnsTaken = wp.TurnsTaken
		p.Finished = wp.Finished
		p.Spectating = wp.Spectating
		p.Connected = wp.Connected
		p.SkipNext = wp.SkipNext
		p.Pieces = wp.Pieces
	}

	gs.pluginState = ws.PluginState
	if gs.pluginState == nil {
		gs.pluginState = make(map[string]json.RawMessage)
	}

	// Adopt the authority's counters so the next staleness check
	// compares against what was applied.
	gs.version = ws.Version
	gs.timestamp = ws.Timestamp
	return nil
}
