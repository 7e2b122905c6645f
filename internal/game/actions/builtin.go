package actions

import (
	"encoding/json"
)

const (
	TypeMovePlayer   = "MOVE_PLAYER"
	TypeTeleport     = "TELEPORT"
	TypeGrantMoves   = "GRANT_MOVES"
	TypeSkipTurn     = "SKIP_TURN"
	TypeApplyEffect  = "APPLY_EFFECT"
	TypePrompt       = "PROMPT"
	TypeFinishPlayer = "FINISH_PLAYER"
)

func registerBuiltins(r *Registry) {
	r.Register(TypeMovePlayer, newMovePlayer)
	r.Register(TypeTeleport, newTeleport)
	r.Register(TypeGrantMoves, newGrantMoves)
	r.Register(TypeSkipTurn, newSkipTurn)
	r.Register(TypeApplyEffect, newApplyEffect)
	r.Register(TypePrompt, newPrompt)
	r.Register(TypeFinishPlayer, newFinishPlayer)
}

// finishPlayerAction marks a player as having completed the game;
// END_TURN checks whether everyone has.
type finishPlayerAction struct {
	PlayerID string `json:"playerId,omitempty"` // empty = current player
}

func newFinishPlayer(payload json.RawMessage) (Action, error) {
	var a finishPlayerAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *finishPlayerAction) Type() string { return TypeFinishPlayer }

func (a *finishPlayerAction) Execute(e Engine, authoritative bool, done func()) {
	target := a.PlayerID
	if target == "" {
		target = e.CurrentPlayerID()
	}
	if authoritative {
		e.FinishPlayer(target)
	}
	done()
}

// movePlayerAction repositions a player either to an absolute space or
// by a relative number of steps along single outgoing connections.
type movePlayerAction struct {
	PlayerID string `json:"playerId,omitempty"` // empty = current player
	SpaceID  string `json:"spaceId,omitempty"`
	Steps    int    `json:"steps,omitempty"`
}

func newMovePlayer(payload json.RawMessage) (Action, error) {
	var a movePlayerAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *movePlayerAction) Type() string { return TypeMovePlayer }

func (a *movePlayerAction) Execute(e Engine, authoritative bool, done func()) {
	target := a.PlayerID
	if target == "" {
		target = e.CurrentPlayerID()
	}
	if authoritative {
		if a.SpaceID != "" {
			e.MovePlayerTo(target, a.SpaceID)
		} else {
			e.StepPlayer(target, a.Steps)
		}
	}
	done()
}

// teleportAction moves a player directly to a space, bypassing the
// movement resolver.
type teleportAction struct {
	PlayerID string `json:"playerId,omitempty"` // empty = current player
	SpaceID  string `json:"spaceId"`
}

func newTeleport(payload json.RawMessage) (Action, error) {
	var a teleportAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *teleportAction) Type() string { return TypeTeleport }

func (a *teleportAction) Execute(e Engine, authoritative bool, done func()) {
	target := a.PlayerID
	if target == "" {
		target = e.CurrentPlayerID()
	}
	if authoritative {
		e.MovePlayerTo(target, a.SpaceID)
	}
	done()
}

// grantMovesAction adds to the current player's remaining moves; a
// negative amount subtracts (clamped at zero by the engine).
type grantMovesAction struct {
	Amount int `json:"amount"`
}

func newGrantMoves(payload json.RawMessage) (Action, error) {
	var a grantMovesAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *grantMovesAction) Type() string { return TypeGrantMoves }

func (a *grantMovesAction) Execute(e Engine, authoritative bool, done func()) {
	if authoritative {
		e.GrantMoves(a.Amount)
	}
	done()
}

// skipTurnAction flags a player so the orchestrator skips their next
// CHANGE_TURN.
type skipTurnAction struct {
	PlayerID string `json:"playerId,omitempty"` // empty = current player
}

func newSkipTurn(payload json.RawMessage) (Action, error) {
	var a skipTurnAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *skipTurnAction) Type() string { return TypeSkipTurn }

func (a *skipTurnAction) Execute(e Engine, authoritative bool, done func()) {
	target := a.PlayerID
	if target == "" {
		target = e.CurrentPlayerID()
	}
	if authoritative {
		e.FlagSkipTurn(target)
	}
	done()
}

// applyEffectAction attaches a player effect built by the effect
// factory.
type applyEffectAction struct {
	PlayerID   string          `json:"playerId,omitempty"` // empty = current player
	EffectType string          `json:"effectType"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func newApplyEffect(payload json.RawMessage) (Action, error) {
	var a applyEffectAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *applyEffectAction) Type() string { return TypeApplyEffect }

func (a *applyEffectAction) Execute(e Engine, authoritative bool, done func()) {
	target := a.PlayerID
	if target == "" {
		target = e.CurrentPlayerID()
	}
	if authoritative {
		// A bad effect definition is a board-authoring error; the
		// action still completes so the event loop can continue.
		_ = e.ApplyEffect(target, a.EffectType, a.Payload)
	}
	done()
}

// promptAction opens a modal choice on the owning peer and defers its
// completion until the player answers (or the modal times out).
type promptAction struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

func newPrompt(payload json.RawMessage) (Action, error) {
	var a promptAction
	if err := unmarshalPayload(payload, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *promptAction) Type() string { return TypePrompt }

func (a *promptAction) Execute(e Engine, authoritative bool, done func()) {
	if !authoritative {
		// Non-owning peers never open the modal; they learn the
		// outcome from the next authoritative broadcast.
		done()
		return
	}
	e.ShowPrompt(a.Title, a.Options, func(string) {
		done()
	})
}
