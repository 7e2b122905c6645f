package movement

import (
	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/board"
)

// Engine is the narrow view of the turn engine the resolver drives.
type Engine interface {
	CurrentSpace() *board.Space
	SetRemainingMoves(n int)
	MoveCurrentPlayer(spaceID string)
	DecrementMoves()
	// ReturnToEventProcessing transitions back to PROCESSING_EVENTS.
	ReturnToEventProcessing()
	// EnterDestinationChoice transitions to PLAYER_CHOOSING_DESTINATION
	// with the given targets pending.
	EnterDestinationChoice(targets []string)
}

// Resolver decides, from the current space's outgoing connections,
// whether movement is automatic, blocked, or needs a player decision.
type Resolver struct {
	log *zap.Logger
}

// NewResolver creates a movement resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{log: logger}
}

// ResolveStep advances the current player by one step. Zero outgoing
// connections strands the player (moves zeroed); exactly one moves
// automatically; more than one suspends on a destination choice.
func (r *Resolver) ResolveStep(e Engine) {
	sp := e.CurrentSpace()
	if sp == nil {
		r.log.Error("current player has no resolvable space")
		e.SetRemainingMoves(0)
		e.ReturnToEventProcessing()
		return
	}

	switch len(sp.Connections) {
	case 0:
		r.log.Debug("player is stuck, zeroing moves", zap.String("space_id", sp.ID))
		e.SetRemainingMoves(0)
		e.ReturnToEventProcessing()
	case 1:
		e.MoveCurrentPlayer(sp.Connections[0])
		e.DecrementMoves()
		e.ReturnToEventProcessing()
	default:
		r.log.Debug("movement requires a destination choice",
			zap.String("space_id", sp.ID),
			zap.Int("options", len(sp.Connections)),
		)
		e.EnterDestinationChoice(sp.Connections)
	}
}
