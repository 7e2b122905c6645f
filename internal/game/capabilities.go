package game

import (
	"github.com/boardfree/board-server-go/internal/game/events"
)

// The engine's behavior is exposed as small capability interfaces so
// collaborators depend on exactly the slice they use; the concrete
// *Engine satisfies all of them.

// TurnFlowCapable is the surface external input drives the turn cycle
// through.
type TurnFlowCapable interface {
	Start()
	Roll(n int) error
	ChooseDestination(spaceID string) error
	Pause() error
	Resume() error
}

// EventProcessingCapable exposes the trigger pipeline's current view.
type EventProcessingCapable interface {
	TriggeredEvents() []*events.GameEvent
}

// PromptRenderingCapable opens modal choices on the owning peer.
type PromptRenderingCapable interface {
	ShowPrompt(title string, options []string, onChoice func(choice string))
}

var (
	_ TurnFlowCapable        = (*Engine)(nil)
	_ EventProcessingCapable = (*Engine)(nil)
	_ PromptRenderingCapable = (*Engine)(nil)
)
