package events

import (
	"sort"

	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/board"
)

// Pipeline scans the space graph for events whose trigger currently
// holds. Collect is re-run after every action execution rather than
// cached: executing one action can invalidate or newly trigger others,
// and the re-evaluation is part of the turn engine's contract.
type Pipeline struct {
	log *zap.Logger
}

// NewPipeline creates an event trigger pipeline.
func NewPipeline(logger *zap.Logger) *Pipeline {
	return &Pipeline{log: logger}
}

// Collect returns the READY events whose predicates hold, sorted by
// descending priority. The sort is stable: equal priorities keep board
// iteration order (space order, then definition order within a space).
func (p *Pipeline) Collect(state StateView, b *board.Board, bySpace map[string][]*GameEvent) []*GameEvent {
	var matched []*GameEvent

	for _, spaceID := range b.SpaceIDs() {
		sp := b.GetSpace(spaceID)
		for _, ev := range bySpace[spaceID] {
			if ev.State() != Ready {
				continue
			}
			if ev.Trigger == nil || !ev.Trigger(TriggerContext{State: state, Space: sp}) {
				continue
			}
			matched = append(matched, ev)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	if len(matched) > 0 {
		p.log.Debug("collected triggered events", zap.Int("count", len(matched)))
	}
	return matched
}

// ResetAll flips every completed event back to READY so it can fire on
// a future visit.
func (p *Pipeline) ResetAll(bySpace map[string][]*GameEvent) {
	for _, evs := range bySpace {
		for _, ev := range evs {
			ev.Reset()
		}
	}
}
