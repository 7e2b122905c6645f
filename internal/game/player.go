package game

import (
	"github.com/boardfree/board-server-go/internal/game/effects"
	"github.com/boardfree/board-server-go/internal/game/movement"
)

// Player is one participant in the match. Gameplay flags are mutated
// only through engine methods; the wire shape mirrors the exported
// fields.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Order      int    `json:"order"`
	SpaceID    string `json:"spaceId"`
	TurnsTaken int    `json:"turnsTaken"`
	Finished   bool   `json:"finished"`
	Spectating bool   `json:"spectating"`
	Connected  bool   `json:"connected"`
	SkipNext   bool   `json:"skipNext"`

	// Pieces is populated for multi-piece variants; position -1 means
	// home.
	Pieces []*movement.Piece `json:"pieces,omitempty"`

	effects []effects.Effect
}

// NewPlayer creates a connected player at the given turn order slot.
func NewPlayer(id, name string, order int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Order:     order,
		Connected: true,
	}
}

// PlayerID implements effects.Holder.
func (p *Player) PlayerID() string { return p.ID }

// Effects implements effects.Holder.
func (p *Player) Effects() []effects.Effect { return p.effects }

// SetEffects implements effects.Holder.
func (p *Player) SetEffects(e []effects.Effect) { p.effects = e }

// AddEffect attaches an effect to the player.
func (p *Player) AddEffect(e effects.Effect) {
	p.effects = append(p.effects, e)
}

// EffectTypes returns the attached effect type strings, for the wire
// shape and UI display.
func (p *Player) EffectTypes() []string {
	out := make([]string, 0, len(p.effects))
	for _, e := range p.effects {
		out = append(out, e.Type())
	}
	return out
}

// Eligible reports whether the player can take a normal turn.
func (p *Player) Eligible() bool {
	return p.Connected && !p.Spectating && !p.Finished
}
