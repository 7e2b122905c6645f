package movement

import (
	"fmt"

	"go.uber.org/zap"
)

// Piece is a single token in multi-piece variants. Position -1 means
// the piece is still at home.
const PositionHome = -1

type Piece struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	Position int    `json:"position"`
}

// Track is the piece-aware view of the board loop the capture resolver
// validates against.
type Track interface {
	Length() int
	IsSafe(position int) bool
	PieceAt(position int) *Piece
	EntryPosition(ownerID string) int
}

// Outcome describes the result of resolving one piece move.
type Outcome struct {
	Piece    *Piece
	From     int
	To       int
	Captured *Piece // occupant sent home, nil if none
}

// CaptureResolver is the piece-aware sibling of Resolver: same contract
// shape, but it selects a piece, validates distance, and resolves
// captures against non-safe destination spaces.
type CaptureResolver struct {
	log *zap.Logger
}

// NewCaptureResolver creates a capture resolver.
func NewCaptureResolver(logger *zap.Logger) *CaptureResolver {
	return &CaptureResolver{log: logger}
}

// ResolveMove validates moving the piece by distance and resolves the
// capture on the destination. Leaving home requires an exact entry roll
// of 6 (Trouble-style); landing on an own piece or a safe occupied
// space is rejected.
func (r *CaptureResolver) ResolveMove(t Track, p *Piece, distance int) (*Outcome, error) {
	if p == nil {
		return nil, fmt.Errorf("no piece selected")
	}
	if distance <= 0 {
		return nil, fmt.Errorf("move distance must be positive, got %d", distance)
	}

	from := p.Position
	var to int

	if from == PositionHome {
		if distance != 6 {
			return nil, fmt.Errorf("piece %s needs a 6 to leave home, rolled %d", p.ID, distance)
		}
		to = t.EntryPosition(p.OwnerID)
	} else {
		to = (from + distance) % t.Length()
	}

	occupant := t.PieceAt(to)
	var captured *Piece
	if occupant != nil {
		if occupant.OwnerID == p.OwnerID {
			return nil, fmt.Errorf("destination %d blocked by own piece %s", to, occupant.ID)
		}
		if t.IsSafe(to) {
			return nil, fmt.Errorf("destination %d is a safe space, cannot capture %s", to, occupant.ID)
		}
		captured = occupant
	}

	outcome := &Outcome{Piece: p, From: from, To: to, Captured: captured}

	p.Position = to
	if captured != nil {
		captured.Position = PositionHome
		r.log.Debug("piece captured",
			zap.String("piece_id", p.ID),
			zap.String("captured_id", captured.ID),
			zap.Int("position", to),
		)
	}

	return outcome, nil
}

// SelectMovable returns the owner's pieces that could legally move by
// distance, in piece order. Used to decide whether a roll is playable
// at all before prompting a selection.
func (r *CaptureResolver) SelectMovable(t Track, pieces []*Piece, ownerID string, distance int) []*Piece {
	var movable []*Piece
	for _, p := range pieces {
		if p.OwnerID != ownerID {
			continue
		}
		if r.canMove(t, p, distance) {
			movable = append(movable, p)
		}
	}
	return movable
}

func (r *CaptureResolver) canMove(t Track, p *Piece, distance int) bool {
	if p.Position == PositionHome {
		if distance != 6 {
			return false
		}
		return r.destinationOpen(t, p, t.EntryPosition(p.OwnerID))
	}
	return r.destinationOpen(t, p, (p.Position+distance)%t.Length())
}

func (r *CaptureResolver) destinationOpen(t Track, p *Piece, to int) bool {
	occupant := t.PieceAt(to)
	if occupant == nil {
		return true
	}
	if occupant.OwnerID == p.OwnerID {
		return false
	}
	return !t.IsSafe(to)
}
