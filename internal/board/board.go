package board

import (
	"encoding/json"
	"fmt"
	"os"
)

// EventDef is the board-file definition of an event attached to a space.
// Trigger and Action are materialized by the game layer's factories; the
// board itself never interprets them.
type EventDef struct {
	Trigger  TriggerDef      `json:"trigger"`
	Priority int             `json:"priority"`
	Action   ActionDef       `json:"action"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// TriggerDef identifies a trigger predicate by type plus opaque payload.
type TriggerDef struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ActionDef identifies an action by type plus opaque payload.
type ActionDef struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Space is a single board position with directed outgoing connections
// and attached event definitions.
type Space struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Connections []string   `json:"connections"`
	Events      []EventDef `json:"events,omitempty"`
	Safe        bool       `json:"safe,omitempty"`
}

// Board is the read-only space graph. The engine consumes it and never
// mutates it; iteration order over spaces is the board-file order.
type Board struct {
	Name       string
	StartSpace string

	spaces map[string]*Space
	order  []string
}

type boardFile struct {
	Name       string   `json:"name"`
	StartSpace string   `json:"startSpace"`
	Spaces     []*Space `json:"spaces"`
}

// New builds a board from spaces in the given order. The first space is
// the start space unless startSpace names another.
func New(name, startSpace string, spaces []*Space) (*Board, error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("board %q has no spaces", name)
	}

	b := &Board{
		Name:   name,
		spaces: make(map[string]*Space, len(spaces)),
		order:  make([]string, 0, len(spaces)),
	}
	for _, sp := range spaces {
		if sp.ID == "" {
			return nil, fmt.Errorf("board %q has a space without an id", name)
		}
		if _, dup := b.spaces[sp.ID]; dup {
			return nil, fmt.Errorf("board %q has duplicate space id %q", name, sp.ID)
		}
		b.spaces[sp.ID] = sp
		b.order = append(b.order, sp.ID)
	}

	if startSpace == "" {
		startSpace = spaces[0].ID
	}
	if _, ok := b.spaces[startSpace]; !ok {
		return nil, fmt.Errorf("board %q start space %q does not exist", name, startSpace)
	}
	b.StartSpace = startSpace

	// Reject dangling connections up front; the movement resolver
	// assumes every connection target resolves.
	for _, sp := range spaces {
		for _, target := range sp.Connections {
			if _, ok := b.spaces[target]; !ok {
				return nil, fmt.Errorf("space %q connects to unknown space %q", sp.ID, target)
			}
		}
	}

	return b, nil
}

// LoadFile reads a board definition from a JSON file.
func LoadFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	var bf boardFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse board file %s: %w", path, err)
	}

	b, err := New(bf.Name, bf.StartSpace, bf.Spaces)
	if err != nil {
		return nil, fmt.Errorf("invalid board file %s: %w", path, err)
	}
	return b, nil
}

// GetSpace returns the space with the given id, or nil.
func (b *Board) GetSpace(id string) *Space {
	return b.spaces[id]
}

// SpaceIDs returns space ids in board-file order.
func (b *Board) SpaceIDs() []string {
	return b.order
}

// Size returns the number of spaces.
func (b *Board) Size() int {
	return len(b.order)
}
