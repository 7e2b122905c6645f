package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Checksum is a deterministic digest of a state snapshot. Peers compare
// checksums to spot divergence after a handler fault on one side.
type Checksum struct {
	Hash    string
	Version uint64
}

// ComputeChecksum hashes a canonical rendering of the snapshot. The
// rendering sorts players by id and excludes the timestamp, so two
// peers holding the same logical state produce the same hash.
func (ws *WireState) ComputeChecksum() (*Checksum, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("STATE:%s|%s|%s|%d|%s\n",
		ws.StateType,
		ws.GamePhase,
		ws.TurnPhase,
		ws.RemainingMoves,
		ws.Board,
	))

	players := make([]WirePlayer, len(ws.Players))
	copy(players, ws.Players)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	for _, p := range players {
		buf.WriteString(fmt.Sprintf("PLAYER:%s|%s|%d|%s|%d|%t|%t|%t|%t\n",
			p.ID,
			p.Name,
			p.Order,
			p.SpaceID,
			p.TurnsTaken,
			p.Finished,
			p.Spectating,
			p.Connected,
			p.SkipNext,
		))
		for _, piece := range p.Pieces {
			buf.WriteString(fmt.Sprintf("PIECE:%s|%s|%d\n", piece.ID, piece.OwnerID, piece.Position))
		}
		for _, eff := range p.Effects {
			buf.WriteString(fmt.Sprintf("EFFECT:%s\n", eff))
		}
	}

	keys := make([]string, 0, len(ws.PluginState))
	for k := range ws.PluginState {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("PLUGIN:%s|%s\n", k, string(ws.PluginState[k])))
	}

	hash := sha256.New()
	if _, err := hash.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	return &Checksum{
		Hash:    hex.EncodeToString(hash.Sum(nil)),
		Version: ws.Version,
	}, nil
}
