package server

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/game"
	"github.com/boardfree/board-server-go/internal/game/actions"
	"github.com/boardfree/board-server-go/internal/game/events"
)

type captureSink struct {
	mu    sync.Mutex
	sends [][]byte
}

func (c *captureSink) BroadcastState(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, append([]byte(nil), data...))
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func (c *captureSink) last(t *testing.T) *game.WireState {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sends)
	var ws game.WireState
	require.NoError(t, json.Unmarshal(c.sends[len(c.sends)-1], &ws))
	return &ws
}

func broadcastState(t *testing.T) *game.GameState {
	t.Helper()
	b, err := board.New("bc", "a", []*board.Space{{ID: "a"}})
	require.NoError(t, err)

	gs, err := game.NewGameState(b,
		[]*game.Player{game.NewPlayer("p1", "Alice", 0)},
		events.NewTriggerRegistry(), actions.NewRegistry())
	require.NoError(t, err)
	return gs
}

func TestBroadcasterDebounce(t *testing.T) {
	t.Run("rapid proposals coalesce into one send with the latest state", func(t *testing.T) {
		sink := &captureSink{}
		bc := NewBroadcaster("g1", true, sink, nil, nil, zap.NewNop())
		defer bc.Stop()

		gs := broadcastState(t)
		gs.SetRemainingMoves(1)
		bc.ProposeStateChange(gs, 40*time.Millisecond)
		gs.SetRemainingMoves(2)
		bc.ProposeStateChange(gs, 40*time.Millisecond)
		gs.SetRemainingMoves(3)
		bc.ProposeStateChange(gs, 40*time.Millisecond)

		require.Eventually(t, func() bool { return sink.count() > 0 },
			time.Second, 5*time.Millisecond)

		assert.Equal(t, 1, sink.count())
		assert.Equal(t, 3, sink.last(t).RemainingMoves)
	})

	t.Run("proposals after a flush schedule a new send", func(t *testing.T) {
		sink := &captureSink{}
		bc := NewBroadcaster("g2", true, sink, nil, nil, zap.NewNop())
		defer bc.Stop()

		gs := broadcastState(t)
		bc.ProposeStateChange(gs, time.Millisecond)
		require.Eventually(t, func() bool { return sink.count() == 1 },
			time.Second, 5*time.Millisecond)

		gs.SetRemainingMoves(5)
		bc.ProposeStateChange(gs, time.Millisecond)
		require.Eventually(t, func() bool { return sink.count() == 2 },
			time.Second, 5*time.Millisecond)
		assert.Equal(t, 5, sink.last(t).RemainingMoves)
	})

	t.Run("stop drops the pending broadcast", func(t *testing.T) {
		sink := &captureSink{}
		bc := NewBroadcaster("g3", true, sink, nil, nil, zap.NewNop())

		bc.ProposeStateChange(broadcastState(t), 50*time.Millisecond)
		bc.Stop()

		time.Sleep(100 * time.Millisecond)
		assert.Zero(t, sink.count())
	})
}

func TestBroadcasterRecordsReplay(t *testing.T) {
	sink := &captureSink{}
	recorder := game.NewReplayRecorder(zap.NewNop(), t.TempDir())
	recorder.StartRecording("g4")

	bc := NewBroadcaster("g4", true, sink, recorder, nil, zap.NewNop())
	defer bc.Stop()

	bc.ProposeStateChange(broadcastState(t), time.Millisecond)
	require.Eventually(t, func() bool { return sink.count() == 1 },
		time.Second, 5*time.Millisecond)

	r, ok := recorder.GetReplay("g4")
	require.True(t, ok)
	assert.Equal(t, 1, r.Size())
}

func TestBroadcasterAuthority(t *testing.T) {
	assert.True(t, NewBroadcaster("g", true, &captureSink{}, nil, nil, zap.NewNop()).IsClientTurn())
	assert.False(t, NewBroadcaster("g", false, &captureSink{}, nil, nil, zap.NewNop()).IsClientTurn())
}
