package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMachine() *Machine {
	return NewMachine(GamePhases(), TurnPhases(), zap.NewNop())
}

func TestMachineInit(t *testing.T) {
	m := newTestMachine()
	m.Init(GameInGame, TurnWaitingForMove)

	assert.Equal(t, GameInGame, m.GamePhase())
	assert.Equal(t, TurnWaitingForMove, m.TurnPhase())
	assert.True(t, m.IsInGamePhase(GameInGame))
	assert.True(t, m.IsInTurnPhase(TurnWaitingForMove))

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, "INIT", history[0].Type)
}

func TestMachineTransitions(t *testing.T) {
	t.Run("valid transition dispatches handler", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInLobby, TurnChangeTurn)

		called := false
		m.RegisterGameHandler(GameInGame, func(ctx map[string]any) {
			called = true
			assert.Equal(t, "test", ctx["reason"])
		})

		ok := m.TransitionGamePhase(GameInGame, map[string]any{"reason": "test"})
		assert.True(t, ok)
		assert.True(t, called)
		assert.Equal(t, GameInGame, m.GamePhase())
	})

	t.Run("phase outside configured set is rejected with no change", func(t *testing.T) {
		m := NewMachine([]GamePhase{GameInLobby, GameInGame}, []TurnPhase{TurnChangeTurn}, zap.NewNop())
		m.Init(GameInGame, TurnChangeTurn)

		assert.False(t, m.TransitionGamePhase(GamePaused, nil))
		assert.Equal(t, GameInGame, m.GamePhase())

		assert.False(t, m.TransitionTurnPhase(TurnEndTurn, nil))
		assert.Equal(t, TurnChangeTurn, m.TurnPhase())
	})

	t.Run("missing handler commits the phase anyway", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInLobby, TurnChangeTurn)

		ok := m.TransitionTurnPhase(TurnBeginTurn, nil)
		assert.True(t, ok)
		assert.Equal(t, TurnBeginTurn, m.TurnPhase())
	})

	t.Run("handler panic does not roll back the committed phase", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInLobby, TurnChangeTurn)
		m.RegisterTurnHandler(TurnBeginTurn, func(map[string]any) {
			panic("handler fault")
		})

		ok := m.TransitionTurnPhase(TurnBeginTurn, nil)
		assert.True(t, ok)
		assert.Equal(t, TurnBeginTurn, m.TurnPhase())
	})

	t.Run("handlers can cascade transitions synchronously", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInGame, TurnChangeTurn)

		var visited []TurnPhase
		m.RegisterTurnHandler(TurnBeginTurn, func(map[string]any) {
			visited = append(visited, TurnBeginTurn)
			m.TransitionTurnPhase(TurnWaitingForMove, nil)
		})
		m.RegisterTurnHandler(TurnWaitingForMove, func(map[string]any) {
			visited = append(visited, TurnWaitingForMove)
		})

		m.TransitionTurnPhase(TurnBeginTurn, nil)

		assert.Equal(t, []TurnPhase{TurnBeginTurn, TurnWaitingForMove}, visited)
		assert.Equal(t, TurnWaitingForMove, m.TurnPhase())
	})
}

func TestMachineNotifications(t *testing.T) {
	m := newTestMachine()
	m.Init(GameInGame, TurnChangeTurn)

	var notes []Notification
	m.SetNotifier(func(n Notification) { notes = append(notes, n) })

	m.TransitionTurnPhase(TurnBeginTurn, map[string]any{"player": "p1"})

	require.Len(t, notes, 1)
	assert.Equal(t, "TURN", notes[0].Type)
	assert.Equal(t, string(TurnChangeTurn), notes[0].From)
	assert.Equal(t, string(TurnBeginTurn), notes[0].To)
	assert.Equal(t, "p1", notes[0].Context["player"])
}

func TestMachineHistory(t *testing.T) {
	t.Run("records carry from/to and type", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInGame, TurnChangeTurn)
		m.TransitionTurnPhase(TurnBeginTurn, nil)
		m.TransitionGamePhase(GamePaused, nil)

		history := m.History()
		require.Len(t, history, 3)
		assert.Equal(t, "TURN", history[1].Type)
		assert.Equal(t, string(TurnChangeTurn), history[1].From)
		assert.Equal(t, "GAME", history[2].Type)
		assert.Equal(t, string(GamePaused), history[2].To)
	})

	t.Run("history is a ring capped at 50 evicting oldest", func(t *testing.T) {
		m := newTestMachine()
		m.Init(GameInGame, TurnChangeTurn)

		phases := []TurnPhase{TurnBeginTurn, TurnChangeTurn}
		for i := 0; i < 60; i++ {
			m.TransitionTurnPhase(phases[i%2], nil)
		}

		history := m.History()
		assert.Len(t, history, 50)
		// The INIT record was evicted long ago.
		assert.Equal(t, "TURN", history[0].Type)
	})
}

func TestMachineReset(t *testing.T) {
	m := newTestMachine()
	m.Init(GameInGame, TurnWaitingForMove)
	m.TransitionTurnPhase(TurnProcessingEvents, nil)

	m.Reset()

	assert.Equal(t, GamePhase(""), m.GamePhase())
	assert.Equal(t, TurnPhase(""), m.TurnPhase())
	assert.Empty(t, m.History())
}
