package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/game/actions"
	"github.com/boardfree/board-server-go/internal/game/effects"
	"github.com/boardfree/board-server-go/internal/game/events"
	"github.com/boardfree/board-server-go/internal/game/movement"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// fakeNet records broadcast proposals and controls turn ownership.
type fakeNet struct {
	mu         sync.Mutex
	clientTurn bool
	proposals  []time.Duration
}

func (f *fakeNet) ProposeStateChange(_ *GameState, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals = append(f.proposals, delay)
}

func (f *fakeNet) IsClientTurn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clientTurn
}

func (f *fakeNet) proposalCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.proposals)
}

// scriptedUI records adapter calls and hands registered callbacks back
// to the test.
type scriptedUI struct {
	NullUI

	rollActivations   int
	rollDeactivations int
	selectionCalls    int
	unregisterCalls   int
	selectionTargets  []string
	onSelect          func(string)
	promptTitles      []string
	onChoice          func(string)
	modalsHidden      int
}

func (u *scriptedUI) ActivateRollButton()   { u.rollActivations++ }
func (u *scriptedUI) DeactivateRollButton() { u.rollDeactivations++ }
func (u *scriptedUI) HideAllModals()        { u.modalsHidden++ }

func (u *scriptedUI) RegisterSpaceSelection(spaces []string, onSelect func(string)) func() {
	u.selectionCalls++
	u.selectionTargets = spaces
	u.onSelect = onSelect
	return func() { u.unregisterCalls++ }
}

func (u *scriptedUI) ShowPrompt(title string, _ []string, onChoice func(string)) func() {
	u.promptTitles = append(u.promptTitles, title)
	u.onChoice = onChoice
	return func() {}
}

func linearBoard(t *testing.T, n int) *board.Board {
	t.Helper()
	spaces := make([]*board.Space, n)
	for i := 0; i < n; i++ {
		sp := &board.Space{ID: spaceID(i)}
		if i+1 < n {
			sp.Connections = []string{spaceID(i + 1)}
		}
		spaces[i] = sp
	}
	b, err := board.New("linear", spaceID(0), spaces)
	require.NoError(t, err)
	return b
}

func spaceID(i int) string {
	return string(rune('a' + i))
}

type engineFixture struct {
	engine *Engine
	state  *GameState
	ui     *scriptedUI
	net    *fakeNet
}

func newFixture(t *testing.T, b *board.Board, players []*Player, cfg Config) *engineFixture {
	t.Helper()
	state, err := NewGameState(b, players, events.NewTriggerRegistry(), actions.NewRegistry())
	require.NoError(t, err)

	ui := &scriptedUI{}
	net := &fakeNet{clientTurn: true}
	engine := NewEngine(cfg, state, effects.NewRegistry(), ui, net, zap.NewNop())
	t.Cleanup(engine.Stop)
	return &engineFixture{engine: engine, state: state, ui: ui, net: net}
}

func defaultConfig() Config {
	return Config{TurnTimer: time.Minute}
}

func twoPlayers() []*Player {
	return []*Player{NewPlayer("p1", "Alice", 0), NewPlayer("p2", "Bob", 1)}
}

func TestHandlerTablesAreExhaustive(t *testing.T) {
	f := newFixture(t, linearBoard(t, 2), twoPlayers(), defaultConfig())

	gameTable := f.engine.gameHandlers()
	for _, p := range phase.GamePhases() {
		assert.Contains(t, gameTable, p, "missing game handler for %s", p)
	}

	turnTable := f.engine.turnHandlers()
	for _, p := range phase.TurnPhases() {
		assert.Contains(t, turnTable, p, "missing turn handler for %s", p)
	}
}

func TestEngineStart(t *testing.T) {
	f := newFixture(t, linearBoard(t, 4), twoPlayers(), defaultConfig())
	f.engine.Start()

	assert.Equal(t, phase.GameInGame, f.engine.Machine().GamePhase())
	assert.Equal(t, phase.TurnWaitingForMove, f.engine.Machine().TurnPhase())
	assert.Equal(t, "p1", f.state.CurrentPlayerID())
	assert.Equal(t, 1, f.ui.rollActivations)
}

func TestRollGuards(t *testing.T) {
	t.Run("rejects roll from a non-owning peer", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 4), twoPlayers(), defaultConfig())
		f.engine.Start()
		f.net.clientTurn = false

		assert.ErrorIs(t, f.engine.Roll(3), ErrNotYourTurn)
	})

	t.Run("rejects roll outside WAITING_FOR_MOVE", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 4), twoPlayers(), defaultConfig())
		// Not started: no phase committed yet.
		assert.Error(t, f.engine.Roll(3))
	})

	t.Run("rejects non-positive roll", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 4), twoPlayers(), defaultConfig())
		f.engine.Start()
		assert.Error(t, f.engine.Roll(0))
	})
}

func turnPhaseVisits(m *phase.Machine, p phase.TurnPhase) int {
	count := 0
	for _, rec := range m.History() {
		if rec.Type == "TURN" && rec.To == string(p) {
			count++
		}
	}
	return count
}

func TestTurnCycle(t *testing.T) {
	t.Run("zero triggered events skips PROCESSING_EVENT entirely", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(2))

		assert.GreaterOrEqual(t, turnPhaseVisits(f.engine.Machine(), phase.TurnProcessingEvents), 1)
		assert.Zero(t, turnPhaseVisits(f.engine.Machine(), phase.TurnProcessingEvent))
	})

	t.Run("linear board consumes the roll and ends the turn", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(2))

		// p1 walked two spaces, the turn ended, p2 now waits to roll.
		p1 := f.state.Player("p1")
		assert.Equal(t, "c", p1.SpaceID)
		assert.Equal(t, 1, p1.TurnsTaken)
		assert.Equal(t, "p2", f.state.CurrentPlayerID())
		assert.Equal(t, phase.TurnWaitingForMove, f.engine.Machine().TurnPhase())
	})

	t.Run("dead-end space zeroes remaining moves without a choice", func(t *testing.T) {
		b, err := board.New("deadend", "a", []*board.Space{{ID: "a"}, {ID: "b"}})
		require.NoError(t, err)
		f := newFixture(t, b, twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(3))

		assert.Zero(t, f.state.RemainingMoves())
		assert.Zero(t, turnPhaseVisits(f.engine.Machine(), phase.TurnChoosingDestination))
		assert.Zero(t, f.ui.selectionCalls)
	})

	t.Run("single connection auto-moves without registering a choice", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, "b", f.state.Player("p1").SpaceID)
		assert.Zero(t, f.ui.selectionCalls)
	})

	t.Run("fork suspends on a destination choice resolved exactly once", func(t *testing.T) {
		b, err := board.New("fork", "a", []*board.Space{
			{ID: "a", Connections: []string{"left", "right"}},
			{ID: "left"},
			{ID: "right"},
		})
		require.NoError(t, err)
		f := newFixture(t, b, twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(4))

		assert.Equal(t, phase.TurnChoosingDestination, f.engine.Machine().TurnPhase())
		assert.Equal(t, 4, f.state.RemainingMoves())
		require.Equal(t, 1, f.ui.selectionCalls)
		assert.Equal(t, []string{"left", "right"}, f.ui.selectionTargets)

		f.ui.onSelect("left")

		assert.Equal(t, "left", f.state.Player("p1").SpaceID)
		assert.Equal(t, 1, f.ui.unregisterCalls)
		// left is a dead end, so the turn ran to completion.
		assert.Equal(t, "p2", f.state.CurrentPlayerID())

		// A second, stale selection is rejected.
		assert.Error(t, f.engine.ChooseDestination("right"))
	})

	t.Run("skip-flagged player loses the turn", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 8), twoPlayers(), defaultConfig())
		f.engine.Start()
		f.state.Player("p2").SkipNext = true

		require.NoError(t, f.engine.Roll(1))

		// p2 was skipped; it is p1's turn again and the flag cleared.
		assert.Equal(t, "p1", f.state.CurrentPlayerID())
		assert.False(t, f.state.Player("p2").SkipNext)
		assert.Equal(t, 1, f.state.Player("p2").TurnsTaken)
	})

	t.Run("disconnected player is skipped", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 8), twoPlayers(), defaultConfig())
		f.engine.Start()
		require.NoError(t, f.engine.SetPlayerConnected("p2", false))

		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, "p1", f.state.CurrentPlayerID())
		assert.Equal(t, phase.TurnWaitingForMove, f.engine.Machine().TurnPhase())
	})
}

func TestEventExecution(t *testing.T) {
	t.Run("landing event executes and completes within the cycle", func(t *testing.T) {
		b, err := board.New("evented", "a", []*board.Space{
			{ID: "a", Connections: []string{"b"}},
			{ID: "b", Events: []board.EventDef{{
				Trigger:  board.TriggerDef{Type: "PLAYER_ON_SPACE"},
				Priority: 1,
				Action:   board.ActionDef{Type: actions.TypeSkipTurn, Payload: json.RawMessage(`{"playerId":"p2"}`)},
			}}},
		})
		require.NoError(t, err)
		f := newFixture(t, b, twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(1))

		// Landing on b flagged p2; p2's turn was then skipped at the
		// following CHANGE_TURN, so it is p1's turn again.
		assert.Equal(t, "p1", f.state.CurrentPlayerID())
		assert.GreaterOrEqual(t, turnPhaseVisits(f.engine.Machine(), phase.TurnProcessingEvent), 1)
	})

	t.Run("executing an action re-evaluates triggers and can fire newly unlocked events", func(t *testing.T) {
		// Landing on b teleports to c; the event on c must then fire
		// within the same cycle because the list is recomputed after
		// every execution.
		b, err := board.New("chain", "a", []*board.Space{
			{ID: "a", Connections: []string{"b"}},
			{ID: "b", Events: []board.EventDef{{
				Trigger:  board.TriggerDef{Type: "PLAYER_ON_SPACE"},
				Priority: 5,
				Action:   board.ActionDef{Type: actions.TypeTeleport, Payload: json.RawMessage(`{"spaceId":"c"}`)},
			}}},
			{ID: "c", Events: []board.EventDef{{
				Trigger:  board.TriggerDef{Type: "PLAYER_ON_SPACE"},
				Priority: 1,
				Action:   board.ActionDef{Type: actions.TypeSkipTurn, Payload: json.RawMessage(`{"playerId":"p2"}`)},
			}}},
		})
		require.NoError(t, err)
		f := newFixture(t, b, twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, "c", f.state.Player("p1").SpaceID)
		// Both actions ran: the teleport and the newly unlocked skip.
		assert.Equal(t, 2, turnPhaseVisits(f.engine.Machine(), phase.TurnProcessingEvent))
		assert.Equal(t, "p1", f.state.CurrentPlayerID())
	})

	t.Run("prompt action suspends the cycle until answered", func(t *testing.T) {
		b, err := board.New("prompted", "a", []*board.Space{
			{ID: "a", Connections: []string{"b"}},
			{ID: "b", Events: []board.EventDef{{
				Trigger:  board.TriggerDef{Type: "PLAYER_ON_SPACE"},
				Priority: 1,
				Action:   board.ActionDef{Type: actions.TypePrompt, Payload: json.RawMessage(`{"title":"Pick","options":["x","y"]}`)},
			}}},
		})
		require.NoError(t, err)
		f := newFixture(t, b, twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, phase.TurnProcessingEvent, f.engine.Machine().TurnPhase())
		require.Len(t, f.ui.promptTitles, 1)

		f.ui.onChoice("x")

		// The action completed and the cycle ran on to the next turn.
		assert.Equal(t, "p2", f.state.CurrentPlayerID())
	})
}

func TestExtraTurn(t *testing.T) {
	f := newFixture(t, linearBoard(t, 10), twoPlayers(), defaultConfig())
	f.engine.Start()

	require.NoError(t, f.engine.ApplyEffect("p1", effects.TypeExtraTurn, nil))
	require.NoError(t, f.engine.Roll(1))

	// The END_TURN pass granted another turn: still p1.
	assert.Equal(t, "p1", f.state.CurrentPlayerID())
	assert.Equal(t, phase.TurnWaitingForMove, f.engine.Machine().TurnPhase())
	assert.Equal(t, 1, f.state.Player("p1").TurnsTaken)

	// The grant was one-shot: the next turn passes to p2.
	require.NoError(t, f.engine.Roll(1))
	assert.Equal(t, "p2", f.state.CurrentPlayerID())
}

func TestGameEnd(t *testing.T) {
	t.Run("all players finished transitions to GAME_ENDED", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()

		require.NoError(t, f.engine.MarkPlayerFinished("p1"))
		require.NoError(t, f.engine.MarkPlayerFinished("p2"))
		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, phase.GameEnded, f.engine.Machine().GamePhase())

		// No turn-phase handler runs afterwards.
		visits := turnPhaseVisits(f.engine.Machine(), phase.TurnChangeTurn)
		assert.Error(t, f.engine.Roll(1))
		assert.Equal(t, visits, turnPhaseVisits(f.engine.Machine(), phase.TurnChangeTurn))
	})

	t.Run("no eligible players ends the game instead of cycling", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()
		require.NoError(t, f.engine.SetPlayerConnected("p2", false))
		require.NoError(t, f.engine.MarkPlayerFinished("p1"))

		require.NoError(t, f.engine.Roll(1))

		assert.Equal(t, phase.GameEnded, f.engine.Machine().GamePhase())
	})
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
	f.engine.Start()

	assert.Error(t, f.engine.Resume(), "resume is only valid from PAUSED")

	require.NoError(t, f.engine.Pause())
	assert.Equal(t, phase.GamePaused, f.engine.Machine().GamePhase())
	assert.Error(t, f.engine.Roll(3))

	require.NoError(t, f.engine.Resume())
	assert.Equal(t, phase.GameInGame, f.engine.Machine().GamePhase())
}

func TestTurnTimerForcesEndOfTurn(t *testing.T) {
	cfg := Config{TurnTimer: 20 * time.Millisecond}
	f := newFixture(t, linearBoard(t, 6), twoPlayers(), cfg)
	f.engine.Start()

	assert.Eventually(t, func() bool {
		player, tp := f.engine.TurnInfo()
		return player == "p2" && tp == phase.TurnWaitingForMove
	}, time.Second, 5*time.Millisecond, "timer should have forced END_TURN and advanced the turn")
}

func TestTurnTimerSurvivesPauseResume(t *testing.T) {
	cfg := Config{TurnTimer: 20 * time.Millisecond}
	f := newFixture(t, linearBoard(t, 6), twoPlayers(), cfg)
	f.engine.Start()

	require.NoError(t, f.engine.Pause())
	require.NoError(t, f.engine.Resume())

	assert.Eventually(t, func() bool {
		player, tp := f.engine.TurnInfo()
		return player == "p2" && tp == phase.TurnWaitingForMove
	}, time.Second, 5*time.Millisecond, "resume should rearm the forced end-of-turn escape")
}

func TestBroadcastProposals(t *testing.T) {
	t.Run("owning peer proposes on every transition", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()
		assert.Greater(t, f.net.proposalCount(), 0)
	})

	t.Run("non-owning peer never proposes", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.net.clientTurn = false
		f.engine.Start()
		assert.Zero(t, f.net.proposalCount())
	})
}

func TestApplyAuthoritativeState(t *testing.T) {
	t.Run("non-owning peer mirrors state and detects the phase delta", func(t *testing.T) {
		owner := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		owner.engine.Start()
		require.NoError(t, owner.engine.Roll(2))

		replica := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		replica.net.clientTurn = false

		data, err := owner.state.MarshalWire()
		require.NoError(t, err)

		changed, err := replica.engine.ApplyAuthoritativeState(data)
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, owner.state.Player("p1").SpaceID, replica.state.Player("p1").SpaceID)
		assert.Equal(t, owner.engine.Machine().TurnPhase(), replica.engine.Machine().TurnPhase())
		// No handlers ran on the replica: no roll button activation.
		assert.Zero(t, replica.ui.rollActivations)
	})

	t.Run("stale snapshots are rejected", func(t *testing.T) {
		owner := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		owner.engine.Start()

		stale, err := owner.state.MarshalWire()
		require.NoError(t, err)

		require.NoError(t, owner.engine.Roll(2))
		fresh, err := owner.state.MarshalWire()
		require.NoError(t, err)

		replica := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		replica.net.clientTurn = false

		_, err = replica.engine.ApplyAuthoritativeState(fresh)
		require.NoError(t, err)

		_, err = replica.engine.ApplyAuthoritativeState(stale)
		assert.Error(t, err)
	})

	t.Run("owning peer ignores inbound snapshots", func(t *testing.T) {
		f := newFixture(t, linearBoard(t, 6), twoPlayers(), defaultConfig())
		f.engine.Start()

		data, err := f.state.MarshalWire()
		require.NoError(t, err)

		changed, err := f.engine.ApplyAuthoritativeState(data)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestTroubleStyleSetup(t *testing.T) {
	// 2 players, 4 pieces each, all starting at home.
	players := twoPlayers()
	for _, p := range players {
		for i := 0; i < 4; i++ {
			p.Pieces = append(p.Pieces, &movement.Piece{
				ID:       p.ID + "-" + spaceID(i),
				OwnerID:  p.ID,
				Position: movement.PositionHome,
			})
		}
	}

	f := newFixture(t, linearBoard(t, 8), players, defaultConfig())
	f.engine.Start()

	assert.Equal(t, phase.GameInGame, f.engine.Machine().GamePhase())
	assert.Equal(t, phase.TurnWaitingForMove, f.engine.Machine().TurnPhase())

	require.NoError(t, f.engine.Roll(4))

	// The roll was recorded and event processing entered.
	assert.GreaterOrEqual(t, turnPhaseVisits(f.engine.Machine(), phase.TurnProcessingEvents), 1)

	for _, p := range f.state.Players() {
		require.Len(t, p.Pieces, 4)
	}
}
