package game

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/board"
	"github.com/boardfree/board-server-go/internal/game/effects"
	"github.com/boardfree/board-server-go/internal/game/events"
	"github.com/boardfree/board-server-go/internal/game/movement"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// NetworkLayer is the engine's contract with the peer transport. The
// engine proposes state dissemination with a delay so rapid successive
// transitions batch into one broadcast; it never sends inline with a
// mutation.
type NetworkLayer interface {
	ProposeStateChange(state *GameState, delay time.Duration)
	IsClientTurn() bool
}

// Config carries the turn-engine timing knobs.
type Config struct {
	BroadcastDelay time.Duration
	TurnTimer      time.Duration
	ModalTimeout   time.Duration
}

// ErrNotYourTurn is returned when a peer without mutation rights calls
// a mutating entry point.
var ErrNotYourTurn = fmt.Errorf("not this peer's turn")

// Engine is the turn flow orchestrator. It registers one handler per
// phase with the state machine at construction time, the only place
// phase semantics are encoded, and drives the pipeline, scheduler and
// resolver in order.
//
// Execution is a synchronous cascade: a transition runs every chained
// handler to completion before returning, stopping at a phase whose
// handler waits on external input. External entry points (rolls,
// destination choices, timer expiries, snapshot application) serialize
// on one mutex; within a cascade there is no parallelism.
type Engine struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg Config

	machine   *phase.Machine
	state     *GameState
	pipeline  *events.Pipeline
	scheduler *effects.Scheduler
	resolver  *movement.Resolver
	effectReg *effects.Registry

	ui  UIAdapter
	net NetworkLayer

	// Suspension bookkeeping: at most one outstanding registration of
	// each kind, torn down deterministically on phase exit.
	pendingTargets   []string
	unregisterChoice func()
	dismissPrompt    func()
	modalTimer       *time.Timer
	promptGen        uint64

	turnTimer *time.Timer
	timerGen  uint64

	rollModifiers map[string]int
	extraTurnFor  string
}

// NewEngine wires the orchestrator and registers every phase handler.
func NewEngine(cfg Config, state *GameState, effectReg *effects.Registry, ui UIAdapter, net NetworkLayer, logger *zap.Logger) *Engine {
	e := &Engine{
		log:           logger,
		cfg:           cfg,
		machine:       phase.NewMachine(phase.GamePhases(), phase.TurnPhases(), logger),
		state:         state,
		pipeline:      events.NewPipeline(logger),
		scheduler:     effects.NewScheduler(logger),
		resolver:      movement.NewResolver(logger),
		effectReg:     effectReg,
		ui:            ui,
		net:           net,
		rollModifiers: make(map[string]int),
	}

	e.machine.SetNotifier(e.onTransition)

	for p, h := range e.gameHandlers() {
		e.machine.RegisterGameHandler(p, h)
	}
	for p, h := range e.turnHandlers() {
		e.machine.RegisterTurnHandler(p, h)
	}

	return e
}

// gameHandlers is the exhaustive game-phase handler table.
func (e *Engine) gameHandlers() map[phase.GamePhase]phase.GameHandler {
	return map[phase.GamePhase]phase.GameHandler{
		phase.GameInLobby: e.handleInLobby,
		phase.GameInGame:  e.handleInGame,
		phase.GamePaused:  e.handlePaused,
		phase.GameEnded:   e.handleGameEnded,
	}
}

// turnHandlers is the exhaustive turn-phase handler table.
func (e *Engine) turnHandlers() map[phase.TurnPhase]phase.TurnHandler {
	return map[phase.TurnPhase]phase.TurnHandler{
		phase.TurnChangeTurn:          e.handleChangeTurn,
		phase.TurnBeginTurn:           e.handleBeginTurn,
		phase.TurnWaitingForMove:      e.handleWaitingForMove,
		phase.TurnProcessingEvents:    e.handleProcessingEvents,
		phase.TurnProcessingEvent:     e.handleProcessingEvent,
		phase.TurnProcessingMove:      e.handleProcessingMove,
		phase.TurnChoosingDestination: e.handleChoosingDestination,
		phase.TurnEndTurn:             e.handleEndTurn,
	}
}

// onTransition runs after every committed transition, before its
// handler: it mirrors the phase into the replicated state, tears down
// the suspension artifacts of the phase being left, and schedules a
// batched broadcast.
func (e *Engine) onTransition(n phase.Notification) {
	switch n.Type {
	case "GAME":
		e.state.SetGamePhase(phase.GamePhase(n.To))
	case "TURN":
		e.state.SetTurnPhase(phase.TurnPhase(n.To))
		e.teardownSuspension(phase.TurnPhase(n.From))
	}

	if e.net.IsClientTurn() {
		e.net.ProposeStateChange(e.state, e.cfg.BroadcastDelay)
	}
}

func (e *Engine) teardownSuspension(from phase.TurnPhase) {
	switch from {
	case phase.TurnWaitingForMove:
		e.ui.DeactivateRollButton()
	case phase.TurnChoosingDestination:
		if e.unregisterChoice != nil {
			e.unregisterChoice()
			e.unregisterChoice = nil
		}
		e.pendingTargets = nil
	case phase.TurnProcessingEvent:
		e.clearPrompt()
	}
}

func (e *Engine) clearPrompt() {
	e.promptGen++
	if e.modalTimer != nil {
		e.modalTimer.Stop()
		e.modalTimer = nil
	}
	if e.dismissPrompt != nil {
		e.dismissPrompt()
		e.dismissPrompt = nil
	}
}

// Start initializes the match: IN_LOBBY, then IN_GAME, then the turn
// cycle runs to its first suspension point (WAITING_FOR_MOVE for an
// eligible player).
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.machine.Init(phase.GameInLobby, "")
	e.state.SetGamePhase(phase.GameInLobby)

	e.machine.TransitionGamePhase(phase.GameInGame, map[string]any{"reason": "start"})
	e.machine.TransitionTurnPhase(phase.TurnChangeTurn, map[string]any{"reason": "start"})
}

// Roll records the current player's roll and advances into event
// processing. Only the peer owning the turn may call it.
func (e *Engine) Roll(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.net.IsClientTurn() {
		return ErrNotYourTurn
	}
	if !e.machine.IsInGamePhase(phase.GameInGame) {
		return fmt.Errorf("cannot roll while %s", e.machine.GamePhase())
	}
	if !e.machine.IsInTurnPhase(phase.TurnWaitingForMove) {
		return fmt.Errorf("cannot roll during %s", e.machine.TurnPhase())
	}
	if n <= 0 {
		return fmt.Errorf("roll must be positive, got %d", n)
	}

	cur := e.state.CurrentPlayer()
	total := n
	if cur != nil {
		total += e.rollModifiers[cur.ID]
	}
	if total < 0 {
		total = 0
	}

	e.state.SetRemainingMoves(total)
	e.ui.ShowRemainingMoves(total)
	e.log.Info("player rolled",
		zap.String("player_id", e.state.CurrentPlayerID()),
		zap.Int("roll", n),
		zap.Int("moves", total),
	)

	e.machine.TransitionTurnPhase(phase.TurnProcessingEvents, map[string]any{"roll": n})
	return nil
}

// ChooseDestination resolves the pending destination choice. Only valid
// while suspended in PLAYER_CHOOSING_DESTINATION.
func (e *Engine) ChooseDestination(spaceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.IsInGamePhase(phase.GameInGame) {
		return fmt.Errorf("cannot move while %s", e.machine.GamePhase())
	}
	if !e.machine.IsInTurnPhase(phase.TurnChoosingDestination) {
		return fmt.Errorf("no destination choice pending during %s", e.machine.TurnPhase())
	}

	valid := false
	for _, t := range e.pendingTargets {
		if t == spaceID {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("space %q is not a valid destination", spaceID)
	}

	if err := e.state.MovePlayer(e.state.CurrentPlayerID(), spaceID); err != nil {
		return err
	}
	e.state.DecrementMoves()
	e.ui.UpdateRemainingMoves(e.state.RemainingMoves())

	e.machine.TransitionTurnPhase(phase.TurnProcessingEvents, map[string]any{"chose": spaceID})
	return nil
}

// Pause freezes timers and input.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.TransitionGamePhase(phase.GamePaused, nil) {
		return fmt.Errorf("cannot pause from %s", e.machine.GamePhase())
	}
	return nil
}

// Resume returns from PAUSED to IN_GAME.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.machine.IsInGamePhase(phase.GamePaused) {
		return fmt.Errorf("cannot resume from %s", e.machine.GamePhase())
	}
	e.machine.TransitionGamePhase(phase.GameInGame, map[string]any{"reason": "resume"})
	return nil
}

// MarkPlayerFinished records a player as having completed the game.
func (e *Engine) MarkPlayerFinished(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.SetPlayerFinished(playerID)
}

// SetPlayerConnected updates a player's connectivity; disconnected
// players are skipped at CHANGE_TURN.
func (e *Engine) SetPlayerConnected(playerID string, connected bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.SetPlayerConnected(playerID, connected)
}

// ApplyAuthoritativeState replaces the local replicated state with an
// inbound snapshot. Handlers are never re-run here: non-owning peers
// only mirror state and re-derive UI-facing signals. Returns whether a
// phase delta was detected.
func (e *Engine) ApplyAuthoritativeState(data []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.net.IsClientTurn() {
		// The owning peer's own broadcast can loop back; applying it
		// over in-flight local mutation would be a rollback.
		e.log.Debug("ignoring authoritative snapshot while owning the turn")
		return false, nil
	}

	var ws WireState
	if err := json.Unmarshal(data, &ws); err != nil {
		return false, fmt.Errorf("failed to parse authoritative state: %w", err)
	}

	prevGame := e.machine.GamePhase()
	prevTurn := e.machine.TurnPhase()

	if err := e.state.ApplyWire(&ws); err != nil {
		return false, err
	}

	e.machine.Sync(e.state.GamePhase(), e.state.TurnPhase())

	changed := prevGame != e.state.GamePhase() || prevTurn != e.state.TurnPhase()
	if changed {
		e.ui.HideAllModals()
		e.ui.UpdateRemainingMoves(e.state.RemainingMoves())
	}
	return changed, nil
}

// State returns the replicated game state.
func (e *Engine) State() *GameState { return e.state }

// TurnInfo reports the current player and turn phase under the engine
// lock, safe to call from any goroutine.
func (e *Engine) TurnInfo() (playerID string, tp phase.TurnPhase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CurrentPlayerID(), e.machine.TurnPhase()
}

// SnapshotWire marshals the current state under the engine lock, for
// transports serving late joiners.
func (e *Engine) SnapshotWire() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.MarshalWire()
}

// Stop cancels timers and outstanding UI registrations. Called on
// shutdown; the engine is not reusable afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTurnTimer()
	e.clearPrompt()
	if e.unregisterChoice != nil {
		e.unregisterChoice()
		e.unregisterChoice = nil
	}
	e.ui.StopTimer()
}

// Machine exposes the phase machine for diagnostics and queries.
func (e *Engine) Machine() *phase.Machine { return e.machine }

// TriggeredEvents returns the events whose triggers currently hold, in
// execution order.
func (e *Engine) TriggeredEvents() []*events.GameEvent {
	return e.pipeline.Collect(e.state, e.state.Board(), e.state.EventsBySpace())
}

// ---- game phase handlers ----

func (e *Engine) handleInLobby(map[string]any) {
	e.ui.DeactivateRollButton()
	e.ui.HideAllModals()
}

func (e *Engine) handleInGame(map[string]any) {
	e.scheduler.EnactAll(e.effectHolders(), e)

	// PAUSED stopped the turn timer; a turn parked at a suspension point
	// gets it back so the forced END_TURN escape stays armed.
	switch e.machine.TurnPhase() {
	case phase.TurnWaitingForMove, phase.TurnChoosingDestination, phase.TurnProcessingEvent:
		e.startTurnTimer()
	}
	e.ui.ResumeTimer()
}

func (e *Engine) handlePaused(map[string]any) {
	e.stopTurnTimer()
	e.ui.PauseTimer()
	e.ui.DeactivateRollButton()
}

func (e *Engine) handleGameEnded(map[string]any) {
	e.stopTurnTimer()
	e.clearPrompt()
	if e.unregisterChoice != nil {
		e.unregisterChoice()
		e.unregisterChoice = nil
	}
	e.ui.StopTimer()
	e.ui.DeactivateRollButton()
	e.ui.HideAllModals()
	e.log.Info("game ended", zap.Uint64("state_version", e.state.Version()))
}

// ---- turn phase handlers ----

func (e *Engine) handleChangeTurn(map[string]any) {
	for id := range e.rollModifiers {
		delete(e.rollModifiers, id)
	}
	e.scheduler.EnactAll(e.effectHolders(), e)

	if !e.state.AnyEligible() {
		e.machine.TransitionGamePhase(phase.GameEnded, map[string]any{"reason": "no eligible players"})
		return
	}

	cur := e.state.CurrentPlayer()
	if cur == nil {
		e.machine.TransitionGamePhase(phase.GameEnded, map[string]any{"reason": "no current player"})
		return
	}

	if !cur.Eligible() || cur.SkipNext {
		e.state.SetPlayerSkipNext(cur.ID, false)
		e.log.Info("skipping player's turn", zap.String("player_id", cur.ID))
		e.machine.TransitionTurnPhase(phase.TurnEndTurn, map[string]any{"skipped": cur.ID})
		return
	}

	e.machine.TransitionTurnPhase(phase.TurnBeginTurn, map[string]any{"player": cur.ID})
}

func (e *Engine) handleBeginTurn(map[string]any) {
	e.startTurnTimer()
	e.ui.StartTimer(e.cfg.TurnTimer)
	e.machine.TransitionTurnPhase(phase.TurnWaitingForMove, nil)
}

func (e *Engine) handleWaitingForMove(map[string]any) {
	// Suspension point: the cascade stops here until Roll arrives or
	// the turn timer forces END_TURN.
	e.ui.ActivateRollButton()
}

func (e *Engine) handleProcessingEvents(map[string]any) {
	triggered := e.pipeline.Collect(e.state, e.state.Board(), e.state.EventsBySpace())
	if len(triggered) == 0 {
		e.pipeline.ResetAll(e.state.EventsBySpace())
		e.machine.TransitionTurnPhase(phase.TurnProcessingMove, nil)
		return
	}

	for _, ev := range triggered {
		e.log.Debug("event triggered",
			zap.String("event_id", ev.ID),
			zap.String("space_id", ev.SpaceID),
			zap.Int("priority", ev.Priority),
		)
	}
	e.machine.TransitionTurnPhase(phase.TurnProcessingEvent, map[string]any{"count": len(triggered)})
}

func (e *Engine) handleProcessingEvent(map[string]any) {
	// The triggered list is recomputed here, never carried over from
	// PROCESSING_EVENTS: executing one action can invalidate or newly
	// trigger others.
	triggered := e.pipeline.Collect(e.state, e.state.Board(), e.state.EventsBySpace())
	if len(triggered) == 0 {
		e.machine.TransitionTurnPhase(phase.TurnProcessingMove, nil)
		return
	}

	ev := triggered[0]
	authoritative := e.net.IsClientTurn()
	ev.Action.Execute(e, authoritative, func() {
		ev.Complete()
		e.machine.TransitionTurnPhase(phase.TurnProcessingEvents, map[string]any{"completed": ev.ID})
	})
}

func (e *Engine) handleProcessingMove(map[string]any) {
	if e.state.RemainingMoves() > 0 {
		e.resolver.ResolveStep(e)
		return
	}
	e.machine.TransitionTurnPhase(phase.TurnEndTurn, nil)
}

func (e *Engine) handleChoosingDestination(map[string]any) {
	// Suspension point: exactly one outstanding selection, torn down
	// when the phase moves away.
	targets := e.pendingTargets
	e.unregisterChoice = e.ui.RegisterSpaceSelection(targets, func(spaceID string) {
		if err := e.ChooseDestination(spaceID); err != nil {
			e.log.Warn("rejected destination selection",
				zap.String("space_id", spaceID),
				zap.Error(err),
			)
		}
	})
}

func (e *Engine) handleEndTurn(map[string]any) {
	e.stopTurnTimer()
	e.ui.StopTimer()

	// Second enactment pass of the cycle; extra-turn style effects are
	// designed to run here.
	e.scheduler.EnactAll(e.effectHolders(), e)

	cur := e.state.CurrentPlayer()
	if cur != nil {
		e.state.IncrementTurnsTaken(cur.ID)
	}

	if e.state.AllFinished() {
		e.machine.TransitionGamePhase(phase.GameEnded, map[string]any{"reason": "all players finished"})
		return
	}

	if cur != nil && e.extraTurnFor == cur.ID {
		e.extraTurnFor = ""
		e.state.SetCurrentPlayerOverride(cur.ID)
		e.log.Info("replaying turn for player", zap.String("player_id", cur.ID))
		e.machine.TransitionTurnPhase(phase.TurnBeginTurn, map[string]any{"extra_turn": cur.ID})
		return
	}

	e.state.ClearCurrentPlayerOverride()
	e.machine.TransitionTurnPhase(phase.TurnChangeTurn, nil)
}

// ---- timers ----

func (e *Engine) startTurnTimer() {
	e.stopTurnTimer()
	if e.cfg.TurnTimer <= 0 {
		return
	}
	e.timerGen++
	gen := e.timerGen
	e.turnTimer = time.AfterFunc(e.cfg.TurnTimer, func() {
		e.onTurnTimeout(gen)
	})
}

func (e *Engine) stopTurnTimer() {
	e.timerGen++
	if e.turnTimer != nil {
		e.turnTimer.Stop()
		e.turnTimer = nil
	}
}

// onTurnTimeout is the only source of forced, unprompted transitions:
// it ends a turn stuck at a suspension point.
func (e *Engine) onTurnTimeout(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.timerGen {
		return
	}
	if !e.machine.IsInGamePhase(phase.GameInGame) {
		return
	}
	switch e.machine.TurnPhase() {
	case phase.TurnEndTurn, phase.TurnChangeTurn:
		return
	}

	e.log.Info("turn timer expired, forcing end of turn",
		zap.String("player_id", e.state.CurrentPlayerID()),
		zap.String("turn_phase", string(e.machine.TurnPhase())),
	)
	e.machine.TransitionTurnPhase(phase.TurnEndTurn, map[string]any{"forced": true})
}

func (e *Engine) effectHolders() []effects.Holder {
	players := e.state.Players()
	out := make([]effects.Holder, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	return out
}

// ---- actions.Engine ----

// CurrentPlayerID implements the action/effect engine views.
func (e *Engine) CurrentPlayerID() string { return e.state.CurrentPlayerID() }

// PlayerSpaceID implements actions.Engine.
func (e *Engine) PlayerSpaceID(playerID string) string { return e.state.PlayerSpaceID(playerID) }

// MovePlayerTo implements actions.Engine.
func (e *Engine) MovePlayerTo(playerID, spaceID string) {
	if err := e.state.MovePlayer(playerID, spaceID); err != nil {
		e.log.Warn("action move rejected", zap.Error(err))
	}
}

// StepPlayer implements actions.Engine. Relative movement walks single
// outgoing connections and stops early at a dead end or a fork.
func (e *Engine) StepPlayer(playerID string, steps int) {
	for i := 0; i < steps; i++ {
		sp := e.state.Board().GetSpace(e.state.PlayerSpaceID(playerID))
		if sp == nil || len(sp.Connections) != 1 {
			return
		}
		if err := e.state.MovePlayer(playerID, sp.Connections[0]); err != nil {
			e.log.Warn("action step rejected", zap.Error(err))
			return
		}
	}
}

// GrantMoves implements actions.Engine.
func (e *Engine) GrantMoves(n int) {
	e.state.SetRemainingMoves(e.state.RemainingMoves() + n)
	e.ui.UpdateRemainingMoves(e.state.RemainingMoves())
}

// FlagSkipTurn implements actions.Engine and effects.Engine.
func (e *Engine) FlagSkipTurn(playerID string) {
	e.state.SetPlayerSkipNext(playerID, true)
}

// FinishPlayer implements actions.Engine.
func (e *Engine) FinishPlayer(playerID string) {
	if err := e.state.SetPlayerFinished(playerID); err != nil {
		e.log.Warn("finish rejected", zap.Error(err))
		return
	}
	e.log.Info("player finished", zap.String("player_id", playerID))
}

// ApplyEffect implements actions.Engine: builds an effect through the
// factory and attaches it to the player.
func (e *Engine) ApplyEffect(playerID, effectType string, payload json.RawMessage) error {
	p := e.state.Player(playerID)
	if p == nil {
		return fmt.Errorf("unknown player %q", playerID)
	}
	eff, err := e.effectReg.NewFromJSON(effectType, playerID, payload)
	if err != nil {
		e.log.Warn("failed to build effect", zap.String("effect_type", effectType), zap.Error(err))
		return err
	}
	return e.state.AddPlayerEffect(playerID, eff)
}

// ShowPrompt implements actions.Engine: one outstanding modal, answered
// once, auto-dismissed by the modal timer.
func (e *Engine) ShowPrompt(title string, options []string, onChoice func(choice string)) {
	e.clearPrompt()
	gen := e.promptGen

	answered := false
	finish := func(choice string) {
		if gen != e.promptGen || answered {
			return
		}
		answered = true
		if e.modalTimer != nil {
			e.modalTimer.Stop()
			e.modalTimer = nil
		}
		if e.dismissPrompt != nil {
			e.dismissPrompt()
			e.dismissPrompt = nil
		}
		onChoice(choice)
	}

	e.dismissPrompt = e.ui.ShowPrompt(title, options, func(choice string) {
		e.mu.Lock()
		defer e.mu.Unlock()
		finish(choice)
	})

	if e.cfg.ModalTimeout > 0 {
		e.modalTimer = time.AfterFunc(e.cfg.ModalTimeout, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			finish("")
		})
	}
}

// ---- effects.Engine ----

// TurnPhase implements effects.Engine.
func (e *Engine) TurnPhase() string { return string(e.machine.TurnPhase()) }

// GrantExtraTurn implements effects.Engine.
func (e *Engine) GrantExtraTurn(playerID string) {
	e.extraTurnFor = playerID
}

// AddRollModifier implements effects.Engine.
func (e *Engine) AddRollModifier(playerID string, delta int) {
	e.rollModifiers[playerID] += delta
}

// MarkEffectsForRemoval implements effects.Engine.
func (e *Engine) MarkEffectsForRemoval(playerID, effectType string) {
	p := e.state.Player(playerID)
	if p == nil {
		return
	}
	for _, eff := range p.Effects() {
		if eff.Type() == effectType {
			eff.MarkRemove()
		}
	}
}

// ---- movement.Engine ----

// CurrentSpace implements movement.Engine.
func (e *Engine) CurrentSpace() *board.Space {
	cur := e.state.CurrentPlayer()
	if cur == nil {
		return nil
	}
	return e.state.Board().GetSpace(cur.SpaceID)
}

// SetRemainingMoves implements movement.Engine.
func (e *Engine) SetRemainingMoves(n int) {
	e.state.SetRemainingMoves(n)
	e.ui.UpdateRemainingMoves(e.state.RemainingMoves())
}

// MoveCurrentPlayer implements movement.Engine.
func (e *Engine) MoveCurrentPlayer(spaceID string) {
	if err := e.state.MovePlayer(e.state.CurrentPlayerID(), spaceID); err != nil {
		e.log.Warn("auto-move rejected", zap.Error(err))
	}
}

// DecrementMoves implements movement.Engine.
func (e *Engine) DecrementMoves() {
	e.state.DecrementMoves()
	e.ui.UpdateRemainingMoves(e.state.RemainingMoves())
}

// ReturnToEventProcessing implements movement.Engine.
func (e *Engine) ReturnToEventProcessing() {
	e.machine.TransitionTurnPhase(phase.TurnProcessingEvents, nil)
}

// EnterDestinationChoice implements movement.Engine.
func (e *Engine) EnterDestinationChoice(targets []string) {
	e.pendingTargets = targets
	e.machine.TransitionTurnPhase(phase.TurnChoosingDestination, map[string]any{"options": len(targets)})
}
