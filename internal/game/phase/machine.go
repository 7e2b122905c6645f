package phase

import (
	"time"

	"go.uber.org/zap"
)

// Record is a diagnostic entry describing one committed transition.
// Records are never consulted for control flow.
type Record struct {
	Type      string // "INIT", "GAME" or "TURN"
	From      string
	To        string
	Context   map[string]any
	Timestamp time.Time
}

const historyCap = 50

// Notification describes a committed transition to the surrounding
// system (broadcast scheduling, UI deltas).
type Notification struct {
	Type    string // "GAME" or "TURN"
	From    string
	To      string
	Context map[string]any
}

// GameHandler and TurnHandler are invoked synchronously after a phase
// commits. Handlers may themselves transition further; the cascade runs
// to quiescence before the outer call returns.
type (
	GameHandler func(ctx map[string]any)
	TurnHandler func(ctx map[string]any)
)

// Machine holds the two orthogonal phase values and dispatches committed
// transitions to registered handlers. Phase value and handler dispatch
// are decoupled: a transition to a phase with no handler commits anyway.
type Machine struct {
	log *zap.Logger

	gameSet map[GamePhase]struct{}
	turnSet map[TurnPhase]struct{}

	gamePhase GamePhase
	turnPhase TurnPhase

	gameHandlers map[GamePhase]GameHandler
	turnHandlers map[TurnPhase]TurnHandler

	notify func(Notification)

	history []Record
}

// NewMachine creates a machine validating against the given phase sets.
func NewMachine(gamePhases []GamePhase, turnPhases []TurnPhase, logger *zap.Logger) *Machine {
	m := &Machine{
		log:          logger,
		gameSet:      make(map[GamePhase]struct{}, len(gamePhases)),
		turnSet:      make(map[TurnPhase]struct{}, len(turnPhases)),
		gameHandlers: make(map[GamePhase]GameHandler),
		turnHandlers: make(map[TurnPhase]TurnHandler),
		history:      make([]Record, 0, historyCap),
	}
	for _, p := range gamePhases {
		m.gameSet[p] = struct{}{}
	}
	for _, p := range turnPhases {
		m.turnSet[p] = struct{}{}
	}
	return m
}

// SetNotifier installs the transition notification sink.
func (m *Machine) SetNotifier(fn func(Notification)) {
	m.notify = fn
}

// RegisterGameHandler installs the handler for a game phase.
func (m *Machine) RegisterGameHandler(p GamePhase, h GameHandler) {
	m.gameHandlers[p] = h
}

// RegisterTurnHandler installs the handler for a turn phase.
func (m *Machine) RegisterTurnHandler(p TurnPhase, h TurnHandler) {
	m.turnHandlers[p] = h
}

// Init sets both phases without validation or handler dispatch and logs
// an INIT record.
func (m *Machine) Init(game GamePhase, turn TurnPhase) {
	m.gamePhase = game
	m.turnPhase = turn
	m.appendRecord(Record{
		Type:      "INIT",
		To:        string(game) + "/" + string(turn),
		Timestamp: time.Now(),
	})
	m.log.Info("phase machine initialized",
		zap.String("game_phase", string(game)),
		zap.String("turn_phase", string(turn)),
	)
}

// TransitionGamePhase attempts a game-phase transition. It returns false
// with no state change when next is outside the configured set.
func (m *Machine) TransitionGamePhase(next GamePhase, ctx map[string]any) bool {
	if _, ok := m.gameSet[next]; !ok {
		m.log.Warn("rejected game phase transition",
			zap.String("from", string(m.gamePhase)),
			zap.String("to", string(next)),
		)
		return false
	}

	from := m.gamePhase
	m.gamePhase = next
	m.appendRecord(Record{Type: "GAME", From: string(from), To: string(next), Context: ctx, Timestamp: time.Now()})
	m.emit(Notification{Type: "GAME", From: string(from), To: string(next), Context: ctx})

	handler, ok := m.gameHandlers[next]
	if !ok {
		m.log.Warn("no handler registered for game phase", zap.String("phase", string(next)))
		return true
	}
	m.dispatch(string(next), func() { handler(ctx) })
	return true
}

// TransitionTurnPhase attempts a turn-phase transition. It returns false
// with no state change when next is outside the configured set.
func (m *Machine) TransitionTurnPhase(next TurnPhase, ctx map[string]any) bool {
	if _, ok := m.turnSet[next]; !ok {
		m.log.Warn("rejected turn phase transition",
			zap.String("from", string(m.turnPhase)),
			zap.String("to", string(next)),
		)
		return false
	}

	from := m.turnPhase
	m.turnPhase = next
	m.appendRecord(Record{Type: "TURN", From: string(from), To: string(next), Context: ctx, Timestamp: time.Now()})
	m.emit(Notification{Type: "TURN", From: string(from), To: string(next), Context: ctx})

	handler, ok := m.turnHandlers[next]
	if !ok {
		m.log.Warn("no handler registered for turn phase", zap.String("phase", string(next)))
		return true
	}
	m.dispatch(string(next), func() { handler(ctx) })
	return true
}

// dispatch runs a handler under recover. A faulting handler does not
// roll back the phase it was dispatched for: the transition is already
// committed, and unwinding it could race an in-flight broadcast.
func (m *Machine) dispatch(phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("phase handler fault",
				zap.String("phase", phase),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// Sync overwrites both phase values without validation or handler
// dispatch. Used when an authoritative snapshot replaces local state:
// non-owning peers mirror the phases but never re-run the handlers that
// produced them.
func (m *Machine) Sync(game GamePhase, turn TurnPhase) {
	from := string(m.gamePhase) + "/" + string(m.turnPhase)
	m.gamePhase = game
	m.turnPhase = turn
	m.appendRecord(Record{
		Type:      "SYNC",
		From:      from,
		To:        string(game) + "/" + string(turn),
		Timestamp: time.Now(),
	})
}

// GamePhase returns the current game phase.
func (m *Machine) GamePhase() GamePhase { return m.gamePhase }

// TurnPhase returns the current turn phase.
func (m *Machine) TurnPhase() TurnPhase { return m.turnPhase }

// IsInGamePhase reports whether the current game phase equals p.
func (m *Machine) IsInGamePhase(p GamePhase) bool { return m.gamePhase == p }

// IsInTurnPhase reports whether the current turn phase equals p.
func (m *Machine) IsInTurnPhase(p TurnPhase) bool { return m.turnPhase == p }

// History returns a copy of the transition records, oldest first.
func (m *Machine) History() []Record {
	out := make([]Record, len(m.history))
	copy(out, m.history)
	return out
}

// Reset clears both phases and empties the history.
func (m *Machine) Reset() {
	m.gamePhase = ""
	m.turnPhase = ""
	m.history = m.history[:0]
	m.log.Info("phase machine reset")
}

func (m *Machine) appendRecord(r Record) {
	if len(m.history) >= historyCap {
		copy(m.history, m.history[1:])
		m.history = m.history[:historyCap-1]
	}
	m.history = append(m.history, r)
}

func (m *Machine) emit(n Notification) {
	if m.notify != nil {
		m.notify(n)
	}
}
