package server

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boardfree/board-server-go/internal/game"
	"github.com/boardfree/board-server-go/internal/game/phase"
)

// Sink receives marshaled state snapshots for dissemination.
type Sink interface {
	BroadcastState(data []byte)
}

// FinishedGameStore persists terminal game states. Implemented by the
// repository layer; nil disables persistence.
type FinishedGameStore interface {
	SaveFinished(gameID string, snapshot []byte) error
}

// Broadcaster implements game.NetworkLayer. Proposals are debounced:
// each proposal snapshots the state immediately (the engine lock is
// still held by the caller) and arms a timer; a newer proposal within
// the window replaces the pending snapshot, so only the latest state
// goes out.
type Broadcaster struct {
	log  *zap.Logger
	sink Sink

	gameID        string
	authoritative bool

	recorder *game.ReplayRecorder
	store    FinishedGameStore

	mu      sync.Mutex
	pending *game.WireState
	timer   *time.Timer
	stopped bool
}

// NewBroadcaster creates a broadcaster feeding the given sink.
// Recorder and store are optional.
func NewBroadcaster(gameID string, authoritative bool, sink Sink, recorder *game.ReplayRecorder, store FinishedGameStore, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		log:           logger,
		sink:          sink,
		gameID:        gameID,
		authoritative: authoritative,
		recorder:      recorder,
		store:         store,
	}
}

// IsClientTurn implements game.NetworkLayer. A hosted server is the
// authoritative writer for every turn.
func (b *Broadcaster) IsClientTurn() bool {
	return b.authoritative
}

// ProposeStateChange implements game.NetworkLayer. Called by the engine
// with its lock held, so the snapshot is taken synchronously and the
// send happens later on the timer goroutine.
func (b *Broadcaster) ProposeStateChange(state *game.GameState, delay time.Duration) {
	snapshot := state.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	b.pending = snapshot
	if b.timer != nil {
		// A send is already scheduled; it will pick up the newer
		// snapshot.
		return
	}
	if delay <= 0 {
		delay = time.Millisecond
	}
	b.timer = time.AfterFunc(delay, b.flush)
}

// SetSink installs the broadcast target. The hub needs the engine and
// the engine needs the broadcaster, so the sink is attached after both
// exist.
func (b *Broadcaster) SetSink(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

func (b *Broadcaster) flush() {
	b.mu.Lock()
	snapshot := b.pending
	b.pending = nil
	b.timer = nil
	stopped := b.stopped
	sink := b.sink
	b.mu.Unlock()

	if stopped || snapshot == nil || sink == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		b.log.Error("failed to marshal state broadcast", zap.Error(err))
		return
	}

	sink.BroadcastState(data)

	if b.recorder != nil {
		b.recorder.RecordState(b.gameID, snapshot)
	}

	if b.store != nil && snapshot.GamePhase == string(phase.GameEnded) {
		if err := b.store.SaveFinished(b.gameID, data); err != nil {
			b.log.Error("failed to persist finished game",
				zap.String("game_id", b.gameID),
				zap.Error(err),
			)
		}
	}

	b.log.Debug("state broadcast sent",
		zap.String("game_id", b.gameID),
		zap.Uint64("version", snapshot.Version),
	)
}

// Stop drops any pending broadcast and prevents further sends.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
