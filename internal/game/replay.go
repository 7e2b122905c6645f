package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Replay stores sequential state snapshots for a match so it can be
// stepped through after the fact.
type Replay struct {
	GameID       string
	States       []*WireState
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay for a match.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		States: make([]*WireState, 0),
	}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(snapshot *WireState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.States = append(r.States, snapshot)
}

// Start resets playback to the beginning.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the next snapshot, or nil at the end.
func (r *Replay) Next() *WireState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		state := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return state
	}
	return nil
}

// Previous steps playback back one snapshot, or nil at the start.
func (r *Replay) Previous() *WireState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.States)
}

// SaveToFile writes the replay as a gzipped gob stream.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    1,
		StateCount: len(r.States),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, state := range r.States {
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}

	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if metadata.Version != 1 {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID)
	for i := 0; i < metadata.StateCount; i++ {
		var state WireState
		if err := decoder.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, &state)
	}

	return replay, nil
}

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// ReplayRecorder records per-transition snapshots for active matches.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	enabled map[string]bool
	saveDir string
}

// NewReplayRecorder creates a recorder saving into saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins recording a match.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[gameID] = NewReplay(gameID)
	rr.enabled[gameID] = true

	rr.logger.Info("started replay recording", zap.String("game_id", gameID))
}

// StopRecording stops recording a match.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[gameID] = false

	rr.logger.Info("stopped replay recording", zap.String("game_id", gameID))
}

// RecordState appends a snapshot when recording is enabled for the
// match.
func (rr *ReplayRecorder) RecordState(gameID string, snapshot *WireState) {
	rr.mu.RLock()
	enabled := rr.enabled[gameID]
	replay := rr.replays[gameID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}

	replay.RecordState(snapshot)
}

// GetReplay returns the in-memory replay for a match.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[gameID]
	return replay, exists
}

// SaveReplay flushes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[gameID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("state_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// LoadReplay reads a replay back from disk.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, gameID)
}
