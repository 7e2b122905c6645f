package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SavedGame is one persisted match snapshot.
type SavedGame struct {
	GameID    string
	State     []byte // wire-format JSON
	Finished  bool
	UpdatedAt time.Time
}

// ErrGameNotFound is returned when no snapshot exists for an id.
var ErrGameNotFound = errors.New("saved game not found")

// SavedGameRepository persists match snapshots so interrupted games can
// be resumed and finished games inspected.
type SavedGameRepository struct {
	db  *DB
	log *zap.Logger
}

// NewSavedGameRepository creates the store.
func NewSavedGameRepository(db *DB, logger *zap.Logger) *SavedGameRepository {
	return &SavedGameRepository{db: db, log: logger}
}

// EnsureSchema creates the saved_games table when missing.
func (r *SavedGameRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Pool().Exec(ctx, `
		CREATE TABLE IF NOT EXISTS saved_games (
			game_id    TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			finished   BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create saved_games schema: %w", err)
	}
	return nil
}

// Save upserts a snapshot for the match.
func (r *SavedGameRepository) Save(ctx context.Context, gameID string, state []byte, finished bool) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO saved_games (game_id, state, finished, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (game_id)
		DO UPDATE SET state = $2, finished = $3, updated_at = NOW()`,
		gameID, state, finished)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", gameID, err)
	}
	return nil
}

// Load returns the snapshot for a match.
func (r *SavedGameRepository) Load(ctx context.Context, gameID string) (*SavedGame, error) {
	sg := &SavedGame{GameID: gameID}
	err := r.db.Pool().QueryRow(ctx, `
		SELECT state, finished, updated_at
		FROM saved_games WHERE game_id = $1`, gameID).
		Scan(&sg.State, &sg.Finished, &sg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", gameID, err)
	}
	return sg, nil
}

// List returns snapshot metadata, newest first. State bytes are not
// loaded.
func (r *SavedGameRepository) List(ctx context.Context) ([]*SavedGame, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT game_id, finished, updated_at
		FROM saved_games ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved games: %w", err)
	}
	defer rows.Close()

	var out []*SavedGame
	for rows.Next() {
		sg := &SavedGame{}
		if err := rows.Scan(&sg.GameID, &sg.Finished, &sg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saved game: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// Delete removes a snapshot.
func (r *SavedGameRepository) Delete(ctx context.Context, gameID string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM saved_games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// SaveFinished implements the broadcast layer's terminal-state hook.
func (r *SavedGameRepository) SaveFinished(gameID string, snapshot []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Save(ctx, gameID, snapshot, true); err != nil {
		return err
	}
	r.log.Info("finished game persisted", zap.String("game_id", gameID))
	return nil
}
