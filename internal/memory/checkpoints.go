package memory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/sidekick/internal/engine"
)

// Snapshot is a stored engine state with its checkpoint metadata.
type Snapshot struct {
	ID        string            `json:"id"`
	Seq       int64             `json:"seq"`
	CreatedAt time.Time         `json:"created_at"`
	State     *engine.TaskState `json:"state"`
}

// SaveCheckpoint appends a snapshot of the engine state for the thread.
// Snapshots are never updated in place; the latest row wins on load.
func (s *Store) SaveCheckpoint(threadID string, state *engine.TaskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint state: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO checkpoints (thread_id, id, state, created_at)
		VALUES (?, ?, ?, ?)`,
		threadID, uuid.NewString(), string(data),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent snapshot state for the thread.
// The second return is false when the thread has no checkpoints.
func (s *Store) LoadLatest(threadID string) (*engine.TaskState, bool, error) {
	var raw string
	err := s.db.QueryRow(`
		SELECT state FROM checkpoints
		WHERE thread_id = ? ORDER BY seq DESC LIMIT 1`,
		threadID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}

	var state engine.TaskState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, false, fmt.Errorf("unmarshal checkpoint state: %w", err)
	}
	return &state, true, nil
}

// ListCheckpoints returns snapshots for the thread, newest first. A limit
// of 0 or less returns all of them.
func (s *Store) ListCheckpoints(threadID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = -1 // no LIMIT in sqlite
	}
	rows, err := s.db.Query(`
		SELECT seq, id, state, created_at FROM checkpoints
		WHERE thread_id = ? ORDER BY seq DESC LIMIT ?`,
		threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var raw, created string
		if err := rows.Scan(&snap.Seq, &snap.ID, &raw, &created); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse checkpoint created_at: %w", err)
		}
		var state engine.TaskState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint state: %w", err)
		}
		snap.State = &state
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteCheckpoints removes every snapshot for the thread.
func (s *Store) DeleteCheckpoints(threadID string) error {
	if _, err := s.db.Exec(`DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return nil
}
