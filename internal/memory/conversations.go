package memory

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the sentinel title for conversations that have not been
// auto-titled yet.
const DefaultTitle = "New Conversation"

// Conversation is a row in the conversations table.
type Conversation struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	Username     string    `json:"username"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
	MessageCount int       `json:"message_count"`
}

// CreateConversation creates a new conversation for the user. An empty title
// gets the default sentinel. Returns ErrConversationLimit when the user is at
// the cap.
func (s *Store) CreateConversation(username, title string) (*Conversation, error) {
	count, err := s.ConversationCount(username)
	if err != nil {
		return nil, err
	}
	if count >= MaxConversationsPerUser {
		return nil, fmt.Errorf("%w: maximum %d conversations allowed", ErrConversationLimit, MaxConversationsPerUser)
	}

	if title == "" {
		title = DefaultTitle
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:          uuid.NewString(),
		Username:    username,
		Title:       title,
		CreatedAt:   now,
		LastUpdated: now,
	}
	conv.ThreadID = ThreadID(username, conv.ID)

	_, err = s.db.Exec(`
		INSERT INTO conversations (id, thread_id, username, title, created_at, last_updated, message_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		conv.ID, conv.ThreadID, conv.Username, conv.Title,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns the conversation owned by username, or ErrNotFound.
func (s *Store) GetConversation(conversationID, username string) (*Conversation, error) {
	row := s.db.QueryRow(`
		SELECT id, thread_id, username, title, created_at, last_updated, message_count
		FROM conversations WHERE id = ? AND username = ?`,
		conversationID, username)
	return scanConversation(row)
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(username string) ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, thread_id, username, title, created_at, last_updated, message_count
		FROM conversations WHERE username = ?
		ORDER BY last_updated DESC`,
		username)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConversationCount returns how many conversations the user has.
func (s *Store) ConversationCount(username string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

// UpdateTitle sets the conversation title and bumps last_updated.
func (s *Store) UpdateTitle(conversationID, username, title string) error {
	res, err := s.db.Exec(`
		UPDATE conversations SET title = ?, last_updated = ?
		WHERE id = ? AND username = ?`,
		title, time.Now().UTC().Format(time.RFC3339Nano), conversationID, username)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return requireRow(res)
}

// RecordMessage increments message_count and bumps last_updated. Called once
// per successful run.
func (s *Store) RecordMessage(conversationID, username string) error {
	res, err := s.db.Exec(`
		UPDATE conversations SET message_count = message_count + 1, last_updated = ?
		WHERE id = ? AND username = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), conversationID, username)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return requireRow(res)
}

// AutoTitle derives a title from the first user message of a conversation
// that still carries the default title. Titling is one-way: once a custom
// title is set it is never replaced. Returns true when a title was applied.
func (s *Store) AutoTitle(conversationID, username, message string) (bool, error) {
	conv, err := s.GetConversation(conversationID, username)
	if err != nil {
		return false, err
	}
	if conv.Title != DefaultTitle {
		return false, nil
	}

	title := GenerateTitle(message)
	if title == DefaultTitle {
		return false, nil
	}
	if err := s.UpdateTitle(conversationID, username, title); err != nil {
		return false, err
	}
	return true, nil
}

// ClearHistory deletes the conversation's checkpoints and resets its title and
// message count, keeping the conversation row itself.
func (s *Store) ClearHistory(conversationID, username string) error {
	conv, err := s.GetConversation(conversationID, username)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear history: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE conversations SET title = ?, message_count = 0, last_updated = ?
		WHERE id = ? AND username = ?`,
		DefaultTitle, time.Now().UTC().Format(time.RFC3339Nano), conversationID, username); err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM checkpoints WHERE thread_id = ?`, conv.ThreadID); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return tx.Commit()
}

// DeleteConversation removes the conversation row and its checkpoints.
func (s *Store) DeleteConversation(conversationID, username string) error {
	conv, err := s.GetConversation(conversationID, username)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete conversation: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ? AND username = ?`, conversationID, username); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM checkpoints WHERE thread_id = ?`, conv.ThreadID); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return tx.Commit()
}

// DeleteAllUserMemory removes every conversation and checkpoint for the user.
func (s *Store) DeleteAllUserMemory(username string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete user memory: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM checkpoints WHERE thread_id IN
		(SELECT thread_id FROM conversations WHERE username = ?)`, username); err != nil {
		return fmt.Errorf("delete user checkpoints: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE username = ?`, username); err != nil {
		return fmt.Errorf("delete user conversations: %w", err)
	}
	return tx.Commit()
}

// CleanupOrphanedCheckpoints removes checkpoints whose thread no longer has a
// conversation row. Returns the number of deleted rows.
func (s *Store) CleanupOrphanedCheckpoints() (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM checkpoints WHERE thread_id NOT IN
		(SELECT thread_id FROM conversations)`)
	if err != nil {
		return 0, fmt.Errorf("cleanup orphaned checkpoints: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var c Conversation
	var created, updated string
	err := row.Scan(&c.ID, &c.ThreadID, &c.Username, &c.Title, &created, &updated, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.LastUpdated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}
	return &c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
