// Copyright (c) 2025 Verdora SAS
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation transcripts locally so a customer
// can reopen the client and review past sessions. Persistence is strictly
// client-side; nothing here talks to the assistant service.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/verdora/verdora-tui/internal/model"
	"github.com/verdora/verdora-tui/internal/util"
)

// ErrSessionNotFound is returned when a transcript doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// summaryRunes bounds the stored session summary.
const summaryRunes = 60

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredSession is one persisted conversation transcript.
type StoredSession struct {
	ID        string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []StoredMessage
}

// StoredMessage is one persisted conversation turn half. Only terminal
// messages are stored; a streaming message has no durable form.
type StoredMessage struct {
	ID        string
	Role      string
	Content   string
	Status    string
	Intent    string
	Escalated bool
	Feedback  string
	Timestamp time.Time
}

// Snapshot converts a live session into its durable form without touching
// the database. Export uses it so a conversation can be written to disk even
// when persistence is disabled.
func Snapshot(sess *model.Session) *StoredSession {
	stored := &StoredSession{
		ID:        sess.ID,
		Summary:   summarize(sess),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: time.Now(),
	}
	for _, msg := range sess.Messages {
		if !msg.Status.Terminal() {
			continue
		}
		stored.Messages = append(stored.Messages, StoredMessage{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.ContentText(),
			Status:    msg.Status.String(),
			Intent:    msg.Intent,
			Escalated: msg.Escalated,
			Feedback:  string(msg.Feedback),
			Timestamp: msg.Timestamp,
		})
	}
	return stored
}

// SessionMeta is the listing projection of a stored session.
type SessionMeta struct {
	ID           string
	Summary      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore handles transcript persistence in a local SQLite database.
type TranscriptStore struct {
	db *sql.DB

	// KeepSessions caps retained sessions (0 = unlimited). Oldest sessions
	// are pruned on save.
	KeepSessions int
}

// Open opens (or creates) the transcript database at path.
func Open(path string, keepSessions int) (*TranscriptStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &TranscriptStore{db: db, KeepSessions: keepSessions}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		summary    TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT NOT NULL,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		status     TEXT NOT NULL,
		intent     TEXT NOT NULL DEFAULT '',
		escalated  INTEGER NOT NULL DEFAULT 0,
		feedback   TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, position);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// SaveSession persists the terminal messages of sess, replacing any earlier
// snapshot of the same session. Pending and streaming messages are skipped;
// they have no final content yet.
func (s *TranscriptStore) SaveSession(sess *model.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	summary := summarize(sess)

	_, err = tx.Exec(`
		INSERT INTO sessions (id, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at
	`, sess.ID, summary, sess.CreatedAt.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	position := 0
	for _, msg := range sess.Messages {
		if !msg.Status.Terminal() {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO messages (id, session_id, position, role, content, status, intent, escalated, feedback, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, msg.ID, sess.ID, position, string(msg.Role), msg.ContentText(),
			msg.Status.String(), msg.Intent, boolToInt(msg.Escalated),
			string(msg.Feedback), msg.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("save message: %w", err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if s.KeepSessions > 0 {
		s.enforceLimit()
	}
	return nil
}

// summarize derives the session summary from the first user message.
func summarize(sess *model.Session) string {
	for _, msg := range sess.Messages {
		if msg.Role == model.RoleUser && msg.Content != "" {
			flat := strings.Join(strings.Fields(msg.Content), " ")
			return util.TruncateRunes(flat, summaryRunes)
		}
	}
	return "Nouvelle conversation"
}

// enforceLimit prunes the oldest sessions past the retention cap. Failures
// are ignored; retention is best effort.
func (s *TranscriptStore) enforceLimit() {
	s.db.Exec(`
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)
	`, s.KeepSessions)
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// LoadSession retrieves a transcript by session ID.
func (s *TranscriptStore) LoadSession(id string) (*StoredSession, error) {
	var stored StoredSession
	var created, updated int64
	err := s.db.QueryRow(
		"SELECT id, summary, created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&stored.ID, &stored.Summary, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	stored.CreatedAt = time.Unix(0, created)
	stored.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.Query(`
		SELECT id, role, content, status, intent, escalated, feedback, created_at
		FROM messages WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg StoredMessage
		var escalated int
		var ts int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.Status,
			&msg.Intent, &escalated, &msg.Feedback, &ts); err != nil {
			return nil, err
		}
		msg.Escalated = escalated != 0
		msg.Timestamp = time.Unix(0, ts)
		stored.Messages = append(stored.Messages, msg)
	}
	return &stored, rows.Err()
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved sessions, most recent first.
func (s *TranscriptStore) List() ([]SessionMeta, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.summary, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		var created, updated int64
		if err := rows.Scan(&meta.ID, &meta.Summary, &created, &updated, &meta.MessageCount); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.Unix(0, created)
		meta.UpdatedAt = time.Unix(0, updated)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Search finds sessions whose summary or any message content matches query,
// case-insensitive, most recent first.
func (s *TranscriptStore) Search(query string) ([]SessionMeta, error) {
	if query == "" {
		return s.List()
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.Query(`
		SELECT s.id, s.summary, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM messages WHERE session_id = s.id)
		FROM sessions s
		WHERE LOWER(s.summary) LIKE ?
		   OR EXISTS (
			SELECT 1 FROM messages m
			WHERE m.session_id = s.id AND LOWER(m.content) LIKE ?
		   )
		ORDER BY s.updated_at DESC
	`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		var created, updated int64
		if err := rows.Scan(&meta.ID, &meta.Summary, &created, &updated, &meta.MessageCount); err != nil {
			return nil, err
		}
		meta.CreatedAt = time.Unix(0, created)
		meta.UpdatedAt = time.Unix(0, updated)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a transcript by session ID.
func (s *TranscriptStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Clear removes all transcripts.
func (s *TranscriptStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM sessions")
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
