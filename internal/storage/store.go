// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jeranaias/agrichat/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Setting keys.
const (
	KeyDeviceID      = "device_id"
	KeyCurrentChatID = "current_chat_id"
	keySchemaVersion = "schema_version"
)

// =============================================================================
// ERRORS
// =============================================================================

// StorageError represents a storage-related error.
// It implements the error interface and can be compared using errors.Is.
type StorageError struct {
	Message string
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing storage errors.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrNotFound is returned when a setting or conversation doesn't exist.
var ErrNotFound = &StorageError{Message: "not found"}

// =============================================================================
// STORE
// =============================================================================

// Store is the local SQLite database. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO settings(key, value) VALUES(?, ?)",
		keySchemaVersion, strconv.Itoa(SchemaVersion))
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// SETTINGS
// =============================================================================

// Setting returns a stored setting, or ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// DeviceID returns the persistent device id, generating and storing a new
// UUID on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	id, err := s.Setting(ctx, KeyDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id = uuid.NewString()
	// INSERT OR IGNORE keeps a concurrently written id; read back the winner.
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO settings(key, value) VALUES(?, ?)", KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return s.Setting(ctx, KeyDeviceID)
}

// CurrentChatID returns the id of the conversation shown last, or ErrNotFound.
func (s *Store) CurrentChatID(ctx context.Context) (string, error) {
	return s.Setting(ctx, KeyCurrentChatID)
}

// SetCurrentChatID records the conversation shown last.
func (s *Store) SetCurrentChatID(ctx context.Context, id string) error {
	return s.SetSetting(ctx, KeyCurrentChatID, id)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversation replaces the stored transcript of conv. Messages still
// streaming are skipped.
func (s *Store) SaveConversation(ctx context.Context, conv *model.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations(id, title, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ID, conv.Title, toMillis(conv.UpdatedAt)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages(id, conversation_id, seq, role, content, is_error, interrupted, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, m := range conv.Messages {
		if m.IsStreaming {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, conv.ID, seq, string(m.Role), m.Content,
			boolInt(m.IsError), boolInt(m.Interrupted), toMillis(m.Timestamp)); err != nil {
			return fmt.Errorf("save message: %w", err)
		}
		seq++
	}

	return tx.Commit()
}

// LoadConversation reads a stored transcript, or returns ErrNotFound.
func (s *Store) LoadConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT title, updated_at FROM conversations WHERE id = ?", id).Scan(&conv.Title, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.UpdatedAt = fromMillis(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, is_error, interrupted, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                  model.Message
			role               string
			isError, interrupt int
			created            int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &isError, &interrupt, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.IsError = isError != 0
		m.Interrupted = interrupt != 0
		m.Timestamp = fromMillis(created)
		conv.Messages = append(conv.Messages, &m)
	}
	return conv, rows.Err()
}

// ListConversations returns stored conversations, most recent first.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]model.Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.updated_at, COUNT(m.id)
		FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.Summary
	for rows.Next() {
		var (
			sum     model.Summary
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &updated, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		sum.UpdatedAt = fromMillis(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteConversation removes a stored transcript. Deleting an unknown id is
// not an error.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
