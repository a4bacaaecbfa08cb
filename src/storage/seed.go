package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tachikoma-agent/dashboard/src/model"
)

// Seeding helpers. The store is owned and written by the agent harness; the
// dashboard only reads it. These inserts exist for fixtures and tests, which
// need a populated database without a running harness.

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS session (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	project_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	directory TEXT NOT NULL DEFAULT '',
	time_created INTEGER NOT NULL,
	time_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS message (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	time_created INTEGER NOT NULL,
	time_updated INTEGER NOT NULL,
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS part (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	time_created INTEGER NOT NULL,
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS todo (
	session_id TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority TEXT NOT NULL DEFAULT 'medium',
	position INTEGER NOT NULL DEFAULT 0,
	time_created INTEGER NOT NULL,
	time_updated INTEGER NOT NULL
);
`

// EnsureSchema creates the store tables if they do not exist, creating the
// database file as a side effect.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.openRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateSession inserts a session row. An empty ID is filled with a fresh
// UUID, which is returned through the session value.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}

	db, err := s.openRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO session (id, parent_id, project_id, title, directory, time_created, time_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ParentID, sess.ProjectID, sess.Title, sess.Directory,
		sess.TimeCreated, sess.TimeUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// CreateMessage inserts a message row. An empty ID is filled with a fresh
// UUID.
func (s *Store) CreateMessage(ctx context.Context, msg *MessageRow) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	db, err := s.openRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO message (id, session_id, time_created, time_updated, data)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.TimeCreated, msg.TimeUpdated, msg.Data)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// CreatePart inserts a part row. An empty ID is filled with a fresh UUID.
func (s *Store) CreatePart(ctx context.Context, part *PartRow) error {
	if part.ID == "" {
		part.ID = uuid.New().String()
	}

	db, err := s.openRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO part (id, message_id, session_id, time_created, data)
		VALUES (?, ?, ?, ?, ?)`,
		part.ID, part.MessageID, part.SessionID, part.TimeCreated, part.Data)
	if err != nil {
		return fmt.Errorf("failed to insert part: %w", err)
	}
	return nil
}

// CreateTodo inserts a todo row.
func (s *Store) CreateTodo(ctx context.Context, todo model.Todo) error {
	db, err := s.openRaw()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		INSERT INTO todo (session_id, content, status, priority, position, time_created, time_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		todo.SessionID, todo.Content, todo.Status, todo.Priority, todo.Position,
		todo.TimeCreated, todo.TimeUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert todo: %w", err)
	}
	return nil
}
