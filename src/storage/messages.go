package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// The message log is a quasi-table: typed columns plus a schemaless JSON
// blob. The filters below lean on SQLite's JSON functions to narrow the scan
// server-side; json_valid keeps corrupt blobs from failing the whole query.

const assistantMessagesSQL = `
	SELECT id, session_id, time_created, time_updated, data
	FROM message
	WHERE json_valid(data) = 1
	AND json_extract(data, '$.role') = 'assistant'`

// AssistantMessages returns every assistant-role message, newest first.
func (s *Store) AssistantMessages(ctx context.Context) ([]MessageRow, error) {
	return s.selectMessages(ctx, assistantMessagesSQL+` ORDER BY time_created DESC`)
}

// SessionAssistantMessages returns the assistant-role messages of one
// session, newest first.
func (s *Store) SessionAssistantMessages(ctx context.Context, sessionID string) ([]MessageRow, error) {
	return s.selectMessages(ctx,
		assistantMessagesSQL+` AND session_id = ? ORDER BY time_created DESC`, sessionID)
}

// CountAssistantMessages counts the assistant-role messages of one session.
// Assistant messages are the tool-call proxy used by session stats.
func (s *Store) CountAssistantMessages(ctx context.Context, sessionID string) (int64, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int64
	err = sqlscan.Get(ctx, db, &n, `
		SELECT COUNT(*) FROM message
		WHERE session_id = ?
		AND json_valid(data) = 1
		AND json_extract(data, '$.role') = 'assistant'`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("count assistant messages: %w", err)
	}
	return n, nil
}

// ErrorMessages returns every message carrying an error block, newest first.
func (s *Store) ErrorMessages(ctx context.Context) ([]MessageRow, error) {
	return s.selectMessages(ctx, `
		SELECT id, session_id, time_created, time_updated, data
		FROM message
		WHERE json_valid(data) = 1
		AND json_extract(data, '$.error') IS NOT NULL
		ORDER BY time_created DESC`)
}

// RecentErrorMessages returns the most recent failed assistant messages, up
// to limit rows.
func (s *Store) RecentErrorMessages(ctx context.Context, limit int) ([]MessageRow, error) {
	return s.selectMessages(ctx, `
		SELECT id, session_id, time_created, time_updated, data
		FROM message
		WHERE json_valid(data) = 1
		AND json_extract(data, '$.role') = 'assistant'
		AND json_extract(data, '$.error') IS NOT NULL
		ORDER BY time_created DESC
		LIMIT ?`, limit)
}

// ModelErrorMessages returns the failed assistant messages of one model, up
// to limit rows, newest first.
func (s *Store) ModelErrorMessages(ctx context.Context, provider, model string, limit int) ([]MessageRow, error) {
	return s.selectMessages(ctx, `
		SELECT id, session_id, time_created, time_updated, data
		FROM message
		WHERE json_valid(data) = 1
		AND json_extract(data, '$.role') = 'assistant'
		AND json_extract(data, '$.providerID') = ?
		AND json_extract(data, '$.modelID') = ?
		AND json_extract(data, '$.error') IS NOT NULL
		ORDER BY time_created DESC
		LIMIT ?`, provider, model, limit)
}

// LastUserMessagePart returns the newest text part of a user message in the
// session, or nil when the session has none. User message content lives in
// the part table, not in the message blob itself.
func (s *Store) LastUserMessagePart(ctx context.Context, sessionID string) (*PartRow, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var row PartRow
	err = sqlscan.Get(ctx, db, &row, `
		SELECT p.id, p.message_id, p.session_id, p.time_created, p.data
		FROM part p
		JOIN message m ON p.message_id = m.id
		WHERE m.session_id = ?
		AND json_valid(m.data) = 1
		AND json_extract(m.data, '$.role') = 'user'
		AND json_valid(p.data) = 1
		AND json_extract(p.data, '$.type') = 'text'
		ORDER BY p.time_created DESC
		LIMIT 1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last user message part: %w", err)
	}
	return &row, nil
}

// SkillParts returns the skill tool-call parts of one session in load order.
func (s *Store) SkillParts(ctx context.Context, sessionID string) ([]PartRow, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rows []PartRow
	err = sqlscan.Select(ctx, db, &rows, `
		SELECT id, message_id, session_id, time_created, data
		FROM part
		WHERE session_id = ?
		AND json_valid(data) = 1
		AND json_extract(data, '$.type') = 'tool'
		AND json_extract(data, '$.tool') = 'skill'
		ORDER BY time_created ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("skill parts: %w", err)
	}
	return rows, nil
}

// ToolParts returns every tool-call part joined with its session directory,
// newest first, optionally filtered to one working directory.
func (s *Store) ToolParts(ctx context.Context, cwd string) ([]SessionPartRow, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT p.id, p.message_id, p.session_id, p.time_created, p.data, s.directory
		FROM part p
		JOIN session s ON p.session_id = s.id
		WHERE json_valid(p.data) = 1
		AND json_extract(p.data, '$.type') = 'tool'`
	var args []any
	if cwd != "" {
		query += ` AND s.directory = ?`
		args = append(args, cwd)
	}
	query += ` ORDER BY p.time_created DESC`

	var rows []SessionPartRow
	if err := sqlscan.Select(ctx, db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("tool parts: %w", err)
	}
	return rows, nil
}

func (s *Store) selectMessages(ctx context.Context, query string, args ...any) ([]MessageRow, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rows []MessageRow
	if err := sqlscan.Select(ctx, db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	return rows, nil
}
