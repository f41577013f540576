package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// SaveSession upserts the single persisted login session.
func (s *Store) SaveSession(session Session) error {
	if session.Token == "" {
		return errors.New("token is required")
	}
	if session.Identity == "" {
		return errors.New("identity is required")
	}
	if session.UpdatedAt == 0 {
		session.UpdatedAt = nowUnixMilli()
	}

	_, err := s.db.Exec(
		`INSERT INTO session (id, token, identity, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token = excluded.token,
		   identity = excluded.identity,
		   updated_at = excluded.updated_at`,
		session.Token,
		session.Identity,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// LoadSession returns the persisted session, or ErrNotFound.
func (s *Store) LoadSession() (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		`SELECT token, identity, updated_at FROM session WHERE id = 1`,
	).Scan(&session.Token, &session.Identity, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	return &session, nil
}

// ClearSession deletes the persisted session. Clearing an absent session is
// not an error.
func (s *Store) ClearSession() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
