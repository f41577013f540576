package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// SavePushSubscription upserts the single registered push subscription.
func (s *Store) SavePushSubscription(sub PushSubscription) error {
	if sub.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if sub.P256DH == "" || sub.Auth == "" {
		return errors.New("subscription keys are required")
	}
	if sub.PrivateKey == "" {
		return errors.New("private key is required")
	}
	if sub.CreatedAt == 0 {
		sub.CreatedAt = nowUnixMilli()
	}

	_, err := s.db.Exec(
		`INSERT INTO push_subscription (id, endpoint, p256dh, auth, private_key, created_at)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   endpoint = excluded.endpoint,
		   p256dh = excluded.p256dh,
		   auth = excluded.auth,
		   private_key = excluded.private_key,
		   created_at = excluded.created_at`,
		sub.Endpoint,
		sub.P256DH,
		sub.Auth,
		sub.PrivateKey,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}

	return nil
}

// LoadPushSubscription returns the registered subscription, or ErrNotFound.
func (s *Store) LoadPushSubscription() (*PushSubscription, error) {
	var sub PushSubscription
	err := s.db.QueryRow(
		`SELECT endpoint, p256dh, auth, private_key, created_at FROM push_subscription WHERE id = 1`,
	).Scan(&sub.Endpoint, &sub.P256DH, &sub.Auth, &sub.PrivateKey, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load push subscription: %w", err)
	}

	return &sub, nil
}

// ClearPushSubscription deletes the registered subscription if present.
func (s *Store) ClearPushSubscription() error {
	if _, err := s.db.Exec(`DELETE FROM push_subscription WHERE id = 1`); err != nil {
		return fmt.Errorf("clear push subscription: %w", err)
	}
	return nil
}
