// Package push registers and services the background notification channel:
// the Manager mirrors a subscription to the backend, the Worker receives
// and decrypts deliveries while the client runs.
package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"classlink/crypto"
	"classlink/models"
	"classlink/storage"
)

// Backend is the slice of the REST client the manager consumes.
type Backend interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	SubscribePush(ctx context.Context, sub models.PushSubscription) error
}

// SubscriptionStore persists the registered subscription across runs.
type SubscriptionStore interface {
	SavePushSubscription(sub storage.PushSubscription) error
	LoadPushSubscription() (*storage.PushSubscription, error)
}

// Options wires a Manager.
type Options struct {
	// Endpoint supplies the delivery URL, the worker's listener address.
	Endpoint func() string

	Logger *zap.Logger
}

// Manager owns the push subscription lifecycle. Registration is lazy: a
// subscription persisted by an earlier run is reused without touching the
// backend.
type Manager struct {
	backend  Backend
	store    SubscriptionStore
	endpoint func() string
	logger   *zap.Logger

	mu   sync.Mutex
	keys *crypto.SubscriptionKeys
}

// NewManager returns a Manager over the given backend and store.
func NewManager(backend Backend, store SubscriptionStore, options Options) *Manager {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := options.Endpoint
	if endpoint == nil {
		endpoint = func() string { return "" }
	}

	return &Manager{
		backend:  backend,
		store:    store,
		endpoint: endpoint,
		logger:   logger,
	}
}

// EnsureSubscription makes sure a push subscription exists: reuse the
// persisted one, or generate keys, register with the backend, and persist.
func (m *Manager) EnsureSubscription(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.store.LoadPushSubscription()
	if err == nil {
		keys, err := decodeStoredKeys(stored)
		if err != nil {
			m.logger.Warn("discarding unreadable stored subscription", zap.Error(err))
		} else {
			m.keys = keys
			return nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	keys, err := crypto.GenerateSubscriptionKeys()
	if err != nil {
		return err
	}

	endpoint := m.endpoint()
	if endpoint == "" {
		return errors.New("push: no delivery endpoint")
	}

	// The signing key is fetched for parity with the registration flow;
	// delivery trust lives server-side.
	if _, err := m.backend.VAPIDPublicKey(ctx); err != nil {
		return fmt.Errorf("fetch vapid key: %w", err)
	}

	sub := models.PushSubscription{
		Endpoint: endpoint,
		Keys: models.PushSubscriptionKeys{
			P256DH: keys.P256DH(),
			Auth:   keys.Auth(),
		},
	}
	if err := m.backend.SubscribePush(ctx, sub); err != nil {
		return fmt.Errorf("register subscription: %w", err)
	}

	if err := m.store.SavePushSubscription(storage.PushSubscription{
		Endpoint:   endpoint,
		P256DH:     keys.P256DH(),
		Auth:       keys.Auth(),
		PrivateKey: base64.RawURLEncoding.EncodeToString(keys.PrivateKeyBytes()),
	}); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}

	m.keys = keys
	m.logger.Info("push subscription registered", zap.String("endpoint", endpoint))
	return nil
}

// Keys returns the active subscription key material, or nil before
// EnsureSubscription succeeds.
func (m *Manager) Keys() *crypto.SubscriptionKeys {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys
}

func decodeStoredKeys(stored *storage.PushSubscription) (*crypto.SubscriptionKeys, error) {
	privateKey, err := base64.RawURLEncoding.DecodeString(stored.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	authSecret, err := base64.RawURLEncoding.DecodeString(stored.Auth)
	if err != nil {
		return nil, fmt.Errorf("decode auth secret: %w", err)
	}
	return crypto.LoadSubscriptionKeys(privateKey, authSecret)
}
