// Package session owns the authenticated identity: at most one is active
// per client process, it is handed out by value, and login, logout and
// credential expiry are the only paths that change it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"classlink/api"
	"classlink/models"
	"classlink/storage"
)

// ProfileAPI is the slice of the backend client the manager needs to
// re-fetch the user's profile.
type ProfileAPI interface {
	Me(ctx context.Context) (api.MeResponse, error)
}

// Options configures a Manager.
type Options struct {
	// OnAuthExpired is invoked at most once per expiry, after the session
	// has been cleared; the UI layer navigates to the login route here.
	OnAuthExpired func()

	Logger *zap.Logger
}

// Manager holds the in-memory identity over its persisted mirror.
type Manager struct {
	store  *storage.Store
	logger *zap.Logger

	mu             sync.Mutex
	identity       *models.Identity
	teacherProfile *models.TeacherProfile
	expiredFired   bool

	onAuthExpired func()
}

// NewManager returns a Manager over the given store.
func NewManager(store *storage.Store, options Options) *Manager {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:         store,
		logger:        logger,
		onAuthExpired: options.OnAuthExpired,
	}
}

// Restore re-hydrates the identity from the persisted session, if any.
func (m *Manager) Restore() error {
	persisted, err := m.store.LoadSession()
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(persisted.Identity), &identity); err != nil {
		// A corrupt record is dropped rather than blocking startup.
		m.logger.Warn("discarding unreadable persisted session", zap.Error(err))
		return m.store.ClearSession()
	}
	identity.CredentialToken = persisted.Token

	m.mu.Lock()
	m.identity = &identity
	m.expiredFired = false
	m.mu.Unlock()

	return nil
}

// Current returns a copy of the active identity.
func (m *Manager) Current() (models.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return models.Identity{}, false
	}
	return *m.identity, true
}

// Token returns the current credential token, or "" when logged out. It is
// the api client's token source.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return ""
	}
	return m.identity.CredentialToken
}

// TeacherProfile returns the last fetched verification record, if any.
func (m *Manager) TeacherProfile() (models.TeacherProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.teacherProfile == nil {
		return models.TeacherProfile{}, false
	}
	return *m.teacherProfile, true
}

// SetLoginState installs a freshly authenticated identity and persists it.
func (m *Manager) SetLoginState(token string, identity models.Identity) error {
	identity.CredentialToken = token

	serialized, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("serialize identity: %w", err)
	}
	if err := m.store.SaveSession(storage.Session{Token: token, Identity: string(serialized)}); err != nil {
		return err
	}

	m.mu.Lock()
	m.identity = &identity
	m.teacherProfile = nil
	m.expiredFired = false
	m.mu.Unlock()

	return nil
}

// Logout destroys the identity in memory and on disk. The push subscription
// is cleared with it: the backend keys subscriptions by user, so a later
// login must register its own.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.identity = nil
	m.teacherProfile = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(); err != nil {
		return err
	}
	return m.store.ClearPushSubscription()
}

// HandleAuthExpired is the api client's 401 sink: clear everything, then
// fire the navigation hook. Concurrent failing calls collapse to one hook
// invocation; the guard re-arms on the next successful login.
func (m *Manager) HandleAuthExpired() {
	m.mu.Lock()
	alreadyFired := m.expiredFired
	m.expiredFired = true
	m.identity = nil
	m.teacherProfile = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(); err != nil {
		m.logger.Warn("clearing expired session failed", zap.Error(err))
	}
	if err := m.store.ClearPushSubscription(); err != nil {
		m.logger.Warn("clearing push subscription failed", zap.Error(err))
	}

	if alreadyFired {
		return
	}
	m.logger.Info("credential expired, returning to login")
	if m.onAuthExpired != nil {
		m.onAuthExpired()
	}
}

// RefreshIdentity re-fetches the profile from the backend and updates both
// memory and the persisted record. Used after job-result events so
// verification state is current everywhere.
func (m *Manager) RefreshIdentity(ctx context.Context, backend ProfileAPI) error {
	m.mu.Lock()
	if m.identity == nil {
		m.mu.Unlock()
		return errors.New("session: not logged in")
	}
	token := m.identity.CredentialToken
	m.mu.Unlock()

	me, err := backend.Me(ctx)
	if err != nil {
		return fmt.Errorf("refresh identity: %w", err)
	}

	identity := me.UserInfo
	identity.CredentialToken = token

	serialized, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("serialize identity: %w", err)
	}
	if err := m.store.SaveSession(storage.Session{Token: token, Identity: string(serialized)}); err != nil {
		return err
	}

	m.mu.Lock()
	m.identity = &identity
	m.teacherProfile = me.TeacherProfile
	m.mu.Unlock()

	return nil
}
