package push

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"classlink/crypto"
	"classlink/models"
	"classlink/storage"
)

type fakeBackend struct {
	vapidCalls     int
	subscribeCalls int
	subscribed     []models.PushSubscription
	vapidErr       error
	subscribeErr   error
}

func (f *fakeBackend) VAPIDPublicKey(context.Context) (string, error) {
	f.vapidCalls++
	if f.vapidErr != nil {
		return "", f.vapidErr
	}
	return "server-key", nil
}

func (f *fakeBackend) SubscribePush(_ context.Context, sub models.PushSubscription) error {
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribed = append(f.subscribed, sub)
	return nil
}

type fakeStore struct {
	saved *storage.PushSubscription
}

func (f *fakeStore) SavePushSubscription(sub storage.PushSubscription) error {
	f.saved = &sub
	return nil
}

func (f *fakeStore) LoadPushSubscription() (*storage.PushSubscription, error) {
	if f.saved == nil {
		return nil, storage.ErrNotFound
	}
	copied := *f.saved
	return &copied, nil
}

func endpointAt(url string) func() string {
	return func() string { return url }
}

func TestEnsureSubscriptionRegistersAndPersists(t *testing.T) {
	backend := &fakeBackend{}
	store := &fakeStore{}
	manager := NewManager(backend, store, Options{Endpoint: endpointAt("http://127.0.0.1:9/push")})

	if err := manager.EnsureSubscription(context.Background()); err != nil {
		t.Fatalf("EnsureSubscription failed: %v", err)
	}

	if backend.subscribeCalls != 1 {
		t.Fatalf("expected one registration, got %d", backend.subscribeCalls)
	}
	sub := backend.subscribed[0]
	if sub.Endpoint != "http://127.0.0.1:9/push" {
		t.Fatalf("unexpected endpoint %q", sub.Endpoint)
	}
	if sub.Keys.P256DH == "" || sub.Keys.Auth == "" {
		t.Fatalf("registration must carry key material, got %+v", sub.Keys)
	}

	if store.saved == nil {
		t.Fatal("subscription must be persisted")
	}
	if store.saved.P256DH != sub.Keys.P256DH || store.saved.Auth != sub.Keys.Auth {
		t.Fatal("persisted keys must match the registered ones")
	}
	if manager.Keys() == nil {
		t.Fatal("keys must be available after registration")
	}
}

func TestEnsureSubscriptionReusesStoredOne(t *testing.T) {
	keys, err := crypto.GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("GenerateSubscriptionKeys failed: %v", err)
	}
	backend := &fakeBackend{}
	store := &fakeStore{saved: &storage.PushSubscription{
		Endpoint:   "http://127.0.0.1:9/push",
		P256DH:     keys.P256DH(),
		Auth:       keys.Auth(),
		PrivateKey: base64.RawURLEncoding.EncodeToString(keys.PrivateKeyBytes()),
	}}
	manager := NewManager(backend, store, Options{Endpoint: endpointAt("http://127.0.0.1:9/push")})

	if err := manager.EnsureSubscription(context.Background()); err != nil {
		t.Fatalf("EnsureSubscription failed: %v", err)
	}

	if backend.vapidCalls != 0 || backend.subscribeCalls != 0 {
		t.Fatalf("stored subscription must skip the backend, got %d/%d calls",
			backend.vapidCalls, backend.subscribeCalls)
	}
	restored := manager.Keys()
	if restored == nil || restored.P256DH() != keys.P256DH() {
		t.Fatal("keys must be restored from the stored record")
	}
}

func TestEnsureSubscriptionReplacesCorruptRecord(t *testing.T) {
	backend := &fakeBackend{}
	store := &fakeStore{saved: &storage.PushSubscription{
		Endpoint:   "http://127.0.0.1:9/push",
		P256DH:     "junk",
		Auth:       "junk",
		PrivateKey: "!!not base64!!",
	}}
	manager := NewManager(backend, store, Options{Endpoint: endpointAt("http://127.0.0.1:9/push")})

	if err := manager.EnsureSubscription(context.Background()); err != nil {
		t.Fatalf("EnsureSubscription failed: %v", err)
	}
	if backend.subscribeCalls != 1 {
		t.Fatal("a corrupt record must trigger re-registration")
	}
}

func TestEnsureSubscriptionPropagatesBackendErrors(t *testing.T) {
	wantErr := errors.New("unreachable")
	backend := &fakeBackend{vapidErr: wantErr}
	manager := NewManager(backend, &fakeStore{}, Options{Endpoint: endpointAt("http://127.0.0.1:9/push")})

	if err := manager.EnsureSubscription(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if manager.Keys() != nil {
		t.Fatal("keys must stay nil after a failed registration")
	}
}
