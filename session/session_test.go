package session

import (
	"context"
	"sync"
	"testing"

	"classlink/api"
	"classlink/models"
	"classlink/storage"
)

func newTestManager(t *testing.T, options Options) (*Manager, *storage.Store) {
	t.Helper()

	store, _, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewManager(store, options), store
}

func TestSetLoginStateAndRestore(t *testing.T) {
	manager, store := newTestManager(t, Options{})

	identity := models.Identity{UserID: 7, DisplayName: "Lin", Role: models.RoleTeacher}
	if err := manager.SetLoginState("tok-7", identity); err != nil {
		t.Fatalf("SetLoginState failed: %v", err)
	}
	if manager.Token() != "tok-7" {
		t.Fatalf("expected token tok-7, got %q", manager.Token())
	}

	// A second manager over the same store simulates a restart.
	restarted := NewManager(store, Options{})
	if err := restarted.Restore(); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	current, ok := restarted.Current()
	if !ok {
		t.Fatal("expected identity after restore")
	}
	if current.UserID != 7 || current.DisplayName != "Lin" || current.CredentialToken != "tok-7" {
		t.Fatalf("unexpected restored identity: %+v", current)
	}
}

func TestRestoreWithoutPersistedSession(t *testing.T) {
	manager, _ := newTestManager(t, Options{})

	if err := manager.Restore(); err != nil {
		t.Fatalf("Restore on empty store failed: %v", err)
	}
	if _, ok := manager.Current(); ok {
		t.Fatal("expected no identity")
	}
	if manager.Token() != "" {
		t.Fatal("expected empty token when logged out")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	manager, store := newTestManager(t, Options{})

	if err := manager.SetLoginState("tok", models.Identity{UserID: 1}); err != nil {
		t.Fatalf("SetLoginState failed: %v", err)
	}
	if err := store.SavePushSubscription(storage.PushSubscription{
		Endpoint: "http://127.0.0.1:1/push", P256DH: "k", Auth: "a", PrivateKey: "p",
	}); err != nil {
		t.Fatalf("SavePushSubscription failed: %v", err)
	}

	if err := manager.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok := manager.Current(); ok {
		t.Fatal("expected identity destroyed")
	}
	if _, err := store.LoadSession(); err == nil {
		t.Fatal("expected persisted session cleared")
	}
	if _, err := store.LoadPushSubscription(); err == nil {
		t.Fatal("expected push subscription cleared")
	}
}

func TestHandleAuthExpiredFiresHookExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	fired := 0

	manager, _ := newTestManager(t, Options{
		OnAuthExpired: func() {
			mu.Lock()
			fired++
			mu.Unlock()
		},
	})
	if err := manager.SetLoginState("tok", models.Identity{UserID: 1}); err != nil {
		t.Fatalf("SetLoginState failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.HandleAuthExpired()
		}()
	}
	wg.Wait()

	if fired != 1 {
		t.Fatalf("expected hook to fire once, got %d", fired)
	}
	if _, ok := manager.Current(); ok {
		t.Fatal("expected identity cleared on expiry")
	}

	// A new login re-arms the guard.
	if err := manager.SetLoginState("tok-2", models.Identity{UserID: 1}); err != nil {
		t.Fatalf("SetLoginState failed: %v", err)
	}
	manager.HandleAuthExpired()
	if fired != 2 {
		t.Fatalf("expected hook to re-arm after login, got %d", fired)
	}
}

type fakeProfileAPI struct {
	me api.MeResponse
}

func (f fakeProfileAPI) Me(context.Context) (api.MeResponse, error) {
	return f.me, nil
}

func TestRefreshIdentityUpdatesProfile(t *testing.T) {
	manager, _ := newTestManager(t, Options{})
	if err := manager.SetLoginState("tok", models.Identity{UserID: 7, Role: models.RoleTeacher}); err != nil {
		t.Fatalf("SetLoginState failed: %v", err)
	}

	backend := fakeProfileAPI{me: api.MeResponse{
		UserInfo: models.Identity{UserID: 7, DisplayName: "Lin", Role: models.RoleTeacher},
		TeacherProfile: &models.TeacherProfile{
			RealName:     "Lin Hui",
			VerifyStatus: models.VerifyApproved,
		},
	}}

	if err := manager.RefreshIdentity(context.Background(), backend); err != nil {
		t.Fatalf("RefreshIdentity failed: %v", err)
	}

	current, ok := manager.Current()
	if !ok || current.DisplayName != "Lin" {
		t.Fatalf("unexpected identity after refresh: %+v", current)
	}
	if current.CredentialToken != "tok" {
		t.Fatal("refresh must keep the existing credential")
	}
	profile, ok := manager.TeacherProfile()
	if !ok || profile.VerifyStatus != models.VerifyApproved {
		t.Fatalf("unexpected teacher profile: %+v", profile)
	}
}
