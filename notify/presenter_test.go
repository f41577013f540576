package notify

import (
	"errors"
	"testing"

	"classlink/models"
)

type fakeSystem struct {
	permissionCalls int
	granted         bool
	permissionErr   error
	notifications   []Notification
	notifyErr       error
}

func (f *fakeSystem) RequestPermission() (bool, error) {
	f.permissionCalls++
	return f.granted, f.permissionErr
}

func (f *fakeSystem) Notify(n Notification) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifications = append(f.notifications, n)
	return nil
}

type fakeToaster struct {
	severities []string
	messages   []string
}

func (f *fakeToaster) Toast(severity, message string) {
	f.severities = append(f.severities, severity)
	f.messages = append(f.messages, message)
}

type fakeWindow struct {
	visible   bool
	focused   int
	navigated []string
}

func (f *fakeWindow) Visible() bool       { return f.visible }
func (f *fakeWindow) Focus()              { f.focused++ }
func (f *fakeWindow) Navigate(url string) { f.navigated = append(f.navigated, url) }

type fixture struct {
	system    *fakeSystem
	toasts    *fakeToaster
	window    *fakeWindow
	presenter *Presenter
}

func newFixture(visible bool, activePeer int64) *fixture {
	system := &fakeSystem{granted: true}
	toasts := &fakeToaster{}
	window := &fakeWindow{visible: visible}
	presenter := NewPresenter(system, toasts, window, Options{
		ActivePeer:  func() int64 { return activePeer },
		ContactName: func(userID int64) string {
			if userID == 2 {
				return "Ada"
			}
			return ""
		},
	})
	return &fixture{system: system, toasts: toasts, window: window, presenter: presenter}
}

func TestPermissionRequestedOnceAndCached(t *testing.T) {
	f := newFixture(false, 0)

	for i := 0; i < 3; i++ {
		if !f.presenter.EnsurePermission() {
			t.Fatal("expected granted permission")
		}
	}
	if f.system.permissionCalls != 1 {
		t.Fatalf("permission must be requested once, got %d", f.system.permissionCalls)
	}
}

func TestPermissionFailureStaysDenied(t *testing.T) {
	f := newFixture(false, 0)
	f.system.permissionErr = errors.New("backend gone")

	if f.presenter.EnsurePermission() {
		t.Fatal("a failed request must read as denied")
	}
	f.presenter.ChatMessage(2, "hi")
	if len(f.system.notifications) != 0 {
		t.Fatal("no notification without permission")
	}
}

func TestChatWhileHiddenBecomesSystemNotification(t *testing.T) {
	f := newFixture(false, 0)

	f.presenter.ChatMessage(2, "hi there")

	if len(f.system.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.system.notifications))
	}
	n := f.system.notifications[0]
	if n.Title != "Ada" || n.Body != "hi there" || n.TargetURL != "/chat?peer=2" {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(f.toasts.messages) != 0 {
		t.Fatal("hidden window must not toast")
	}
}

func TestChatForOtherPeerWhileVisibleToasts(t *testing.T) {
	f := newFixture(true, 3)

	f.presenter.ChatMessage(2, "hi")

	if len(f.system.notifications) != 0 {
		t.Fatal("visible window must not raise a system notification")
	}
	if len(f.toasts.messages) != 1 || f.toasts.severities[0] != ToastInfo {
		t.Fatalf("expected one info toast, got %+v", f.toasts)
	}
}

func TestChatForActiveConversationIsSilent(t *testing.T) {
	f := newFixture(true, 2)

	f.presenter.ChatMessage(2, "hi")

	if len(f.system.notifications) != 0 || len(f.toasts.messages) != 0 {
		t.Fatal("the open conversation presents nothing")
	}
}

func TestUnknownSenderGetsGenericTitle(t *testing.T) {
	f := newFixture(false, 0)

	f.presenter.ChatMessage(99, "hello")

	if f.system.notifications[0].Title != "New message" {
		t.Fatalf("expected generic title, got %q", f.system.notifications[0].Title)
	}
}

func TestSystemNoticeFollowsVisibility(t *testing.T) {
	visible := newFixture(true, 0)
	visible.presenter.SystemNotice("maintenance at midnight")
	if len(visible.toasts.messages) != 1 || len(visible.system.notifications) != 0 {
		t.Fatalf("visible notice must toast, got %+v", visible.toasts)
	}

	hidden := newFixture(false, 0)
	hidden.presenter.SystemNotice("maintenance at midnight")
	if len(hidden.system.notifications) != 1 || hidden.system.notifications[0].Title != "System notice" {
		t.Fatalf("hidden notice must notify, got %+v", hidden.system.notifications)
	}
}

func TestJobResultToastsBySeverity(t *testing.T) {
	f := newFixture(true, 0)

	f.presenter.JobResult(true, "")
	f.presenter.JobResult(false, "ID photo unreadable")

	if f.toasts.severities[0] != ToastSuccess {
		t.Fatalf("expected success toast, got %q", f.toasts.severities[0])
	}
	if f.toasts.severities[1] != ToastError || f.toasts.messages[1] != "ID photo unreadable" {
		t.Fatalf("expected error toast with detail, got %+v", f.toasts)
	}
}

func TestPushBecomesSystemNotification(t *testing.T) {
	f := newFixture(true, 0)

	f.presenter.Push(models.PushPayload{Title: "Homework graded", Body: "92/100", URL: "/grades"})

	if len(f.system.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.system.notifications))
	}
	if f.system.notifications[0].TargetURL != "/grades" {
		t.Fatalf("unexpected target: %+v", f.system.notifications[0])
	}
}

func TestActivateFocusesAndNavigates(t *testing.T) {
	f := newFixture(false, 0)

	f.presenter.Activate("/chat?peer=2")

	if f.window.focused != 1 {
		t.Fatal("activation must focus the window")
	}
	if len(f.window.navigated) != 1 || f.window.navigated[0] != "/chat?peer=2" {
		t.Fatalf("unexpected navigation: %v", f.window.navigated)
	}
}

func TestActivateWithoutTargetOnlyFocuses(t *testing.T) {
	f := newFixture(false, 0)

	f.presenter.Activate("")

	if f.window.focused != 1 || len(f.window.navigated) != 0 {
		t.Fatalf("expected focus only, got %+v", f.window)
	}
}
