// Package notify decides how events reach the user: an in-app toast while
// the window is visible, a system notification otherwise. It owns the
// notification permission and the click-through behavior.
package notify

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"classlink/models"
)

// Toast severities.
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// Notification is one system-level notification.
type Notification struct {
	Title     string
	Body      string
	TargetURL string
}

// SystemNotifier posts OS notifications. Permission is requested at most
// once per run; the presenter caches the answer.
type SystemNotifier interface {
	RequestPermission() (bool, error)
	Notify(n Notification) error
}

// Toaster shows transient in-app messages.
type Toaster interface {
	Toast(severity, message string)
}

// WindowControl exposes the main window to the presenter.
type WindowControl interface {
	Visible() bool
	Focus()
	Navigate(url string)
}

// Options wires a Presenter.
type Options struct {
	// ActivePeer reports the open conversation, 0 for none.
	ActivePeer func() int64
	// ContactName resolves a user id for notification titles; empty falls
	// back to a generic title.
	ContactName func(userID int64) string

	Logger *zap.Logger
}

// Presenter routes user-facing output. Chat messages for the open
// conversation while the window is visible are silent; the chat view
// itself shows them.
type Presenter struct {
	system SystemNotifier
	toasts Toaster
	window WindowControl

	activePeer  func() int64
	contactName func(userID int64) string
	logger      *zap.Logger

	permissionOnce sync.Once
	permitted      bool
}

// NewPresenter returns a Presenter over the given surfaces.
func NewPresenter(system SystemNotifier, toasts Toaster, window WindowControl, options Options) *Presenter {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	activePeer := options.ActivePeer
	if activePeer == nil {
		activePeer = func() int64 { return 0 }
	}
	contactName := options.ContactName
	if contactName == nil {
		contactName = func(int64) string { return "" }
	}

	return &Presenter{
		system:      system,
		toasts:      toasts,
		window:      window,
		activePeer:  activePeer,
		contactName: contactName,
		logger:      logger,
	}
}

// EnsurePermission asks for notification permission once and caches the
// answer for the rest of the run.
func (p *Presenter) EnsurePermission() bool {
	p.permissionOnce.Do(func() {
		granted, err := p.system.RequestPermission()
		if err != nil {
			p.logger.Warn("permission request failed", zap.Error(err))
			return
		}
		p.permitted = granted
	})
	return p.permitted
}

// ChatMessage presents one inbound chat message from fromUserID.
func (p *Presenter) ChatMessage(fromUserID int64, preview string) {
	visible := p.window.Visible()
	if visible && p.activePeer() == fromUserID {
		return
	}

	title := p.contactName(fromUserID)
	if title == "" {
		title = "New message"
	}
	target := fmt.Sprintf("/chat?peer=%d", fromUserID)

	if !visible {
		p.notifySystem(Notification{Title: title, Body: preview, TargetURL: target})
		return
	}
	p.toasts.Toast(ToastInfo, title+": "+preview)
}

// SystemNotice presents a platform broadcast.
func (p *Presenter) SystemNotice(content string) {
	if p.window.Visible() {
		p.toasts.Toast(ToastInfo, content)
		return
	}
	p.notifySystem(Notification{Title: "System notice", Body: content, TargetURL: "/"})
}

// JobResult presents the outcome of the identity verification job.
func (p *Presenter) JobResult(succeeded bool, detail string) {
	if succeeded {
		message := "Identity verification approved"
		if detail != "" {
			message = detail
		}
		p.toasts.Toast(ToastSuccess, message)
		return
	}

	message := "Identity verification failed"
	if detail != "" {
		message = detail
	}
	p.toasts.Toast(ToastError, message)
}

// Push presents a background push payload as a system notification.
func (p *Presenter) Push(payload models.PushPayload) {
	p.notifySystem(Notification{
		Title:     payload.Title,
		Body:      payload.Body,
		TargetURL: payload.URL,
	})
}

// Activate handles a notification click: bring the window up and open the
// notification's target.
func (p *Presenter) Activate(targetURL string) {
	p.window.Focus()
	if targetURL != "" {
		p.window.Navigate(targetURL)
	}
}

func (p *Presenter) notifySystem(n Notification) {
	if !p.EnsurePermission() {
		p.logger.Debug("notification suppressed, no permission",
			zap.String("title", n.Title))
		return
	}
	if err := p.system.Notify(n); err != nil {
		p.logger.Warn("notification failed", zap.Error(err))
	}
}
