// Package router dispatches decoded realtime events to the stores and the
// notification layer. It is the only place that knows what each event
// variant means for the rest of the client.
package router

import (
	"context"
	"time"

	"go.uber.org/zap"

	"classlink/models"
)

// Conversations is the slice of the chat store the router drives.
type Conversations interface {
	AppendMessage(msg models.Message)
	LoadContacts(ctx context.Context) error
}

// Notifier surfaces events to the user. The presenter implements it.
type Notifier interface {
	ChatMessage(fromUserID int64, preview string)
	SystemNotice(content string)
	JobResult(succeeded bool, detail string)
}

// Options wires a Router.
type Options struct {
	// Identity supplies the local user; chat events are dropped without one.
	Identity func() (models.Identity, bool)

	Conversations Conversations
	Notifier      Notifier

	// RefreshIdentity re-fetches the profile after a verification job
	// finishes, whatever its outcome.
	RefreshIdentity func(ctx context.Context) error

	// CallTimeout bounds the backend calls an event triggers.
	CallTimeout time.Duration

	Logger *zap.Logger
}

// Router routes events from the socket read goroutine. Backend calls it
// makes are bounded by CallTimeout so a slow server cannot stall reads
// forever.
type Router struct {
	identity        func() (models.Identity, bool)
	conversations   Conversations
	notifier        Notifier
	refreshIdentity func(ctx context.Context) error
	callTimeout     time.Duration
	logger          *zap.Logger
}

// NewRouter returns a Router over the given collaborators.
func NewRouter(options Options) *Router {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identity := options.Identity
	if identity == nil {
		identity = func() (models.Identity, bool) { return models.Identity{}, false }
	}
	timeout := options.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Router{
		identity:        identity,
		conversations:   options.Conversations,
		notifier:        options.Notifier,
		refreshIdentity: options.RefreshIdentity,
		callTimeout:     timeout,
		logger:          logger,
	}
}

// HandleEvent dispatches one decoded event. It satisfies socket.Handler.
func (r *Router) HandleEvent(event models.Event) {
	switch ev := event.(type) {
	case models.ChatEvent:
		r.handleChat(ev)
	case models.SystemNoticeEvent:
		if r.notifier != nil {
			r.notifier.SystemNotice(ev.Content)
		}
	case models.JobResultEvent:
		r.handleJobResult(ev)
	case models.UnknownEvent:
		r.logger.Warn("ignoring unknown event", zap.String("type", ev.Type))
	default:
		r.logger.Warn("ignoring unhandled event variant")
	}
}

func (r *Router) handleChat(ev models.ChatEvent) {
	identity, ok := r.identity()
	if !ok {
		r.logger.Warn("dropping chat event without identity")
		return
	}

	// The socket payload carries no message id; the id becomes known only
	// when the conversation is read back via history.
	r.conversations.AppendMessage(models.Message{
		SenderID:   ev.FromUserID,
		ReceiverID: identity.UserID,
		Content:    ev.Content,
		Timestamp:  ev.Time,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.callTimeout)
	defer cancel()
	if err := r.conversations.LoadContacts(ctx); err != nil {
		r.logger.Warn("contact refresh failed", zap.Error(err))
	}

	if r.notifier != nil && ev.FromUserID != identity.UserID {
		r.notifier.ChatMessage(ev.FromUserID, ev.Content)
	}
}

// handleJobResult refreshes the cached profile before presenting the
// outcome: the verification state changed server-side either way.
func (r *Router) handleJobResult(ev models.JobResultEvent) {
	if r.refreshIdentity != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.callTimeout)
		defer cancel()
		if err := r.refreshIdentity(ctx); err != nil {
			r.logger.Warn("profile refresh failed", zap.Error(err))
		}
	}

	if r.notifier != nil {
		r.notifier.JobResult(ev.Succeeded(), ev.Detail)
	}
}
