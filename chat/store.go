// Package chat is the client-side cache of contacts and per-peer message
// history. It is the sole mutator of that state; the UI layer reads copies
// and never writes back.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"classlink/models"
)

// Backend is the slice of the REST client the store consumes.
type Backend interface {
	Contacts(ctx context.Context) ([]models.Contact, error)
	History(ctx context.Context, peerID int64) ([]models.WireMessage, error)
}

// Sender pushes outbound frames; the socket manager implements it.
type Sender interface {
	Send(v any) error
}

// Options configures a Store.
type Options struct {
	// Identity supplies the local user; every store operation is gated on it.
	Identity func() (models.Identity, bool)
	// Sender carries optimistic sends. Optional; without it SendMessage fails.
	Sender Sender

	Logger *zap.Logger
}

// Store holds the contact list and conversation histories.
//
// Consistency notes, matching the platform's accepted tradeoffs:
//   - LoadContacts replaces the list wholesale and the last arrival wins,
//     by arrival order rather than request order.
//   - SelectPeer guards duplicate history fetches by reserving the cache
//     key before fetching; a message arriving for that peer mid-fetch can
//     be superseded by the fetched history and is recovered by the contact
//     refresh that follows every inbound message.
type Store struct {
	backend  Backend
	identity func() (models.Identity, bool)
	sender   Sender
	logger   *zap.Logger

	mu         sync.Mutex
	contacts   []models.Contact
	histories  map[int64][]models.Message
	activePeer int64
}

// NewStore returns an empty Store over the given backend.
func NewStore(backend Backend, options Options) *Store {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	identity := options.Identity
	if identity == nil {
		identity = func() (models.Identity, bool) { return models.Identity{}, false }
	}

	return &Store{
		backend:   backend,
		identity:  identity,
		sender:    options.Sender,
		logger:    logger,
		histories: make(map[int64][]models.Message),
	}
}

// LoadContacts replaces the contact list from the backend. Safe to call
// repeatedly; the server's ordering and unread counts take precedence over
// anything derived locally.
func (s *Store) LoadContacts(ctx context.Context) error {
	contacts, err := s.backend.Contacts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.contacts = contacts
	// Keep the open conversation read regardless of what the server says.
	if s.activePeer != 0 {
		for i := range s.contacts {
			if s.contacts[i].PeerID == s.activePeer {
				s.contacts[i].UnreadCount = 0
			}
		}
	}
	s.mu.Unlock()

	return nil
}

// SelectPeer makes peerID the active conversation: its unread counter drops
// to zero immediately, and its history is fetched once if not yet cached.
func (s *Store) SelectPeer(ctx context.Context, peerID int64) error {
	identity, ok := s.identity()
	if !ok {
		return errors.New("chat: not logged in")
	}

	s.mu.Lock()
	s.activePeer = peerID
	for i := range s.contacts {
		if s.contacts[i].PeerID == peerID {
			s.contacts[i].UnreadCount = 0
		}
	}
	_, cached := s.histories[peerID]
	if !cached {
		// Reserve the key so an immediate re-select does not fetch twice.
		s.histories[peerID] = []models.Message{}
	}
	s.mu.Unlock()

	if cached {
		return nil
	}

	wire, err := s.backend.History(ctx, peerID)
	if err != nil {
		// The reserved empty history stands in; the next contact refresh or
		// restart gets another chance.
		s.logger.Warn("history fetch failed", zap.Int64("peer", peerID), zap.Error(err))
		return err
	}

	history := make([]models.Message, 0, len(wire))
	for _, w := range wire {
		history = append(history, w.Message(identity.UserID))
	}

	s.mu.Lock()
	s.histories[peerID] = append(history, s.histories[peerID]...)
	s.mu.Unlock()

	return nil
}

// Deselect leaves the active conversation; subsequent inbound messages for
// it count as unread again.
func (s *Store) Deselect() {
	s.mu.Lock()
	s.activePeer = 0
	s.mu.Unlock()
}

// ActivePeer returns the peer whose conversation is open, or 0.
func (s *Store) ActivePeer() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePeer
}

// Contacts returns a copy of the contact list.
func (s *Store) Contacts() []models.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Contact(nil), s.contacts...)
}

// History returns a copy of the cached conversation with peerID. The second
// return is false when the history has never been fetched.
func (s *Store) History(peerID int64) ([]models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[peerID]
	if !ok {
		return nil, false
	}
	return append([]models.Message(nil), history...), true
}

// AppendMessage folds one message into the cache: append to the peer's
// history in arrival order, update the contact's preview and ordering, and
// bump its unread count when the conversation is not the active one. An own
// confirmed copy of a still-pending optimistic message resolves it in place
// instead of duplicating.
func (s *Store) AppendMessage(msg models.Message) {
	identity, ok := s.identity()
	if !ok {
		s.logger.Warn("dropping message without identity")
		return
	}

	peerID := msg.SenderID
	if msg.SenderID == identity.UserID {
		peerID = msg.ReceiverID
	}
	msg.IsOwnMessage = msg.SenderID == identity.UserID

	s.mu.Lock()

	if !s.resolvePendingLocked(peerID, msg) {
		s.histories[peerID] = append(s.histories[peerID], msg)
	}

	index := -1
	for i := range s.contacts {
		if s.contacts[i].PeerID == peerID {
			index = i
			break
		}
	}
	if index == -1 {
		s.mu.Unlock()
		// Unknown partner: refresh the list instead of synthesizing a
		// placeholder contact with guessed profile fields.
		go func() {
			if err := s.LoadContacts(context.Background()); err != nil {
				s.logger.Warn("contact refresh failed", zap.Error(err))
			}
		}()
		return
	}

	contact := s.contacts[index]
	contact.LastMessagePreview = msg.Content
	contact.LastMessageTime = msg.Timestamp
	if s.activePeer != peerID && !msg.IsOwnMessage {
		contact.UnreadCount++
	}

	// Most-recently-active ordering: move to the front.
	s.contacts = append(s.contacts[:index], s.contacts[index+1:]...)
	s.contacts = append([]models.Contact{contact}, s.contacts...)

	s.mu.Unlock()
}

// resolvePendingLocked confirms a matching optimistic message in place.
func (s *Store) resolvePendingLocked(peerID int64, msg models.Message) bool {
	if !msg.IsOwnMessage {
		return false
	}
	if _, confirmed := msg.ID.Confirmed(); !confirmed {
		return false
	}

	history := s.histories[peerID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID.Pending() && history[i].IsOwnMessage && history[i].Content == msg.Content {
			history[i].ID = msg.ID
			history[i].Timestamp = msg.Timestamp
			return true
		}
	}
	return false
}

// SendMessage performs an optimistic send: the message joins the local
// history immediately with a pending id, and the frame goes out
// best-effort over the socket.
func (s *Store) SendMessage(peerID int64, content string) (models.Message, error) {
	identity, ok := s.identity()
	if !ok {
		return models.Message{}, errors.New("chat: not logged in")
	}
	if s.sender == nil {
		return models.Message{}, errors.New("chat: no sender wired")
	}

	msg := models.Message{
		ID:           models.NewPendingID(),
		SenderID:     identity.UserID,
		ReceiverID:   peerID,
		Content:      content,
		Timestamp:    time.Now().Format("15:04"),
		IsOwnMessage: true,
	}

	s.AppendMessage(msg)

	frame := struct {
		Type       string `json:"type"`
		ToUserID   int64  `json:"to_user_id"`
		Content    string `json:"content"`
		ClientTemp string `json:"client_temp_id"`
	}{
		Type:       models.EventTypeChat,
		ToUserID:   peerID,
		Content:    content,
		ClientTemp: msg.ID.TempID(),
	}
	if err := s.sender.Send(frame); err != nil {
		// Fire and forget: the optimistic entry stays, the next history
		// fetch reconciles.
		s.logger.Warn("optimistic send not delivered", zap.Int64("peer", peerID), zap.Error(err))
	}

	return msg, nil
}
