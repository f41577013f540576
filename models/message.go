package models

import "github.com/google/uuid"

// MessageID identifies a message either by the server-assigned id or, while
// a sent message has not been acknowledged yet, by a client-generated temp
// id. The zero value means no id is known, as for messages pushed over the
// socket, and is neither pending nor confirmed. Only confirmed ids
// participate in identity comparisons; a pending id is never used as a
// de-duplication key.
type MessageID struct {
	serverID int64
	tempID   string
}

// NewPendingID returns a MessageID for an optimistic, unacknowledged send.
func NewPendingID() MessageID {
	return MessageID{tempID: uuid.NewString()}
}

// ConfirmedID returns a MessageID carrying a server-assigned id.
func ConfirmedID(serverID int64) MessageID {
	return MessageID{serverID: serverID}
}

// Confirmed returns the server id and whether the message has one.
func (id MessageID) Confirmed() (int64, bool) {
	return id.serverID, id.serverID != 0
}

// Pending reports whether the message is an optimistic send still awaiting
// server confirmation.
func (id MessageID) Pending() bool {
	return id.tempID != ""
}

// TempID returns the client temp id for a pending message, or "".
func (id MessageID) TempID() string {
	if id.serverID != 0 {
		return ""
	}
	return id.tempID
}

// Same reports whether two ids refer to the same message. Two pending ids
// match only on an identical temp id; a pending id never matches a
// confirmed one.
func (id MessageID) Same(other MessageID) bool {
	if id.serverID != 0 || other.serverID != 0 {
		return id.serverID == other.serverID && id.serverID != 0
	}
	return id.tempID != "" && id.tempID == other.tempID
}

// Message is one chat message in a peer conversation. IsOwnMessage is
// derived at construction from the local identity, never sent on the wire.
type Message struct {
	ID           MessageID
	SenderID     int64
	ReceiverID   int64
	Content      string
	Timestamp    string
	IsOwnMessage bool
}

// WireMessage is the REST history representation of a message.
type WireMessage struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	IsRead     bool   `json:"is_read"`
}

// Message converts a history entry, deriving ownership from localUserID.
func (w WireMessage) Message(localUserID int64) Message {
	return Message{
		ID:           ConfirmedID(w.ID),
		SenderID:     w.SenderID,
		ReceiverID:   w.ReceiverID,
		Content:      w.Content,
		Timestamp:    w.CreatedAt,
		IsOwnMessage: w.SenderID == localUserID,
	}
}
