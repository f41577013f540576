package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("storage: record not found")
)

// Session is the SQLite representation of the persisted login state.
type Session struct {
	Token     string
	Identity  string // serialized models.Identity JSON
	UpdatedAt int64
}

// PushSubscription is the SQLite representation of the registered push
// channel, including the local private key needed to decrypt deliveries.
type PushSubscription struct {
	Endpoint   string
	P256DH     string
	Auth       string
	PrivateKey string
	CreatedAt  int64
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}
