package models

import (
	"encoding/json"
	"fmt"
)

// Wire discriminator values pushed by the server.
const (
	EventTypeChat         = "chat"
	EventTypeSystemNotice = "system_notice"
	EventTypeJobResult    = "ocr_result"
)

// Keep-alive sentinels. The client sends KeepAlivePing as a literal text
// frame; the server answers KeepAlivePong, which is not an event.
const (
	KeepAlivePing = "ping"
	KeepAlivePong = "pong"
)

// Event is one decoded inbound socket frame. The concrete types below form
// a closed set; handlers switch exhaustively and treat UnknownEvent as the
// catch-all for discriminators this client does not know.
type Event interface {
	eventType() string
}

// ChatEvent is a peer chat message pushed over the socket. The receiver is
// always the local identity and is therefore not on the wire; neither is a
// message id, which only exists once the message is read back via history.
type ChatEvent struct {
	FromUserID int64  `json:"from_user_id"`
	Content    string `json:"content"`
	Time       string `json:"time"`
}

// SystemNoticeEvent is a broadcast notice from the platform.
type SystemNoticeEvent struct {
	Content string `json:"content"`
}

// JobResultEvent reports the outcome of an asynchronous server-side job,
// currently the teacher identity-verification OCR run.
type JobResultEvent struct {
	Status string `json:"status"`
	Detail string `json:"msg"`
}

// Succeeded reports whether the job completed successfully.
func (e JobResultEvent) Succeeded() bool {
	return e.Status == "success"
}

// UnknownEvent preserves a frame whose discriminator this client does not
// recognize. Routers log and drop it.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (ChatEvent) eventType() string         { return EventTypeChat }
func (SystemNoticeEvent) eventType() string { return EventTypeSystemNotice }
func (JobResultEvent) eventType() string    { return EventTypeJobResult }
func (e UnknownEvent) eventType() string    { return e.Type }

// DecodeEvent parses one inbound frame into its event variant.
func DecodeEvent(raw []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode event frame: %w", err)
	}

	switch head.Type {
	case EventTypeChat:
		var ev ChatEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode chat event: %w", err)
		}
		return ev, nil
	case EventTypeSystemNotice:
		var ev SystemNoticeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode system notice: %w", err)
		}
		return ev, nil
	case EventTypeJobResult:
		var ev JobResultEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode job result: %w", err)
		}
		return ev, nil
	default:
		return UnknownEvent{Type: head.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
