package models

import "encoding/json"

// PushPayload is the notification document delivered over the background
// push channel: JSON {title, body, url}, or plain text used as the body.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// DecodePushPayload parses a delivered payload, falling back to plain text.
// Defaults match what the platform renders when a field is unspecified.
func DecodePushPayload(raw []byte) PushPayload {
	payload := PushPayload{Title: "New message", URL: "/"}

	var parsed PushPayload
	if err := json.Unmarshal(raw, &parsed); err != nil || (parsed.Title == "" && parsed.Body == "") {
		payload.Body = string(raw)
		return payload
	}

	if parsed.Title != "" {
		payload.Title = parsed.Title
	}
	payload.Body = parsed.Body
	if parsed.URL != "" {
		payload.URL = parsed.URL
	}
	return payload
}

// PushSubscriptionKeys is the key material the push service encrypts to.
type PushSubscriptionKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is the subscription descriptor mirrored to the backend.
type PushSubscription struct {
	Endpoint string               `json:"endpoint"`
	Keys     PushSubscriptionKeys `json:"keys"`
}
