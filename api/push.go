package api

import (
	"context"

	"classlink/models"
)

// VAPIDPublicKey fetches the server's push signing key. The endpoint
// answers bare JSON, outside the usual envelope.
func (c *Client) VAPIDPublicKey(ctx context.Context) (string, error) {
	var res struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.get(ctx, "/notifications/vapid-public-key", &res); err != nil {
		return "", err
	}
	return res.PublicKey, nil
}

// SubscribePush mirrors a push subscription descriptor to the backend. The
// backend de-duplicates by endpoint, so re-posting an existing subscription
// is harmless.
func (c *Client) SubscribePush(ctx context.Context, sub models.PushSubscription) error {
	return c.post(ctx, "/notifications/subscribe", sub, nil)
}
