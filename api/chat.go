package api

import (
	"context"
	"fmt"

	"classlink/models"
)

// Contacts fetches the recent-contacts list, including server-computed
// unread counts and last-message previews.
func (c *Client) Contacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := c.get(ctx, "/chat/contacts", &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// History fetches the full message history with one peer, oldest first.
func (c *Client) History(ctx context.Context, peerID int64) ([]models.WireMessage, error) {
	var history []models.WireMessage
	if err := c.get(ctx, fmt.Sprintf("/chat/history/%d", peerID), &history); err != nil {
		return nil, err
	}
	return history, nil
}
