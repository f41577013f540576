package api

import (
	"context"
	"fmt"
)

// AISession is one saved assistant conversation.
type AISession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

// AIMessage is one turn in an assistant conversation.
type AIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIChat asks the assistant a question and waits for the full answer. The
// token-by-token variant goes through the stream package against
// AIStreamURL.
func (c *Client) AIChat(ctx context.Context, question string) (string, error) {
	req := struct {
		Question string `json:"question"`
	}{Question: question}

	var res struct {
		Answer string `json:"answer"`
	}
	if err := c.post(ctx, "/ai/chat", req, &res); err != nil {
		return "", err
	}
	return res.Answer, nil
}

// AISessions lists the saved assistant conversations.
func (c *Client) AISessions(ctx context.Context) ([]AISession, error) {
	var sessions []AISession
	if err := c.get(ctx, "/ai/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateAISession starts a new assistant conversation.
func (c *Client) CreateAISession(ctx context.Context, title string) (AISession, error) {
	req := struct {
		Title string `json:"title"`
	}{Title: title}

	var session AISession
	if err := c.post(ctx, "/ai/sessions", req, &session); err != nil {
		return AISession{}, err
	}
	return session, nil
}

// DeleteAISession removes a saved conversation.
func (c *Client) DeleteAISession(ctx context.Context, sessionID string) error {
	return c.del(ctx, "/ai/sessions/"+sessionID, nil)
}

// AISessionHistory fetches the turns of one conversation for replay.
func (c *Client) AISessionHistory(ctx context.Context, sessionID string) ([]AIMessage, error) {
	var history []AIMessage
	if err := c.get(ctx, fmt.Sprintf("/ai/sessions/%s/history", sessionID), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// AIStreamURL returns the absolute endpoint for token-by-token completions,
// consumed through the stream package.
func (c *Client) AIStreamURL() string {
	return c.baseURL + "/ai/chat/stream"
}
