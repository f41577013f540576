package api

import (
	"context"

	"classlink/models"
)

// Login request/response shapes mirror the backend auth contract.
type LoginRequest struct {
	LoginType string `json:"login_type"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
	AuthCode  string `json:"auth_code,omitempty"`
	Role      *int   `json:"role,omitempty"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	UserInfo    models.Identity `json:"user_info"`
}

// MeResponse is the full profile record behind /auth/me.
type MeResponse struct {
	UserInfo       models.Identity        `json:"user_info"`
	TeacherProfile *models.TeacherProfile `json:"teacher_profile"`
}

// Login authenticates and returns the issued credential and identity.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var res LoginResponse
	if err := c.post(ctx, "/auth/login", req, &res); err != nil {
		return LoginResponse{}, err
	}
	return res, nil
}

// Register creates an account; the backend returns no payload of interest.
func (c *Client) Register(ctx context.Context, req LoginRequest) error {
	return c.post(ctx, "/auth/register", req, nil)
}

// Me fetches the current user's full profile.
func (c *Client) Me(ctx context.Context) (MeResponse, error) {
	var res MeResponse
	if err := c.get(ctx, "/auth/me", &res); err != nil {
		return MeResponse{}, err
	}
	return res, nil
}

// VerifyIDCard submits teacher identity documents for asynchronous OCR
// verification; the outcome arrives later as a socket job-result event.
func (c *Client) VerifyIDCard(ctx context.Context, frontURL, backURL string) error {
	req := struct {
		FrontURL string `json:"front_url"`
		BackURL  string `json:"back_url"`
	}{FrontURL: frontURL, BackURL: backURL}
	return c.post(ctx, "/auth/verify/idcard", req, nil)
}
