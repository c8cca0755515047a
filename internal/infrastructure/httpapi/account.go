package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"ContractGuard/internal/apperr"
	"ContractGuard/internal/domain"
)

// Me loads the signed-in profile.
func (c *Client) Me(ctx context.Context) (domain.Profile, error) {
	var me domain.Profile
	err := c.Send(ctx, Request{Method: http.MethodGet, Path: "/v1/users/me"}, &me)
	return me, err
}

// UpdateMe changes the display name and returns the updated profile.
func (c *Client) UpdateMe(ctx context.Context, displayName string) (domain.Profile, error) {
	var me domain.Profile
	err := c.Send(ctx, Request{
		Method: http.MethodPut,
		Path:   "/v1/users/me",
		Body:   map[string]string{"display_name": displayName},
	}, &me)
	return me, err
}

// UploadAvatar sends a new avatar image and returns its server path.
func (c *Client) UploadAvatar(ctx context.Context, path string) (string, error) {
	var resp struct {
		AvatarURL string `json:"avatar_url"`
	}
	file := domain.FilePayload(path, "", "").File
	if err := c.SendUpload(ctx, Upload{Path: "/v1/users/me/avatar", File: file, Timeout: c.requestTimeout}, &resp); err != nil {
		return "", err
	}
	if resp.AvatarURL == "" {
		return "", apperr.New(apperr.KindMalformed, "POST /v1/users/me/avatar", "missing avatar_url")
	}
	return resp.AvatarURL, nil
}

// Login exchanges phone and password for a bearer token.
func (c *Client) Login(ctx context.Context, phone, password string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/login",
		Body:   map[string]string{"phone": phone, "password": password},
		Public: true,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return "", apperr.New(apperr.KindMalformed, "POST /v1/auth/login", "missing access_token")
	}
	return resp.AccessToken, nil
}

// Ping checks connectivity against the health endpoint.
func (c *Client) Ping(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.Send(ctx, Request{Method: http.MethodGet, Path: "/health", Public: true}, &out)
	return out, err
}
