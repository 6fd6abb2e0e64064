package dashsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) Me(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyActivity lists the caller's newest activity. limit <= 0 uses the
// server default.
func (c *Client) MyActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	return c.activity(ctx, "/me/activity", limit)
}

// UserActivity lists another user's activity. Admin only.
func (c *Client) UserActivity(ctx context.Context, userID string, limit int) ([]ActivityEntry, error) {
	return c.activity(ctx, "/users/"+url.PathEscape(userID)+"/activity", limit)
}

func (c *Client) activity(ctx context.Context, path string, limit int) ([]ActivityEntry, error) {
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out ActivityResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

// CreateUser adds a staff account. Admin only.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	var out UserResponse
	if err := c.do(ctx, http.MethodPost, "/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeactivateUser(ctx context.Context, userID string) (*UserResponse, error) {
	return c.setActive(ctx, userID, "deactivate")
}

func (c *Client) ActivateUser(ctx context.Context, userID string) (*UserResponse, error) {
	return c.setActive(ctx, userID, "activate")
}

func (c *Client) setActive(ctx context.Context, userID, action string) (*UserResponse, error) {
	var out UserResponse
	path := "/users/" + url.PathEscape(userID) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
