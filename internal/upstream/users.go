package upstream

import (
	"context"
	"net/url"
	"time"

	"github.com/babbly/api-gateway/internal/domain/user"
)

// Users is the typed client for the user service.
type Users struct {
	baseClient
}

// NewUsers constructs a user service client.
func NewUsers(baseURL string, timeout time.Duration) *Users {
	return &Users{baseClient: newBaseClient("user-service", baseURL, timeout)}
}

// Get fetches a user identity by key. Returns ErrNotFound for unknown keys.
func (c *Users) Get(ctx context.Context, key user.Key) (user.Identity, error) {
	var identity user.Identity
	err := c.getJSON(ctx, "get user", "/api/users/"+url.PathEscape(key.String()), nil, &identity)
	return identity, err
}

// GetByUsername fetches a user identity by username.
func (c *Users) GetByUsername(ctx context.Context, username string) (user.Identity, error) {
	var identity user.Identity
	err := c.getJSON(ctx, "get user by username", "/api/users/username/"+url.PathEscape(username), nil, &identity)
	return identity, err
}

// Followers lists the users following the given user.
func (c *Users) Followers(ctx context.Context, key user.Key) ([]user.Identity, error) {
	var followers []user.Identity
	err := c.getJSON(ctx, "list followers", "/api/users/"+url.PathEscape(key.String())+"/followers", nil, &followers)
	return followers, err
}

// Following lists the users the given user follows.
func (c *Users) Following(ctx context.Context, key user.Key) ([]user.Identity, error) {
	var following []user.Identity
	err := c.getJSON(ctx, "list following", "/api/users/"+url.PathEscape(key.String())+"/following", nil, &following)
	return following, err
}
