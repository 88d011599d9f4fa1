package upstream

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// Posts is the typed client for the post service.
type Posts struct {
	baseClient
}

// NewPosts constructs a post service client.
func NewPosts(baseURL string, timeout time.Duration) *Posts {
	return &Posts{baseClient: newBaseClient("post-service", baseURL, timeout)}
}

// List fetches one page of the global post stream, newest-first.
func (c *Posts) List(ctx context.Context, page, pageSize int) ([]post.Post, error) {
	var posts []post.Post
	err := c.getJSON(ctx, "list posts", "/api/posts", pageQuery(page, pageSize), &posts)
	return posts, err
}

// Get fetches a single post by id. Returns ErrNotFound for unknown ids.
func (c *Posts) Get(ctx context.Context, id uuid.UUID) (post.Post, error) {
	var p post.Post
	err := c.getJSON(ctx, "get post", "/api/posts/"+id.String(), nil, &p)
	return p, err
}

// ListByAuthor fetches one page of a user's posts, newest-first.
func (c *Posts) ListByAuthor(ctx context.Context, key user.Key, page, pageSize int) ([]post.Post, error) {
	var posts []post.Post
	err := c.getJSON(ctx, "list posts by author", "/api/posts/user/"+url.PathEscape(key.String()), pageQuery(page, pageSize), &posts)
	return posts, err
}

// Feed fetches one page of the personalized feed the post service maintains
// for the given user.
func (c *Posts) Feed(ctx context.Context, key user.Key, page, pageSize int) ([]post.Post, error) {
	var posts []post.Post
	err := c.getJSON(ctx, "get personalized feed", "/api/posts/feed/"+url.PathEscape(key.String()), pageQuery(page, pageSize), &posts)
	return posts, err
}

// Create forwards a post draft to the post service.
func (c *Posts) Create(ctx context.Context, draft post.Draft) (post.Post, error) {
	var created post.Post
	err := c.postJSON(ctx, "create post", "/api/posts", draft, &created)
	return created, err
}
