package upstream

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// Likes is the typed client for the like service.
type Likes struct {
	baseClient
}

// NewLikes constructs a like service client.
func NewLikes(baseURL string, timeout time.Duration) *Likes {
	return &Likes{baseClient: newBaseClient("like-service", baseURL, timeout)}
}

// ListByPost fetches one page of a post's likes.
func (c *Likes) ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]like.Like, error) {
	var likes []like.Like
	err := c.getJSON(ctx, "list likes by post", "/api/likes/post/"+postID.String(), pageQuery(page, pageSize), &likes)
	return likes, err
}

// AllByPost fetches a post's full like list.
func (c *Likes) AllByPost(ctx context.Context, postID uuid.UUID) ([]like.Like, error) {
	var likes []like.Like
	err := c.getJSON(ctx, "list all likes by post", "/api/likes/post/"+postID.String(), nil, &likes)
	return likes, err
}

// HasLiked reports whether the given user has liked the given post. The like
// service answers the existence check directly; a 404 means no like exists.
func (c *Likes) HasLiked(ctx context.Context, key user.Key, postID uuid.UUID) (bool, error) {
	var result struct {
		HasLiked bool `json:"hasLiked"`
	}
	path := "/api/likes/user/" + url.PathEscape(key.String()) + "/post/" + postID.String()
	err := c.getJSON(ctx, "check like", path, nil, &result)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return result.HasLiked, nil
}
