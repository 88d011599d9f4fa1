package upstream

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// Comments is the typed client for the comment service.
type Comments struct {
	baseClient
}

// NewComments constructs a comment service client.
func NewComments(baseURL string, timeout time.Duration) *Comments {
	return &Comments{baseClient: newBaseClient("comment-service", baseURL, timeout)}
}

// ListByPost fetches one page of a post's comments.
func (c *Comments) ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]comment.Comment, error) {
	var comments []comment.Comment
	err := c.getJSON(ctx, "list comments by post", "/api/comments/post/"+postID.String(), pageQuery(page, pageSize), &comments)
	return comments, err
}

// AllByPost fetches a post's full comment list.
func (c *Comments) AllByPost(ctx context.Context, postID uuid.UUID) ([]comment.Comment, error) {
	var comments []comment.Comment
	err := c.getJSON(ctx, "list all comments by post", "/api/comments/post/"+postID.String(), nil, &comments)
	return comments, err
}

// ListByAuthor fetches one page of a user's comments.
func (c *Comments) ListByAuthor(ctx context.Context, key user.Key, page, pageSize int) ([]comment.Comment, error) {
	var comments []comment.Comment
	err := c.getJSON(ctx, "list comments by author", "/api/comments/user/"+url.PathEscape(key.String()), pageQuery(page, pageSize), &comments)
	return comments, err
}
