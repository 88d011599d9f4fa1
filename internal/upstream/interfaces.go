package upstream

import (
	"context"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// The aggregators depend on these interfaces rather than the concrete HTTP
// clients so tests can substitute constructible in-memory implementations.
// All list operations take 1-based pages; ordering is owned by the upstream
// service (newest-first by convention) and never re-sorted by the gateway.

// UserReader reads user identities and relationships from the user service.
type UserReader interface {
	Get(ctx context.Context, key user.Key) (user.Identity, error)
	GetByUsername(ctx context.Context, username string) (user.Identity, error)
	Followers(ctx context.Context, key user.Key) ([]user.Identity, error)
	Following(ctx context.Context, key user.Key) ([]user.Identity, error)
}

// PostReader reads posts from the post service.
type PostReader interface {
	List(ctx context.Context, page, pageSize int) ([]post.Post, error)
	Get(ctx context.Context, id uuid.UUID) (post.Post, error)
	ListByAuthor(ctx context.Context, key user.Key, page, pageSize int) ([]post.Post, error)
	Feed(ctx context.Context, key user.Key, page, pageSize int) ([]post.Post, error)
}

// PostWriter creates posts via the post service. Creation is a pass-through,
// not an aggregation concern.
type PostWriter interface {
	Create(ctx context.Context, draft post.Draft) (post.Post, error)
}

// CommentReader reads comments from the comment service.
type CommentReader interface {
	ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]comment.Comment, error)
	AllByPost(ctx context.Context, postID uuid.UUID) ([]comment.Comment, error)
	ListByAuthor(ctx context.Context, key user.Key, page, pageSize int) ([]comment.Comment, error)
}

// LikeReader reads likes from the like service.
type LikeReader interface {
	ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]like.Like, error)
	AllByPost(ctx context.Context, postID uuid.UUID) ([]like.Like, error)
	HasLiked(ctx context.Context, key user.Key, postID uuid.UUID) (bool, error)
}
