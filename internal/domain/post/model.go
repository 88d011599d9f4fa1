// Package post defines the post entity owned by the post service.
package post

import (
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/user"
)

// Post is a single post as served by the post service. LikesCount and
// CommentsCount are denormalized counters owned upstream; the gateway trusts
// them rather than recomputing from fetched pages.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	AuthorKey     user.Key   `json:"authorKey"`
	Content       string     `json:"content"`
	MediaURL      string     `json:"mediaUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	LikesCount    int        `json:"likesCount"`
	CommentsCount int        `json:"commentsCount"`
}

// Draft is the payload accepted by the post service when creating a post.
type Draft struct {
	AuthorKey user.Key `json:"authorKey"`
	Content   string   `json:"content"`
	MediaURL  string   `json:"mediaUrl,omitempty"`
}
