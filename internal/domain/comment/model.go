// Package comment defines the comment entity owned by the comment service.
package comment

import (
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/user"
)

// Comment belongs to exactly one post.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	PostID    uuid.UUID  `json:"postId"`
	AuthorKey user.Key   `json:"authorKey"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
