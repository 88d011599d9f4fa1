// Package like defines the like entity owned by the like service.
package like

import (
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/user"
)

// Like records that a user liked a post. The like service guarantees at most
// one like per (author, post) pair; the gateway does not re-validate that.
type Like struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"postId"`
	AuthorKey user.Key  `json:"authorKey"`
	CreatedAt time.Time `json:"createdAt"`
}
