// Package feed defines the composite post view produced by the feed
// aggregator. Aggregates are request-scoped: built fresh from live upstream
// reads and discarded once the response is written.
package feed

import (
	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// AggregatedPost is one post enriched with author identity, comments and
// likes. In feed view Comments and Likes are bounded previews and LikesCount
// carries the post service's counter verbatim; in detail view they are the
// full lists and LikesCount is recomputed from the fetched likes. A nil Author
// means the user service had no data (missing user or upstream failure) and
// the shaping layer renders blank author fields.
type AggregatedPost struct {
	Post           post.Post
	Author         *user.Identity
	Comments       []comment.Comment
	Likes          []like.Like
	LikesCount     int
	ViewerHasLiked bool
}
