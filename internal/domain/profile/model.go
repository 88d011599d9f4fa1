// Package profile defines the composite user profile view produced by the
// profile aggregator.
package profile

import (
	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
)

// AggregatedProfile is a user's public profile: identity plus a page of their
// posts, a fixed first page of their comments, and relationship counts. The
// counts default to the lengths of the fetched collections, matching upstream
// gateway behavior; see aggregator.ProfileAggregator for the true-counts mode.
type AggregatedProfile struct {
	Identity       user.Identity
	Posts          []post.Post
	Comments       []comment.Comment
	PostsCount     int
	CommentsCount  int
	FollowersCount int
	FollowingCount int
}
