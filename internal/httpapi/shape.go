// Package httpapi exposes the gateway's inbound HTTP surface: routing,
// request parsing, and the response shaping that flattens aggregates into the
// wire format the frontend consumes.
package httpapi

import (
	"fmt"
	"time"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/feed"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/profile"
)

// shapedComment is the wire form of a comment.
type shapedComment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorKey string    `json:"authorKey"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	TimeAgo   string    `json:"timeAgo"`
}

// shapedLike is the wire form of a like. Like ids are internal to the like
// service and are not exposed.
type shapedLike struct {
	AuthorKey string    `json:"authorKey"`
	CreatedAt time.Time `json:"createdAt"`
	TimeAgo   string    `json:"timeAgo"`
}

// shapedPost is the flattened wire form of an aggregated post: the post fields
// hoisted to the top level with the author identity inlined beside them. When
// the author could not be fetched the author fields are blank, never omitted,
// so the frontend renders a placeholder instead of breaking.
type shapedPost struct {
	ID                    string          `json:"id"`
	AuthorKey             string          `json:"authorKey"`
	AuthorUsername        string          `json:"authorUsername"`
	AuthorDisplayName     string          `json:"authorDisplayName"`
	AuthorProfileImageURL string          `json:"authorProfileImageUrl"`
	Content               string          `json:"content"`
	MediaURL              string          `json:"mediaUrl,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             *time.Time      `json:"updatedAt,omitempty"`
	TimeAgo               string          `json:"timeAgo"`
	Likes                 int             `json:"likes"`
	CommentCount          int             `json:"commentCount"`
	ViewerHasLiked        bool            `json:"viewerHasLiked"`
	Comments              []shapedComment `json:"comments"`
	LikedBy               []shapedLike    `json:"likedBy"`
}

// shapedProfile is the wire form of an aggregated profile. The profile's posts
// reuse the flattened post shape with the author fields filled from the
// profile identity itself.
type shapedProfile struct {
	Key             string          `json:"key"`
	Username        string          `json:"username"`
	DisplayName     string          `json:"displayName"`
	Bio             string          `json:"bio"`
	ProfileImageURL string          `json:"profileImageUrl"`
	JoinedAt        time.Time       `json:"joinedAt"`
	TimeAgo         string          `json:"timeAgo"`
	Posts           []shapedPost    `json:"posts"`
	Comments        []shapedComment `json:"comments"`
	PostsCount      int             `json:"postsCount"`
	CommentsCount   int             `json:"commentsCount"`
	FollowersCount  int             `json:"followersCount"`
	FollowingCount  int             `json:"followingCount"`
}

// listResponse wraps a page of items with its pagination metadata. Total is
// the count of items on this page, not a cross-page total; none of the
// upstream services expose one cheaply.
type listResponse struct {
	Items    any `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

func newListResponse(items any, count, page, pageSize int) listResponse {
	return listResponse{Items: items, Page: page, PageSize: pageSize, Total: count}
}

// Shaper converts aggregates into wire records. The clock is injectable so
// tests can pin the relative timestamps.
type Shaper struct {
	now func() time.Time
}

// NewShaper creates a shaper using the wall clock.
func NewShaper() *Shaper {
	return &Shaper{now: time.Now}
}

func (s *Shaper) post(ap feed.AggregatedPost) shapedPost {
	now := s.now()
	sp := shapedPost{
		ID:             ap.Post.ID.String(),
		AuthorKey:      ap.Post.AuthorKey.String(),
		Content:        ap.Post.Content,
		MediaURL:       ap.Post.MediaURL,
		CreatedAt:      ap.Post.CreatedAt,
		UpdatedAt:      ap.Post.UpdatedAt,
		TimeAgo:        TimeAgo(ap.Post.CreatedAt, now),
		Likes:          ap.LikesCount,
		CommentCount:   ap.Post.CommentsCount,
		ViewerHasLiked: ap.ViewerHasLiked,
		Comments:       s.comments(ap.Comments, now),
		LikedBy:        s.likes(ap.Likes, now),
	}
	if ap.Author != nil {
		sp.AuthorUsername = ap.Author.Username
		sp.AuthorDisplayName = ap.Author.DisplayName
		sp.AuthorProfileImageURL = ap.Author.ProfileImageURL
	}
	return sp
}

func (s *Shaper) posts(aps []feed.AggregatedPost) []shapedPost {
	shaped := make([]shapedPost, 0, len(aps))
	for _, ap := range aps {
		shaped = append(shaped, s.post(ap))
	}
	return shaped
}

func (s *Shaper) profile(p profile.AggregatedProfile) shapedProfile {
	now := s.now()
	shaped := shapedProfile{
		Key:             p.Identity.Key.String(),
		Username:        p.Identity.Username,
		DisplayName:     p.Identity.DisplayName,
		Bio:             p.Identity.Bio,
		ProfileImageURL: p.Identity.ProfileImageURL,
		JoinedAt:        p.Identity.CreatedAt,
		TimeAgo:         TimeAgo(p.Identity.CreatedAt, now),
		Posts:           make([]shapedPost, 0, len(p.Posts)),
		Comments:        s.comments(p.Comments, now),
		PostsCount:      p.PostsCount,
		CommentsCount:   p.CommentsCount,
		FollowersCount:  p.FollowersCount,
		FollowingCount:  p.FollowingCount,
	}
	for _, own := range p.Posts {
		sp := s.bare(own, now)
		sp.AuthorUsername = p.Identity.Username
		sp.AuthorDisplayName = p.Identity.DisplayName
		sp.AuthorProfileImageURL = p.Identity.ProfileImageURL
		shaped.Posts = append(shaped.Posts, sp)
	}
	return shaped
}

// bare shapes a post without enrichment: counts come from the post service's
// counters and the comment/like lists are empty.
func (s *Shaper) bare(p post.Post, now time.Time) shapedPost {
	return shapedPost{
		ID:           p.ID.String(),
		AuthorKey:    p.AuthorKey.String(),
		Content:      p.Content,
		MediaURL:     p.MediaURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		TimeAgo:      TimeAgo(p.CreatedAt, now),
		Likes:        p.LikesCount,
		CommentCount: p.CommentsCount,
		Comments:     []shapedComment{},
		LikedBy:      []shapedLike{},
	}
}

func (s *Shaper) barePosts(posts []post.Post) []shapedPost {
	now := s.now()
	shaped := make([]shapedPost, 0, len(posts))
	for _, p := range posts {
		shaped = append(shaped, s.bare(p, now))
	}
	return shaped
}

func (s *Shaper) comments(cs []comment.Comment, now time.Time) []shapedComment {
	shaped := make([]shapedComment, 0, len(cs))
	for _, c := range cs {
		shaped = append(shaped, shapedComment{
			ID:        c.ID.String(),
			PostID:    c.PostID.String(),
			AuthorKey: c.AuthorKey.String(),
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			TimeAgo:   TimeAgo(c.CreatedAt, now),
		})
	}
	return shaped
}

func (s *Shaper) likes(ls []like.Like, now time.Time) []shapedLike {
	shaped := make([]shapedLike, 0, len(ls))
	for _, l := range ls {
		shaped = append(shaped, shapedLike{
			AuthorKey: l.AuthorKey.String(),
			CreatedAt: l.CreatedAt,
			TimeAgo:   TimeAgo(l.CreatedAt, now),
		})
	}
	return shaped
}

// TimeAgo renders a coarse relative timestamp. Months are 30 days and years
// 365 days, calendar-naive on purpose; all divisions truncate.
func TimeAgo(createdAt, now time.Time) string {
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed >= 365*24*time.Hour:
		return fmt.Sprintf("%dy", int(elapsed.Hours())/(365*24))
	case elapsed >= 30*24*time.Hour:
		return fmt.Sprintf("%dmo", int(elapsed.Hours())/(30*24))
	case elapsed >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(elapsed.Hours())/24)
	case elapsed >= time.Hour:
		return fmt.Sprintf("%dh", int(elapsed.Hours()))
	case elapsed >= time.Minute:
		return fmt.Sprintf("%dm", int(elapsed.Minutes()))
	default:
		return "now"
	}
}
