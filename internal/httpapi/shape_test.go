package httpapi

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/feed"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{10 * time.Second, "now"},
		{59 * time.Second, "now"},
		{90 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{3 * time.Hour, "3h"},
		{25 * time.Hour, "1d"},
		{29 * 24 * time.Hour, "29d"},
		{45 * 24 * time.Hour, "1mo"},
		{364 * 24 * time.Hour, "12mo"},
		{400 * 24 * time.Hour, "1y"},
		{800 * 24 * time.Hour, "2y"},
	}
	for _, tc := range cases {
		if got := TimeAgo(now.Add(-tc.elapsed), now); got != tc.want {
			t.Errorf("TimeAgo(now-%v) = %q, want %q", tc.elapsed, got, tc.want)
		}
	}
}

func TestShapePostFlattensAuthor(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Shaper{now: func() time.Time { return now }}

	p := post.Post{
		ID:            uuid.New(),
		AuthorKey:     "alice-key",
		Content:       "hello",
		CreatedAt:     now.Add(-2 * time.Hour),
		LikesCount:    7,
		CommentsCount: 3,
	}
	ap := feed.AggregatedPost{
		Post: p,
		Author: &user.Identity{
			Key:             "alice-key",
			Username:        "alice",
			DisplayName:     "Alice",
			ProfileImageURL: "https://img.example/alice.png",
		},
		Likes:      []like.Like{{ID: uuid.New(), PostID: p.ID, AuthorKey: "bob"}},
		LikesCount: 7,
	}

	shaped := s.post(ap)
	if shaped.ID != p.ID.String() {
		t.Errorf("id = %q, want %q", shaped.ID, p.ID)
	}
	if shaped.AuthorUsername != "alice" || shaped.AuthorDisplayName != "Alice" {
		t.Errorf("author fields not hoisted: %+v", shaped)
	}
	if shaped.Likes != 7 {
		t.Errorf("likes = %d, want 7", shaped.Likes)
	}
	if shaped.TimeAgo != "2h" {
		t.Errorf("timeAgo = %q, want 2h", shaped.TimeAgo)
	}
	if len(shaped.LikedBy) != 1 {
		t.Errorf("likedBy length = %d, want 1", len(shaped.LikedBy))
	}
}

func TestShapePostBlankAuthorWhenAbsent(t *testing.T) {
	s := NewShaper()
	shaped := s.post(feed.AggregatedPost{
		Post: post.Post{ID: uuid.New(), AuthorKey: "gone-key", Content: "orphan"},
	})

	// Author fields render blank, never omitted, when the user service had
	// nothing for the key.
	if shaped.AuthorKey != "gone-key" {
		t.Errorf("authorKey = %q, want gone-key", shaped.AuthorKey)
	}
	if shaped.AuthorUsername != "" || shaped.AuthorDisplayName != "" || shaped.AuthorProfileImageURL != "" {
		t.Errorf("author fields not blank: %+v", shaped)
	}
	if shaped.Comments == nil || shaped.LikedBy == nil {
		t.Error("comment and like lists must serialize as empty arrays, not null")
	}
}
