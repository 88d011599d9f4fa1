package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/internal/identity"
	"github.com/babbly/api-gateway/internal/upstream"
	"github.com/babbly/api-gateway/internal/upstream/upstreamtest"
)

var errUpstream = errors.New("upstream exploded")

func seedFeed(t *testing.T, mem *upstreamtest.Memory, posts int) []post.Post {
	t.Helper()
	created := make([]post.Post, 0, posts)
	for i := 0; i < posts; i++ {
		author := user.Key(fmt.Sprintf("author-%d", i))
		mem.AddUser(user.Identity{
			Key:      author,
			Username: fmt.Sprintf("user%d", i),
		})
		p := post.Post{
			ID:        uuid.New(),
			AuthorKey: author,
			Content:   fmt.Sprintf("post %d", i),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		}
		mem.AddPost(p)
		created = append(created, p)
	}
	return created
}

func newFeedAggregator(mem *upstreamtest.Memory) *FeedAggregator {
	return NewFeedAggregator(mem.Posts(), mem.Comments(), mem.Likes(), mem.Users(), Options{Workers: 4}, nil)
}

func TestFeedPageBounds(t *testing.T) {
	mem := upstreamtest.NewMemory()
	seeded := seedFeed(t, mem, 25)
	agg := newFeedAggregator(mem)

	page, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 10)

	// Fan-out must not scramble page order.
	for i, ap := range page {
		assert.Equal(t, seeded[i].ID, ap.Post.ID)
	}

	last, err := agg.Feed(context.Background(), 3, 10, nil)
	require.NoError(t, err)
	assert.Len(t, last, 5)
}

func TestFeedTrustsLikesCounter(t *testing.T) {
	mem := upstreamtest.NewMemory()
	p := post.Post{ID: uuid.New(), AuthorKey: "a", Content: "hi", LikesCount: 42}
	mem.AddPost(p)
	mem.AddLike(like.Like{ID: uuid.New(), PostID: p.ID, AuthorKey: "x"})
	mem.AddLike(like.Like{ID: uuid.New(), PostID: p.ID, AuthorKey: "y"})

	page, err := newFeedAggregator(mem).Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)

	// The counter from the post service wins over the preview length.
	assert.Equal(t, 42, page[0].LikesCount)
	assert.Len(t, page[0].Likes, 2)
}

func TestFeedPreviewBounds(t *testing.T) {
	mem := upstreamtest.NewMemory()
	p := post.Post{ID: uuid.New(), AuthorKey: "a", Content: "busy post"}
	mem.AddPost(p)
	for i := 0; i < 5; i++ {
		mem.AddComment(comment.Comment{ID: uuid.New(), PostID: p.ID, AuthorKey: "c", Content: "hey"})
	}
	for i := 0; i < 8; i++ {
		mem.AddLike(like.Like{ID: uuid.New(), PostID: p.ID, AuthorKey: user.Key(fmt.Sprintf("liker-%d", i))})
	}

	page, err := newFeedAggregator(mem).Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.LessOrEqual(t, len(page[0].Comments), 3)
	assert.LessOrEqual(t, len(page[0].Likes), 5)
}

func TestFeedViewerHasLiked(t *testing.T) {
	mem := upstreamtest.NewMemory()
	p := post.Post{ID: uuid.New(), AuthorKey: "a", Content: "hi"}
	mem.AddPost(p)
	mem.AddLike(like.Like{ID: uuid.New(), PostID: p.ID, AuthorKey: "viewer"})
	agg := newFeedAggregator(mem)

	// Anonymous callers never see a liked state, even with matching like data.
	page, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, page[0].ViewerHasLiked)

	caller := &identity.CallerIdentity{Subject: "viewer"}
	page, err = agg.Feed(context.Background(), 1, 10, caller)
	require.NoError(t, err)
	assert.True(t, page[0].ViewerHasLiked)

	other := &identity.CallerIdentity{Subject: "someone-else"}
	page, err = agg.Feed(context.Background(), 1, 10, other)
	require.NoError(t, err)
	assert.False(t, page[0].ViewerHasLiked)
}

func TestFeedIdempotent(t *testing.T) {
	mem := upstreamtest.NewMemory()
	seedFeed(t, mem, 12)
	agg := newFeedAggregator(mem)

	first, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	second, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFeedAuthorServiceDown(t *testing.T) {
	mem := upstreamtest.NewMemory()
	seedFeed(t, mem, 4)

	var degraded []string
	opts := Options{Workers: 1, OnDegraded: func(service string) { degraded = append(degraded, service) }}
	agg := NewFeedAggregator(mem.Posts(), mem.Comments(), mem.Likes(), failingUsers{}, opts, nil)

	page, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 4)
	for _, ap := range page {
		assert.Nil(t, ap.Author)
		assert.NotEmpty(t, ap.Post.Content)
	}
	assert.Contains(t, degraded, "user-service")
}

func TestFeedPostServiceDown(t *testing.T) {
	mem := upstreamtest.NewMemory()
	agg := NewFeedAggregator(failingPosts{}, mem.Comments(), mem.Likes(), mem.Users(), Options{}, nil)

	page, err := agg.Feed(context.Background(), 1, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestPostDetailsAbsent(t *testing.T) {
	mem := upstreamtest.NewMemory()
	users := &countingUsers{inner: mem.Users()}
	comments := &countingComments{inner: mem.Comments()}
	likes := &countingLikes{inner: mem.Likes()}
	agg := NewFeedAggregator(mem.Posts(), comments, likes, users, Options{}, nil)

	details, err := agg.PostDetails(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, details)

	// An absent post must short-circuit all enrichment.
	assert.Zero(t, users.calls.Load())
	assert.Zero(t, comments.calls.Load())
	assert.Zero(t, likes.calls.Load())
}

func TestPostDetailsRecountsLikes(t *testing.T) {
	mem := upstreamtest.NewMemory()
	p := post.Post{ID: uuid.New(), AuthorKey: "a", Content: "hi", LikesCount: 99}
	mem.AddUser(user.Identity{Key: "a", Username: "alice"})
	mem.AddPost(p)
	for i := 0; i < 3; i++ {
		mem.AddLike(like.Like{ID: uuid.New(), PostID: p.ID, AuthorKey: user.Key(fmt.Sprintf("liker-%d", i))})
	}
	for i := 0; i < 6; i++ {
		mem.AddComment(comment.Comment{ID: uuid.New(), PostID: p.ID, AuthorKey: "c", Content: "hey"})
	}

	details, err := newFeedAggregator(mem).PostDetails(context.Background(), p.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, details)

	// Detail view recounts from the fetched list instead of trusting the
	// counter, and carries the full lists rather than previews.
	assert.Equal(t, 3, details.LikesCount)
	assert.Len(t, details.Likes, 3)
	assert.Len(t, details.Comments, 6)
	require.NotNil(t, details.Author)
	assert.Equal(t, "alice", details.Author.Username)
}

// failing and counting upstream stubs -------------------------------------

type failingUsers struct{}

func (failingUsers) Get(context.Context, user.Key) (user.Identity, error) {
	return user.Identity{}, errUpstream
}

func (failingUsers) GetByUsername(context.Context, string) (user.Identity, error) {
	return user.Identity{}, errUpstream
}

func (failingUsers) Followers(context.Context, user.Key) ([]user.Identity, error) {
	return nil, errUpstream
}

func (failingUsers) Following(context.Context, user.Key) ([]user.Identity, error) {
	return nil, errUpstream
}

type failingPosts struct{}

func (failingPosts) List(context.Context, int, int) ([]post.Post, error) {
	return nil, errUpstream
}

func (failingPosts) Get(context.Context, uuid.UUID) (post.Post, error) {
	return post.Post{}, errUpstream
}

func (failingPosts) ListByAuthor(context.Context, user.Key, int, int) ([]post.Post, error) {
	return nil, errUpstream
}

func (failingPosts) Feed(context.Context, user.Key, int, int) ([]post.Post, error) {
	return nil, errUpstream
}

type countingUsers struct {
	inner upstream.UserReader
	calls atomic.Int32
}

func (c *countingUsers) Get(ctx context.Context, key user.Key) (user.Identity, error) {
	c.calls.Add(1)
	return c.inner.Get(ctx, key)
}

func (c *countingUsers) GetByUsername(ctx context.Context, username string) (user.Identity, error) {
	c.calls.Add(1)
	return c.inner.GetByUsername(ctx, username)
}

func (c *countingUsers) Followers(ctx context.Context, key user.Key) ([]user.Identity, error) {
	c.calls.Add(1)
	return c.inner.Followers(ctx, key)
}

func (c *countingUsers) Following(ctx context.Context, key user.Key) ([]user.Identity, error) {
	c.calls.Add(1)
	return c.inner.Following(ctx, key)
}

type countingComments struct {
	inner upstream.CommentReader
	calls atomic.Int32
}

func (c *countingComments) ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]comment.Comment, error) {
	c.calls.Add(1)
	return c.inner.ListByPost(ctx, postID, page, pageSize)
}

func (c *countingComments) AllByPost(ctx context.Context, postID uuid.UUID) ([]comment.Comment, error) {
	c.calls.Add(1)
	return c.inner.AllByPost(ctx, postID)
}

func (c *countingComments) ListByAuthor(ctx context.Context, key user.Key, page, pageSize int) ([]comment.Comment, error) {
	c.calls.Add(1)
	return c.inner.ListByAuthor(ctx, key, page, pageSize)
}

type countingLikes struct {
	inner upstream.LikeReader
	calls atomic.Int32
}

func (c *countingLikes) ListByPost(ctx context.Context, postID uuid.UUID, page, pageSize int) ([]like.Like, error) {
	c.calls.Add(1)
	return c.inner.ListByPost(ctx, postID, page, pageSize)
}

func (c *countingLikes) AllByPost(ctx context.Context, postID uuid.UUID) ([]like.Like, error) {
	c.calls.Add(1)
	return c.inner.AllByPost(ctx, postID)
}

func (c *countingLikes) HasLiked(ctx context.Context, key user.Key, postID uuid.UUID) (bool, error) {
	c.calls.Add(1)
	return c.inner.HasLiked(ctx, key, postID)
}
