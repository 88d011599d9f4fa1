// Package aggregator composes upstream reads into the composite views served
// by the gateway. Aggregators are stateless and safe for concurrent use; all
// per-request data is local to the call.
//
// Failure policy: an aggregation's primary entity (the post page, the post,
// the user) decides the outcome, while every enrichment degrades to empty or
// absent data. Degrading is an explicit decision made here, with a logged
// warning, never a silent side effect of error suppression.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/feed"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/internal/identity"
	"github.com/babbly/api-gateway/internal/upstream"
	"github.com/babbly/api-gateway/pkg/logger"
)

// Preview bounds for feed rows. Detail views carry the full lists instead.
const (
	commentPreviewSize = 3
	likePreviewSize    = 5
)

// Options bound the fan-out an aggregation request may perform.
type Options struct {
	// Workers caps the number of posts enriched concurrently.
	Workers int
	// Deadline bounds one whole aggregation operation. Zero disables it;
	// per-call HTTP timeouts still apply underneath.
	Deadline time.Duration
	// OnDegraded, when set, is invoked with the upstream service name each
	// time an enrichment degrades to empty data. Used for metrics.
	OnDegraded func(service string)
}

func (o Options) degraded(service string) {
	if o.OnDegraded != nil {
		o.OnDegraded(service)
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	return o
}

// FeedAggregator builds paginated feed pages and single-post detail views.
type FeedAggregator struct {
	posts    upstream.PostReader
	comments upstream.CommentReader
	likes    upstream.LikeReader
	users    upstream.UserReader
	opts     Options
	log      *logger.Logger
}

// NewFeedAggregator constructs a feed aggregator.
func NewFeedAggregator(posts upstream.PostReader, comments upstream.CommentReader, likes upstream.LikeReader, users upstream.UserReader, opts Options, log *logger.Logger) *FeedAggregator {
	if log == nil {
		log = logger.NewDefault("feed-aggregator")
	}
	return &FeedAggregator{
		posts:    posts,
		comments: comments,
		likes:    likes,
		users:    users,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Feed returns one page of the feed, each post enriched with author identity,
// a bounded comments preview, a bounded likes preview and the caller's like
// state. LikesCount carries the post service's counter verbatim; the likes
// preview is truncated and must never be counted.
func (a *FeedAggregator) Feed(ctx context.Context, page, pageSize int, caller *identity.CallerIdentity) ([]feed.AggregatedPost, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	posts, err := a.posts.List(ctx, page, pageSize)
	if err != nil {
		a.log.WithError(err).Warn("post service unavailable, serving empty feed page")
		a.opts.degraded("post-service")
		return []feed.AggregatedPost{}, nil
	}
	if len(posts) == 0 {
		return []feed.AggregatedPost{}, nil
	}

	// Bounded fan-out across posts. Results are keyed by post id, not slice
	// position, so completion order cannot scramble the page.
	byID := make(map[uuid.UUID]feed.AggregatedPost, len(posts))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.opts.Workers)

	for _, p := range posts {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			enriched := a.enrich(ctx, p, caller)
			mu.Lock()
			byID[p.ID] = enriched
			mu.Unlock()
		}()
	}
	wg.Wait()

	result := make([]feed.AggregatedPost, 0, len(posts))
	for _, p := range posts {
		result = append(result, byID[p.ID])
	}
	return result, nil
}

// PostDetails returns one post with its full comment and like lists, or nil
// when the post does not exist. Unlike the feed view, LikesCount here is the
// length of the fetched like list. No enrichment calls are made for an absent
// post.
func (a *FeedAggregator) PostDetails(ctx context.Context, postID uuid.UUID, caller *identity.CallerIdentity) (*feed.AggregatedPost, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	p, err := a.posts.Get(ctx, postID)
	if err != nil {
		if !errors.Is(err, upstream.ErrNotFound) {
			a.log.WithError(err).Warnf("post lookup failed for %s, treating as absent", postID)
		}
		return nil, nil
	}

	comments := a.fetchAllComments(ctx, postID)
	likes := a.fetchAllLikes(ctx, postID)

	result := &feed.AggregatedPost{
		Post:           p,
		Author:         a.fetchAuthor(ctx, p.AuthorKey),
		Comments:       comments,
		Likes:          likes,
		LikesCount:     len(likes),
		ViewerHasLiked: a.viewerHasLiked(ctx, caller, postID),
	}
	return result, nil
}

// enrich assembles one feed row. Every enrichment is independent: a failed
// fetch degrades that field and leaves the others intact.
func (a *FeedAggregator) enrich(ctx context.Context, p post.Post, caller *identity.CallerIdentity) feed.AggregatedPost {
	comments, err := a.comments.ListByPost(ctx, p.ID, 1, commentPreviewSize)
	if err != nil {
		a.log.WithError(err).Warnf("comments preview unavailable for post %s", p.ID)
		a.opts.degraded("comment-service")
		comments = nil
	}

	likes, err := a.likes.ListByPost(ctx, p.ID, 1, likePreviewSize)
	if err != nil {
		a.log.WithError(err).Warnf("likes preview unavailable for post %s", p.ID)
		a.opts.degraded("like-service")
		likes = nil
	}

	return feed.AggregatedPost{
		Post:           p,
		Author:         a.fetchAuthor(ctx, p.AuthorKey),
		Comments:       comments,
		Likes:          likes,
		LikesCount:     p.LikesCount,
		ViewerHasLiked: a.viewerHasLiked(ctx, caller, p.ID),
	}
}

func (a *FeedAggregator) fetchAuthor(ctx context.Context, key user.Key) *user.Identity {
	author, err := a.users.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, upstream.ErrNotFound) {
			a.log.WithError(err).Warnf("author %s unavailable, rendering without author", key)
			a.opts.degraded("user-service")
		}
		return nil
	}
	return &author
}

func (a *FeedAggregator) viewerHasLiked(ctx context.Context, caller *identity.CallerIdentity, postID uuid.UUID) bool {
	if caller == nil {
		return false
	}
	liked, err := a.likes.HasLiked(ctx, caller.Subject, postID)
	if err != nil {
		a.log.WithError(err).Warnf("like check unavailable for post %s", postID)
		a.opts.degraded("like-service")
		return false
	}
	return liked
}

func (a *FeedAggregator) fetchAllComments(ctx context.Context, postID uuid.UUID) []comment.Comment {
	comments, err := a.comments.AllByPost(ctx, postID)
	if err != nil {
		a.log.WithError(err).Warnf("comments unavailable for post %s", postID)
		a.opts.degraded("comment-service")
		return nil
	}
	return comments
}

func (a *FeedAggregator) fetchAllLikes(ctx context.Context, postID uuid.UUID) []like.Like {
	likes, err := a.likes.AllByPost(ctx, postID)
	if err != nil {
		a.log.WithError(err).Warnf("likes unavailable for post %s", postID)
		a.opts.degraded("like-service")
		return nil
	}
	return likes
}

func (a *FeedAggregator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Deadline > 0 {
		return context.WithTimeout(ctx, a.opts.Deadline)
	}
	return context.WithCancel(ctx)
}
