package aggregator

import (
	"context"
	"errors"
	"sync"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/profile"
	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/internal/upstream"
	"github.com/babbly/api-gateway/pkg/logger"
)

// Profiles fetch a fixed first page of the user's comments.
const profileCommentsPageSize = 10

// truePageSize is the page size used when walking all pages for true-count
// semantics.
const truePageSize = 100

// maxCountPages caps the page walk so a miscounting upstream cannot hold a
// request open indefinitely.
const maxCountPages = 50

// ProfileAggregator builds public user profiles.
//
// By default every count is the length of the fetched collection, which for
// posts and comments reflects only the requested page. This matches the
// behavior of the system this gateway fronts. TrueCounts switches posts and
// comments to a paged walk that counts the full collections instead.
type ProfileAggregator struct {
	users      upstream.UserReader
	posts      upstream.PostReader
	comments   upstream.CommentReader
	trueCounts bool
	opts       Options
	log        *logger.Logger
}

// NewProfileAggregator constructs a profile aggregator.
func NewProfileAggregator(users upstream.UserReader, posts upstream.PostReader, comments upstream.CommentReader, trueCounts bool, opts Options, log *logger.Logger) *ProfileAggregator {
	if log == nil {
		log = logger.NewDefault("profile-aggregator")
	}
	return &ProfileAggregator{
		users:      users,
		posts:      posts,
		comments:   comments,
		trueCounts: trueCounts,
		opts:       opts.withDefaults(),
		log:        log,
	}
}

// ByKey builds the profile for the given user key, or returns nil when the
// user does not exist. The identity lookup is the one fetch that decides the
// outcome; posts, comments and relationships all degrade to empty.
func (a *ProfileAggregator) ByKey(ctx context.Context, key user.Key, postsPage, postsPageSize int) (*profile.AggregatedProfile, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	identity, err := a.users.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, upstream.ErrNotFound) {
			a.log.WithError(err).Warnf("identity lookup failed for %s, treating as absent", key)
		}
		return nil, nil
	}

	var (
		wg        sync.WaitGroup
		posts     []post.Post
		comments  []comment.Comment
		followers []user.Identity
		following []user.Identity
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		posts = a.fetchPosts(ctx, key, postsPage, postsPageSize)
	}()
	go func() {
		defer wg.Done()
		comments = a.fetchComments(ctx, key)
	}()
	go func() {
		defer wg.Done()
		followers = a.fetchRelationship(ctx, key, a.users.Followers, "followers")
	}()
	go func() {
		defer wg.Done()
		following = a.fetchRelationship(ctx, key, a.users.Following, "following")
	}()
	wg.Wait()

	result := &profile.AggregatedProfile{
		Identity:       identity,
		Posts:          posts,
		Comments:       comments,
		PostsCount:     len(posts),
		CommentsCount:  len(comments),
		FollowersCount: len(followers),
		FollowingCount: len(following),
	}

	if a.trueCounts {
		result.PostsCount = a.countAllPosts(ctx, key)
		result.CommentsCount = a.countAllComments(ctx, key)
	}
	return result, nil
}

// ByUsername resolves the username first and then builds the profile. An
// unknown username yields a nil profile, not an error.
func (a *ProfileAggregator) ByUsername(ctx context.Context, username string, postsPage, postsPageSize int) (*profile.AggregatedProfile, error) {
	identity, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, upstream.ErrNotFound) {
			a.log.WithError(err).Warnf("identity lookup failed for username %q, treating as absent", username)
		}
		return nil, nil
	}
	return a.ByKey(ctx, identity.Key, postsPage, postsPageSize)
}

func (a *ProfileAggregator) fetchPosts(ctx context.Context, key user.Key, page, pageSize int) []post.Post {
	posts, err := a.posts.ListByAuthor(ctx, key, page, pageSize)
	if err != nil {
		a.log.WithError(err).Warnf("posts unavailable for user %s", key)
		a.opts.degraded("post-service")
		return nil
	}
	return posts
}

func (a *ProfileAggregator) fetchComments(ctx context.Context, key user.Key) []comment.Comment {
	comments, err := a.comments.ListByAuthor(ctx, key, 1, profileCommentsPageSize)
	if err != nil {
		a.log.WithError(err).Warnf("comments unavailable for user %s", key)
		a.opts.degraded("comment-service")
		return nil
	}
	return comments
}

func (a *ProfileAggregator) fetchRelationship(ctx context.Context, key user.Key, fetch func(context.Context, user.Key) ([]user.Identity, error), kind string) []user.Identity {
	identities, err := fetch(ctx, key)
	if err != nil {
		a.log.WithError(err).Warnf("%s unavailable for user %s", kind, key)
		a.opts.degraded("user-service")
		return nil
	}
	return identities
}

func (a *ProfileAggregator) countAllPosts(ctx context.Context, key user.Key) int {
	return countPages(func(page int) (int, error) {
		posts, err := a.posts.ListByAuthor(ctx, key, page, truePageSize)
		return len(posts), err
	})
}

func (a *ProfileAggregator) countAllComments(ctx context.Context, key user.Key) int {
	return countPages(func(page int) (int, error) {
		comments, err := a.comments.ListByAuthor(ctx, key, page, truePageSize)
		return len(comments), err
	})
}

// countPages walks pages until a short page, summing the lengths.
func countPages(fetch func(page int) (int, error)) int {
	total := 0
	for page := 1; page <= maxCountPages; page++ {
		n, err := fetch(page)
		if err != nil {
			break
		}
		total += n
		if n < truePageSize {
			break
		}
	}
	return total
}

func (a *ProfileAggregator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Deadline > 0 {
		return context.WithTimeout(ctx, a.opts.Deadline)
	}
	return context.WithCancel(ctx)
}
