// Package upstreamtest provides a thread-safe in-memory implementation of the
// upstream reader interfaces. It is intended for tests and local development
// and is constructed per instance, never shared process-wide.
package upstreamtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/babbly/api-gateway/internal/domain/comment"
	"github.com/babbly/api-gateway/internal/domain/like"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/internal/upstream"
)

// Memory holds fixture data for all four upstream services. The per-service
// views returned by Users, Posts, Comments and Likes satisfy the upstream
// reader interfaces. List results come back in insertion order, so tests
// control ordering by insertion.
type Memory struct {
	mu        sync.RWMutex
	users     map[user.Key]user.Identity
	posts     []post.Post
	comments  map[uuid.UUID][]comment.Comment
	likes     map[uuid.UUID][]like.Like
	followers map[user.Key][]user.Identity
	following map[user.Key][]user.Identity
}

// NewMemory creates an empty fixture.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[user.Key]user.Identity),
		comments:  make(map[uuid.UUID][]comment.Comment),
		likes:     make(map[uuid.UUID][]like.Like),
		followers: make(map[user.Key][]user.Identity),
		following: make(map[user.Key][]user.Identity),
	}
}

// Users returns the user service view.
func (m *Memory) Users() upstream.UserReader { return userView{m} }

// Posts returns the post service read view.
func (m *Memory) Posts() upstream.PostReader { return postView{m} }

// PostWriter returns the post service write view.
func (m *Memory) PostWriter() upstream.PostWriter { return postView{m} }

// Comments returns the comment service view.
func (m *Memory) Comments() upstream.CommentReader { return commentView{m} }

// Likes returns the like service view.
func (m *Memory) Likes() upstream.LikeReader { return likeView{m} }

// AddUser registers a user identity.
func (m *Memory) AddUser(identity user.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[identity.Key] = identity
}

// AddPost appends a post to the stream.
func (m *Memory) AddPost(p post.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, p)
}

// AddComment appends a comment to its post's list.
func (m *Memory) AddComment(c comment.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.PostID] = append(m.comments[c.PostID], c)
}

// AddLike appends a like to its post's list.
func (m *Memory) AddLike(l like.Like) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[l.PostID] = append(m.likes[l.PostID], l)
}

// SetFollowers sets the follower list for a user.
func (m *Memory) SetFollowers(key user.Key, followers []user.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followers[key] = followers
}

// SetFollowing sets the following list for a user.
func (m *Memory) SetFollowing(key user.Key, following []user.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.following[key] = following
}

// userView ----------------------------------------------------------------

type userView struct{ m *Memory }

func (v userView) Get(_ context.Context, key user.Key) (user.Identity, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	identity, ok := v.m.users[key]
	if !ok {
		return user.Identity{}, upstream.ErrNotFound
	}
	return identity, nil
}

func (v userView) GetByUsername(_ context.Context, username string) (user.Identity, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	for _, identity := range v.m.users {
		if identity.Username == username {
			return identity, nil
		}
	}
	return user.Identity{}, upstream.ErrNotFound
}

func (v userView) Followers(_ context.Context, key user.Key) ([]user.Identity, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return append([]user.Identity(nil), v.m.followers[key]...), nil
}

func (v userView) Following(_ context.Context, key user.Key) ([]user.Identity, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return append([]user.Identity(nil), v.m.following[key]...), nil
}

// postView ----------------------------------------------------------------

type postView struct{ m *Memory }

func (v postView) List(_ context.Context, page, pageSize int) ([]post.Post, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return pageOf(v.m.posts, page, pageSize), nil
}

func (v postView) Get(_ context.Context, id uuid.UUID) (post.Post, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	for _, p := range v.m.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return post.Post{}, upstream.ErrNotFound
}

func (v postView) ListByAuthor(_ context.Context, key user.Key, page, pageSize int) ([]post.Post, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	var byAuthor []post.Post
	for _, p := range v.m.posts {
		if p.AuthorKey == key {
			byAuthor = append(byAuthor, p)
		}
	}
	return pageOf(byAuthor, page, pageSize), nil
}

func (v postView) Feed(_ context.Context, key user.Key, page, pageSize int) ([]post.Post, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	followed := make(map[user.Key]bool)
	for _, identity := range v.m.following[key] {
		followed[identity.Key] = true
	}
	if len(followed) == 0 {
		return pageOf(v.m.posts, page, pageSize), nil
	}
	var feed []post.Post
	for _, p := range v.m.posts {
		if followed[p.AuthorKey] || p.AuthorKey == key {
			feed = append(feed, p)
		}
	}
	return pageOf(feed, page, pageSize), nil
}

func (v postView) Create(_ context.Context, draft post.Draft) (post.Post, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	created := post.Post{
		ID:        uuid.New(),
		AuthorKey: draft.AuthorKey,
		Content:   draft.Content,
		MediaURL:  draft.MediaURL,
	}
	v.m.posts = append(v.m.posts, created)
	return created, nil
}

// commentView -------------------------------------------------------------

type commentView struct{ m *Memory }

func (v commentView) ListByPost(_ context.Context, postID uuid.UUID, page, pageSize int) ([]comment.Comment, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return pageOf(v.m.comments[postID], page, pageSize), nil
}

func (v commentView) AllByPost(_ context.Context, postID uuid.UUID) ([]comment.Comment, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return append([]comment.Comment(nil), v.m.comments[postID]...), nil
}

func (v commentView) ListByAuthor(_ context.Context, key user.Key, page, pageSize int) ([]comment.Comment, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	var byAuthor []comment.Comment
	for _, postComments := range v.m.comments {
		for _, c := range postComments {
			if c.AuthorKey == key {
				byAuthor = append(byAuthor, c)
			}
		}
	}
	return pageOf(byAuthor, page, pageSize), nil
}

// likeView ----------------------------------------------------------------

type likeView struct{ m *Memory }

func (v likeView) ListByPost(_ context.Context, postID uuid.UUID, page, pageSize int) ([]like.Like, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return pageOf(v.m.likes[postID], page, pageSize), nil
}

func (v likeView) AllByPost(_ context.Context, postID uuid.UUID) ([]like.Like, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	return append([]like.Like(nil), v.m.likes[postID]...), nil
}

func (v likeView) HasLiked(_ context.Context, key user.Key, postID uuid.UUID) (bool, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	for _, l := range v.m.likes[postID] {
		if l.AuthorKey == key {
			return true, nil
		}
	}
	return false, nil
}

func pageOf[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[start:end]...)
}
