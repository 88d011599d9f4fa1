package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/babbly/api-gateway/internal/aggregator"
	"github.com/babbly/api-gateway/internal/domain/post"
	"github.com/babbly/api-gateway/internal/domain/profile"
	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/internal/middleware"
	"github.com/babbly/api-gateway/internal/upstream"
	"github.com/babbly/api-gateway/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPostLength   = 280
)

// Handler owns the gateway's route handlers. It is stateless apart from the
// start time used by the health endpoint and is safe for concurrent use.
type Handler struct {
	feed     *aggregator.FeedAggregator
	profiles *aggregator.ProfileAggregator
	posts    upstream.PostReader
	writer   upstream.PostWriter
	shaper   *Shaper
	log      *logger.Logger
	started  time.Time
}

// NewHandler creates the handler. A nil logger gets a default.
func NewHandler(feedAgg *aggregator.FeedAggregator, profileAgg *aggregator.ProfileAggregator, posts upstream.PostReader, writer upstream.PostWriter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	return &Handler{
		feed:     feedAgg,
		profiles: profileAgg,
		posts:    posts,
		writer:   writer,
		shaper:   NewShaper(),
		log:      log,
		started:  time.Now(),
	}
}

// Register attaches all routes to the router. requireAuth guards the routes
// that need a resolved caller; everything else is anonymous-accessible.
func (h *Handler) Register(r *mux.Router, requireAuth mux.MiddlewareFunc) {
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/feed", h.getFeed).Methods(http.MethodGet)
	api.HandleFunc("/feed/{postId}", h.getPostDetails).Methods(http.MethodGet)
	api.HandleFunc("/profiles/id/{key}", h.getProfileByKey).Methods(http.MethodGet)
	api.HandleFunc("/profiles/username/{username}", h.getProfileByUsername).Methods(http.MethodGet)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(requireAuth)
	authed.HandleFunc("/profiles/me", h.getMyProfile).Methods(http.MethodGet)
	authed.HandleFunc("/posts", h.createPost).Methods(http.MethodPost)
	authed.HandleFunc("/posts/feed", h.getPersonalFeed).Methods(http.MethodGet)
}

// getFeed ------------------------------------------------------------------

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	caller, _ := middleware.CallerFromContext(r.Context())

	items, err := h.feed.Feed(r.Context(), page, pageSize, caller)
	if err != nil {
		h.log.WithError(err).Error("feed aggregation failed")
		writeError(w, "feed unavailable", http.StatusBadGateway)
		return
	}

	shaped := h.shaper.posts(items)
	writeJSON(w, http.StatusOK, newListResponse(shaped, len(shaped), page, pageSize))
}

func (h *Handler) getPostDetails(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(mux.Vars(r)["postId"])
	if err != nil {
		writeError(w, "invalid post id", http.StatusBadRequest)
		return
	}
	caller, _ := middleware.CallerFromContext(r.Context())

	details, err := h.feed.PostDetails(r.Context(), postID, caller)
	if err != nil {
		h.log.WithError(err).Error("post details aggregation failed")
		writeError(w, "post unavailable", http.StatusBadGateway)
		return
	}
	if details == nil {
		writeError(w, "post not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.shaper.post(*details))
}

// profiles -----------------------------------------------------------------

func (h *Handler) getProfileByKey(w http.ResponseWriter, r *http.Request) {
	key := user.Key(mux.Vars(r)["key"])
	page, pageSize := postsPageParams(r)
	p, err := h.profiles.ByKey(r.Context(), key, page, pageSize)
	h.writeProfile(w, p, err)
}

func (h *Handler) getProfileByUsername(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	page, pageSize := postsPageParams(r)
	p, err := h.profiles.ByUsername(r.Context(), username, page, pageSize)
	h.writeProfile(w, p, err)
}

func (h *Handler) getMyProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	page, pageSize := postsPageParams(r)
	p, err := h.profiles.ByKey(r.Context(), caller.Subject, page, pageSize)
	h.writeProfile(w, p, err)
}

func (h *Handler) writeProfile(w http.ResponseWriter, p *profile.AggregatedProfile, err error) {
	if err != nil {
		h.log.WithError(err).Error("profile aggregation failed")
		writeError(w, "profile unavailable", http.StatusBadGateway)
		return
	}
	if p == nil {
		writeError(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.shaper.profile(*p))
}

// posts --------------------------------------------------------------------

// createRequest is the payload accepted from the frontend. The author is
// always the authenticated caller, never client-supplied.
type createRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, "content is required", http.StatusBadRequest)
		return
	}
	if len(req.Content) > maxPostLength {
		writeError(w, "content exceeds 280 characters", http.StatusBadRequest)
		return
	}

	created, err := h.writer.Create(r.Context(), post.Draft{
		AuthorKey: caller.Subject,
		Content:   req.Content,
		MediaURL:  req.MediaURL,
	})
	if err != nil {
		h.log.WithError(err).Error("post creation failed")
		writeError(w, "post service unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getPersonalFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	page, pageSize := pageParams(r)

	posts, err := h.posts.Feed(r.Context(), caller.Subject, page, pageSize)
	if err != nil {
		h.log.WithError(err).Error("personalized feed fetch failed")
		writeError(w, "post service unavailable", http.StatusBadGateway)
		return
	}

	shaped := h.shaper.barePosts(posts)
	writeJSON(w, http.StatusOK, newListResponse(shaped, len(shaped), page, pageSize))
}

// helpers ------------------------------------------------------------------

func pageParams(r *http.Request) (page, pageSize int) {
	return intQuery(r, "page", 1), clampPageSize(intQuery(r, "pageSize", defaultPageSize))
}

func postsPageParams(r *http.Request) (page, pageSize int) {
	return intQuery(r, "postsPage", 1), clampPageSize(intQuery(r, "postsPageSize", defaultPageSize))
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func clampPageSize(size int) int {
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
