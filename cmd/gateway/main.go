// Command gateway runs the babbly API gateway: the single HTTP entry point
// that aggregates the user, post, comment and like services into the
// composite feed and profile responses the frontend consumes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/babbly/api-gateway/internal/aggregator"
	"github.com/babbly/api-gateway/internal/config"
	"github.com/babbly/api-gateway/internal/httpapi"
	"github.com/babbly/api-gateway/internal/identity"
	"github.com/babbly/api-gateway/internal/metrics"
	"github.com/babbly/api-gateway/internal/middleware"
	"github.com/babbly/api-gateway/internal/upstream"
	"github.com/babbly/api-gateway/pkg/logger"
)

const cleanupInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("gateway", cfg.Logging)
	log.WithField("port", cfg.Server.Port).WithField("auth_mode", cfg.Auth.Mode).Info("starting api gateway")

	// Upstream clients.
	users := upstream.NewUsers(cfg.Upstream.UserServiceURL, cfg.Upstream.Timeout.Std())
	posts := upstream.NewPosts(cfg.Upstream.PostServiceURL, cfg.Upstream.Timeout.Std())
	comments := upstream.NewComments(cfg.Upstream.CommentServiceURL, cfg.Upstream.Timeout.Std())
	likes := upstream.NewLikes(cfg.Upstream.LikeServiceURL, cfg.Upstream.Timeout.Std())

	// Identity resolution.
	var resolver identity.Resolver
	switch cfg.Auth.Mode {
	case "remote":
		resolver = identity.NewRemoteResolver(cfg.Auth.AuthorityURL, nil, log)
	default:
		opts := []identity.LocalOption{identity.WithClockSkew(cfg.Auth.ClockSkew.Std())}
		if cfg.Auth.HMACSecret != "" {
			opts = append(opts, identity.WithHMACSecret(cfg.Auth.HMACSecret))
		}
		if cfg.Auth.Audience != "" {
			opts = append(opts, identity.WithAudience(cfg.Auth.Audience))
		}
		resolver = identity.NewLocalResolver(log, opts...)
	}

	// Aggregators, reporting degraded enrichments to Prometheus.
	m := metrics.New()
	aggOpts := aggregator.Options{
		Workers:    cfg.Aggregation.FanoutWorkers,
		Deadline:   cfg.Aggregation.Deadline.Std(),
		OnDegraded: m.RecordUpstreamDegraded,
	}
	feedAgg := aggregator.NewFeedAggregator(posts, comments, likes, users, aggOpts, log)
	profileAgg := aggregator.NewProfileAggregator(users, posts, comments, cfg.Profile.TrueCounts, aggOpts, log)

	handler := httpapi.NewHandler(feedAgg, profileAgg, posts, posts, log)

	// Router and middleware chain. Order matters: CORS answers preflights
	// before anything else runs, and the rate limiter keys by caller subject
	// so it sits after identity resolution.
	router := mux.NewRouter()
	router.Use(middleware.NewCORS(cfg.CORS.AllowedOrigins).Handler())
	router.Use(middleware.Tracing(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Caller(resolver, log))

	done := make(chan struct{})
	defer close(done)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
		limiter.StartCleanup(cleanupInterval, done)
		router.Use(limiter.Handler())
	}

	handler.Register(router, middleware.RequireAuth())
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
