package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/babbly/api-gateway/internal/identity"
)

type stubResolver struct {
	caller identity.CallerIdentity
	err    error
}

func (s stubResolver) Resolve(context.Context, string) (identity.CallerIdentity, error) {
	return s.caller, s.err
}

func newAuthRouter(resolver identity.Resolver, requireAuth bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(Caller(resolver, nil))
	handler := func(w http.ResponseWriter, r *http.Request) {
		if caller, ok := CallerFromContext(r.Context()); ok {
			w.Write([]byte(caller.Subject.String()))
			return
		}
		w.Write([]byte("anonymous"))
	}
	if requireAuth {
		protected := router.PathPrefix("/").Subrouter()
		protected.Use(RequireAuth())
		protected.HandleFunc("/target", handler)
	} else {
		router.HandleFunc("/target", handler)
	}
	return router
}

func get(router *mux.Router, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/target", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCallerResolvesToken(t *testing.T) {
	router := newAuthRouter(stubResolver{caller: identity.CallerIdentity{Subject: "alice-key", Roles: []string{"admin"}}}, false)

	rec := get(router, "some-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "alice-key" {
		t.Errorf("body = %q, want the resolved subject", rec.Body.String())
	}
}

func TestCallerAnonymousWithoutToken(t *testing.T) {
	router := newAuthRouter(stubResolver{caller: identity.CallerIdentity{Subject: "alice-key"}}, false)

	rec := get(router, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("status = %d body = %q, want anonymous 200", rec.Code, rec.Body.String())
	}
}

func TestCallerFailureDoesNotReject(t *testing.T) {
	router := newAuthRouter(stubResolver{err: identity.ErrExpired}, false)

	rec := get(router, "expired-token")
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Errorf("status = %d body = %q, want anonymous 200", rec.Code, rec.Body.String())
	}
}

func TestRequireAuth(t *testing.T) {
	authed := newAuthRouter(stubResolver{caller: identity.CallerIdentity{Subject: "alice-key"}}, true)
	if rec := get(authed, "token"); rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rec.Code)
	}

	anon := newAuthRouter(stubResolver{err: identity.ErrExpired}, true)
	if rec := get(anon, "expired-token"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", rec.Code)
	}
	if rec := get(anon, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	down := newAuthRouter(stubResolver{err: identity.ErrAuthorityUnreachable}, true)
	if rec := get(down, "token"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unreachable authority status = %d, want 503", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
