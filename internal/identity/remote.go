package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/pkg/logger"
)

// RemoteResolver delegates token validation to the auth authority's userinfo
// endpoint. The authority's claim payload varies by provider, so claims are
// extracted by path with key fallbacks instead of a fixed struct.
type RemoteResolver struct {
	authorityURL string
	httpClient   *http.Client
	log          *logger.Logger
}

// NewRemoteResolver constructs a resolver calling the given authority.
func NewRemoteResolver(authorityURL string, client *http.Client, log *logger.Logger) *RemoteResolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("identity")
	}
	return &RemoteResolver{
		authorityURL: strings.TrimRight(authorityURL, "/"),
		httpClient:   client,
		log:          log,
	}
}

// Resolve validates the token against the authority. A transport failure maps
// to ErrAuthorityUnreachable; an authority rejection maps to ErrMalformed or
// ErrExpired depending on the response.
func (r *RemoteResolver) Resolve(ctx context.Context, token string) (CallerIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.authorityURL+"/api/auth/userinfo", nil)
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if strings.Contains(strings.ToLower(string(body)), "expired") {
			return CallerIdentity{}, ErrExpired
		}
		return CallerIdentity{}, fmt.Errorf("%w: authority rejected token (status %d)", ErrMalformed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return CallerIdentity{}, fmt.Errorf("%w: authority status %d", ErrAuthorityUnreachable, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return CallerIdentity{}, fmt.Errorf("%w: authority returned invalid JSON", ErrMalformed)
	}

	payload := gjson.ParseBytes(body)
	subject := firstString(payload, "sub", "userId", "user_id")
	if subject == "" {
		return CallerIdentity{}, ErrMissingSubject
	}

	var roles []string
	for _, key := range []string{rolesClaim, "roles"} {
		if arr := payload.Get(escapeGJSONKey(key)); arr.Exists() {
			for _, v := range arr.Array() {
				roles = append(roles, v.String())
			}
			break
		}
	}

	return CallerIdentity{
		Subject: user.Key(subject),
		Roles:   roles,
		Email:   firstString(payload, "email"),
		Name:    firstString(payload, "name", "username"),
	}, nil
}

func firstString(payload gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := payload.Get(escapeGJSONKey(key)); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// escapeGJSONKey escapes dots in claim URIs so gjson treats them as literal
// key characters rather than path separators.
func escapeGJSONKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}
