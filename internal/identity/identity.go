// Package identity resolves bearer tokens into caller identities. Resolution
// is a pure function of the token text: there is no local state, no caching
// and no retry. Callers that can serve anonymous traffic treat any resolution
// failure as "anonymous"; routes that require authentication reject instead.
package identity

import (
	"context"
	"errors"

	"github.com/babbly/api-gateway/internal/domain/user"
)

// CallerIdentity is the resolved identity of a request's principal.
type CallerIdentity struct {
	Subject user.Key
	Roles   []string
	Email   string
	Name    string
}

// HasRole reports whether the caller carries the named role.
func (c CallerIdentity) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Resolution failure kinds. ErrAuthorityUnreachable means the remote authority
// could not be reached at all, as opposed to the authority rejecting the token.
var (
	ErrMalformed            = errors.New("identity: malformed token")
	ErrExpired              = errors.New("identity: token expired")
	ErrMissingSubject       = errors.New("identity: token has no subject")
	ErrAuthorityUnreachable = errors.New("identity: auth authority unreachable")
)

// Resolver turns a raw bearer token (already stripped of the "Bearer " prefix)
// into a CallerIdentity. Implementations make a single verification attempt.
type Resolver interface {
	Resolve(ctx context.Context, token string) (CallerIdentity, error)
}

// rolesClaim is the namespaced claim URI the auth provider uses for roles.
const rolesClaim = "https://babbly.com/roles"
