// Package user defines the user identity types shared across the gateway.
package user

import "time"

// Key is the opaque stable identifier for a user. Upstream deployments use
// either UUIDs or identity-provider subjects (e.g. "auth0|..."); the gateway
// never parses it, only compares it.
type Key string

// String returns the raw key value.
func (k Key) String() string { return string(k) }

// Identity is the public identity of a user as owned by the user service.
// FollowerKeys and FollowingKeys are only populated when the user service
// chooses to inline them; relationship reads normally go through the dedicated
// followers/following endpoints.
type Identity struct {
	Key             Key       `json:"key"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImageUrl"`
	Bio             string    `json:"bio"`
	CreatedAt       time.Time `json:"createdAt"`
	FollowerKeys    []Key     `json:"followerKeys,omitempty"`
	FollowingKeys   []Key     `json:"followingKeys,omitempty"`
}
