package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/babbly/api-gateway/internal/domain/user"
	"github.com/babbly/api-gateway/pkg/logger"
)

// tokenClaims maps the provider's claim names onto canonical fields.
type tokenClaims struct {
	Roles []string `json:"https://babbly.com/roles"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	jwt.RegisteredClaims
}

// LocalResolver decodes tokens in-process. When an HMAC secret is configured
// the signature is verified; otherwise the token is decoded without signature
// verification and only well-formedness, expiry and subject are checked, which
// matches deployments where signature verification happens at the edge proxy.
type LocalResolver struct {
	secret    []byte
	audience  string
	clockSkew time.Duration
	log       *logger.Logger
}

// LocalOption configures a LocalResolver.
type LocalOption func(*LocalResolver)

// WithHMACSecret enables signature verification with the given secret.
func WithHMACSecret(secret string) LocalOption {
	return func(r *LocalResolver) { r.secret = []byte(secret) }
}

// WithAudience requires tokens to carry the given audience.
func WithAudience(aud string) LocalOption {
	return func(r *LocalResolver) { r.audience = aud }
}

// WithClockSkew sets the expiry tolerance. Default is five minutes.
func WithClockSkew(skew time.Duration) LocalOption {
	return func(r *LocalResolver) { r.clockSkew = skew }
}

// NewLocalResolver constructs a local token resolver.
func NewLocalResolver(log *logger.Logger, opts ...LocalOption) *LocalResolver {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	r := &LocalResolver{clockSkew: 5 * time.Minute, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve decodes and validates the token, returning the caller identity.
func (r *LocalResolver) Resolve(_ context.Context, token string) (CallerIdentity, error) {
	claims := &tokenClaims{}

	parserOpts := []jwt.ParserOption{jwt.WithLeeway(r.clockSkew)}
	if r.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(r.audience))
	}

	var err error
	if len(r.secret) > 0 {
		_, err = jwt.ParseWithClaims(token, claims, r.keyFunc, parserOpts...)
	} else {
		err = r.parseUnverified(token, claims)
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, ErrExpired) {
			return CallerIdentity{}, ErrExpired
		}
		return CallerIdentity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" {
		return CallerIdentity{}, ErrMissingSubject
	}

	return CallerIdentity{
		Subject: user.Key(claims.Subject),
		Roles:   claims.Roles,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

func (r *LocalResolver) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return r.secret, nil
}

// parseUnverified decodes the token without checking its signature and applies
// the expiry check manually, with the configured skew tolerance.
func (r *LocalResolver) parseUnverified(token string, claims *tokenClaims) error {
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return err
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time.Add(r.clockSkew)) {
		return ErrExpired
	}
	return nil
}
