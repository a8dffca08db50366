// Package auth turns the Authorization header of a request into a verified user identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthorized is the root of every authentication failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingToken is returned when no Authorization header is present.
	ErrMissingToken = fmt.Errorf("%w: no authorization token found", ErrUnauthorized)

	// ErrMalformedHeader is returned when the header is not "Bearer <token>".
	ErrMalformedHeader = fmt.Errorf("%w: malformed authorization header", ErrUnauthorized)

	// ErrInvalidToken is returned when the token fails verification.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrUnauthorized)
)

var hmacMethods = []string{"HS256", "HS384", "HS512"}

var jwksMethods = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512", "EdDSA"}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Header names are matched case-insensitively, as API Gateway may lowercase them.
func BearerToken(headers map[string]string) (string, error) {
	authHeader := ""
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			authHeader = strings.TrimSpace(v)
			break
		}
	}
	if authHeader == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedHeader
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// Verifier checks token signatures and expiry before trusting the subject claim.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// Option customizes claim validation.
type Option func(*options)

type options struct {
	issuer   string
	audience string
}

// WithIssuer requires the "iss" claim to equal issuer. Empty disables the check.
func WithIssuer(issuer string) Option {
	return func(o *options) { o.issuer = issuer }
}

// WithAudience requires the "aud" claim to contain audience. Empty disables the check.
func WithAudience(audience string) Option {
	return func(o *options) { o.audience = audience }
}

// NewVerifier returns a Verifier using kf to select keys and accepting only methods.
func NewVerifier(kf jwt.Keyfunc, methods []string, opts ...Option) *Verifier {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}
	if o.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(o.audience))
	}

	return &Verifier{keyfunc: kf, parser: jwt.NewParser(parserOpts...)}
}

// NewHMACVerifier verifies tokens signed with a shared secret.
func NewHMACVerifier(secret string, opts ...Option) *Verifier {
	key := []byte(secret)
	return NewVerifier(func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, hmacMethods, opts...)
}

// NewJWKSVerifier verifies tokens against the identity provider's published key set.
// The key set is refreshed in the background for the lifetime of ctx.
func NewJWKSVerifier(ctx context.Context, jwksURL string, opts ...Option) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}
	return NewVerifier(k.Keyfunc, jwksMethods, opts...), nil
}

// NewStaticJWKSVerifier verifies tokens against a fixed JWK Set document.
func NewStaticJWKSVerifier(jwks []byte, opts ...Option) (*Verifier, error) {
	k, err := keyfunc.NewJWKSetJSON(jwks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return NewVerifier(k.Keyfunc, jwksMethods, opts...), nil
}

// UserID verifies token and returns its subject.
func (v *Verifier) UserID(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyfunc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	return claims.Subject, nil
}
