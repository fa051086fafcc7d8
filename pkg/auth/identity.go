package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when an operation requires a signed-in
// principal and none could be resolved.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when the Gate denies an operation.
var ErrForbidden = errors.New("forbidden")

// Principal represents the authenticated user making a request, as resolved
// by the identity provider.
type Principal struct {
	UserID string
	Name   string
	Role   Role
}

// Authenticated reports whether the principal belongs to a signed-in user.
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.Role.Authenticated()
}

// principalCtxKey is an unexported type used as the context key for Principal.
type principalCtxKey struct{}

// WithPrincipal returns a new context with the given Principal attached.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext retrieves the Principal from the context.
// Returns the zero value and false if no principal is set.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// PrincipalExtractor resolves a Principal from an HTTP request. Unresolvable
// requests yield the zero Principal (anonymous).
type PrincipalExtractor func(r *http.Request) Principal

// Header names for trusted-proxy identity. An authenticating proxy in front
// of the server sets these; production deployments should use the JWT
// extractor instead.
const (
	UserIDHeader   = "X-User-Id"
	UserNameHeader = "X-User-Name"
	RoleHeader     = "X-User-Role"
)

// HeaderPrincipalExtractor reads the principal from trusted-proxy headers.
// A missing X-User-Id header yields an anonymous principal regardless of the
// role header, so a stray role header can never mint privileges by itself.
func HeaderPrincipalExtractor(r *http.Request) Principal {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		return Principal{}
	}
	return Principal{
		UserID: userID,
		Name:   strings.TrimSpace(r.Header.Get(UserNameHeader)),
		Role:   ParseRole(r.Header.Get(RoleHeader)),
	}
}

// IdentityMiddleware returns HTTP middleware that resolves the request
// principal with the given extractor and stores it in the request context.
// The extractor defaults to HeaderPrincipalExtractor.
func IdentityMiddleware(extractor PrincipalExtractor) func(http.Handler) http.Handler {
	if extractor == nil {
		extractor = HeaderPrincipalExtractor
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithPrincipal(r.Context(), extractor(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
