package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/insafmmkurram-create/web/registry"
)

// =============================================================================
// TOKENS
// =============================================================================

var errInvalidToken = errors.New("invalid token")

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

type sessionClaims struct {
	Email string        `json:"email"`
	Role  registry.Role `json:"role"`
	jwt.RegisteredClaims
}

func (ti *TokenIssuer) now() time.Time {
	if ti.Now == nil {
		return time.Now()
	}
	return ti.Now()
}

// Issue returns a signed token for actor and its expiry.
func (ti *TokenIssuer) Issue(actor registry.Actor) (string, time.Time, error) {
	now := ti.now()
	expires := now.Add(ti.TTL)
	claims := sessionClaims{
		Email: actor.Email,
		Role:  actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Verify parses a token and returns the actor it was issued to.
func (ti *TokenIssuer) Verify(token string) (registry.Actor, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return ti.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return registry.Actor{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	return registry.Actor{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// =============================================================================
// REQUEST CONTEXT
// =============================================================================

type actorKey struct{}

// WithActor returns a context carrying the authenticated actor.
func WithActor(ctx context.Context, actor registry.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(ctx context.Context) (registry.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(registry.Actor)
	return actor, ok
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// Authenticate requires a valid "Authorization: Bearer <token>" header
// naming an account that still exists. Role and email come from the store.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		claimed, err := h.Tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		// The account is re-read so deletes and role changes apply before the token expires.
		acc, err := h.Accounts.Store.GetAccount(r.Context(), claimed.ID)
		if registry.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), acc.Actor())))
	})
}

// RequireRole rejects actors whose role is not listed.
func RequireRole(roles ...registry.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok || !slices.Contains(roles, actor.Role) {
				writeError(w, http.StatusForbidden, "Forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
