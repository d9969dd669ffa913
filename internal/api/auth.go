package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Principal is the authenticated caller. UserID is the identity provider
// subject.
type Principal struct {
	UserID uuid.UUID
	Admin  bool
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret    []byte
	issuer    string
	adminRole string
}

func NewAuthenticator(secret, issuer, adminRole string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, adminRole: adminRole}
}

// Parse validates the token and returns its principal.
func (a *Authenticator) Parse(token string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var c claims

	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a uuid", ErrNotAuthenticated)
	}

	return Principal{UserID: id, Admin: a.adminRole != "" && c.Role == a.adminRole}, nil
}

// Sign issues a token for the principal. Used by tooling and tests.
func (a *Authenticator) Sign(p Principal, rc jwt.RegisteredClaims) (string, error) {
	rc.Subject = p.UserID.String()
	if rc.Issuer == "" {
		rc.Issuer = a.issuer
	}

	c := claims{RegisteredClaims: rc}
	if p.Admin {
		c.Role = a.adminRole
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// bearerToken reads `Authorization: Bearer <token>`, falling back to the
// access_token query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		tok := r.URL.Query().Get("access_token")
		return tok, tok != ""
	}

	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", false
	}

	return strings.TrimSpace(tok), true
}

// RequireUser rejects requests without a valid token.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeNotAuthenticated, "bearer token required")
			return
		}

		p, err := a.Parse(tok)
		if err != nil {
			logging.From(r.Context()).Debug("token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, CodeNotAuthenticated, "invalid or expired token")

			return
		}

		if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
			info.userID = p.UserID
		}

		ctx := withPrincipal(r.Context(), p)
		ctx = logging.With(ctx, "user_id", p.UserID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, CodeNotAuthenticated, "bearer token required")
			return
		}

		if !p.Admin {
			writeError(w, http.StatusForbidden, CodeForbidden, "operator role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
