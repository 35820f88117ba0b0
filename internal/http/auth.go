package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gestor/internal/clock"
	"gestor/internal/log"
	"gestor/internal/stats"
)

type ownerKey struct{}

// Authenticator validates HS256 bearer tokens. The subject claim is the
// owner every report is scoped to.
type Authenticator struct {
	secret []byte
	clock  clock.Clock
	logger *log.Logger
}

func NewAuthenticator(secret string, c clock.Clock, logger *log.Logger) *Authenticator {
	if c == nil {
		c = clock.NewReal()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Authenticator{secret: []byte(secret), clock: c, logger: logger.WithComponent(log.ComponentAuth)}
}

// IssueToken signs a token for owner valid for ttl.
func (a *Authenticator) IssueToken(owner string, ttl time.Duration) (string, error) {
	now := a.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Owner validates tokenString and returns its subject.
func (a *Authenticator) Owner(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token without subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// owner in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			a.logger.DebugContext(r.Context(), "Missing bearer token", log.FieldPath, r.URL.Path)
			ErrorResponse(stats.Unauthenticated("missing bearer token")).Write(w)
			return
		}
		owner, err := a.Owner(raw)
		if err != nil {
			a.logger.WarnContext(r.Context(), "Rejected bearer token", log.FieldError, err, log.FieldPath, r.URL.Path)
			ErrorResponse(stats.Unauthenticated("invalid or expired token")).Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

// OwnerFromContext returns the authenticated owner, empty when absent.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
