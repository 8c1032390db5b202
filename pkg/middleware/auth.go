package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fkhayef/feeledger/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey ContextKey = "principal"
)

// Principal is the authenticated caller and the single school it may act on
type Principal struct {
	UserID     string
	SchoolID   int64
	SchoolCode string
	Role       string
}

// Claims are the JWT claims the service understands
type Claims struct {
	SchoolID   int64  `json:"school_id"`
	SchoolCode string `json:"school_code"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var (
	errMissingSchool     = errors.New("token carries no school scope")
	errInvalidSchoolCode = errors.New("school code may only contain letters and digits")

	// School codes prefix receipt numbers, so they are restricted to letters and digits.
	schoolCodePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Authenticator validates HS256 bearer tokens
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for tokens signed with secret
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware rejects requests without a valid bearer token and stores the principal
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		principal, err := a.Parse(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Parse validates a token and extracts the principal
func (a *Authenticator) Parse(tokenString string) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.SchoolID <= 0 || claims.SchoolCode == "" {
		return Principal{}, errMissingSchool
	}
	if !schoolCodePattern.MatchString(claims.SchoolCode) {
		return Principal{}, errInvalidSchoolCode
	}

	return Principal{
		UserID:     claims.Subject,
		SchoolID:   claims.SchoolID,
		SchoolCode: strings.ToUpper(claims.SchoolCode),
		Role:       claims.Role,
	}, nil
}

// Issue signs a token for principal valid for ttl
func (a *Authenticator) Issue(principal Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SchoolID:   principal.SchoolID,
		SchoolCode: principal.SchoolCode,
		Role:       principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// DevSchoolMiddleware allows setting the school via X-School-ID / X-School-Code headers (DEV ONLY)
// This makes it easy to exercise several schools without issuing tokens
func DevSchoolMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := Principal{UserID: "dev", SchoolID: 1, SchoolCode: "DEV", Role: "admin"}

		if idStr := r.Header.Get("X-School-ID"); idStr != "" {
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil && id > 0 {
				principal.SchoolID = id
			}
		}
		if code := strings.TrimSpace(r.Header.Get("X-School-Code")); code != "" {
			if !schoolCodePattern.MatchString(code) {
				response.BadRequest(w, "X-School-Code may only contain letters and digits")
				return
			}
			principal.SchoolCode = strings.ToUpper(code)
		}
		if user := r.Header.Get("X-User-ID"); user != "" {
			principal.UserID = user
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// WithPrincipal stores principal in ctx
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// GetPrincipal extracts the principal from the request context
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(Principal)
	return principal, ok
}
