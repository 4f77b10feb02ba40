package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flameberry/PrimePatrol/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the user's email inside Gin context.
	ContextEmailKey = "email"
	// ContextTokenKey stores the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"

	// SessionCookie is accepted in place of an Authorization header.
	SessionCookie = "session_token"
)

// Authorization failures, each mapped to its own response code.
var (
	ErrMissingCredentials = errors.New("authorization header missing")
	ErrMalformedHeader    = errors.New("invalid authorization header format")
	ErrRevokedToken       = errors.New("token revoked")
	ErrInvalidToken       = errors.New("invalid token")
)

// Identity is the caller an Authorizer accepted.
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// Authorizer decides whether a gateway request may pass.
type Authorizer interface {
	Authorize(ctx context.Context, r *http.Request) (*Identity, error)
}

// AllowAll lets every request through anonymously.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, *http.Request) (*Identity, error) {
	return &Identity{}, nil
}

// JWTAuthorizer accepts tokens signed by the user service that have not been revoked.
type JWTAuthorizer struct {
	secret    []byte
	blacklist *utils.TokenBlacklist
}

func NewJWTAuthorizer(secret string, blacklist *utils.TokenBlacklist) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret), blacklist: blacklist}
}

func (a *JWTAuthorizer) Authorize(ctx context.Context, r *http.Request) (*Identity, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	if a.blacklist != nil && a.blacklist.IsRevoked(ctx, token) {
		return nil, ErrRevokedToken
	}
	claims, err := utils.ParseToken(a.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.UserID, Email: claims.Email, Token: token}, nil
}

// BearerToken extracts the token from the Authorization header or the session cookie.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if c, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
			return strings.TrimSpace(c.Value), nil
		}
		return "", ErrMissingCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// Authorize guards every path except the public prefixes, /health and /metrics.
func Authorize(authz Authorizer, publicPrefixes []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if isPublic(ctx.Request.URL.Path, publicPrefixes) || ctx.Request.Method == http.MethodOptions {
			ctx.Next()
			return
		}

		id, err := authz.Authorize(ctx.Request.Context(), ctx.Request)
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingCredentials):
				utils.Error(ctx, http.StatusUnauthorized, 40101, err.Error())
			case errors.Is(err, ErrMalformedHeader):
				utils.Error(ctx, http.StatusUnauthorized, 40102, err.Error())
			case errors.Is(err, ErrRevokedToken):
				utils.Error(ctx, http.StatusUnauthorized, 40104, err.Error())
			default:
				utils.Error(ctx, http.StatusUnauthorized, 40105, ErrInvalidToken.Error())
			}
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, id.UserID)
		ctx.Set(ContextEmailKey, id.Email)
		ctx.Set(ContextTokenKey, id.Token)
		ctx.Next()
	}
}

func isPublic(path string, prefixes []string) bool {
	if path == "/health" || path == "/metrics" {
		return true
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
