// Package auth reads the caller identity from an already-issued bearer
// token. Issuing tokens and managing credentials happen elsewhere.
package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Skufu/SymptomDx/internal/model"
)

const identityKey = "identity"

type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity is the authenticated caller.
type Identity struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// DevIdentity is used for anonymous requests in development mode.
var DevIdentity = Identity{Subject: "dev-user", Name: "Developer", Email: "dev@localhost", Role: model.RoleAdmin}

type Config struct {
	// SigningKey verifies HS256 tokens.
	SigningKey []byte
	Issuer     string
	// Dev treats anonymous requests as DevIdentity.
	Dev bool
}

// Middleware stores the caller identity in the gin context. A request
// without an Authorization header continues anonymously; a malformed or
// invalid token is rejected with 401.
func Middleware(cfg Config) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cfg.Dev {
				c.Set(identityKey, DevIdentity)
			}
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid authorization format")
			return
		}
		if len(cfg.SigningKey) == 0 {
			abort(c, http.StatusUnauthorized, "unauthorized", "token verification is not configured")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (interface{}, error) {
			return cfg.SigningKey, nil
		}, opts...)
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		c.Set(identityKey, Identity{
			Subject: claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
			Role:    strings.ToLower(claims.Role),
		})
		c.Next()
	}
}

// RequireRole rejects anonymous callers with 401 and callers whose role is
// not listed with 403.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !slices.Contains(roles, id.Role) {
			abort(c, http.StatusForbidden, "forbidden", "role "+id.Role+" may not access this resource")
			return
		}
		c.Next()
	}
}

// FromContext returns the identity set by Middleware.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Sign issues an HS256 token for claims. Used by the CLI and tests.
func Sign(claims Claims, key []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}
