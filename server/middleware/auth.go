package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarlive/errors"
)

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	// TokenValidator validates a token and returns its claims.
	TokenValidator func(token string) (map[string]any, error)
	// SkipPaths are path prefixes that need no token.
	SkipPaths []string
}

// Auth rejects requests without a valid bearer token. Validated claims are
// stored on the gin context under their claim names.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization bearer token required")
			return
		}
		claims, err := cfg.TokenValidator(token)
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}
		for k, v := range claims {
			c.Set(k, v)
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter because EventSource cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if t := c.Query("access_token"); t != "" {
		return t, true
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, reason string) {
	appErr := errors.Unauthorized(reason)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
