package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/session/model"
)

const sessionKey = "session"

// SessionResolver turns a bearer token into a session; (nil, nil) = signed out.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*model.Session, error)
}

// OptionalAuth attaches the caller's session when a valid bearer token is
// present and lets anonymous requests through.
func OptionalAuth(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token != "" {
			sess, err := sessions.Current(c.Request.Context(), token)
			if err != nil {
				log.Warn().Err(err).Str("request_id", c.GetString("request_id")).Msg("session lookup failed")
			}
			if sess != nil {
				c.Set(sessionKey, sess)
			}
		}
		c.Next()
	}
}

// CurrentSession returns the session attached by OptionalAuth, or nil.
func CurrentSession(c *gin.Context) *model.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*model.Session)
	return sess
}

// SessionCookie carries the token for browser page loads.
const SessionCookie = "catalog_session"

// BearerToken extracts the token from "Authorization: Bearer <token>". It
// falls back to the session cookie, then to the access_token query
// parameter, which EventSource clients use since they can't set headers.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("access_token")
}
