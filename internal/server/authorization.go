package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := s.actorSubject(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), subject, strings.TrimSpace(object), strings.TrimSpace(action)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// actorSubject names the caller for policy checks. An internal token wins
// over the path user it acts on.
func (s *Server) actorSubject(c *gin.Context) (string, bool) {
	if internal, ok := s.sessions.Internal(c); ok {
		issuer := strings.TrimSpace(internal.Issuer)
		if issuer == "" {
			return "", false
		}
		return "internal:" + issuer, true
	}
	if user, ok := s.sessions.User(c); ok && strings.TrimSpace(user.UserID) != "" {
		return "user:" + user.UserID, true
	}
	return "", false
}
