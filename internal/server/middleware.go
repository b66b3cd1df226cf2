package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/ridepay/internal/auth/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	obscontext "github.com/smallbiznis/ridepay/internal/observability/context"
)

// UserRequired resolves the bearer session into a rider through the
// accounts service.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, ok := s.sessions.ReadBearer(c)
		if !ok {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), sid)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		s.sessions.SetUser(c, sid, user)
		ctx := obscontext.WithActor(c.Request.Context(), "user", user.UserID)
		ctx = obscontext.WithUserID(ctx, user.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// InternalRequired verifies the service token issued to collaborating
// backends.
func (s *Server) InternalRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadInternal(c)
		if !ok {
			AbortWithError(c, authdomain.ErrInvalidInternalToken)
			return
		}

		internal, err := s.authsvc.VerifyInternal(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		s.sessions.SetInternal(c, internal)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "internal", internal.Issuer))
		c.Next()
	}
}

// InternalUser loads the :userId path user for internal routes.
func (s *Server) InternalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.Param("userId"))
		if userID == "" {
			AbortWithError(c, ErrCannotFindUser)
			return
		}

		user, err := s.accounts.GetUser(c.Request.Context(), userID)
		if err != nil {
			var upstream *coreservicedomain.UpstreamError
			if errors.As(err, &upstream) && upstream.IsNotFound() {
				err = ErrCannotFindUser
			}
			AbortWithError(c, err)
			return
		}

		s.sessions.SetUser(c, "", user)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), user.UserID))
		c.Next()
	}
}

// currentUser returns the rider the request acts on.
func (s *Server) currentUser(c *gin.Context) (coreservicedomain.User, bool) {
	user, ok := s.sessions.User(c)
	if !ok || strings.TrimSpace(user.UserID) == "" {
		return coreservicedomain.User{}, false
	}
	return user, true
}
