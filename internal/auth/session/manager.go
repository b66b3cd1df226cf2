package session

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/ridepay/internal/auth/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

const (
	contextSessionKey  = "auth.session_id"
	contextUserKey     = "auth.user"
	contextInternalKey = "auth.internal"

	queryTokenName = "token"
)

// Manager reads credentials from requests and carries the resolved
// principal on the gin context.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ReadBearer returns the Authorization bearer credential.
func (m *Manager) ReadBearer(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// ReadInternal accepts the bearer header or a ?token= query parameter.
func (m *Manager) ReadInternal(c *gin.Context) (string, bool) {
	if token, ok := m.ReadBearer(c); ok {
		return token, true
	}
	token := strings.TrimSpace(c.Query(queryTokenName))
	return token, token != ""
}

func (m *Manager) SetUser(c *gin.Context, sessionID string, user coreservicedomain.User) {
	c.Set(contextSessionKey, sessionID)
	c.Set(contextUserKey, user)
}

func (m *Manager) User(c *gin.Context) (coreservicedomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return coreservicedomain.User{}, false
	}
	user, ok := value.(coreservicedomain.User)
	return user, ok
}

func (m *Manager) SessionID(c *gin.Context) string {
	return c.GetString(contextSessionKey)
}

func (m *Manager) SetInternal(c *gin.Context, internal authdomain.Internal) {
	c.Set(contextInternalKey, internal)
}

func (m *Manager) Internal(c *gin.Context) (authdomain.Internal, bool) {
	value, ok := c.Get(contextInternalKey)
	if !ok {
		return authdomain.Internal{}, false
	}
	internal, ok := value.(authdomain.Internal)
	return internal, ok
}
