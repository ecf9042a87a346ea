package httpkit

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller resolved by AuthRequired.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the caller carries role.
func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// ActorID is the audit label of the caller, empty for anonymous requests.
func (i Identity) ActorID() string {
	if i.UserID == uuid.Nil {
		return ""
	}
	return i.UserID.String()
}

// GetIdentity reads the caller stored by AuthRequired. ok is false on routes
// that are not behind authentication.
func GetIdentity(c *gin.Context) (Identity, bool) {
	raw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return Identity{}, false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}
	id := Identity{UserID: userID}
	if roles, exists := c.Get(ContextRolesKey); exists {
		id.Roles, _ = roles.([]string)
	}
	return id, true
}
