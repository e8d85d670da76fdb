package common

import (
	"context"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/application"
)

type contextKey string

const authUserContextKey contextKey = "authUser"

// AuthenticatedUser represents the JWT-derived principal.
type AuthenticatedUser struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	CompanyID string `json:"companyId,omitempty"`
}

// Principal converts the user into the identity the application layer authorizes against.
// Unknown roles fall back to client.
func (u AuthenticatedUser) Principal() application.Principal {
	role, ok := application.ParseRole(u.Role)
	if !ok {
		role = application.RoleClient
	}
	return application.Principal{ID: u.ID, Role: role}
}

// ContextWithUser stores the authenticated user into context.
func ContextWithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(authUserContextKey).(AuthenticatedUser)
	return user, ok
}
