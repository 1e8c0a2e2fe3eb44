// Package scope resolves an authenticated caller to the slice of the
// catalog and ledger they may touch. Parish is the tenancy boundary;
// the admin role widens it to every parish.
package scope

import (
	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/models"
)

// RoomAdmin is the notification scope every admin dashboard subscribes to.
// Parish rooms are named by the parish itself.
const RoomAdmin = "admin"

// Scope is the resolved visibility of one caller for the duration of one
// request. Repositories filter by it; they never trust raw handler input.
type Scope struct {
	UserID uuid.UUID
	Role   models.Role
	Parish string
}

func (s Scope) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// CanAccessParish reports whether data belonging to parish is visible to
// this caller.
func (s Scope) CanAccessParish(parish string) bool {
	return s.IsAdmin() || (s.Parish != "" && s.Parish == parish)
}

// CanJoinRoom gates live-update subscriptions: admins may join any room
// including "admin"; inspectors only their own parish room.
func (s Scope) CanJoinRoom(room string) bool {
	if s.IsAdmin() {
		return true
	}
	return room != RoomAdmin && s.CanAccessParish(room)
}
