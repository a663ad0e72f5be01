package users

import (
	"github.com/google/uuid"
)

// Role is the role claim carried by access tokens
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleOrganizer    Role = "organizer"
	RoleVenueManager Role = "venue_manager"
	RoleAdmin        Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleCustomer, RoleOrganizer, RoleVenueManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor is the authenticated caller on whose behalf an operation runs
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
