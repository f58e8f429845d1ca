package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller as seen by the services. It is built once
// per request from verified token claims and trusted from then on.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
	Name   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

func (a Actor) IsCustomer() bool {
	return a.Role == enums.UserRoleCustomer
}

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID uuid.UUID) bool {
	return a.UserID != uuid.Nil && a.UserID == userID
}

// ActorFromClaims maps verified claims to an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, Name: claims.Name}
}
