package user

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a user or SE account does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrNoAffiliation is returned when a student or school account has no
	// matching profile row.
	ErrNoAffiliation = errors.New("account has no affiliation profile")
)

// Role is the stored account type of a purchaser.
type Role string

const (
	RoleStudent Role = "student"
	RoleSchool  Role = "school"
	RoleSE      Role = "se"
)

// Valid reports whether the role is one of the three known account types.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleSchool, RoleSE:
		return true
	}
	return false
}

// Affiliation ties a purchaser to the school their rewards settle against.
// For a student it is the school they belong to; for a school account it is
// the school itself plus its linked sales executive, if any.
type Affiliation struct {
	Role         Role
	SchoolID     int64
	SEEmployeeID string // empty when no SE is linked
}

// SE is a sales executive account.
type SE struct {
	EmployeeID   string
	Name         string
	Role         string // "Calling SE" or "Field SE"
	RedeemPoints int64
}

// Repository defines read operations for accounts and their affiliations.
type Repository interface {
	// RoleByID returns the stored role of the user, or ErrNotFound.
	RoleByID(ctx context.Context, userID int64) (Role, error)
	// Affiliation returns the school linkage for a student or school account.
	// Returns ErrNoAffiliation when the profile row is missing.
	Affiliation(ctx context.Context, userID int64, role Role) (Affiliation, error)
}
