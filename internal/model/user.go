package model

import (
	"fmt"
	"slices"
	"time"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Roles.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleWarehouse  = "warehouse"
	RoleManager    = "manager"
	RoleBorrower   = "borrower"
)

// Roles lists every valid role.
var Roles = []string{RoleSuperAdmin, RoleAdmin, RoleWarehouse, RoleManager, RoleBorrower}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// RoleAllowed checks role against an allow-list. Superadmin passes every
// check; unknown roles never pass.
func RoleAllowed(role string, allowed ...string) bool {
	if !ValidRole(role) {
		return false
	}
	if role == RoleSuperAdmin {
		return true
	}
	return slices.Contains(allowed, role)
}

// SeesOwnLoansOnly reports whether loan listings for role are limited to the
// caller's own requests.
func SeesOwnLoansOnly(role string) bool {
	return role == RoleBorrower
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
