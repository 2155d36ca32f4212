// Copyright (c) 2026 Tikra. All rights reserved.

package sec

// UserRole defines the authorization level of an account.
type UserRole string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser UserRole = "user"

	// RoleAdmin may access the explicit admin routes and bypass the
	// ownership check there.
	RoleAdmin UserRole = "admin"
)

// roleRank orders roles for privilege comparison.
var roleRank = map[UserRole]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// AtLeast reports whether the role meets or exceeds the target role.
func (role UserRole) AtLeast(target UserRole) bool {
	return roleRank[role] >= roleRank[target]
}

// Valid reports whether the role is a known role.
func (role UserRole) Valid() bool {
	_, ok := roleRank[role]
	return ok
}
