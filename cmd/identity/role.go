package identity

import "strings"

// Role is taskboard's closed role enumeration. There are exactly two tiers;
// anything else is rejected at the boundary and never reaches persistence.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ParseRole canonicalizes a raw role string. Returns false for anything
// outside the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleMember:
		return RoleMember, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the two fixed tiers.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

func (r Role) String() string { return string(r) }
