package rbac

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/campus-erp/internal/docstore"
)

// Role is the closed set of account roles. The zero value is not a valid role and is never
// granted access.
type Role uint8

// Account roles.
const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleStaff
	RoleWarden
	RoleStudent
)

var roleNames = [...]string{
	RoleUnknown: "unknown",
	RoleAdmin:   "admin",
	RoleStaff:   "staff",
	RoleWarden:  "warden",
	RoleStudent: "student",
}

// AllRoles lists every valid role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleStaff, RoleWarden, RoleStudent}
}

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "staff":
		return RoleStaff, nil
	case "warden":
		return RoleWarden, nil
	case "student":
		return RoleStudent, nil
	}
	return RoleUnknown, fmt.Errorf("rbac: unknown role %q", s)
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return roleNames[RoleUnknown]
}

// Valid reports whether r is one of the four account roles.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleStudent
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a set of roles declared by a route.
type RoleSet uint8

// Roles builds a RoleSet.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s |= 1 << r
		}
	}
	return s
}

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r Role) bool {
	return r.Valid() && s&(1<<r) != 0
}

// Slice returns the members in declaration order.
func (s RoleSet) Slice() []Role {
	var out []Role
	for _, r := range AllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	names := make([]string, 0, 4)
	for _, r := range s.Slice() {
		names = append(names, r.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// CanAccess reports whether role is one of the allowed roles. Roles carry no hierarchy.
func CanAccess(role Role, allowed RoleSet) bool {
	return allowed.Contains(role)
}

// Principal describes the authenticated actor for one request.
type Principal struct {
	ID       string
	Role     Role
	Email    string
	Name     string
	IsActive bool
	Record   docstore.Document
}
