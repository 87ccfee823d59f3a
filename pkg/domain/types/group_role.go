package types

import "fmt"

// GroupRole is the role of the current user inside a group
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleLeader GroupRole = "leader"
	GroupRoleMember GroupRole = "member"
)

// AllGroupRoles returns all valid group roles
func AllGroupRoles() []GroupRole {
	return []GroupRole{
		GroupRoleOwner,
		GroupRoleLeader,
		GroupRoleMember,
	}
}

// IsValid checks if the group role is valid
func (r GroupRole) IsValid() bool {
	switch r {
	case GroupRoleOwner,
		GroupRoleLeader,
		GroupRoleMember:
		return true
	default:
		return false
	}
}

// IsOwner reports whether r is the owner role
func (r GroupRole) IsOwner() bool {
	return r == GroupRoleOwner
}

// String returns the string representation of the group role
func (r GroupRole) String() string {
	return string(r)
}

// ParseGroupRole parses a string into a GroupRole
func ParseGroupRole(s string) (GroupRole, error) {
	role := GroupRole(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid group role: %s", s)
	}
	return role, nil
}
