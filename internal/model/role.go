package model

// Role is who the current visitor is acting as
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
)

// Authenticated reports whether the role belongs to a signed-in user
func (r Role) Authenticated() bool {
	return r == RoleMember || r == RoleAdmin
}

// ParseRole converts a stored role string, rejecting anything but member and admin
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember:
		return RoleMember, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return RoleAnonymous, false
	}
}
