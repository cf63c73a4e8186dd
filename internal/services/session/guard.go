package session

import (
	"context"

	"github.com/rumbify/rumbify/internal/model"
)

// Classification says who may see a route
type Classification int

const (
	// Public routes are always reachable
	Public Classification = iota
	// Login routes are for visitors who are not signed in
	Login
	// MemberOnly routes need a signed-in member
	MemberOnly
	// AdminOnly routes need a signed-in administrator
	AdminOnly
	// AuthenticatedOnly routes need any signed-in user
	AuthenticatedOnly
)

func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case Login:
		return "login"
	case MemberOnly:
		return "member-only"
	case AdminOnly:
		return "admin-only"
	case AuthenticatedOnly:
		return "authenticated-only"
	default:
		return "unknown"
	}
}

// Guard is the role state of one request
type Guard struct {
	manager *Manager
	token   string
	role    model.Role
	user    *model.User

	// set when the token named no usable slot, as opposed to a slot that
	// could not be read
	discarded bool
}

// Anonymous returns a guard with no user
func Anonymous() *Guard {
	return &Guard{}
}

// IsAuthenticated reports whether a session record is loaded
func (g *Guard) IsAuthenticated() bool {
	return g != nil && g.user != nil
}

// IsAdmin reports whether the loaded user is an administrator
func (g *Guard) IsAdmin() bool {
	return g.IsAuthenticated() && g.user.IsAdmin
}

// IsMember reports whether the loaded user is a member
func (g *Guard) IsMember() bool {
	return g.IsAuthenticated() && !g.user.IsAdmin
}

// Role returns the current role
func (g *Guard) Role() model.Role {
	if !g.IsAuthenticated() {
		return model.RoleAnonymous
	}
	return g.role
}

// User returns the loaded user, or nil
func (g *Guard) User() *model.User {
	if !g.IsAuthenticated() {
		return nil
	}
	return g.user
}

// Discarded reports whether the presented token is known to be dead: its slot
// is missing or was malformed and deleted. A slot that could not be read
// because storage failed is not discarded.
func (g *Guard) Discarded() bool {
	return g != nil && g.discarded
}

// Token returns the session token, empty when anonymous
func (g *Guard) Token() string {
	if g == nil {
		return ""
	}
	return g.token
}

// CanAccess reports whether a route of the given classification is allowed
func (g *Guard) CanAccess(class Classification) bool {
	switch class {
	case Public:
		return true
	case Login:
		return !g.IsAuthenticated()
	case AdminOnly:
		return g.IsAdmin()
	case MemberOnly:
		return g.IsMember()
	default:
		return g.IsAuthenticated()
	}
}

// Clear deletes the persisted slot and forgets the user
func (g *Guard) Clear(ctx context.Context) error {
	if g == nil {
		return nil
	}
	var err error
	if g.manager != nil && g.token != "" {
		err = g.manager.End(ctx, g.token)
	}
	g.token = ""
	g.role = model.RoleAnonymous
	g.user = nil
	return err
}
