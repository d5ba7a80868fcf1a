package auth

import (
	"strings"
	"time"

	"github.com/MacJediWizard/modlicense/internal/license"
)

// RolePolicy decides which signed-in users are administrators.
type RolePolicy struct {
	// AdminRoleID is the guild role that grants administration. Empty disables role based admins.
	AdminRoleID string
	// RolesMaxAge bounds how long roles captured at login are trusted. Zero trusts them for the whole session.
	RolesMaxAge time.Duration
	adminOwners map[string]struct{}
}

// NewRolePolicy creates a policy from an admin role and explicit admin owner IDs.
func NewRolePolicy(adminRoleID string, adminOwnerIDs []string) RolePolicy {
	p := RolePolicy{
		AdminRoleID: strings.TrimSpace(adminRoleID),
		adminOwners: make(map[string]struct{}, len(adminOwnerIDs)),
	}
	for _, id := range adminOwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			p.adminOwners[id] = struct{}{}
		}
	}
	return p
}

// WithRolesMaxAge returns a copy of the policy that trusts session roles for at most d.
func (p RolePolicy) WithRolesMaxAge(d time.Duration) RolePolicy {
	if d < 0 {
		d = 0
	}
	p.RolesMaxAge = d
	return p
}

// RolesStale reports whether the roles of u were captured too long before now
// to be trusted. Sessions without a login time are stale once a limit is set.
func (p RolePolicy) RolesStale(u *SessionUser, now time.Time) bool {
	if u == nil || p.RolesMaxAge == 0 {
		return false
	}
	if u.AuthenticatedAt.IsZero() {
		return true
	}
	return now.Sub(u.AuthenticatedAt) > p.RolesMaxAge
}

// IsAdmin reports whether the user holds administrator privileges.
func (p RolePolicy) IsAdmin(u *SessionUser) bool {
	if u == nil {
		return false
	}
	if _, ok := p.adminOwners[u.OwnerID]; ok {
		return true
	}
	if p.AdminRoleID == "" {
		return false
	}
	for _, r := range u.Roles {
		if r == p.AdminRoleID {
			return true
		}
	}
	return false
}

// Caller resolves a session user into the identity licensing operations run as.
// A nil user yields an unauthenticated caller.
func (p RolePolicy) Caller(u *SessionUser) license.Caller {
	if u == nil {
		return license.Caller{}
	}
	return license.Caller{
		OwnerID:  u.OwnerID,
		Username: u.Username,
		Roles:    u.Roles,
		IsAdmin:  p.IsAdmin(u),
	}
}
