package license

// Caller is the identity an operation runs as, resolved from a session.
type Caller struct {
	OwnerID  string
	Username string
	Roles    []string
	IsAdmin  bool
}

// HasRole reports whether the caller holds the given Discord role.
func (c Caller) HasRole(roleID string) bool {
	for _, r := range c.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

func requireSession(c Caller) error {
	if c.OwnerID == "" {
		return newError(KindUnauthenticated, "a valid session is required")
	}
	return nil
}

func requireAdmin(c Caller) error {
	if err := requireSession(c); err != nil {
		return err
	}
	if !c.IsAdmin {
		return newError(KindForbidden, "administrator privileges required")
	}
	return nil
}
