// Package identity models the authenticated caller handed to the core by the
// upstream auth layer. The core never sees credentials, only a (user id, role)
// pair, and every operation gates itself with an explicit Authorize call.
package identity

import "strings"

// Role classifies what a caller is allowed to do
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleAuditor  Role = "auditor"
)

// ParseRole maps a wire-level role string to a known Role
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(s)) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleAuditor:
		return RoleAuditor, true
	}
	return "", false
}

// Identity is the authenticated caller presented by the upstream auth layer
type Identity struct {
	UserID string
	Role   Role
}

// ErrNotAuthorized indicates the caller's role is outside the allowed set
type ErrNotAuthorized struct {
	Role     Role
	Required []Role
}

func (e ErrNotAuthorized) Error() string {
	required := make([]string, len(e.Required))
	for i, r := range e.Required {
		required[i] = string(r)
	}
	return "access denied for role " + string(e.Role) + ", required: " + strings.Join(required, ", ")
}

// Authorize checks the identity's role against the allowed set.
// Returns ErrNotAuthorized when the role is not in the set.
func Authorize(id Identity, allowed ...Role) error {
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return ErrNotAuthorized{Role: id.Role, Required: allowed}
}

// Is lets callers match ErrNotAuthorized without the role detail
func (e ErrNotAuthorized) Is(target error) bool {
	_, ok := target.(ErrNotAuthorized)
	return ok
}
