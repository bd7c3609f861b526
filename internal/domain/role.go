package domain

// Role represents a user's permission level in the forum.
type Role string

const (
	// RoleUser is the default role for new profiles.
	RoleUser Role = "user"
	// RoleModerator can delete, lock and pin any topic and resolve reports.
	RoleModerator Role = "moderator"
	// RoleAdmin has moderator rights and can assign roles.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate returns true for moderators and admins.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// CanDelete is the single deletion rule: authors delete their own content,
// moderators and admins delete anything.
func CanDelete(callerID string, role Role, authorID string) bool {
	return callerID == authorID || role.CanModerate()
}
