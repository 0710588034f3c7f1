package domain

// Role is a portal role as carried in the user profile.
type Role string

// Standard Roles
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// HasRole reports whether roles contains any of want.
func HasRole(roles []Role, want ...Role) bool {
	for _, r := range roles {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
