package models

// Application roles granted through invite enrollment.
const (
	RoleAcademyAdmin = "ACADEMY_ADMIN"
	RoleCoach        = "COACH"
	RolePlayer       = "PLAYER"
)

// ValidRole reports whether the supplied role belongs to the fixed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleAcademyAdmin, RoleCoach, RolePlayer:
		return true
	default:
		return false
	}
}
