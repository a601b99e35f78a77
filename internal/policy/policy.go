// Package policy maps a caller's role to the lifecycle operations it may
// invoke. Checks are independent of record content and fail closed: an
// unknown or empty role denies every operation.
package policy

type Role string

const (
	RoleApplicant Role = "Applicant"
	RoleExpert    Role = "Expert"
	RoleExecutive Role = "Executive"
)

// IsValidRole reports whether the string is one of the known roles.
func IsValidRole(r Role) bool {
	switch r {
	case RoleApplicant, RoleExpert, RoleExecutive:
		return true
	}
	return false
}

func CanTransitionStatus(r Role) bool {
	return r == RoleExecutive
}

func CanAssignExpert(r Role) bool {
	return r == RoleExecutive
}

func CanManageExperts(r Role) bool {
	return r == RoleExecutive
}

func CanDeleteApplication(r Role) bool {
	return r == RoleExecutive
}

// CanAddNote is true for any authenticated role.
func CanAddNote(r Role) bool {
	return IsValidRole(r)
}

// CanViewApplication decides read access to a single application.
// Executives see everything; an expert sees only applications assigned to
// them; an applicant sees only their own. ownerID and assignedExpertID are
// nil for anonymous submissions and unassigned applications respectively.
func CanViewApplication(r Role, callerID int64, ownerID, assignedExpertID *int64) bool {
	switch r {
	case RoleExecutive:
		return true
	case RoleExpert:
		return assignedExpertID != nil && *assignedExpertID == callerID
	case RoleApplicant:
		return ownerID != nil && *ownerID == callerID
	}
	return false
}
