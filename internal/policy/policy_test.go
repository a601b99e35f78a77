package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutiveOnlyOperations(t *testing.T) {
	tests := []struct {
		name  string
		check func(Role) bool
	}{
		{"transition status", CanTransitionStatus},
		{"assign expert", CanAssignExpert},
		{"manage experts", CanManageExperts},
		{"delete application", CanDeleteApplication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(RoleExecutive))
			assert.False(t, tt.check(RoleExpert))
			assert.False(t, tt.check(RoleApplicant))
			assert.False(t, tt.check(Role("")))
			assert.False(t, tt.check(Role("Admin")))
		})
	}
}

func TestCanAddNote(t *testing.T) {
	assert.True(t, CanAddNote(RoleApplicant))
	assert.True(t, CanAddNote(RoleExpert))
	assert.True(t, CanAddNote(RoleExecutive))

	// fail closed for unknown or missing roles
	assert.False(t, CanAddNote(Role("")))
	assert.False(t, CanAddNote(Role("Guest")))
}

func TestCanViewApplication(t *testing.T) {
	owner := int64(10)
	expert := int64(20)

	t.Run("executive sees everything", func(t *testing.T) {
		assert.True(t, CanViewApplication(RoleExecutive, 99, nil, nil))
		assert.True(t, CanViewApplication(RoleExecutive, 99, &owner, &expert))
	})

	t.Run("expert sees only assigned", func(t *testing.T) {
		assert.True(t, CanViewApplication(RoleExpert, expert, &owner, &expert))
		assert.False(t, CanViewApplication(RoleExpert, 21, &owner, &expert))
		assert.False(t, CanViewApplication(RoleExpert, expert, &owner, nil))
	})

	t.Run("applicant sees only own", func(t *testing.T) {
		assert.True(t, CanViewApplication(RoleApplicant, owner, &owner, nil))
		assert.False(t, CanViewApplication(RoleApplicant, 11, &owner, nil))
		// anonymous submissions have no owner
		assert.False(t, CanViewApplication(RoleApplicant, owner, nil, nil))
	})

	t.Run("unknown role denied", func(t *testing.T) {
		assert.False(t, CanViewApplication(Role("Moderator"), owner, &owner, &expert))
	})
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleApplicant))
	assert.True(t, IsValidRole(RoleExpert))
	assert.True(t, IsValidRole(RoleExecutive))
	assert.False(t, IsValidRole(Role("applicant"))) // case-sensitive
	assert.False(t, IsValidRole(Role("")))
}
