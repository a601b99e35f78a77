package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aie-platform/innovation-backend/internal/policy"
	"github.com/aie-platform/innovation-backend/internal/users/domain"
)

type seedAccount struct {
	username string
	email    string
	password string
	role     policy.Role
}

var seedAccounts = []seedAccount{
	{"admin", "admin@aie.gov.al", "admin123", policy.RoleExecutive},
	{"expert", "expert@aie.gov.al", "expert123", policy.RoleExpert},
	{"applicant", "applicant@aie.gov.al", "applicant123", policy.RoleApplicant},
}

// SeedDefaults creates the initial accounts when the users table is empty.
// Passwords are hashed on insert; the defaults are for development bootstrap
// and should be rotated immediately in any real deployment.
func (s *Service) SeedDefaults(ctx context.Context) error {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, acc := range seedAccounts {
		hash, err := hashPassword(acc.password)
		if err != nil {
			return err
		}
		if _, err := s.repo.Create(ctx, &domain.User{
			Username:     acc.username,
			Email:        acc.email,
			PasswordHash: hash,
			Role:         acc.role,
			IsActive:     true,
		}); err != nil {
			return err
		}
	}

	s.log.Info("seeded default accounts", zap.Int("count", len(seedAccounts)))
	return nil
}
