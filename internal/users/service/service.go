package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/policy"
	"github.com/aie-platform/innovation-backend/internal/users/domain"
)

// Repository is the persistence surface the user service needs.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	ListByRole(ctx context.Context, role policy.Role) ([]domain.User, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CountUsers(ctx context.Context) (int64, error)
}

// AssignmentCounter reports how many applications are assigned to an expert.
// Implemented by the applications repository.
type AssignmentCounter interface {
	CountAssignedTo(ctx context.Context, expertID int64) (int64, error)
}

// Service handles account management: applicant registration, credential
// checks, and the Executive-only expert administration surface.
type Service struct {
	repo        Repository
	assignments AssignmentCounter
	log         *zap.Logger
}

func New(repo Repository, assignments AssignmentCounter, log *zap.Logger) *Service {
	return &Service{repo: repo, assignments: assignments, log: log}
}

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func validateAccountInput(username, email, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("%w: username, email and password are required", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(password) < domain.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, domain.MinPasswordLength)
	}
	return nil
}

// Register creates a new applicant account.
func (s *Service) Register(ctx context.Context, username, email, password string) (int64, error) {
	if err := validateAccountInput(username, email, password); err != nil {
		return 0, err
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: a user with this email or username already exists", apperr.ErrConflict)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	return s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         policy.RoleApplicant,
		IsActive:     true,
	})
}

// Authenticate checks a login (email or username) and password against an
// active account. Failures are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperr.ErrValidation)
	}

	u, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid login attempt", apperr.ErrValidation)
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid login attempt", apperr.ErrValidation)
	}

	return u, nil
}

// AddExpert creates an expert account. Executive only.
func (s *Service) AddExpert(ctx context.Context, username, email, password string, callerRole policy.Role) (int64, error) {
	if !policy.CanManageExperts(callerRole) {
		return 0, fmt.Errorf("%w: only executives may manage experts", apperr.ErrPermission)
	}
	if err := validateAccountInput(username, email, password); err != nil {
		return 0, err
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, fmt.Errorf("%w: a user with this email or username already exists", apperr.ErrConflict)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         policy.RoleExpert,
		IsActive:     true,
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("expert account created", zap.Int64("expert_id", id), zap.String("username", username))
	return id, nil
}

// ListExperts returns all expert accounts. Executive only.
func (s *Service) ListExperts(ctx context.Context, callerRole policy.Role) ([]domain.User, error) {
	if !policy.CanManageExperts(callerRole) {
		return nil, fmt.Errorf("%w: only executives may manage experts", apperr.ErrPermission)
	}
	return s.repo.ListByRole(ctx, policy.RoleExpert)
}

// getExpert loads an account and verifies it has role Expert.
func (s *Service) getExpert(ctx context.Context, expertID int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, expertID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: expert %d", apperr.ErrNotFound, expertID)
		}
		return nil, err
	}
	if u.Role != policy.RoleExpert {
		return nil, fmt.Errorf("%w: expert %d", apperr.ErrNotFound, expertID)
	}
	return u, nil
}

// ToggleExpertStatus flips the expert's active flag and returns the new state.
func (s *Service) ToggleExpertStatus(ctx context.Context, expertID int64, callerRole policy.Role) (bool, error) {
	if !policy.CanManageExperts(callerRole) {
		return false, fmt.Errorf("%w: only executives may manage experts", apperr.ErrPermission)
	}

	u, err := s.getExpert(ctx, expertID)
	if err != nil {
		return false, err
	}

	next := !u.IsActive
	if _, err := s.repo.SetActive(ctx, expertID, next); err != nil {
		return false, err
	}
	return next, nil
}

// DeleteExpert removes an expert account. An expert still assigned to one or
// more applications cannot be deleted; the conflict reports the count.
func (s *Service) DeleteExpert(ctx context.Context, expertID int64, callerRole policy.Role) error {
	if !policy.CanManageExperts(callerRole) {
		return fmt.Errorf("%w: only executives may manage experts", apperr.ErrPermission)
	}

	if _, err := s.getExpert(ctx, expertID); err != nil {
		return err
	}

	n, err := s.assignments.CountAssignedTo(ctx, expertID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: expert still assigned to %d applications", apperr.ErrConflict, n)
	}

	ok, err := s.repo.Delete(ctx, expertID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: expert %d", apperr.ErrNotFound, expertID)
	}

	s.log.Info("expert account deleted", zap.Int64("expert_id", expertID))
	return nil
}
