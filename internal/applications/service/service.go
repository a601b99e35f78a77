// Package service implements the application lifecycle: submission,
// status transitions, expert assignment, notes, and deletion. Every
// mutation is gated by the access policy; the caller's identity and role
// are explicit parameters, never ambient state.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/applications/domain"
	"github.com/aie-platform/innovation-backend/internal/policy"
	"github.com/aie-platform/innovation-backend/internal/storage"
)

// Repository is the persistence surface the lifecycle needs.
type Repository interface {
	Create(ctx context.Context, a *domain.Application) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Application, error)
	GetFull(ctx context.Context, id int64) (*domain.Application, error)
	UpdateStatus(ctx context.Context, id int64, status string) (bool, error)
	SetAssignedExpert(ctx context.Context, id int64, expertID *int64) (bool, error)
	BulkSetAssignedExpert(ctx context.Context, ids []int64, expertID int64) (int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Application, error)
	ListByExpert(ctx context.Context, expertID int64) ([]domain.Application, error)
	ListAll(ctx context.Context) ([]domain.Application, error)
	AddAttachment(ctx context.Context, att *domain.Attachment) (int64, error)
	GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, applicationID int64) ([]domain.Attachment, error)
	AddNote(ctx context.Context, n *domain.Note) (int64, error)
	RecordOrphans(ctx context.Context, keys []string) error
}

// ExpertDirectory validates expert references. Implemented by the users
// repository.
type ExpertDirectory interface {
	ActiveExpertExists(ctx context.Context, id int64) (bool, error)
}

// FileUpload is one submitted file.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// Service is the application lifecycle manager.
type Service struct {
	repo    Repository
	experts ExpertDirectory
	blobs   storage.BlobStore
	log     *zap.Logger
}

func New(repo Repository, experts ExpertDirectory, blobs storage.BlobStore, log *zap.Logger) *Service {
	return &Service{repo: repo, experts: experts, blobs: blobs, log: log}
}

func validateDraft(d domain.Draft) error {
	if strings.TrimSpace(d.Title) == "" ||
		strings.TrimSpace(d.Description) == "" ||
		d.CategoryID == 0 ||
		strings.TrimSpace(d.AgeGroup) == "" ||
		strings.TrimSpace(d.Municipality) == "" {
		return fmt.Errorf("%w: all required fields must be filled in", apperr.ErrValidation)
	}
	if domain.WordCount(d.Description) < domain.MinDescriptionWords {
		return fmt.Errorf("%w: description must have at least %d words", apperr.ErrValidation, domain.MinDescriptionWords)
	}
	return nil
}

// Submit validates and persists a new application with status New, then
// stores its attachments. submitterID is nil for anonymous submissions.
// The returned FileResult slice reports per-file acceptance: files past the
// cap or with a disallowed extension are skipped without failing the
// submission. Only accepted files count toward the cap.
func (s *Service) Submit(ctx context.Context, d domain.Draft, files []FileUpload, submitterID *int64) (int64, []domain.FileResult, error) {
	if err := validateDraft(d); err != nil {
		return 0, nil, err
	}

	id, err := s.repo.Create(ctx, &domain.Application{
		Title:        strings.TrimSpace(d.Title),
		Description:  d.Description,
		AgeGroup:     d.AgeGroup,
		Municipality: d.Municipality,
		PrototypeURL: d.PrototypeURL,
		CategoryID:   d.CategoryID,
		Status:       domain.StatusNew,
		UserID:       submitterID,
	})
	if err != nil {
		return 0, nil, err
	}

	results := make([]domain.FileResult, 0, len(files))
	accepted := 0
	for _, f := range files {
		switch {
		case accepted >= domain.MaxFiles:
			results = append(results, domain.FileResult{Name: f.Name, Reason: "file limit reached"})
			continue
		case !domain.IsAllowedExtension(f.Name):
			results = append(results, domain.FileResult{Name: f.Name, Reason: "file type not allowed"})
			continue
		}

		key, err := s.blobs.Put(ctx, f.Content, f.Name)
		if err != nil {
			s.log.Error("store attachment", zap.String("file", f.Name), zap.Error(err))
			results = append(results, domain.FileResult{Name: f.Name, Reason: "storage failure"})
			continue
		}

		if _, err := s.repo.AddAttachment(ctx, &domain.Attachment{
			ApplicationID: id,
			BlobKey:       key,
			OriginalName:  f.Name,
			FileType:      domain.FileExtension(f.Name),
		}); err != nil {
			return 0, nil, err
		}

		accepted++
		results = append(results, domain.FileResult{Name: f.Name, Accepted: true})
	}

	s.log.Info("application submitted",
		zap.Int64("application_id", id),
		zap.Int("files_accepted", accepted),
		zap.Bool("anonymous", submitterID == nil))

	return id, results, nil
}

// ChangeStatus moves an application to newStatus. Executive only; newStatus
// must be a member of the fixed status set.
func (s *Service) ChangeStatus(ctx context.Context, id int64, newStatus string, callerRole policy.Role) error {
	if !policy.CanTransitionStatus(callerRole) {
		return fmt.Errorf("%w: only executives may change status", apperr.ErrPermission)
	}
	if !domain.IsValidStatus(newStatus) {
		return fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, newStatus)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
	}
	return nil
}

// AssignExpert sets (or, with nil, clears) the assigned expert. Executive
// only. A given expert id must reference an active user with role Expert.
func (s *Service) AssignExpert(ctx context.Context, id int64, expertID *int64, callerRole policy.Role) error {
	if !policy.CanAssignExpert(callerRole) {
		return fmt.Errorf("%w: only executives may assign experts", apperr.ErrPermission)
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
		}
		return err
	}

	if expertID != nil {
		exists, err := s.experts.ActiveExpertExists(ctx, *expertID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: no active expert with id %d", apperr.ErrValidation, *expertID)
		}
	}

	ok, err := s.repo.SetAssignedExpert(ctx, id, expertID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
	}
	return nil
}

// BulkAssignExpert assigns the expert to every listed application. The
// expert is validated before any write; ids with no matching application
// are silently skipped. Returns the number of applications updated.
func (s *Service) BulkAssignExpert(ctx context.Context, ids []int64, expertID int64, callerRole policy.Role) (int64, error) {
	if !policy.CanAssignExpert(callerRole) {
		return 0, fmt.Errorf("%w: only executives may assign experts", apperr.ErrPermission)
	}

	exists, err := s.experts.ActiveExpertExists(ctx, expertID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: no active expert with id %d", apperr.ErrValidation, expertID)
	}

	return s.repo.BulkSetAssignedExpert(ctx, ids, expertID)
}

// AddNote appends a note. Any authenticated role may comment.
func (s *Service) AddNote(ctx context.Context, applicationID, authorID int64, text string, internal bool, callerRole policy.Role) (int64, error) {
	if !policy.CanAddNote(callerRole) {
		return 0, fmt.Errorf("%w: authentication required", apperr.ErrPermission)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: note text cannot be empty", apperr.ErrValidation)
	}

	if _, err := s.repo.Get(ctx, applicationID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, fmt.Errorf("%w: application %d", apperr.ErrNotFound, applicationID)
		}
		return 0, err
	}

	return s.repo.AddNote(ctx, &domain.Note{
		ApplicationID: applicationID,
		UserID:        authorID,
		Text:          text,
		Internal:      internal,
	})
}

// Delete removes an application with its notes and attachments. Blob
// deletion is best-effort: keys that fail to delete are recorded as orphans
// for the sweeper and do not fail the operation.
func (s *Service) Delete(ctx context.Context, id int64, callerRole policy.Role) error {
	if !policy.CanDeleteApplication(callerRole) {
		return fmt.Errorf("%w: only executives may delete applications", apperr.ErrPermission)
	}

	atts, err := s.repo.ListAttachments(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
	}

	var orphans []string
	for _, att := range atts {
		if err := s.blobs.Delete(ctx, att.BlobKey); err != nil {
			s.log.Warn("blob delete failed, recording orphan",
				zap.String("key", att.BlobKey), zap.Error(err))
			orphans = append(orphans, att.BlobKey)
		}
	}
	if len(orphans) > 0 {
		if err := s.repo.RecordOrphans(ctx, orphans); err != nil {
			s.log.Error("record orphans", zap.Error(err))
		}
	}

	s.log.Info("application deleted", zap.Int64("application_id", id), zap.Int("attachments", len(atts)))
	return nil
}

// Get loads one application with its collections, gated by view policy.
func (s *Service) Get(ctx context.Context, id, callerID int64, callerRole policy.Role) (*domain.Application, error) {
	a, err := s.repo.GetFull(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: application %d", apperr.ErrNotFound, id)
		}
		return nil, err
	}

	if !policy.CanViewApplication(callerRole, callerID, a.UserID, a.AssignedExpertID) {
		return nil, fmt.Errorf("%w: no access to this application", apperr.ErrPermission)
	}
	return a, nil
}

// ListForApplicant returns the applicant's own applications.
func (s *Service) ListForApplicant(ctx context.Context, userID int64) ([]domain.Application, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListForExpert returns applications assigned to the expert.
func (s *Service) ListForExpert(ctx context.Context, expertID int64) ([]domain.Application, error) {
	return s.repo.ListByExpert(ctx, expertID)
}

// ListAll returns every application. Intended for executives; the handler
// routes by role.
func (s *Service) ListAll(ctx context.Context) ([]domain.Application, error) {
	return s.repo.ListAll(ctx)
}

// attachmentURLTTL bounds how long a presigned download link stays valid.
const attachmentURLTTL = 15 * time.Minute

// AttachmentURL returns a presigned download URL for an attachment, gated by
// the owning application's view policy.
func (s *Service) AttachmentURL(ctx context.Context, attachmentID, callerID int64, callerRole policy.Role) (string, error) {
	att, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("%w: attachment %d", apperr.ErrNotFound, attachmentID)
		}
		return "", err
	}

	a, err := s.repo.Get(ctx, att.ApplicationID)
	if err != nil {
		return "", err
	}
	if !policy.CanViewApplication(callerRole, callerID, a.UserID, a.AssignedExpertID) {
		return "", fmt.Errorf("%w: no access to this application", apperr.ErrPermission)
	}

	url, err := s.blobs.PresignGet(ctx, att.BlobKey, attachmentURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %v", apperr.ErrStorage, err)
	}
	return url, nil
}
