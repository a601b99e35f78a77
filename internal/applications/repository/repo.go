package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/applications/domain"
)

// Repo provides persistence for applications, their notes and attachments.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const appCols = `id, title, description, age_group, municipality, coalesce(prototype_url, ''),
	status, category_id, user_id, assigned_expert_id, created_at, updated_at`

func scanApp(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.AgeGroup, &a.Municipality, &a.PrototypeURL,
		&a.Status, &a.CategoryID, &a.UserID, &a.AssignedExpertID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectApps(rows pgx.Rows) ([]domain.Application, error) {
	defer rows.Close()
	out := make([]domain.Application, 0, 16)
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.AgeGroup, &a.Municipality, &a.PrototypeURL,
			&a.Status, &a.CategoryID, &a.UserID, &a.AssignedExpertID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new application and returns its id.
func (r *Repo) Create(ctx context.Context, a *domain.Application) (int64, error) {
	const q = `
INSERT INTO applications (title, description, age_group, municipality, prototype_url, status, category_id, user_id)
VALUES ($1, $2, $3, $4, nullif($5, ''), $6, $7, $8)
RETURNING id;
`
	var id int64
	err := r.db.QueryRow(ctx, q,
		a.Title, a.Description, a.AgeGroup, a.Municipality, a.PrototypeURL, a.Status, a.CategoryID, a.UserID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads one application without its owned collections.
func (r *Repo) Get(ctx context.Context, id int64) (*domain.Application, error) {
	const q = `SELECT ` + appCols + ` FROM applications WHERE id = $1;`
	return scanApp(r.db.QueryRow(ctx, q, id))
}

// GetFull loads one application with attachments and notes.
func (r *Repo) GetFull(ctx context.Context, id int64) (*domain.Application, error) {
	a, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a.Files, err = r.ListAttachments(ctx, id)
	if err != nil {
		return nil, err
	}

	a.Notes, err = r.listNotes(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus sets the status and advances updated_at. Returns false if no
// row matched.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	const q = `UPDATE applications SET status = $2, updated_at = now() WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetAssignedExpert assigns (or, with nil, un-assigns) an expert.
func (r *Repo) SetAssignedExpert(ctx context.Context, id int64, expertID *int64) (bool, error) {
	const q = `UPDATE applications SET assigned_expert_id = $2, updated_at = now() WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id, expertID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BulkSetAssignedExpert assigns the expert to every listed application inside
// one transaction. Ids with no matching row are skipped. Returns the number
// of rows updated.
func (r *Repo) BulkSetAssignedExpert(ctx context.Context, ids []int64, expertID int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE applications SET assigned_expert_id = $2, updated_at = now() WHERE id = ANY($1);`
	tag, err := tx.Exec(ctx, q, ids, expertID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountAssignedTo returns the number of applications assigned to the expert.
func (r *Repo) CountAssignedTo(ctx context.Context, expertID int64) (int64, error) {
	const q = `SELECT count(*) FROM applications WHERE assigned_expert_id = $1;`
	var n int64
	if err := r.db.QueryRow(ctx, q, expertID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the application; notes and attachment rows go with it via
// FK cascade. Returns false if no row matched.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM applications WHERE id = $1;`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser returns an applicant's own applications, newest first.
func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]domain.Application, error) {
	const q = `SELECT ` + appCols + ` FROM applications WHERE user_id = $1 ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collectApps(rows)
}

// ListByExpert returns applications assigned to the expert, newest first.
func (r *Repo) ListByExpert(ctx context.Context, expertID int64) ([]domain.Application, error) {
	const q = `SELECT ` + appCols + ` FROM applications WHERE assigned_expert_id = $1 ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, q, expertID)
	if err != nil {
		return nil, err
	}
	return collectApps(rows)
}

// ListAll returns every application, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]domain.Application, error) {
	const q = `SELECT ` + appCols + ` FROM applications ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return collectApps(rows)
}

// AddAttachment records a stored upload for an application.
func (r *Repo) AddAttachment(ctx context.Context, att *domain.Attachment) (int64, error) {
	const q = `
INSERT INTO application_files (application_id, blob_key, original_name, file_type)
VALUES ($1, $2, $3, $4)
RETURNING id;
`
	var id int64
	err := r.db.QueryRow(ctx, q, att.ApplicationID, att.BlobKey, att.OriginalName, att.FileType).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetAttachment loads one attachment row.
func (r *Repo) GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	const q = `
SELECT id, application_id, blob_key, original_name, file_type, uploaded_at
FROM application_files WHERE id = $1;
`
	var att domain.Attachment
	err := r.db.QueryRow(ctx, q, id).Scan(&att.ID, &att.ApplicationID, &att.BlobKey, &att.OriginalName, &att.FileType, &att.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

// ListAttachments returns the attachments of an application in upload order.
func (r *Repo) ListAttachments(ctx context.Context, applicationID int64) ([]domain.Attachment, error) {
	const q = `
SELECT id, application_id, blob_key, original_name, file_type, uploaded_at
FROM application_files WHERE application_id = $1 ORDER BY id;
`
	rows, err := r.db.Query(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Attachment, 0, domain.MaxFiles)
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.ID, &att.ApplicationID, &att.BlobKey, &att.OriginalName, &att.FileType, &att.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

// AddNote appends a note to an application.
func (r *Repo) AddNote(ctx context.Context, n *domain.Note) (int64, error) {
	const q = `
INSERT INTO notes (application_id, user_id, note_text, is_internal)
VALUES ($1, $2, $3, $4)
RETURNING id;
`
	var id int64
	err := r.db.QueryRow(ctx, q, n.ApplicationID, n.UserID, n.Text, n.Internal).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) listNotes(ctx context.Context, applicationID int64) ([]domain.Note, error) {
	const q = `
SELECT id, application_id, user_id, note_text, is_internal, created_at
FROM notes WHERE application_id = $1 ORDER BY id;
`
	rows, err := r.db.Query(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Note, 0, 8)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.ApplicationID, &n.UserID, &n.Text, &n.Internal, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// RecordOrphans remembers blob keys whose deletion failed so the sweeper can
// retry them later.
func (r *Repo) RecordOrphans(ctx context.Context, keys []string) error {
	const q = `INSERT INTO blob_orphans (blob_key) VALUES ($1) ON CONFLICT DO NOTHING;`
	for _, key := range keys {
		if _, err := r.db.Exec(ctx, q, key); err != nil {
			return fmt.Errorf("record orphan %s: %w", key, err)
		}
	}
	return nil
}

// ListOrphans returns up to limit orphaned blob keys, oldest first.
func (r *Repo) ListOrphans(ctx context.Context, limit int) ([]string, error) {
	const q = `SELECT blob_key FROM blob_orphans ORDER BY recorded_at LIMIT $1;`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, limit)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// ClearOrphan removes a reclaimed blob key.
func (r *Repo) ClearOrphan(ctx context.Context, key string) error {
	const q = `DELETE FROM blob_orphans WHERE blob_key = $1;`
	_, err := r.db.Exec(ctx, q, key)
	return err
}
