package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aie-platform/innovation-backend/internal/apperr"
	"github.com/aie-platform/innovation-backend/internal/applications/domain"
	"github.com/aie-platform/innovation-backend/internal/policy"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	apps    map[int64]*domain.Application
	atts    map[int64][]domain.Attachment
	notes   map[int64][]domain.Note
	orphans []string
	nextApp int64
	nextAtt int64
	nextNt  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		apps:  map[int64]*domain.Application{},
		atts:  map[int64][]domain.Attachment{},
		notes: map[int64][]domain.Note{},
	}
}

func (f *fakeRepo) Create(_ context.Context, a *domain.Application) (int64, error) {
	f.nextApp++
	cp := *a
	cp.ID = f.nextApp
	cp.CreatedAt = time.Now().Add(-time.Minute)
	cp.UpdatedAt = cp.CreatedAt
	f.apps[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*domain.Application, error) {
	a, ok := f.apps[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) GetFull(ctx context.Context, id int64) (*domain.Application, error) {
	a, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Files = f.atts[id]
	a.Notes = f.notes[id]
	return a, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, status string) (bool, error) {
	a, ok := f.apps[id]
	if !ok {
		return false, nil
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRepo) SetAssignedExpert(_ context.Context, id int64, expertID *int64) (bool, error) {
	a, ok := f.apps[id]
	if !ok {
		return false, nil
	}
	a.AssignedExpertID = expertID
	a.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeRepo) BulkSetAssignedExpert(_ context.Context, ids []int64, expertID int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if a, ok := f.apps[id]; ok {
			a.AssignedExpertID = &expertID
			a.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.apps[id]; !ok {
		return false, nil
	}
	delete(f.apps, id)
	delete(f.atts, id)
	delete(f.notes, id)
	return true, nil
}

func (f *fakeRepo) ListByUser(_ context.Context, userID int64) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range f.apps {
		if a.UserID != nil && *a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByExpert(_ context.Context, expertID int64) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range f.apps {
		if a.AssignedExpertID != nil && *a.AssignedExpertID == expertID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range f.apps {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeRepo) AddAttachment(_ context.Context, att *domain.Attachment) (int64, error) {
	f.nextAtt++
	cp := *att
	cp.ID = f.nextAtt
	f.atts[att.ApplicationID] = append(f.atts[att.ApplicationID], cp)
	return cp.ID, nil
}

func (f *fakeRepo) GetAttachment(_ context.Context, id int64) (*domain.Attachment, error) {
	for _, list := range f.atts {
		for _, att := range list {
			if att.ID == id {
				cp := att
				return &cp, nil
			}
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeRepo) ListAttachments(_ context.Context, applicationID int64) ([]domain.Attachment, error) {
	return f.atts[applicationID], nil
}

func (f *fakeRepo) AddNote(_ context.Context, n *domain.Note) (int64, error) {
	f.nextNt++
	cp := *n
	cp.ID = f.nextNt
	cp.CreatedAt = time.Now()
	f.notes[n.ApplicationID] = append(f.notes[n.ApplicationID], cp)
	return cp.ID, nil
}

func (f *fakeRepo) RecordOrphans(_ context.Context, keys []string) error {
	f.orphans = append(f.orphans, keys...)
	return nil
}

// fakeExperts knows which ids are active experts.
type fakeExperts struct {
	active map[int64]bool
}

func (f *fakeExperts) ActiveExpertExists(_ context.Context, id int64) (bool, error) {
	return f.active[id], nil
}

// fakeBlobs stores blobs in memory and can be told to fail.
type fakeBlobs struct {
	stored     map[string]string
	failPut    bool
	failDelete bool
	deleted    []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{stored: map[string]string{}}
}

func (f *fakeBlobs) Put(_ context.Context, content io.Reader, originalName string) (string, error) {
	if f.failPut {
		return "", fmt.Errorf("blob store down")
	}
	data, _ := io.ReadAll(content)
	key := fmt.Sprintf("blob-%d-%s", len(f.stored), originalName)
	f.stored[key] = string(data)
	return key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	if f.failDelete {
		return fmt.Errorf("blob store down")
	}
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://blobs.example/" + key, nil
}

func newService(t *testing.T) (*Service, *fakeRepo, *fakeExperts, *fakeBlobs) {
	t.Helper()
	repo := newFakeRepo()
	experts := &fakeExperts{active: map[int64]bool{}}
	blobs := newFakeBlobs()
	return New(repo, experts, blobs, zap.NewNop()), repo, experts, blobs
}

func validDraft() domain.Draft {
	return domain.Draft{
		Title:        "Smart parking",
		Description:  strings.Repeat("fjalë ", domain.MinDescriptionWords),
		CategoryID:   3,
		AgeGroup:     "19-24",
		Municipality: "Tiranë",
	}
}

func upload(name, body string) FileUpload {
	return FileUpload{Name: name, Content: strings.NewReader(body)}
}

func TestSubmit_Valid_Anonymous(t *testing.T) {
	svc, repo, _, _ := newService(t)

	id, results, err := svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)
	require.Empty(t, results)

	a := repo.apps[id]
	require.NotNil(t, a)
	assert.Equal(t, domain.StatusNew, a.Status)
	assert.Nil(t, a.UserID)
	assert.Equal(t, int64(3), a.CategoryID)
	assert.Equal(t, "19-24", a.AgeGroup)
	assert.Equal(t, "Tiranë", a.Municipality)
}

func TestSubmit_ShortDescription(t *testing.T) {
	svc, repo, _, _ := newService(t)

	d := validDraft()
	d.Description = strings.Repeat("fjalë ", domain.MinDescriptionWords-1)

	_, _, err := svc.Submit(context.Background(), d, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, repo.apps)
}

func TestSubmit_BlankFields(t *testing.T) {
	base := validDraft()

	tests := []struct {
		name   string
		mutate func(*domain.Draft)
	}{
		{"title", func(d *domain.Draft) { d.Title = "  " }},
		{"description", func(d *domain.Draft) { d.Description = "" }},
		{"category", func(d *domain.Draft) { d.CategoryID = 0 }},
		{"age group", func(d *domain.Draft) { d.AgeGroup = "" }},
		{"municipality", func(d *domain.Draft) { d.Municipality = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newService(t)
			d := base
			tt.mutate(&d)
			_, _, err := svc.Submit(context.Background(), d, nil, nil)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Empty(t, repo.apps)
		})
	}
}

func TestSubmit_WithSubmitter(t *testing.T) {
	svc, repo, _, _ := newService(t)

	uid := int64(42)
	id, _, err := svc.Submit(context.Background(), validDraft(), nil, &uid)
	require.NoError(t, err)
	require.NotNil(t, repo.apps[id].UserID)
	assert.Equal(t, uid, *repo.apps[id].UserID)
}

func TestSubmit_FileCap(t *testing.T) {
	svc, repo, _, _ := newService(t)

	files := []FileUpload{
		upload("a.pdf", "1"),
		upload("b.doc", "2"),
		upload("c.txt", "3"),
		upload("d.ppt", "4"),
		upload("e.docx", "5"),
		upload("f.pdf", "6"), // past the cap
	}

	id, results, err := svc.Submit(context.Background(), validDraft(), files, nil)
	require.NoError(t, err)
	require.Len(t, results, 6)

	for i := 0; i < 5; i++ {
		assert.True(t, results[i].Accepted, results[i].Name)
	}
	assert.False(t, results[5].Accepted)
	assert.Equal(t, "file limit reached", results[5].Reason)
	assert.Len(t, repo.atts[id], 5)
}

func TestSubmit_DisallowedExtensionDoesNotConsumeCap(t *testing.T) {
	svc, repo, _, _ := newService(t)

	files := []FileUpload{
		upload("malware.exe", "x"), // rejected, must not count
		upload("a.pdf", "1"),
		upload("b.pdf", "2"),
		upload("c.pdf", "3"),
		upload("d.pdf", "4"),
		upload("e.pdf", "5"), // still within the cap of accepted files
	}

	id, results, err := svc.Submit(context.Background(), validDraft(), files, nil)
	require.NoError(t, err)

	assert.False(t, results[0].Accepted)
	assert.Equal(t, "file type not allowed", results[0].Reason)
	for i := 1; i <= 5; i++ {
		assert.True(t, results[i].Accepted, results[i].Name)
	}
	assert.Len(t, repo.atts[id], 5)
}

func TestSubmit_BlobFailureSkipsFile(t *testing.T) {
	svc, repo, _, blobs := newService(t)
	blobs.failPut = true

	id, results, err := svc.Submit(context.Background(), validDraft(), []FileUpload{upload("a.pdf", "1")}, nil)
	require.NoError(t, err)
	assert.False(t, results[0].Accepted)
	assert.Equal(t, "storage failure", results[0].Reason)
	assert.Empty(t, repo.atts[id])
}

func TestChangeStatus(t *testing.T) {
	svc, repo, _, _ := newService(t)
	id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)

	t.Run("non-executive denied", func(t *testing.T) {
		for _, role := range []policy.Role{policy.RoleApplicant, policy.RoleExpert, ""} {
			err := svc.ChangeStatus(context.Background(), id, domain.StatusInProgress, role)
			assert.ErrorIs(t, err, apperr.ErrPermission)
		}
		assert.Equal(t, domain.StatusNew, repo.apps[id].Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := svc.ChangeStatus(context.Background(), id, "Archived", policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing application", func(t *testing.T) {
		err := svc.ChangeStatus(context.Background(), 9999, domain.StatusInProgress, policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("executive updates status and timestamp", func(t *testing.T) {
		before := repo.apps[id].UpdatedAt
		err := svc.ChangeStatus(context.Background(), id, domain.StatusInMentorship, policy.RoleExecutive)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInMentorship, repo.apps[id].Status)
		assert.True(t, repo.apps[id].UpdatedAt.After(before))
	})
}

func TestAssignExpert_RoundTrip(t *testing.T) {
	svc, repo, experts, _ := newService(t)
	experts.active[7] = true

	id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)

	expertID := int64(7)
	require.NoError(t, svc.AssignExpert(context.Background(), id, &expertID, policy.RoleExecutive))
	require.NotNil(t, repo.apps[id].AssignedExpertID)
	assert.Equal(t, expertID, *repo.apps[id].AssignedExpertID)

	// un-assign restores the unset state
	require.NoError(t, svc.AssignExpert(context.Background(), id, nil, policy.RoleExecutive))
	assert.Nil(t, repo.apps[id].AssignedExpertID)
}

func TestAssignExpert_Validation(t *testing.T) {
	svc, repo, experts, _ := newService(t)
	experts.active[7] = true
	id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)

	t.Run("non-executive denied without mutation", func(t *testing.T) {
		expertID := int64(7)
		err := svc.AssignExpert(context.Background(), id, &expertID, policy.RoleExpert)
		assert.ErrorIs(t, err, apperr.ErrPermission)
		assert.Nil(t, repo.apps[id].AssignedExpertID)
	})

	t.Run("unknown expert", func(t *testing.T) {
		expertID := int64(1000)
		err := svc.AssignExpert(context.Background(), id, &expertID, policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing application", func(t *testing.T) {
		expertID := int64(7)
		err := svc.AssignExpert(context.Background(), 9999, &expertID, policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("missing application reported before unknown expert", func(t *testing.T) {
		expertID := int64(1000)
		err := svc.AssignExpert(context.Background(), 9999, &expertID, policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBulkAssignExpert(t *testing.T) {
	svc, repo, experts, _ := newService(t)
	experts.active[7] = true

	var ids []int64
	for i := 0; i < 3; i++ {
		id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("unknown expert aborts before any write", func(t *testing.T) {
		_, err := svc.BulkAssignExpert(context.Background(), ids, 1000, policy.RoleExecutive)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		for _, id := range ids {
			assert.Nil(t, repo.apps[id].AssignedExpertID)
		}
	})

	t.Run("missing ids silently skipped", func(t *testing.T) {
		n, err := svc.BulkAssignExpert(context.Background(), append(ids, 9999), 7, policy.RoleExecutive)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		for _, id := range ids {
			require.NotNil(t, repo.apps[id].AssignedExpertID)
			assert.Equal(t, int64(7), *repo.apps[id].AssignedExpertID)
		}
	})

	t.Run("non-executive denied", func(t *testing.T) {
		_, err := svc.BulkAssignExpert(context.Background(), ids, 7, policy.RoleApplicant)
		assert.ErrorIs(t, err, apperr.ErrPermission)
	})
}

func TestAddNote(t *testing.T) {
	svc, repo, _, _ := newService(t)
	id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)

	t.Run("blank text rejected", func(t *testing.T) {
		_, err := svc.AddNote(context.Background(), id, 1, "  \t", true, policy.RoleExpert)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing application", func(t *testing.T) {
		_, err := svc.AddNote(context.Background(), 9999, 1, "hello", true, policy.RoleExpert)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("anonymous denied", func(t *testing.T) {
		_, err := svc.AddNote(context.Background(), id, 0, "hello", true, "")
		assert.ErrorIs(t, err, apperr.ErrPermission)
	})

	t.Run("any authenticated role may comment", func(t *testing.T) {
		for i, role := range []policy.Role{policy.RoleApplicant, policy.RoleExpert, policy.RoleExecutive} {
			_, err := svc.AddNote(context.Background(), id, int64(i+1), "shënim", true, role)
			require.NoError(t, err)
		}
		assert.Len(t, repo.notes[id], 3)
	})
}

func TestDelete(t *testing.T) {
	t.Run("non-executive denied", func(t *testing.T) {
		svc, repo, _, _ := newService(t)
		id, _, err := svc.Submit(context.Background(), validDraft(), nil, nil)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Delete(context.Background(), id, policy.RoleExpert), apperr.ErrPermission)
		assert.Contains(t, repo.apps, id)
	})

	t.Run("missing application", func(t *testing.T) {
		svc, _, _, _ := newService(t)
		assert.ErrorIs(t, svc.Delete(context.Background(), 9999, policy.RoleExecutive), apperr.ErrNotFound)
	})

	t.Run("removes record and blobs", func(t *testing.T) {
		svc, repo, _, blobs := newService(t)
		id, _, err := svc.Submit(context.Background(), validDraft(),
			[]FileUpload{upload("a.pdf", "1"), upload("b.txt", "2")}, nil)
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), id, policy.RoleExecutive))
		assert.NotContains(t, repo.apps, id)
		assert.Len(t, blobs.deleted, 2)
		assert.Empty(t, repo.orphans)
	})

	t.Run("blob failure records orphans without failing", func(t *testing.T) {
		svc, repo, _, blobs := newService(t)
		id, _, err := svc.Submit(context.Background(), validDraft(), []FileUpload{upload("a.pdf", "1")}, nil)
		require.NoError(t, err)

		blobs.failDelete = true
		require.NoError(t, svc.Delete(context.Background(), id, policy.RoleExecutive))
		assert.NotContains(t, repo.apps, id)
		assert.Len(t, repo.orphans, 1)
	})
}

func TestGet_ViewPolicy(t *testing.T) {
	svc, _, experts, _ := newService(t)
	experts.active[7] = true

	owner := int64(42)
	id, _, err := svc.Submit(context.Background(), validDraft(), nil, &owner)
	require.NoError(t, err)

	expertID := int64(7)
	require.NoError(t, svc.AssignExpert(context.Background(), id, &expertID, policy.RoleExecutive))

	t.Run("owner sees own", func(t *testing.T) {
		a, err := svc.Get(context.Background(), id, owner, policy.RoleApplicant)
		require.NoError(t, err)
		assert.Equal(t, id, a.ID)
	})

	t.Run("other applicant denied", func(t *testing.T) {
		_, err := svc.Get(context.Background(), id, 43, policy.RoleApplicant)
		assert.ErrorIs(t, err, apperr.ErrPermission)
	})

	t.Run("assigned expert sees it", func(t *testing.T) {
		_, err := svc.Get(context.Background(), id, expertID, policy.RoleExpert)
		assert.NoError(t, err)
	})

	t.Run("unassigned expert denied", func(t *testing.T) {
		_, err := svc.Get(context.Background(), id, 8, policy.RoleExpert)
		assert.ErrorIs(t, err, apperr.ErrPermission)
	})

	t.Run("executive sees everything", func(t *testing.T) {
		_, err := svc.Get(context.Background(), id, 1, policy.RoleExecutive)
		assert.NoError(t, err)
	})
}

func TestAttachmentURL(t *testing.T) {
	svc, repo, _, _ := newService(t)

	owner := int64(42)
	id, _, err := svc.Submit(context.Background(), validDraft(), []FileUpload{upload("a.pdf", "1")}, &owner)
	require.NoError(t, err)

	attID := repo.atts[id][0].ID

	t.Run("owner gets presigned url", func(t *testing.T) {
		url, err := svc.AttachmentURL(context.Background(), attID, owner, policy.RoleApplicant)
		require.NoError(t, err)
		assert.Contains(t, url, "https://blobs.example/")
	})

	t.Run("stranger denied", func(t *testing.T) {
		_, err := svc.AttachmentURL(context.Background(), attID, 43, policy.RoleApplicant)
		assert.ErrorIs(t, err, apperr.ErrPermission)
	})

	t.Run("missing attachment", func(t *testing.T) {
		_, err := svc.AttachmentURL(context.Background(), 9999, owner, policy.RoleApplicant)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestLists(t *testing.T) {
	svc, _, experts, _ := newService(t)
	experts.active[7] = true

	owner := int64(42)
	id1, _, err := svc.Submit(context.Background(), validDraft(), nil, &owner)
	require.NoError(t, err)
	_, _, err = svc.Submit(context.Background(), validDraft(), nil, nil)
	require.NoError(t, err)

	expertID := int64(7)
	require.NoError(t, svc.AssignExpert(context.Background(), id1, &expertID, policy.RoleExecutive))

	mine, err := svc.ListForApplicant(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	assigned, err := svc.ListForExpert(context.Background(), expertID)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
