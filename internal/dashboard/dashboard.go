// Package dashboard serves the executive KPI view: total submissions and
// grouped counts by status, age group, category, and municipality. The
// aggregation queries go straight to the store; the lifecycle core is not
// involved.
package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/aie-platform/innovation-backend/internal/api/http"
	"github.com/aie-platform/innovation-backend/internal/auth"
	"github.com/aie-platform/innovation-backend/internal/policy"
)

type CountBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Summary struct {
	TotalApplications int64         `json:"total_applications"`
	ByStatus          []CountBucket `json:"by_status"`
	ByAgeGroup        []CountBucket `json:"by_age_group"`
	ByCategory        []CountBucket `json:"by_category"`
	ByMunicipality    []CountBucket `json:"by_municipality"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) countBy(ctx context.Context, q string) ([]CountBucket, error) {
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CountBucket, 0, 8)
	for rows.Next() {
		var b CountBucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) Summary(ctx context.Context) (*Summary, error) {
	var s Summary

	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM applications;`).Scan(&s.TotalApplications); err != nil {
		return nil, err
	}

	var err error
	s.ByStatus, err = r.countBy(ctx, `SELECT status, count(*) FROM applications GROUP BY status ORDER BY count(*) DESC;`)
	if err != nil {
		return nil, err
	}

	s.ByAgeGroup, err = r.countBy(ctx, `SELECT age_group, count(*) FROM applications GROUP BY age_group ORDER BY count(*) DESC;`)
	if err != nil {
		return nil, err
	}

	s.ByCategory, err = r.countBy(ctx, `
SELECT c.name, count(*)
FROM applications a JOIN categories c ON c.id = a.category_id
GROUP BY c.name ORDER BY count(*) DESC;`)
	if err != nil {
		return nil, err
	}

	s.ByMunicipality, err = r.countBy(ctx, `SELECT municipality, count(*) FROM applications GROUP BY municipality ORDER BY count(*) DESC;`)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

type Handler struct {
	repo *Repo
}

func Register(rg *gin.RouterGroup, repo *Repo, sessions *auth.SessionStore) {
	h := &Handler{repo: repo}
	rg.GET("", auth.RequireAuth(sessions), h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	if auth.CallerRole(c) != policy.RoleExecutive {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "executive role required"})
		return
	}

	s, err := h.repo.Summary(c.Request.Context())
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": s})
}
