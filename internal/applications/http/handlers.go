package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpapi "github.com/aie-platform/innovation-backend/internal/api/http"
	"github.com/aie-platform/innovation-backend/internal/applications/domain"
	"github.com/aie-platform/innovation-backend/internal/applications/service"
	"github.com/aie-platform/innovation-backend/internal/auth"
	"github.com/aie-platform/innovation-backend/internal/policy"
)

type Handler struct {
	svc *service.Service
}

// Register mounts the application lifecycle routes. The submit endpoint is
// public (anonymous submissions are allowed); everything else requires a
// session.
func Register(rg *gin.RouterGroup, svc *service.Service, sessions *auth.SessionStore) {
	h := &Handler{svc: svc}

	rg.POST("", auth.OptionalAuth(sessions), h.submit)

	authed := rg.Group("", auth.RequireAuth(sessions))
	authed.GET("", h.list)
	authed.GET("/:id", h.get)
	authed.PATCH("/:id/status", h.changeStatus)
	authed.PUT("/:id/expert", h.assignExpert)
	authed.POST("/bulk-assign", h.bulkAssign)
	authed.POST("/:id/notes", h.addNote)
	authed.DELETE("/:id", h.delete)
}

// RegisterAttachments mounts the presigned-download route.
func RegisterAttachments(rg *gin.RouterGroup, svc *service.Service, sessions *auth.SessionStore) {
	h := &Handler{svc: svc}
	rg.GET("/:id/url", auth.RequireAuth(sessions), h.attachmentURL)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid multipart form"})
		return
	}

	categoryID, _ := strconv.ParseInt(c.PostForm("category_id"), 10, 64)
	draft := domain.Draft{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		CategoryID:   categoryID,
		AgeGroup:     c.PostForm("age_group"),
		Municipality: c.PostForm("municipality"),
		PrototypeURL: c.PostForm("prototype_url"),
	}

	var files []service.FileUpload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable file: " + fh.Filename})
			return
		}
		defer f.Close()
		files = append(files, service.FileUpload{Name: fh.Filename, Content: f})
	}

	// Anonymous submissions leave the owner unset.
	var submitterID *int64
	if id, ok := auth.CallerID(c); ok {
		submitterID = &id
	}

	id, fileResults, err := h.svc.Submit(c.Request.Context(), draft, files, submitterID)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "application_id": id, "files": fileResults})
}

// list routes by role: applicants see their own applications, experts their
// assigned ones, executives everything.
func (h *Handler) list(c *gin.Context) {
	callerID, _ := auth.CallerID(c)

	var (
		items []domain.Application
		err   error
	)
	switch auth.CallerRole(c) {
	case policy.RoleExecutive:
		items, err = h.svc.ListAll(c.Request.Context())
	case policy.RoleExpert:
		items, err = h.svc.ListForExpert(c.Request.Context(), callerID)
	default:
		items, err = h.svc.ListForApplicant(c.Request.Context(), callerID)
	}
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "applications": items})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	callerID, _ := auth.CallerID(c)

	a, err := h.svc.Get(c.Request.Context(), id, callerID, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "application": a})
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.svc.ChangeStatus(c.Request.Context(), id, req.Status, auth.CallerRole(c)); err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) assignExpert(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.svc.AssignExpert(c.Request.Context(), id, req.ExpertID, auth.CallerRole(c)); err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) bulkAssign(c *gin.Context) {
	var req bulkAssignReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ApplicationIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	n, err := h.svc.BulkAssignExpert(c.Request.Context(), req.ApplicationIDs, req.ExpertID, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": n})
}

func (h *Handler) addNote(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	internal := true
	if req.Internal != nil {
		internal = *req.Internal
	}

	callerID, _ := auth.CallerID(c)
	noteID, err := h.svc.AddNote(c.Request.Context(), id, callerID, req.Text, internal, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "note_id": noteID})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, auth.CallerRole(c)); err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) attachmentURL(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	callerID, _ := auth.CallerID(c)

	url, err := h.svc.AttachmentURL(c.Request.Context(), id, callerID, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}
