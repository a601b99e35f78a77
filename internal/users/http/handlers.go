package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	httpapi "github.com/aie-platform/innovation-backend/internal/api/http"
	"github.com/aie-platform/innovation-backend/internal/auth"
	"github.com/aie-platform/innovation-backend/internal/users/service"
)

type Handler struct {
	svc *service.Service
}

// Register mounts the expert administration routes. Role enforcement lives
// in the service; the routes only require a session.
func Register(rg *gin.RouterGroup, svc *service.Service, sessions *auth.SessionStore) {
	h := &Handler{svc: svc}

	rg.Use(auth.RequireAuth(sessions))
	rg.GET("", h.list)
	rg.POST("", h.add)
	rg.POST("/:id/toggle", h.toggle)
	rg.DELETE("/:id", h.delete)
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	experts, err := h.svc.ListExperts(c.Request.Context(), auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "experts": experts})
}

type addExpertReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) add(c *gin.Context) {
	var req addExpertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	id, err := h.svc.AddExpert(c.Request.Context(),
		strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "expert_id": id})
}

func (h *Handler) toggle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	active, err := h.svc.ToggleExpertStatus(c.Request.Context(), id, auth.CallerRole(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "is_active": active})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteExpert(c.Request.Context(), id, auth.CallerRole(c)); err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
