package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	httpapi "github.com/aie-platform/innovation-backend/internal/api/http"
	"github.com/aie-platform/innovation-backend/internal/auth"
	usersvc "github.com/aie-platform/innovation-backend/internal/users/service"
)

type Handler struct {
	users    *usersvc.Service
	sessions *auth.SessionStore
}

func Register(rg *gin.RouterGroup, users *usersvc.Service, sessions *auth.SessionStore) {
	h := &Handler{users: users, sessions: sessions}

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/logout", auth.RequireAuth(sessions), h.logout)
}

type registerReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "passwords do not match"})
		return
	}

	id, err := h.users.Register(c.Request.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user_id": id})
}

type loginReq struct {
	Login    string `json:"login"` // email or username
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), strings.TrimSpace(req.Login), req.Password)
	if err != nil {
		// Credential failures surface as 401, not 400.
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid login attempt"})
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), auth.Session{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.SetCookie("session", token, int(auth.SessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token, "role": u.Role, "user_id": u.ID})
}

func (h *Handler) logout(c *gin.Context) {
	if token := auth.ExtractToken(c); token != "" {
		if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
	}

	c.SetCookie("session", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
