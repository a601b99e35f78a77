package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aie-platform/innovation-backend/internal/apperr"
)

// Error maps a service error kind to its HTTP status and writes the
// standard failure body.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
