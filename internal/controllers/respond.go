package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
)

// respondError writes the client-safe view of err. Causes stay server side.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"type":  apperrors.ErrorTypeStorage,
		})
		return
	}
	if appErr.Cause != nil {
		_ = c.Error(appErr.Cause)
	}
	body := gin.H{"error": appErr.Message, "type": appErr.Type}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.Code, body)
}

func badBody(c *gin.Context, err error) {
	respondError(c, apperrors.NewValidationError("invalid request body", err.Error()))
}
