package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/utils"
)

// MaintenanceController guards bulk operations with a static bearer token
// whose bcrypt hash lives in configuration.
type MaintenanceController struct {
	Engine    *lifecycle.Engine
	TokenHash string
	Log       *slog.Logger
}

func (mc *MaintenanceController) Clear(c *gin.Context) {
	if mc.TokenHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maintenance disabled"})
		return
	}
	auth := c.GetHeader("Authorization")
	token := ""
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token = strings.TrimSpace(auth[len("Bearer "):])
	}
	if !utils.CheckToken(mc.TokenHash, token) {
		mc.Log.Warn("maintenance token rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid maintenance token"})
		return
	}

	res, err := mc.Engine.Clear(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cleared": res})
}
