package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/exit_slip_backend/internal/database"
)

type HealthController struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (hc *HealthController) Health(c *gin.Context) {
	if err := database.Ping(c.Request.Context(), hc.DB, hc.Timeout); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
