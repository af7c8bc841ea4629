package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/exit_slip_backend/internal/config"
	"github.com/zaqqye/exit_slip_backend/internal/controllers"
	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/logger"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/ratelimit"
	"github.com/zaqqye/exit_slip_backend/internal/ws"
)

type Deps struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *lifecycle.Engine
	Hub    *ws.FeedHub
	// Limiter may be nil, which disables gate throttling.
	Limiter ratelimit.Limiter
	Log     *slog.Logger
}

func Register(r *gin.Engine, d Deps) {
	cfg := d.Cfg
	if d.Log == nil {
		d.Log = logger.Discard()
	}

	// Controllers
	reqCtrl := &controllers.RequestController{Engine: d.Engine}
	gateCtrl := &controllers.GateController{Engine: d.Engine}
	exitCtrl := &controllers.ExitController{Engine: d.Engine}
	authCtrl := &controllers.AuthController{
		JWTSecret:     cfg.JWTSecret,
		SessionCookie: cfg.SessionCookie,
		TokenTTL:      cfg.TokenTTL,
		SecureCookie:  cfg.CookieSecure,
	}
	maintCtrl := &controllers.MaintenanceController{Engine: d.Engine, TokenHash: cfg.MaintenanceTokenHash, Log: d.Log}
	healthCtrl := &controllers.HealthController{DB: d.DB, Timeout: cfg.StoreTimeout}

	r.GET("/healthz", healthCtrl.Health)

	// Public student endpoints
	v1 := r.Group("/api/v1")
	{
		v1.POST("/requests", reqCtrl.Submit)
		v1.POST("/requests/update", reqCtrl.Update)
		v1.POST("/maintenance/clear", maintCtrl.Clear)
	}

	// Protected
	authMW := middleware.AuthMiddleware(middleware.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		SessionCookie: cfg.SessionCookie,
	})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/session", authCtrl.Session)
		api.POST("/auth/logout", authCtrl.Logout)
		api.GET("/ws/feed", ws.FeedHandler(d.Hub))

		proctor := api.Group("", middleware.RequireRoles(models.RoleProctor))
		{
			proctor.GET("/requests", reqCtrl.Lookup)
			proctor.POST("/requests/authorize", reqCtrl.Authorize)
			proctor.DELETE("/deny", reqCtrl.Deny)
			proctor.GET("/exits", exitCtrl.ListExits)
		}

		gate := api.Group("", middleware.RequireRoles(models.RoleGate))
		{
			gate.GET("/gate",
				middleware.RateLimit(d.Limiter, "gate_verify", cfg.GateVerifyPerMinute, time.Minute, d.Log),
				gateCtrl.Verify)
			gate.POST("/finish", gateCtrl.Finish)
		}
	}
}
