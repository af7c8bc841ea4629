package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/middleware"
)

type AuthController struct {
	JWTSecret     string
	SessionCookie string
	TokenTTL      time.Duration
	SecureCookie  bool
}

func (a *AuthController) Me(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	c.JSON(http.StatusOK, gin.H{
		"staff_id": actor.ID,
		"name":     actor.Name,
		"role":     actor.Role,
		"gate":     actor.Gate,
	})
}

// Session re-issues the caller's identity as an HTTP-only cookie so browser
// dashboards do not have to keep the bearer token in script-visible storage.
func (a *AuthController) Session(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	token, err := middleware.IssueToken(a.JWTSecret, actor, a.TokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(a.SessionCookie, token, int(a.TokenTTL.Seconds()), "/", "", a.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "session started", "expires_in": int(a.TokenTTL.Seconds())})
}

func (a *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(a.SessionCookie, "", -1, "/", "", a.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
