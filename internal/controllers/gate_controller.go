package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
)

type GateController struct {
	Engine *lifecycle.Engine
}

type finishRequest struct {
	StudentID FlexibleString `json:"studentId"`
	ExitedBy  string         `json:"exitedBy"`
}

func (gc *GateController) Verify(c *gin.Context) {
	summary, err := gc.Engine.Verify(c.Request.Context(), middleware.CurrentActor(c), c.Query("shortcode"), c.Query("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (gc *GateController) Finish(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	rec, err := gc.Engine.Finish(c.Request.Context(), middleware.CurrentActor(c), lifecycle.FinishInput{
		StudentID: req.StudentID.String(),
		ExitedBy:  req.ExitedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"studentId": rec.StudentID,
		"status":    rec.Status,
		"exitedBy":  rec.ExitedBy,
		"exitGate":  rec.ExitGate,
		"exitDate":  rec.ExitDate,
	})
}
