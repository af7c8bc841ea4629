package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
	"github.com/zaqqye/exit_slip_backend/internal/models"
)

type RequestController struct {
	Engine *lifecycle.Engine
}

// Student forms send dorm, block and sometimes the id as bare numbers.
type submissionRequest struct {
	StudentID FlexibleString `json:"studentId"`
	Name      string         `json:"name"`
	Dorm      FlexibleString `json:"dorm"`
	Block     FlexibleString `json:"block"`
	Items     []models.Item  `json:"items"`
}

func (r submissionRequest) toSubmission() lifecycle.Submission {
	return lifecycle.Submission{
		StudentID: r.StudentID.String(),
		Name:      r.Name,
		Dorm:      r.Dorm.String(),
		Block:     r.Block.String(),
		Items:     r.Items,
	}
}

type studentRequest struct {
	StudentID FlexibleString `json:"studentId"`
}

func (rc *RequestController) Submit(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	created, err := rc.Engine.Submit(c.Request.Context(), req.toSubmission())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "request submitted",
		"requestId": created.ID,
		"studentId": created.StudentID,
	})
}

func (rc *RequestController) Update(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if err := rc.Engine.Update(c.Request.Context(), req.toSubmission()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "request updated"})
}

func (rc *RequestController) Lookup(c *gin.Context) {
	view, err := rc.Engine.Lookup(c.Request.Context(), c.Query("studentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (rc *RequestController) Authorize(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	auth, err := rc.Engine.Authorize(c.Request.Context(), middleware.CurrentActor(c), req.StudentID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"studentId":    auth.StudentID,
		"shortCode":    auth.ShortCode,
		"approvedBy":   auth.ApprovedBy,
		"approvalDate": auth.ApprovalDate,
	})
}

func (rc *RequestController) Deny(c *gin.Context) {
	if err := rc.Engine.Deny(c.Request.Context(), middleware.CurrentActor(c), c.Query("studentId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "request denied"})
}
