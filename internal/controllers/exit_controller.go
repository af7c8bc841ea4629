package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
)

type ExitController struct {
	Engine *lifecycle.Engine
}

// ListExits supports range (today|week|month|all), status and studentId
// filters plus the usual limit/page/all/sort_by/sort_dir paging.
func (ec *ExitController) ListExits(c *gin.Context) {
	q := lifecycle.ExitQuery{
		Range:     strings.ToLower(strings.TrimSpace(c.Query("range"))),
		Status:    strings.TrimSpace(c.Query("status")),
		StudentID: c.Query("studentId"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortDir:   c.DefaultQuery("sort_dir", "DESC"),
		All:       strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1",
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Page = n
		}
	}

	page, err := ec.Engine.ListExits(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(page.Records))
	for _, r := range page.Records {
		out = append(out, gin.H{
			"id":           r.ID,
			"studentId":    r.StudentID,
			"name":         r.Name,
			"dorm":         r.Dorm,
			"block":        r.Block,
			"status":       r.Status,
			"approvedBy":   r.ApprovedBy,
			"approvalDate": r.ApprovalDate,
			"exitedBy":     r.ExitedBy,
			"exitGate":     r.ExitGate,
			"exitDate":     r.ExitDate,
			"items":        lifecycle.Aggregate(r.Items),
			"created_at":   r.CreatedAt,
			"updated_at":   r.UpdatedAt,
		})
	}
	meta := gin.H{"total": page.Total, "all": page.All}
	if !page.All {
		meta["limit"] = page.Limit
		meta["page"] = page.Page
		meta["sort_by"] = page.SortBy
		meta["sort_dir"] = page.SortDir
	}
	if q.Range != "" {
		meta["range"] = q.Range
	}
	if q.Status != "" {
		meta["status"] = q.Status
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}
