package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
	"github.com/zaqqye/exit_slip_backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

var exitSorts = map[string]string{
	"id":            "id",
	"created_at":    "created_at",
	"approval_date": "approval_date",
	"exit_date":     "exit_date",
	"student_id":    "student_id",
	"status":        "status",
}

type ExitQuery struct {
	Range     string
	Status    string
	StudentID string
	SortBy    string
	SortDir   string
	Limit     int
	Page      int
	All       bool
}

type ExitPage struct {
	Records []models.ExitRecord
	Total   int64
	Limit   int
	Page    int
	SortBy  string
	SortDir string
	All     bool
}

// ListExits backs the proctor dashboard and exports.
func (e *Engine) ListExits(ctx context.Context, q ExitQuery) (*ExitPage, error) {
	from, to, err := utils.ParseDateRange(q.Range, e.now())
	if err != nil {
		return nil, apperrors.NewValidationError("invalid range", err.Error())
	}

	var status models.ExitStatus
	if q.Status != "" {
		status = models.ExitStatus(q.Status)
		switch status {
		case models.StatusNotAuthorized, models.StatusAuthorized, models.StatusExited:
		default:
			return nil, apperrors.NewValidationError("invalid status", q.Status)
		}
	}

	page := &ExitPage{Limit: q.Limit, Page: q.Page, All: q.All}
	if page.Limit <= 0 {
		page.Limit = defaultPageSize
	}
	if page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	sortBy := strings.ToLower(q.SortBy)
	if _, ok := exitSorts[sortBy]; !ok {
		sortBy = "created_at"
	}
	sortDir := strings.ToUpper(q.SortDir)
	if sortDir != "ASC" && sortDir != "DESC" {
		sortDir = "DESC"
	}
	page.SortBy, page.SortDir = sortBy, sortDir

	filter := store.ExitFilter{
		From:   from,
		To:     to,
		Status: status,
		Order:  fmt.Sprintf("%s %s, id %s", exitSorts[sortBy], sortDir, sortDir),
		Limit:  page.Limit,
		Offset: (page.Page - 1) * page.Limit,
		All:    q.All,
	}
	if q.StudentID != "" {
		filter.StudentID = e.ids.Canonicalize(q.StudentID)
	}

	err = e.read(ctx, "list exits", func(_ *store.RequestStore, exits *store.ExitStore) error {
		records, total, err := exits.List(filter)
		if err != nil {
			return err
		}
		page.Records, page.Total = records, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

type ClearResult struct {
	Requests  int64 `json:"requests"`
	OpenExits int64 `json:"openExits"`
}

// Clear abandons every open cycle at once, e.g. at the end of a term.
// Exited history is kept.
func (e *Engine) Clear(ctx context.Context) (*ClearResult, error) {
	res := &ClearResult{}
	err := e.inTx(ctx, "clear", func(requests *store.RequestStore, exits *store.ExitStore) error {
		var err error
		if res.Requests, err = requests.DeleteAll(); err != nil {
			return err
		}
		res.OpenExits, err = exits.DeleteOpen()
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.Warn("open cycles cleared", "requests", res.Requests, "open_exits", res.OpenExits)
	e.publish(Event{Type: EventCleared})
	return res, nil
}
