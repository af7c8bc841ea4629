package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
)

// Submission is the student-facing declaration used by both submit and update.
type Submission struct {
	StudentID string        `json:"studentId" validate:"required,max=32"`
	Name      string        `json:"name" validate:"required,max=128"`
	Dorm      string        `json:"dorm" validate:"required,max=32"`
	Block     string        `json:"block" validate:"required,max=32"`
	Items     []models.Item `json:"items" validate:"required,min=1,dive"`
}

// RequestView is what a proctor sees when searching by student id.
type RequestView struct {
	StudentID     string            `json:"studentId"`
	Name          string            `json:"name"`
	Dorm          string            `json:"dorm"`
	Block         string            `json:"block"`
	DateOfRequest time.Time         `json:"dateOfRequest"`
	Items         []models.Item     `json:"items"`
	Status        models.ExitStatus `json:"status"`
	ShortCode     string            `json:"shortCode,omitempty"`
}

func (e *Engine) normalize(in Submission) Submission {
	in.StudentID = e.ids.Canonicalize(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.Dorm = strings.TrimSpace(in.Dorm)
	in.Block = strings.TrimSpace(in.Block)
	items := make([]models.Item, len(in.Items))
	for i, it := range in.Items {
		items[i] = models.Item{Name: strings.TrimSpace(it.Name), Quantity: it.Quantity}
	}
	in.Items = items
	return in
}

// Submit opens a new exit cycle. It fails with a conflict while the student
// still has a cycle that has not reached Exited.
func (e *Engine) Submit(ctx context.Context, in Submission) (*models.Request, error) {
	in = e.normalize(in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := e.now()
	req := &models.Request{
		StudentID:     in.StudentID,
		Name:          in.Name,
		Dorm:          in.Dorm,
		Block:         in.Block,
		Items:         datatypes.JSONSlice[models.Item](copyItems(in.Items)),
		DateOfRequest: now,
	}
	err := e.inTx(ctx, "submit", func(requests *store.RequestStore, exits *store.ExitStore) error {
		open, err := exits.FindOpen(in.StudentID, true)
		if err != nil {
			return err
		}
		if open != nil {
			return apperrors.NewConflictError("cycle still open",
				fmt.Sprintf("exit record for %s is %s", in.StudentID, open.Status))
		}
		existing, err := requests.Find(in.StudentID, true)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.NewConflictError("duplicate key",
				fmt.Sprintf("a request for %s already exists", in.StudentID))
		}
		if err := requests.Create(req); err != nil {
			return err
		}
		return exits.Create(&models.ExitRecord{
			StudentID: in.StudentID,
			RequestID: req.ID,
			Name:      in.Name,
			Dorm:      in.Dorm,
			Block:     in.Block,
			Status:    models.StatusNotAuthorized,
			Items:     datatypes.JSONSlice[models.Item](copyItems(in.Items)),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("request submitted", "student_id", req.StudentID, "request_id", req.ID, "items", len(req.Items))
	e.publish(Event{Type: EventSubmitted, StudentID: req.StudentID, Status: models.StatusNotAuthorized, At: now})
	return req, nil
}

// Update amends an existing request in place. The open exit record picks up
// the new details only while it is still Not-Authorized; after authorization
// it keeps the snapshot the proctor approved.
func (e *Engine) Update(ctx context.Context, in Submission) error {
	in = e.normalize(in)
	if err := validateStruct(in); err != nil {
		return err
	}

	err := e.inTx(ctx, "update", func(requests *store.RequestStore, exits *store.ExitStore) error {
		req, err := requests.Find(in.StudentID, true)
		if err != nil {
			return err
		}
		if req == nil {
			return apperrors.NewNotFoundError("request not found",
				fmt.Sprintf("no request found for %s", in.StudentID))
		}
		req.Name = in.Name
		req.Dorm = in.Dorm
		req.Block = in.Block
		req.Items = datatypes.JSONSlice[models.Item](copyItems(in.Items))
		if err := requests.Save(req); err != nil {
			return err
		}

		open, err := exits.FindOpen(in.StudentID, true)
		if err != nil {
			return err
		}
		if open == nil || open.Status != models.StatusNotAuthorized {
			return nil
		}
		open.Name = in.Name
		open.Dorm = in.Dorm
		open.Block = in.Block
		open.Items = datatypes.JSONSlice[models.Item](copyItems(in.Items))
		return exits.Save(open)
	})
	if err != nil {
		return err
	}

	e.log.Info("request updated", "student_id", in.StudentID)
	e.publish(Event{Type: EventUpdated, StudentID: in.StudentID})
	return nil
}

// Lookup returns the request with aggregated items and the current status.
func (e *Engine) Lookup(ctx context.Context, studentID string) (*RequestView, error) {
	id, err := e.requireStudentID(studentID)
	if err != nil {
		return nil, err
	}

	var view *RequestView
	err = e.read(ctx, "lookup", func(requests *store.RequestStore, exits *store.ExitStore) error {
		req, err := requests.Find(id, false)
		if err != nil {
			return err
		}
		if req == nil {
			return apperrors.NewNotFoundError("student not found")
		}
		open, err := exits.FindOpen(id, false)
		if err != nil {
			return err
		}
		view = &RequestView{
			StudentID:     req.StudentID,
			Name:          req.Name,
			Dorm:          req.Dorm,
			Block:         req.Block,
			DateOfRequest: req.DateOfRequest,
			Items:         Aggregate(req.Items),
			Status:        models.StatusNotAuthorized,
		}
		if open != nil {
			view.Status = open.Status
			if open.Status == models.StatusAuthorized {
				view.ShortCode = open.ShortCode
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
