package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
	"github.com/zaqqye/exit_slip_backend/internal/utils"
)

type Authorization struct {
	StudentID    string    `json:"studentId"`
	ShortCode    string    `json:"shortCode"`
	ApprovedBy   string    `json:"approvedBy"`
	ApprovalDate time.Time `json:"approvalDate"`
}

// Authorize moves a Not-Authorized record to Authorized and mints a short
// code that no other Authorized record holds.
func (e *Engine) Authorize(ctx context.Context, actor models.Actor, studentID string) (*Authorization, error) {
	if err := requireActor(actor, models.RoleProctor); err != nil {
		return nil, err
	}
	id, err := e.requireStudentID(studentID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var out *Authorization
	err = e.inTx(ctx, "authorize", func(requests *store.RequestStore, exits *store.ExitStore) error {
		rec, err := exits.FindOpen(id, true)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperrors.NewNotFoundError("no pending request",
				fmt.Sprintf("no open exit record for %s", id))
		}
		if rec.Status != models.StatusNotAuthorized {
			return apperrors.NewConflictError("already authorized",
				fmt.Sprintf("exit record for %s is %s", id, rec.Status))
		}

		req, err := requests.Find(id, false)
		if err != nil {
			return err
		}
		if req != nil {
			rec.RequestID = req.ID
			rec.Name = req.Name
			rec.Dorm = req.Dorm
			rec.Block = req.Block
			rec.Items = datatypes.JSONSlice[models.Item](copyItems(req.Items))
		}

		code, err := utils.GenerateUniqueCode(e.codeLen, shortCodeAttempts, exits.ShortCodeInUse)
		if errors.Is(err, utils.ErrCodeSpaceExhausted) {
			return apperrors.NewConflictError("could not mint a unique short code, retry")
		}
		if err != nil {
			return err
		}

		rec.Status = models.StatusAuthorized
		rec.ShortCode = code
		rec.ApprovedBy = actor.Display()
		rec.ApprovalDate = &now
		if err := exits.Save(rec); err != nil {
			return err
		}
		out = &Authorization{
			StudentID:    id,
			ShortCode:    code,
			ApprovedBy:   rec.ApprovedBy,
			ApprovalDate: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("exit authorized", "student_id", id, "approved_by", out.ApprovedBy)
	e.publish(Event{Type: EventAuthorized, StudentID: id, Status: models.StatusAuthorized, Actor: out.ApprovedBy, At: now})
	return out, nil
}

// Deny discards an open cycle: the exit record and the request are deleted.
// A cycle that already reached Exited cannot be denied.
func (e *Engine) Deny(ctx context.Context, actor models.Actor, studentID string) error {
	if err := requireActor(actor, models.RoleProctor); err != nil {
		return err
	}
	id, err := e.requireStudentID(studentID)
	if err != nil {
		return err
	}

	err = e.inTx(ctx, "deny", func(requests *store.RequestStore, exits *store.ExitStore) error {
		open, err := exits.FindOpen(id, true)
		if err != nil {
			return err
		}
		if open != nil {
			if _, err := exits.Delete(open.ID); err != nil {
				return err
			}
			_, err := requests.Delete(id)
			return err
		}

		// A request row without an exit record is still an open cycle.
		removed, err := requests.Delete(id)
		if err != nil {
			return err
		}
		if removed > 0 {
			return nil
		}

		latest, err := exits.FindLatest(id)
		if err != nil {
			return err
		}
		if latest != nil {
			return apperrors.NewConflictError("already exited",
				"cannot deny a request that has already exited")
		}
		return apperrors.NewNotFoundError("request not found")
	})
	if err != nil {
		return err
	}

	e.log.Info("request denied", "student_id", id, "denied_by", actor.Display())
	e.publish(Event{Type: EventDenied, StudentID: id, Actor: actor.Display()})
	return nil
}
