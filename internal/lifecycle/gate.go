package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
)

// GateSummary is shown to gate staff after a successful verification.
type GateSummary struct {
	Name         string            `json:"name"`
	StudentID    string            `json:"studentId"`
	Block        string            `json:"block"`
	Dorm         string            `json:"dorm"`
	ApprovedBy   string            `json:"approvedBy"`
	ApprovalDate *time.Time        `json:"approvalDate"`
	Status       models.ExitStatus `json:"status"`
	ShortCode    string            `json:"shortcode"`
	Items        []models.Item     `json:"items"`
}

type FinishInput struct {
	StudentID string `json:"studentId"`
	// ExitedBy names the gate; the actor's gate claim is used when empty.
	ExitedBy string `json:"exitedBy"`
}

// Verify matches a short code and student id against an Authorized record.
// Wrong code, wrong id and already exited all produce the same not-found.
func (e *Engine) Verify(ctx context.Context, actor models.Actor, shortCode, studentID string) (*GateSummary, error) {
	if err := requireActor(actor, models.RoleGate); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(shortCode))
	id := e.ids.Canonicalize(studentID)
	if code == "" || id == "" {
		return nil, apperrors.NewValidationError("validation failed", "shortcode and studentId are required")
	}

	var summary *GateSummary
	err := e.read(ctx, "verify", func(_ *store.RequestStore, exits *store.ExitStore) error {
		rec, err := exits.FindAuthorized(id, code)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperrors.NewNotFoundError("no authorized exit matches the short code and student id")
		}
		summary = &GateSummary{
			Name:         rec.Name,
			StudentID:    rec.StudentID,
			Block:        rec.Block,
			Dorm:         rec.Dorm,
			ApprovedBy:   rec.ApprovedBy,
			ApprovalDate: rec.ApprovalDate,
			Status:       rec.Status,
			ShortCode:    rec.ShortCode,
			Items:        Aggregate(rec.Items),
		}
		return nil
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.log.Warn("gate verification failed", "student_id", id, "gate", actor.Gate, "staff_id", actor.ID)
		}
		return nil, err
	}
	e.log.Info("gate verified", "student_id", id, "gate", actor.Gate)
	return summary, nil
}

// Finish closes an Authorized cycle: the record becomes Exited, its short
// code is cleared and the request row is removed, all in one transaction.
// It does not re-check the short code; callers verify first.
func (e *Engine) Finish(ctx context.Context, actor models.Actor, in FinishInput) (*models.ExitRecord, error) {
	if err := requireActor(actor, models.RoleGate); err != nil {
		return nil, err
	}
	id, err := e.requireStudentID(in.StudentID)
	if err != nil {
		return nil, err
	}
	gate := strings.TrimSpace(in.ExitedBy)
	if gate == "" {
		gate = actor.Gate
	}

	now := e.now()
	var rec *models.ExitRecord
	err = e.inTx(ctx, "finish", func(requests *store.RequestStore, exits *store.ExitStore) error {
		open, err := exits.FindOpen(id, true)
		if err != nil {
			return err
		}
		if open == nil {
			return apperrors.NewNotFoundError("no authorized exit record",
				fmt.Sprintf("no open exit record for %s", id))
		}
		if open.Status != models.StatusAuthorized {
			return apperrors.NewConflictError("exit not authorized",
				fmt.Sprintf("exit record for %s is %s", id, open.Status))
		}

		open.Status = models.StatusExited
		open.ExitDate = &now
		open.ExitedBy = actor.Display()
		open.ExitGate = gate
		open.ShortCode = ""
		if err := exits.Save(open); err != nil {
			return err
		}
		if _, err := requests.Delete(id); err != nil {
			return err
		}
		rec = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("student exited", "student_id", id, "exited_by", rec.ExitedBy, "gate", rec.ExitGate)
	e.publish(Event{Type: EventExited, StudentID: id, Status: models.StatusExited, Actor: rec.ExitedBy, At: now})
	return rec, nil
}
