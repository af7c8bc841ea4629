package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
	"github.com/zaqqye/exit_slip_backend/internal/testutil"
)

var (
	proctor   = models.Actor{ID: "p-1", Name: "Proctor One", Role: models.RoleProctor}
	gateStaff = models.Actor{ID: "g-1", Name: "Gate One", Role: models.RoleGate, Gate: "Main"}
	testNow   = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *recorder) {
	t.Helper()
	db := testutil.NewTestDB(t)
	rec := &recorder{}
	e := New(db, Options{
		Notifier: rec,
		Now:      func() time.Time { return testNow },
	})
	return e, db, rec
}

func sampleSubmission(studentID string) Submission {
	return Submission{
		StudentID: studentID,
		Name:      "Abebe Kebede",
		Dorm:      "12",
		Block:     "57",
		Items: []models.Item{
			{Name: "Books", Quantity: 2},
			{Name: "Shoes", Quantity: 1},
			{Name: "Books", Quantity: 1},
		},
	}
}

func openRecord(t *testing.T, db *gorm.DB, studentID string) *models.ExitRecord {
	t.Helper()
	rec, err := store.NewExitStore(db).FindOpen(studentID, false)
	require.NoError(t, err)
	return rec
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates request and pending exit record", func(t *testing.T) {
		e, db, events := newTestEngine(t)

		req, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		assert.NotEmpty(t, req.ID)
		assert.Equal(t, "ETS1234/56", req.StudentID)
		assert.Equal(t, testNow, req.DateOfRequest)
		assert.Len(t, req.Items, 3)

		rec := openRecord(t, db, "ETS1234/56")
		require.NotNil(t, rec)
		assert.Equal(t, models.StatusNotAuthorized, rec.Status)
		assert.Equal(t, req.ID, rec.RequestID)
		assert.Empty(t, rec.ShortCode)
		assert.Equal(t, []EventType{EventSubmitted}, events.types())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		e, _, _ := newTestEngine(t)

		noItems := sampleSubmission("1234/56")
		noItems.Items = nil
		_, err := e.Submit(ctx, noItems)
		assert.True(t, apperrors.IsValidation(err))

		zeroQty := sampleSubmission("1234/56")
		zeroQty.Items = []models.Item{{Name: "Books", Quantity: 0}}
		_, err = e.Submit(ctx, zeroQty)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, apperrors.GetAppError(err).Details, "items[0].quantity must be at least 1")

		blankName := sampleSubmission("1234/56")
		blankName.Name = "   "
		_, err = e.Submit(ctx, blankName)
		require.True(t, apperrors.IsValidation(err))
		assert.Contains(t, apperrors.GetAppError(err).Details, "name is required")
	})

	t.Run("rejects a second open cycle", func(t *testing.T) {
		e, _, _ := newTestEngine(t)

		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)

		_, err = e.Submit(ctx, sampleSubmission("ets1234/56"))
		require.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "cycle still open", apperrors.GetAppError(err).Message)
	})

	t.Run("allows a new cycle after exit", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		runFullCycle(t, e, "1234/56")

		req, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		assert.Equal(t, "ETS1234/56", req.StudentID)

		var count int64
		require.NoError(t, db.Model(&models.ExitRecord{}).Where("student_id = ?", "ETS1234/56").Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func runFullCycle(t *testing.T, e *Engine, studentID string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.Submit(ctx, sampleSubmission(studentID))
	require.NoError(t, err)
	auth, err := e.Authorize(ctx, proctor, studentID)
	require.NoError(t, err)
	_, err = e.Verify(ctx, gateStaff, auth.ShortCode, studentID)
	require.NoError(t, err)
	_, err = e.Finish(ctx, gateStaff, FinishInput{StudentID: studentID})
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing request", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		err := e.Update(ctx, sampleSubmission("1234/56"))
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("overwrites details and keeps date of request", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)

		later := testNow.Add(2 * time.Hour)
		e.now = func() time.Time { return later }

		changed := sampleSubmission("ETS1234/56")
		changed.Dorm = "14"
		changed.Items = []models.Item{{Name: "Electronics", Quantity: 1}}
		require.NoError(t, e.Update(ctx, changed))

		view, err := e.Lookup(ctx, "1234/56")
		require.NoError(t, err)
		assert.Equal(t, "14", view.Dorm)
		assert.Equal(t, []models.Item{{Name: "Electronics", Quantity: 1}}, view.Items)
		assert.True(t, testNow.Equal(view.DateOfRequest))

		rec := openRecord(t, db, "ETS1234/56")
		assert.Equal(t, "14", rec.Dorm)
		assert.Equal(t, models.StatusNotAuthorized, rec.Status)
	})

	t.Run("keeps the approved snapshot after authorization", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		_, err = e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		changed := sampleSubmission("1234/56")
		changed.Items = []models.Item{{Name: "Electronics", Quantity: 5}}
		require.NoError(t, e.Update(ctx, changed))

		rec := openRecord(t, db, "ETS1234/56")
		assert.Equal(t, models.StatusAuthorized, rec.Status)
		assert.Len(t, rec.Items, 3)
	})
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	_, err := e.Lookup(ctx, "1234/56")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = e.Lookup(ctx, " ")
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.Submit(ctx, sampleSubmission("1234/56"))
	require.NoError(t, err)

	view, err := e.Lookup(ctx, "ets1234/56")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotAuthorized, view.Status)
	assert.Empty(t, view.ShortCode)
	assert.Equal(t, []models.Item{
		{Name: "Books", Quantity: 3},
		{Name: "Shoes", Quantity: 1},
	}, view.Items)

	auth, err := e.Authorize(ctx, proctor, "1234/56")
	require.NoError(t, err)

	view, err = e.Lookup(ctx, "1234/56")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAuthorized, view.Status)
	assert.Equal(t, auth.ShortCode, view.ShortCode)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a short code", func(t *testing.T) {
		e, db, events := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)

		auth, err := e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)
		assert.Len(t, auth.ShortCode, 6)
		assert.Equal(t, "Proctor One", auth.ApprovedBy)
		assert.Equal(t, testNow, auth.ApprovalDate)

		rec := openRecord(t, db, "ETS1234/56")
		assert.Equal(t, models.StatusAuthorized, rec.Status)
		assert.Equal(t, auth.ShortCode, rec.ShortCode)
		assert.Equal(t, "Proctor One", rec.ApprovedBy)
		require.NotNil(t, rec.ApprovalDate)
		assert.True(t, testNow.Equal(*rec.ApprovalDate))
		assert.Equal(t, []EventType{EventSubmitted, EventAuthorized}, events.types())
	})

	t.Run("refuses to re-issue", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		first, err := e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		_, err = e.Authorize(ctx, proctor, "1234/56")
		assert.True(t, apperrors.IsConflict(err))
		assert.Equal(t, first.ShortCode, openRecord(t, db, "ETS1234/56").ShortCode)
	})

	t.Run("exited record is not found", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		runFullCycle(t, e, "1234/56")

		_, err := e.Authorize(ctx, proctor, "1234/56")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("unknown student", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.Authorize(ctx, proctor, "9999/99")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("requires a proctor", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)

		_, err = e.Authorize(ctx, models.Actor{}, "1234/56")
		assert.True(t, apperrors.IsUnauthorized(err))

		_, err = e.Authorize(ctx, gateStaff, "1234/56")
		assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.GetAppError(err).Type)

		admin := models.Actor{ID: "a-1", Name: "Admin", Role: models.RoleAdmin}
		_, err = e.Authorize(ctx, admin, "1234/56")
		assert.NoError(t, err)
	})

	t.Run("codes differ between students", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		codes := map[string]bool{}
		for _, id := range []string{"0001/15", "0002/15", "0003/15", "0004/15"} {
			_, err := e.Submit(ctx, sampleSubmission(id))
			require.NoError(t, err)
			auth, err := e.Authorize(ctx, proctor, id)
			require.NoError(t, err)
			assert.False(t, codes[auth.ShortCode])
			codes[auth.ShortCode] = true
		}
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	_, err := e.Submit(ctx, sampleSubmission("1234/56"))
	require.NoError(t, err)

	_, err = e.Verify(ctx, gateStaff, "ABCDEF", "1234/56")
	assert.True(t, apperrors.IsNotFound(err), "not-authorized record must not verify")

	auth, err := e.Authorize(ctx, proctor, "1234/56")
	require.NoError(t, err)
	_, err = e.Submit(ctx, sampleSubmission("4321/65"))
	require.NoError(t, err)

	t.Run("matching code and id", func(t *testing.T) {
		summary, err := e.Verify(ctx, gateStaff, auth.ShortCode, "ETS1234/56")
		require.NoError(t, err)
		assert.Equal(t, "Abebe Kebede", summary.Name)
		assert.Equal(t, "ETS1234/56", summary.StudentID)
		assert.Equal(t, "57", summary.Block)
		assert.Equal(t, "12", summary.Dorm)
		assert.Equal(t, "Proctor One", summary.ApprovedBy)
		assert.Equal(t, models.StatusAuthorized, summary.Status)
		assert.Equal(t, auth.ShortCode, summary.ShortCode)
		assert.Equal(t, []models.Item{
			{Name: "Books", Quantity: 3},
			{Name: "Shoes", Quantity: 1},
		}, summary.Items)
	})

	t.Run("normalizes inputs", func(t *testing.T) {
		_, err := e.Verify(ctx, gateStaff, " "+strings.ToLower(auth.ShortCode)+" ", "1234/56")
		assert.NoError(t, err)
	})

	t.Run("mismatches are not found", func(t *testing.T) {
		_, err := e.Verify(ctx, gateStaff, "ZZZZZZ", "1234/56")
		assert.True(t, apperrors.IsNotFound(err))

		_, err = e.Verify(ctx, gateStaff, auth.ShortCode, "4321/65")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("both fields required", func(t *testing.T) {
		_, err := e.Verify(ctx, gateStaff, "", "1234/56")
		assert.True(t, apperrors.IsValidation(err))

		_, err = e.Verify(ctx, gateStaff, auth.ShortCode, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("exited record no longer verifies", func(t *testing.T) {
		_, err := e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56"})
		require.NoError(t, err)

		_, err = e.Verify(ctx, gateStaff, auth.ShortCode, "1234/56")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestFinish(t *testing.T) {
	ctx := context.Background()

	t.Run("closes the cycle", func(t *testing.T) {
		e, db, events := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		_, err = e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		rec, err := e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusExited, rec.Status)
		assert.Empty(t, rec.ShortCode)
		assert.Equal(t, "Gate One", rec.ExitedBy)
		assert.Equal(t, "Main", rec.ExitGate)
		require.NotNil(t, rec.ExitDate)
		assert.True(t, testNow.Equal(*rec.ExitDate))

		assert.Nil(t, openRecord(t, db, "ETS1234/56"))
		latest, err := store.NewExitStore(db).FindLatest("ETS1234/56")
		require.NoError(t, err)
		assert.Equal(t, models.StatusExited, latest.Status)
		assert.Empty(t, latest.ShortCode)

		_, err = e.Lookup(ctx, "1234/56")
		assert.True(t, apperrors.IsNotFound(err), "request row is removed on exit")

		assert.Equal(t, []EventType{EventSubmitted, EventAuthorized, EventExited}, events.types())
	})

	t.Run("gate name from input", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		_, err = e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		rec, err := e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56", ExitedBy: "North Gate"})
		require.NoError(t, err)
		assert.Equal(t, "North Gate", rec.ExitGate)
	})

	t.Run("second finish fails", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		runFullCycle(t, e, "1234/56")

		_, err := e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("not yet authorized", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)

		_, err = e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56"})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("rolls back when a step fails", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		auth, err := e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_request_delete", func(tx *gorm.DB) {
			if tx.Statement.Table == "requests" {
				tx.AddError(errors.New("disk full"))
			}
		}))

		_, err = e.Finish(ctx, gateStaff, FinishInput{StudentID: "1234/56"})
		require.True(t, apperrors.IsStorage(err))
		assert.NotContains(t, apperrors.GetAppError(err).Message, "disk full")

		rec := openRecord(t, db, "ETS1234/56")
		require.NotNil(t, rec)
		assert.Equal(t, models.StatusAuthorized, rec.Status)
		assert.Equal(t, auth.ShortCode, rec.ShortCode)
		assert.Nil(t, rec.ExitDate)
	})
}

func TestDeny(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the open cycle", func(t *testing.T) {
		e, db, _ := newTestEngine(t)
		_, err := e.Submit(ctx, sampleSubmission("1234/56"))
		require.NoError(t, err)
		_, err = e.Authorize(ctx, proctor, "1234/56")
		require.NoError(t, err)

		require.NoError(t, e.Deny(ctx, proctor, "ets1234/56"))

		assert.Nil(t, openRecord(t, db, "ETS1234/56"))
		_, err = e.Lookup(ctx, "1234/56")
		assert.True(t, apperrors.IsNotFound(err))

		err = e.Deny(ctx, proctor, "1234/56")
		assert.True(t, apperrors.IsNotFound(err))

		_, err = e.Submit(ctx, sampleSubmission("1234/56"))
		assert.NoError(t, err, "a denied cycle does not block a new one")
	})

	t.Run("exited cycle cannot be denied", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		runFullCycle(t, e, "1234/56")

		err := e.Deny(ctx, proctor, "1234/56")
		require.True(t, apperrors.IsConflict(err))
		assert.Equal(t, "already exited", apperrors.GetAppError(err).Message)
	})

	t.Run("unknown student", func(t *testing.T) {
		e, _, _ := newTestEngine(t)
		err := e.Deny(ctx, proctor, "1234/56")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestListExits(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	runFullCycle(t, e, "0001/15")
	_, err := e.Submit(ctx, sampleSubmission("0002/15"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, sampleSubmission("0003/15"))
	require.NoError(t, err)
	_, err = e.Authorize(ctx, proctor, "0003/15")
	require.NoError(t, err)

	page, err := e.ListExits(ctx, ExitQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Records, 3)
	assert.Equal(t, "created_at", page.SortBy)
	assert.Equal(t, "DESC", page.SortDir)

	page, err = e.ListExits(ctx, ExitQuery{Status: string(models.StatusExited)})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "ETS0001/15", page.Records[0].StudentID)

	page, err = e.ListExits(ctx, ExitQuery{StudentID: "0003/15", Range: "today"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, models.StatusAuthorized, page.Records[0].Status)

	page, err = e.ListExits(ctx, ExitQuery{Limit: 2, Page: 2, SortBy: "id", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "ETS0003/15", page.Records[0].StudentID)

	_, err = e.ListExits(ctx, ExitQuery{Status: "Denied"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = e.ListExits(ctx, ExitQuery{Range: "decade"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	e, db, events := newTestEngine(t)

	runFullCycle(t, e, "0001/15")
	_, err := e.Submit(ctx, sampleSubmission("0002/15"))
	require.NoError(t, err)
	_, err = e.Submit(ctx, sampleSubmission("0003/15"))
	require.NoError(t, err)
	_, err = e.Authorize(ctx, proctor, "0003/15")
	require.NoError(t, err)

	res, err := e.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Requests)
	assert.Equal(t, int64(2), res.OpenExits)

	var remaining []models.ExitRecord
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.StatusExited, remaining[0].Status)
	assert.Contains(t, events.types(), EventCleared)
}

func TestCanceledContextIsUnavailable(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Submit(ctx, sampleSubmission("1234/56"))
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeStorageUnavailable, appErr.Type)
	assert.True(t, appErr.Retryable())
}
