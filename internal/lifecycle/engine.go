// Package lifecycle owns the exit-slip state machine: a student's request
// moves from Not-Authorized to Authorized (short code issued) to Exited, or is
// discarded by a denial. Every transition that touches more than one row runs
// inside a single transaction.
package lifecycle

import (
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/zaqqye/exit_slip_backend/internal/apperrors"
	"github.com/zaqqye/exit_slip_backend/internal/logger"
	"github.com/zaqqye/exit_slip_backend/internal/models"
	"github.com/zaqqye/exit_slip_backend/internal/store"
)

const (
	defaultStoreTimeout    = 5 * time.Second
	defaultShortCodeLength = 6
	shortCodeAttempts      = 8
)

type Options struct {
	InstitutionCode string
	ShortCodeLength int
	StoreTimeout    time.Duration
	Notifier        Notifier
	Logger          *slog.Logger
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

type Engine struct {
	db       *gorm.DB
	ids      Canonicalizer
	codeLen  int
	timeout  time.Duration
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func New(db *gorm.DB, opts Options) *Engine {
	e := &Engine{
		db:       db,
		ids:      NewCanonicalizer(opts.InstitutionCode),
		codeLen:  opts.ShortCodeLength,
		timeout:  opts.StoreTimeout,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if e.codeLen <= 0 {
		e.codeLen = defaultShortCodeLength
	}
	if e.timeout <= 0 {
		e.timeout = defaultStoreTimeout
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	e.log = e.log.With("component", "lifecycle")
	return e
}

// Canonicalize exposes the engine's student id normalization.
func (e *Engine) Canonicalize(id string) string {
	return e.ids.Canonicalize(id)
}

type storeFunc func(requests *store.RequestStore, exits *store.ExitStore) error

// inTx runs fn in one transaction bounded by the store timeout. Any error
// returned by fn rolls the whole transaction back.
func (e *Engine) inTx(ctx context.Context, op string, fn storeFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(store.NewRequestStore(tx), store.NewExitStore(tx))
	})
	return e.translate(ctx, op, err)
}

// read runs fn outside a transaction with the same timeout.
func (e *Engine) read(ctx context.Context, op string, fn storeFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	db := e.db.WithContext(ctx)
	err := fn(store.NewRequestStore(db), store.NewExitStore(db))
	return e.translate(ctx, op, err)
}

func (e *Engine) translate(ctx context.Context, op string, err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if store.IsDuplicateKey(err) {
		return apperrors.NewConflictError("duplicate key", "another open record already uses this key")
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		e.log.Error("storage unavailable", "op", op, "error", err)
		return apperrors.NewStorageUnavailableError(err)
	}
	e.log.Error("storage failure", "op", op, "error", err)
	return apperrors.NewStorageError(err)
}

// requireActor checks the resolved identity; admin passes every role check.
func requireActor(actor models.Actor, roles ...string) error {
	if actor.ID == "" {
		return apperrors.NewUnauthorizedError("staff identity required")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.NewForbiddenError("role not permitted", actor.Role)
}

func (e *Engine) requireStudentID(raw string) (string, error) {
	id := e.ids.Canonicalize(raw)
	if id == "" {
		return "", apperrors.NewValidationError("validation failed", "studentId is required")
	}
	return id, nil
}

func copyItems(items []models.Item) []models.Item {
	return append([]models.Item(nil), items...)
}
