package store

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/exit_slip_backend/internal/models"
)

// ExitStore reads and writes the exit_records table.
type ExitStore struct {
	db *gorm.DB
}

func NewExitStore(db *gorm.DB) *ExitStore {
	return &ExitStore{db: db}
}

// FindOpen returns the student's non-Exited record, or nil, nil.
func (s *ExitStore) FindOpen(studentID string, forUpdate bool) (*models.ExitRecord, error) {
	q := s.db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return first(q.Where("student_id = ? AND status <> ?", studentID, models.StatusExited))
}

// FindLatest returns the most recent record of any status, or nil, nil.
func (s *ExitStore) FindLatest(studentID string) (*models.ExitRecord, error) {
	return first(s.db.Where("student_id = ?", studentID).Order("id DESC"))
}

// FindAuthorized matches a live short code held by the given student.
func (s *ExitStore) FindAuthorized(studentID, shortCode string) (*models.ExitRecord, error) {
	return first(s.db.Where("student_id = ? AND short_code = ? AND status = ?",
		studentID, shortCode, models.StatusAuthorized))
}

func (s *ExitStore) ShortCodeInUse(code string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ExitRecord{}).
		Where("short_code = ? AND status = ?", code, models.StatusAuthorized).
		Count(&count).Error
	return count > 0, err
}

func (s *ExitStore) Create(rec *models.ExitRecord) error {
	return s.db.Create(rec).Error
}

func (s *ExitStore) Save(rec *models.ExitRecord) error {
	return s.db.Save(rec).Error
}

func (s *ExitStore) Delete(id uint) (int64, error) {
	res := s.db.Delete(&models.ExitRecord{}, id)
	return res.RowsAffected, res.Error
}

// DeleteOpen drops every record that has not reached Exited.
func (s *ExitStore) DeleteOpen() (int64, error) {
	res := s.db.Where("status <> ?", models.StatusExited).Delete(&models.ExitRecord{})
	return res.RowsAffected, res.Error
}

type ExitFilter struct {
	From      *time.Time
	To        *time.Time
	Status    models.ExitStatus
	StudentID string
	Order     string
	Limit     int
	Offset    int
	All       bool
}

// List returns the matching page and the total match count.
func (s *ExitStore) List(f ExitFilter) ([]models.ExitRecord, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if f.From != nil {
			q = q.Where("created_at >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where("created_at < ?", *f.To)
		}
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.StudentID != "" {
			q = q.Where("student_id = ?", f.StudentID)
		}
		return q
	}

	var total int64
	if err := scope(s.db.Model(&models.ExitRecord{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQ := scope(s.db.Model(&models.ExitRecord{}))
	if f.Order != "" {
		listQ = listQ.Order(f.Order)
	}
	if !f.All {
		listQ = listQ.Offset(f.Offset).Limit(f.Limit)
	}
	var out []models.ExitRecord
	if err := listQ.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func first(q *gorm.DB) (*models.ExitRecord, error) {
	var rec models.ExitRecord
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
