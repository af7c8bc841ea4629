package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/exit_slip_backend/internal/models"
)

// RequestStore reads and writes the requests table. Bind it to a transaction
// handle to make its calls part of that transaction.
type RequestStore struct {
	db *gorm.DB
}

func NewRequestStore(db *gorm.DB) *RequestStore {
	return &RequestStore{db: db}
}

// Find returns nil, nil when the student has no request row.
func (s *RequestStore) Find(studentID string, forUpdate bool) (*models.Request, error) {
	q := s.db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req models.Request
	if err := q.Where("student_id = ?", studentID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (s *RequestStore) Create(req *models.Request) error {
	return s.db.Create(req).Error
}

func (s *RequestStore) Save(req *models.Request) error {
	return s.db.Save(req).Error
}

func (s *RequestStore) Delete(studentID string) (int64, error) {
	res := s.db.Where("student_id = ?", studentID).Delete(&models.Request{})
	return res.RowsAffected, res.Error
}

func (s *RequestStore) DeleteAll() (int64, error) {
	res := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Request{})
	return res.RowsAffected, res.Error
}
