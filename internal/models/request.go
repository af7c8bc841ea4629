package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request is a student's declaration for the currently open exit cycle.
type Request struct {
	ID            string                    `gorm:"type:varchar(36);primaryKey"`
	StudentID     string                    `gorm:"size:32;not null;uniqueIndex"`
	Name          string                    `gorm:"size:128;not null"`
	Dorm          string                    `gorm:"size:32;not null"`
	Block         string                    `gorm:"size:32;not null"`
	Items         datatypes.JSONSlice[Item] `gorm:"not null"`
	DateOfRequest time.Time                 `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *Request) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
