package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExitStatus string

const (
	StatusNotAuthorized ExitStatus = "Not-Authorized"
	StatusAuthorized    ExitStatus = "Authorized"
	StatusExited        ExitStatus = "Exited"
)

// ExitRecord tracks one exit cycle. The partial unique indexes keep at most
// one open record per student and one holder per live short code.
type ExitRecord struct {
	ID           uint                      `gorm:"primaryKey"`
	StudentID    string                    `gorm:"size:32;not null;index;uniqueIndex:idx_exit_open_student,where:status <> 'Exited'"`
	RequestID    string                    `gorm:"type:varchar(36)"`
	Name         string                    `gorm:"size:128"`
	Dorm         string                    `gorm:"size:32"`
	Block        string                    `gorm:"size:32"`
	Status       ExitStatus                `gorm:"size:16;not null;index"`
	ShortCode    string                    `gorm:"size:16;uniqueIndex:idx_exit_live_code,where:status = 'Authorized'"`
	ApprovedBy   string                    `gorm:"size:128"`
	ApprovalDate *time.Time
	ExitedBy     string                    `gorm:"size:128"`
	ExitGate     string                    `gorm:"size:64"`
	ExitDate     *time.Time                `gorm:"index"`
	Items        datatypes.JSONSlice[Item]
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (e ExitRecord) IsOpen() bool {
	return e.Status != StatusExited
}
