package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Issue status values.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Issue priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidStatus reports whether s is one of the accepted issue statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the accepted issue priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Issue is a unit of work inside a project. Assignees gain read access to the
// issue through the issue_assignees join table.
type Issue struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	Status      string    `gorm:"type:text;not null;default:open;index"`
	Priority    string    `gorm:"type:text;not null;default:medium;index"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Project   Project `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID"`
	Assignees []User  `gorm:"many2many:issue_assignees;joinForeignKey:IssueID;joinReferences:UserID"`
}

func (i *Issue) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
