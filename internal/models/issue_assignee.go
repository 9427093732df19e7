package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueAssignee ties a user to an issue. Deleting the user removes the
// assignment; the issue itself survives.
type IssueAssignee struct {
	IssueID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Issue Issue `gorm:"constraint:OnDelete:CASCADE;foreignKey:IssueID;references:ID"`
	User  User  `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}
