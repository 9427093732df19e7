package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectCollaborator ties a user to a project with read access. The composite
// primary key keeps a user listed at most once per project.
type ProjectCollaborator struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Project Project `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID"`
	User    User    `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}
