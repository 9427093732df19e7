package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project groups issues under a single owning user. Collaborators gain read
// access through the project_collaborators join table.
type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Owner         User    `gorm:"constraint:OnDelete:CASCADE;foreignKey:OwnerID;references:ID"`
	Collaborators []User  `gorm:"many2many:project_collaborators;joinForeignKey:ProjectID;joinReferences:UserID"`
	Issues        []Issue `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
