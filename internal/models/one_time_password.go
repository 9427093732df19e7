package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OneTimePassword stores a short-lived numeric reset code. Records are keyed
// by email rather than user id so a request for an unknown address can be
// answered without revealing whether the account exists.
type OneTimePassword struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:text;not null;index"`
	Code      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (o *OneTimePassword) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the code is no longer usable at the given instant.
func (o *OneTimePassword) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
