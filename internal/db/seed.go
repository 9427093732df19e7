package db

import (
	"context"

	"gorm.io/gorm"

	"trackerd/internal/auth"
	"trackerd/internal/models"
)

// Seed inserts a demo owner account when the users table is empty. Intended
// for local development only.
func Seed(ctx context.Context, database *gorm.DB) error {
	var count int64
	if err := database.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	demo := models.User{
		Name:         "Demo Owner",
		Email:        "demo@trackerd.local",
		PasswordHash: hash,
	}
	return database.WithContext(ctx).Create(&demo).Error
}
