package db

import (
	"context"

	"gorm.io/gorm"

	"trackerd/internal/models"
)

// Migrate performs schema migrations for the persistent models.
func Migrate(ctx context.Context, database *gorm.DB) error {
	if err := database.SetupJoinTable(&models.Project{}, "Collaborators", &models.ProjectCollaborator{}); err != nil {
		return err
	}
	if err := database.SetupJoinTable(&models.Issue{}, "Assignees", &models.IssueAssignee{}); err != nil {
		return err
	}

	return database.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.OneTimePassword{},
		&models.Project{},
		&models.ProjectCollaborator{},
		&models.Issue{},
		&models.IssueAssignee{},
		&models.AuditLog{},
	)
}
