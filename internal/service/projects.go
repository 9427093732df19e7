package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trackerd/internal/events"
	"trackerd/internal/metrics"
	"trackerd/internal/models"
	"trackerd/internal/policy"
)

// Projects implements project CRUD and collaborator management. Every
// permission check runs against freshly loaded rows; roles can change between
// requests.
type Projects struct {
	db  *gorm.DB
	pub events.Publisher
}

// NewProjects wires the project service with its broadcast publisher.
func NewProjects(db *gorm.DB, pub events.Publisher) *Projects {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Projects{db: db, pub: pub}
}

// List returns projects the user owns, collaborates on, or has an assigned
// issue within, newest first, annotated with the caller's role and assigned
// issue count.
func (s *Projects) List(ctx context.Context, userID uuid.UUID) ([]ProjectSummary, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	collect := func(more []uuid.UUID) {
		for _, id := range more {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	var owned []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Where("owner_id = ?", userID).Pluck("id", &owned).Error; err != nil {
		return nil, err
	}
	collect(owned)

	var collaborating []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.ProjectCollaborator{}).
		Where("user_id = ?", userID).Pluck("project_id", &collaborating).Error; err != nil {
		return nil, err
	}
	collect(collaborating)

	var assigned []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.IssueAssignee{}).
		Joins("JOIN issues ON issues.id = issue_assignees.issue_id").
		Where("issue_assignees.user_id = ?", userID).
		Pluck("issues.project_id", &assigned).Error; err != nil {
		return nil, err
	}
	collect(assigned)

	if len(ids) == 0 {
		return []ProjectSummary{}, nil
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Preload("Owner").Preload("Collaborators").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for i := range projects {
		summary, err := s.summarize(ctx, userID, &projects[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Create makes the caller the owner and attaches the initial collaborators
// atomically with the project.
func (s *Projects) Create(ctx context.Context, userID uuid.UUID, name string, collaboratorIDs []uuid.UUID) (ProjectSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ProjectSummary{}, validationf("name is required")
	}
	if err := s.ensureUsersExist(ctx, collaboratorIDs); err != nil {
		return ProjectSummary{}, err
	}

	project := models.Project{Name: name, OwnerID: userID}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return insertCollaborators(tx, project.ID, collaboratorIDs)
	}); err != nil {
		return ProjectSummary{}, err
	}

	loaded, err := s.loadProject(ctx, project.ID)
	if err != nil {
		return ProjectSummary{}, err
	}

	summary, err := s.summarize(ctx, userID, loaded)
	if err != nil {
		return ProjectSummary{}, err
	}

	s.pub.Publish(ctx, events.ProjectCreated, summary.ProjectView)
	recordAudit(ctx, s.db, &userID, "project.create", "project", &project.ID, map[string]any{"name": name})
	metrics.Mutations.WithLabelValues("project", "create").Inc()
	log.Info().Str("project", project.ID.String()).Msg("project created")
	return summary, nil
}

// Get returns the project if the caller may read it. A missing project and a
// visible-to-others project produce the same ErrNotFound.
func (s *Projects) Get(ctx context.Context, userID, projectID uuid.UUID) (ProjectSummary, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	if !policy.CanReadProject(userID, project) {
		return ProjectSummary{}, ErrNotFound
	}
	return s.summarize(ctx, userID, project)
}

/// Delete removes the project and everything under it: issues, their assignee
// links, and collaborator links. Owner only.
func (s *Projects) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !policy.CanReadProject(userID, project) {
		return ErrNotFound
	}
	if !policy.CanMutateProject(userID, project) {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issueIDs []uuid.UUID
		if err := tx.Model(&models.Issue{}).Where("project_id = ?", projectID).Pluck("id", &issueIDs).Error; err != nil {
			return err
		}
		if len(issueIDs) > 0 {
			if err := tx.Where("issue_id IN ?", issueIDs).Delete(&models.IssueAssignee{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", issueIDs).Delete(&models.Issue{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectCollaborator{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, "id = ?", projectID).Error
	}); err != nil {
		return err
	}

	s.pub.Publish(ctx, events.ProjectDeleted, Deletion{ID: projectID})
	recordAudit(ctx, s.db, &userID, "project.delete", "project", &projectID, nil)
	metrics.Mutations.WithLabelValues("project", "delete").Inc()
	log.Info().Str("project", projectID.String()).Msg("project deleted")
	return nil
}

// AddCollaborators attaches users to the project. Owner or an existing
// collaborator may add; duplicates are silently ignored.
func (s *Projects) AddCollaborators(ctx context.Context, userID, projectID uuid.UUID, userIDs []uuid.UUID) (ProjectSummary, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	if !policy.CanReadProject(userID, project) {
		return ProjectSummary{}, ErrNotFound
	}
	if len(userIDs) == 0 {
		return ProjectSummary{}, validationf("userIds is required")
	}
	if err := s.ensureUsersExist(ctx, userIDs); err != nil {
		return ProjectSummary{}, err
	}

	if err := insertCollaborators(s.db.WithContext(ctx), projectID, userIDs); err != nil {
		return ProjectSummary{}, err
	}

	loaded, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	summary, err := s.summarize(ctx, userID, loaded)
	if err != nil {
		return ProjectSummary{}, err
	}

	s.pub.Publish(ctx, events.ProjectAssigned, summary.ProjectView)
	recordAudit(ctx, s.db, &userID, "project.add_collaborators", "project", &projectID, map[string]any{"count": len(userIDs)})
	metrics.Mutations.WithLabelValues("project", "assign").Inc()
	return summary, nil
}

// RemoveCollaborators detaches users from the project. Owner only.
func (s *Projects) RemoveCollaborators(ctx context.Context, userID, projectID uuid.UUID, userIDs []uuid.UUID) (ProjectSummary, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	if !policy.CanReadProject(userID, project) {
		return ProjectSummary{}, ErrNotFound
	}
	if !policy.CanMutateProject(userID, project) {
		return ProjectSummary{}, ErrForbidden
	}
	if len(userIDs) == 0 {
		return ProjectSummary{}, validationf("userIds is required")
	}

	if err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id IN ?", projectID, userIDs).
		Delete(&models.ProjectCollaborator{}).Error; err != nil {
		return ProjectSummary{}, err
	}

	loaded, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	summary, err := s.summarize(ctx, userID, loaded)
	if err != nil {
		return ProjectSummary{}, err
	}

	s.pub.Publish(ctx, events.ProjectUnassigned, summary.ProjectView)
	recordAudit(ctx, s.db, &userID, "project.remove_collaborators", "project", &projectID, map[string]any{"count": len(userIDs)})
	metrics.Mutations.WithLabelValues("project", "unassign").Inc()
	return summary, nil
}

// ListCollaborators returns the collaborator set. Owner or collaborator.
func (s *Projects) ListCollaborators(ctx context.Context, userID, projectID uuid.UUID) ([]UserView, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadProject(userID, project) {
		return nil, ErrNotFound
	}
	return newUserViews(project.Collaborators), nil
}

func (s *Projects) loadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).
		Preload("Owner").Preload("Collaborators").
		Where("id = ?", projectID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (s *Projects) summarize(ctx context.Context, userID uuid.UUID, project *models.Project) (ProjectSummary, error) {
	var assigned int64
	err := s.db.WithContext(ctx).Model(&models.IssueAssignee{}).
		Joins("JOIN issues ON issues.id = issue_assignees.issue_id").
		Where("issue_assignees.user_id = ? AND issues.project_id = ?", userID, project.ID).
		Count(&assigned).Error
	if err != nil {
		return ProjectSummary{}, err
	}

	role := policy.RoleOf(userID, project)
	if role == policy.RoleNone && assigned > 0 {
		role = policy.RoleAssignee
	}

	return ProjectSummary{
		ProjectView:   NewProjectView(*project),
		UserRole:      role,
		AssignedCount: assigned,
	}, nil
}

func (s *Projects) ensureUsersExist(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ?", dedupe(userIDs)).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(dedupe(userIDs))) {
		return validationf("unknown user in userIds")
	}
	return nil
}

func insertCollaborators(tx *gorm.DB, projectID uuid.UUID, userIDs []uuid.UUID) error {
	for _, id := range dedupe(userIDs) {
		link := models.ProjectCollaborator{ProjectID: projectID, UserID: id}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
