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

// Issues implements issue CRUD and assignee management. Mutations are owner
// gated and every successful one broadcasts the fully hydrated issue.
type Issues struct {
	db  *gorm.DB
	pub events.Publisher
}

// NewIssues wires the issue service with its broadcast publisher.
func NewIssues(db *gorm.DB, pub events.Publisher) *Issues {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Issues{db: db, pub: pub}
}

// IssueFilter narrows List results. Zero values mean "no filter".
type IssueFilter struct {
	ProjectID *uuid.UUID
	Status    string
	Priority  string
	Search    string
}

// CreateIssueInput carries the fields accepted at creation.
type CreateIssueInput struct {
	ProjectID   uuid.UUID
	Title       string
	Description string
	Priority    string
	AssigneeIDs []uuid.UUID
}

// IssuePatch applies partial updates. Nil fields are untouched; AssigneeIDs,
// when present, replaces the entire assignee set.
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeIDs *[]uuid.UUID
}

// List returns issues visible to the user: those in projects the user owns
// plus those the user is assigned to. Newest created first.
func (s *Issues) List(ctx context.Context, userID uuid.UUID, filter IssueFilter) ([]IssueView, error) {
	q := s.db.WithContext(ctx).Model(&models.Issue{}).
		Select("issues.*").
		Joins("JOIN projects ON projects.id = issues.project_id").
		Joins("LEFT JOIN issue_assignees ON issue_assignees.issue_id = issues.id AND issue_assignees.user_id = ?", userID).
		Where("projects.owner_id = ? OR issue_assignees.user_id IS NOT NULL", userID)

	if filter.ProjectID != nil {
		q = q.Where("issues.project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		if !models.ValidStatus(filter.Status) {
			return nil, validationf("invalid status %q", filter.Status)
		}
		q = q.Where("issues.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		if !models.ValidPriority(filter.Priority) {
			return nil, validationf("invalid priority %q", filter.Priority)
		}
		q = q.Where("issues.priority = ?", filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q = q.Where("LOWER(issues.title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var issues []models.Issue
	if err := q.Preload("Project").Preload("Assignees").
		Order("issues.created_at DESC").
		Find(&issues).Error; err != nil {
		return nil, err
	}

	views := make([]IssueView, len(issues))
	for i, issue := range issues {
		views[i] = NewIssueView(issue)
	}
	return views, nil
}

// Create adds an issue to a project the caller owns. Initial assignee links
// are created atomically with the issue.
func (s *Issues) Create(ctx context.Context, userID uuid.UUID, in CreateIssueInput) (IssueView, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return IssueView{}, validationf("title is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(in.Priority) {
		return IssueView{}, validationf("invalid priority %q", in.Priority)
	}

	var project models.Project
	err := s.db.WithContext(ctx).Preload("Collaborators").
		Where("id = ?", in.ProjectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssueView{}, ErrNotFound
		}
		return IssueView{}, err
	}
	if !policy.CanReadProject(userID, &project) {
		return IssueView{}, ErrNotFound
	}
	if !policy.CanMutateProject(userID, &project) {
		return IssueView{}, ErrForbidden
	}
	if err := s.ensureUsersExist(ctx, in.AssigneeIDs); err != nil {
		return IssueView{}, err
	}

	issue := models.Issue{
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusOpen,
		Priority:    in.Priority,
		ProjectID:   in.ProjectID,
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		return insertAssignees(tx, issue.ID, in.AssigneeIDs)
	}); err != nil {
		return IssueView{}, err
	}

	view, err := s.hydrate(ctx, issue.ID)
	if err != nil {
		return IssueView{}, err
	}

	s.pub.Publish(ctx, events.IssueCreated, view)
	recordAudit(ctx, s.db, &userID, "issue.create", "issue", &issue.ID, map[string]any{"project": in.ProjectID.String()})
	metrics.Mutations.WithLabelValues("issue", "create").Inc()
	log.Info().Str("issue", issue.ID.String()).Msg("issue created")
	return view, nil
}

// Update applies a partial patch. Present fields overwrite; AssigneeIDs
// replaces the full assignee set in the same transaction
// (delete-all-then-recreate, not a diff).
func (s *Issues) Update(ctx context.Context, userID, issueID uuid.UUID, patch IssuePatch) (IssueView, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return IssueView{}, err
	}
	if !policy.CanReadIssue(userID, issue) {
		return IssueView{}, ErrNotFound
	}
	if !policy.CanMutateIssue(userID, issue) {
		return IssueView{}, ErrForbidden
	}

	updates := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return IssueView{}, validationf("title cannot be empty")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Status != nil {
		if !models.ValidStatus(*patch.Status) {
			return IssueView{}, validationf("invalid status %q", *patch.Status)
		}
		updates["status"] = *patch.Status
	}
	if patch.Priority != nil {
		if !models.ValidPriority(*patch.Priority) {
			return IssueView{}, validationf("invalid priority %q", *patch.Priority)
		}
		updates["priority"] = *patch.Priority
	}
	if patch.AssigneeIDs != nil {
		if err := s.ensureUsersExist(ctx, *patch.AssigneeIDs); err != nil {
			return IssueView{}, err
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.Issue{}).Where("id = ?", issueID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if patch.AssigneeIDs != nil {
			if err := tx.Where("issue_id = ?", issueID).Delete(&models.IssueAssignee{}).Error; err != nil {
				return err
			}
			if err := insertAssignees(tx, issueID, *patch.AssigneeIDs); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return IssueView{}, err
	}

	view, err := s.hydrate(ctx, issueID)
	if err != nil {
		return IssueView{}, err
	}

	s.pub.Publish(ctx, events.IssueUpdated, view)
	recordAudit(ctx, s.db, &userID, "issue.update", "issue", &issueID, nil)
	metrics.Mutations.WithLabelValues("issue", "update").Inc()
	return view, nil
}

// Assign adds assignees, silently ignoring ones already assigned.
func (s *Issues) Assign(ctx context.Context, userID, issueID uuid.UUID, userIDs []uuid.UUID) (IssueView, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return IssueView{}, err
	}
	if !policy.CanReadIssue(userID, issue) {
		return IssueView{}, ErrNotFound
	}
	if !policy.CanMutateIssue(userID, issue) {
		return IssueView{}, ErrForbidden
	}
	if len(userIDs) == 0 {
		return IssueView{}, validationf("userIds is required")
	}
	if err := s.ensureUsersExist(ctx, userIDs); err != nil {
		return IssueView{}, err
	}

	if err := insertAssignees(s.db.WithContext(ctx), issueID, userIDs); err != nil {
		return IssueView{}, err
	}

	view, err := s.hydrate(ctx, issueID)
	if err != nil {
		return IssueView{}, err
	}

	s.pub.Publish(ctx, events.IssueAssigned, view)
	recordAudit(ctx, s.db, &userID, "issue.assign", "issue", &issueID, map[string]any{"count": len(userIDs)})
	metrics.Mutations.WithLabelValues("issue", "assign").Inc()
	return view, nil
}

// Unassign removes the given assignees, or every assignee when userIDs is
// empty. The returned slice holds exactly the users actually removed.
func (s *Issues) Unassign(ctx context.Context, userID, issueID uuid.UUID, userIDs []uuid.UUID) (IssueView, []UserView, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return IssueView{}, nil, err
	}
	if !policy.CanReadIssue(userID, issue) {
		return IssueView{}, nil, ErrNotFound
	}
	if !policy.CanMutateIssue(userID, issue) {
		return IssueView{}, nil, ErrForbidden
	}

	var removed []models.User
	if len(userIDs) == 0 {
		removed = issue.Assignees
	} else {
		requested := make(map[uuid.UUID]struct{}, len(userIDs))
		for _, id := range userIDs {
			requested[id] = struct{}{}
		}
		for _, a := range issue.Assignees {
			if _, ok := requested[a.ID]; ok {
				removed = append(removed, a)
			}
		}
	}

	if len(removed) > 0 {
		removedIDs := make([]uuid.UUID, len(removed))
		for i, u := range removed {
			removedIDs[i] = u.ID
		}
		if err := s.db.WithContext(ctx).
			Where("issue_id = ? AND user_id IN ?", issueID, removedIDs).
			Delete(&models.IssueAssignee{}).Error; err != nil {
			return IssueView{}, nil, err
		}
	}

	view, err := s.hydrate(ctx, issueID)
	if err != nil {
		return IssueView{}, nil, err
	}

	s.pub.Publish(ctx, events.IssueUnassigned, view)
	recordAudit(ctx, s.db, &userID, "issue.unassign", "issue", &issueID, map[string]any{"count": len(removed)})
	metrics.Mutations.WithLabelValues("issue", "unassign").Inc()
	return view, newUserViews(removed), nil
}

// Delete removes the issue and its assignee links. Project owner only.
func (s *Issues) Delete(ctx context.Context, userID, issueID uuid.UUID) error {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if !policy.CanReadIssue(userID, issue) {
		return ErrNotFound
	}
	if !policy.CanMutateIssue(userID, issue) {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", issueID).Delete(&models.IssueAssignee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Issue{}, "id = ?", issueID).Error
	}); err != nil {
		return err
	}

	s.pub.Publish(ctx, events.IssueDeleted, Deletion{ID: issueID})
	recordAudit(ctx, s.db, &userID, "issue.delete", "issue", &issueID, nil)
	metrics.Mutations.WithLabelValues("issue", "delete").Inc()
	log.Info().Str("issue", issueID.String()).Msg("issue deleted")
	return nil
}

func (s *Issues) loadIssue(ctx context.Context, issueID uuid.UUID) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.WithContext(ctx).
		Preload("Project").Preload("Project.Collaborators").Preload("Assignees").
		Where("id = ?", issueID).
		First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (s *Issues) hydrate(ctx context.Context, issueID uuid.UUID) (IssueView, error) {
	issue, err := s.loadIssue(ctx, issueID)
	if err != nil {
		return IssueView{}, err
	}
	return NewIssueView(*issue), nil
}

func (s *Issues) ensureUsersExist(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	unique := dedupe(userIDs)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ?", unique).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(unique)) {
		return validationf("unknown user in userIds")
	}
	return nil
}

func insertAssignees(tx *gorm.DB, issueID uuid.UUID, userIDs []uuid.UUID) error {
	for _, id := range dedupe(userIDs) {
		link := models.IssueAssignee{IssueID: issueID, UserID: id}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}
