package service

import (
	"time"

	"github.com/google/uuid"

	"trackerd/internal/models"
	"trackerd/internal/policy"
)

// UserView is the public shape of a user; the password hash never leaves the
// service layer.
type UserView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserView(u models.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func newUserViews(users []models.User) []UserView {
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = NewUserView(u)
	}
	return views
}

// ProjectView is a fully hydrated project.
type ProjectView struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	OwnerID       uuid.UUID  `json:"ownerId"`
	Owner         UserView   `json:"owner"`
	Collaborators []UserView `json:"collaborators"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func NewProjectView(p models.Project) ProjectView {
	return ProjectView{
		ID:            p.ID,
		Name:          p.Name,
		OwnerID:       p.OwnerID,
		Owner:         NewUserView(p.Owner),
		Collaborators: newUserViews(p.Collaborators),
		CreatedAt:     p.CreatedAt,
	}
}

// ProjectSummary annotates a project with the caller's relationship to it.
type ProjectSummary struct {
	ProjectView
	UserRole      policy.Role `json:"userRole"`
	AssignedCount int64       `json:"assignedIssueCount"`
}

// IssueView is a fully hydrated issue, including the parent project name and
// assignee identities so subscribers never need a follow-up fetch.
type IssueView struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ProjectID   uuid.UUID  `json:"projectId"`
	ProjectName string     `json:"projectName"`
	Assignees   []UserView `json:"assignees"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func NewIssueView(i models.Issue) IssueView {
	return IssueView{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      i.Status,
		Priority:    i.Priority,
		ProjectID:   i.ProjectID,
		ProjectName: i.Project.Name,
		Assignees:   newUserViews(i.Assignees),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// Deletion is the broadcast payload for delete events.
type Deletion struct {
	ID uuid.UUID `json:"id"`
}
