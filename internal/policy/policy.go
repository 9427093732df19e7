// Package policy holds the pure access-control decision functions. Callers
// load the entities (with collaborators/assignees populated) and re-evaluate
// on every mutating request; nothing here is cached or stateful.
package policy

import (
	"github.com/google/uuid"

	"trackerd/internal/models"
)

// Role is a caller's relationship to a project.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	// RoleAssignee is never produced by RoleOf; project listings derive it for
	// users whose only link to a project is an assigned issue.
	RoleAssignee Role = "assignee"
	RoleNone     Role = "none"
)

// RoleOf resolves the user's role on a project. Ownership wins over a
// collaborator listing. Requires project.Collaborators to be loaded.
func RoleOf(userID uuid.UUID, project *models.Project) Role {
	if project.OwnerID == userID {
		return RoleOwner
	}
	for _, c := range project.Collaborators {
		if c.ID == userID {
			return RoleCollaborator
		}
	}
	return RoleNone
}

// CanMutateProject reports whether the user may delete the project or manage
// its collaborator set. Owner only.
func CanMutateProject(userID uuid.UUID, project *models.Project) bool {
	return RoleOf(userID, project) == RoleOwner
}

// CanReadProject reports whether the user may see the project at all.
func CanReadProject(userID uuid.UUID, project *models.Project) bool {
	return RoleOf(userID, project) != RoleNone
}

// CanMutateIssue reports whether the user may edit, delete, or reassign the
// issue. Only the owner of the parent project may; assignees cannot. Requires
// issue.Project to be loaded.
func CanMutateIssue(userID uuid.UUID, issue *models.Issue) bool {
	return issue.Project.OwnerID == userID
}

// CanReadIssue reports whether the user may see the issue: project owner,
// project collaborator, or assignee. Requires issue.Project (with
// collaborators) and issue.Assignees to be loaded.
func CanReadIssue(userID uuid.UUID, issue *models.Issue) bool {
	if CanReadProject(userID, &issue.Project) {
		return true
	}
	for _, a := range issue.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}
