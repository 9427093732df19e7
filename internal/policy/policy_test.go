package policy

import (
	"testing"

	"github.com/google/uuid"

	"trackerd/internal/models"
)

func TestRoleOf(t *testing.T) {
	owner := uuid.New()
	collaborator := uuid.New()
	stranger := uuid.New()

	project := &models.Project{
		ID:      uuid.New(),
		OwnerID: owner,
		Collaborators: []models.User{
			{ID: collaborator},
			// the owner can also appear in the collaborator list; ownership
			// must still win
			{ID: owner},
		},
	}

	tests := []struct {
		name string
		user uuid.UUID
		want Role
	}{
		{"owner", owner, RoleOwner},
		{"collaborator", collaborator, RoleCollaborator},
		{"stranger", stranger, RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleOf(tt.user, project); got != tt.want {
				t.Fatalf("RoleOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectPermissions(t *testing.T) {
	owner := uuid.New()
	collaborator := uuid.New()
	stranger := uuid.New()

	project := &models.Project{
		OwnerID:       owner,
		Collaborators: []models.User{{ID: collaborator}},
	}

	if !CanMutateProject(owner, project) {
		t.Fatal("owner must be able to mutate the project")
	}
	if CanMutateProject(collaborator, project) {
		t.Fatal("collaborator must not be able to mutate the project")
	}
	if !CanReadProject(collaborator, project) {
		t.Fatal("collaborator must be able to read the project")
	}
	if CanReadProject(stranger, project) {
		t.Fatal("stranger must not be able to read the project")
	}
}

func TestIssuePermissions(t *testing.T) {
	owner := uuid.New()
	collaborator := uuid.New()
	assignee := uuid.New()
	stranger := uuid.New()

	issue := &models.Issue{
		Project: models.Project{
			OwnerID:       owner,
			Collaborators: []models.User{{ID: collaborator}},
		},
		Assignees: []models.User{{ID: assignee}},
	}

	if !CanMutateIssue(owner, issue) {
		t.Fatal("project owner must be able to mutate the issue")
	}
	for name, user := range map[string]uuid.UUID{
		"collaborator": collaborator,
		"assignee":     assignee,
		"stranger":     stranger,
	} {
		if CanMutateIssue(user, issue) {
			t.Fatalf("%s must not be able to mutate the issue", name)
		}
	}

	for name, user := range map[string]uuid.UUID{
		"owner":        owner,
		"collaborator": collaborator,
		"assignee":     assignee,
	} {
		if !CanReadIssue(user, issue) {
			t.Fatalf("%s must be able to read the issue", name)
		}
	}
	if CanReadIssue(stranger, issue) {
		t.Fatal("stranger must not be able to read the issue")
	}
}
