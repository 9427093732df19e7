package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"trackerd/internal/events"
	"trackerd/internal/models"
)

func TestCreateIssueDefaults(t *testing.T) {
	database, projects, issues, rec := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	assignee := mustCreateUser(t, database, "B", "b@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "Fix login bug",
		AssigneeIDs: []uuid.UUID{assignee.ID},
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	if issue.Status != models.StatusOpen {
		t.Fatalf("status = %q, want open", issue.Status)
	}
	if issue.Priority != models.PriorityMedium {
		t.Fatalf("priority = %q, want medium", issue.Priority)
	}
	if issue.ProjectName != "Roadmap" {
		t.Fatalf("project name = %q, want Roadmap", issue.ProjectName)
	}
	if len(issue.Assignees) != 1 || issue.Assignees[0].ID != assignee.ID {
		t.Fatalf("assignees = %+v, want [%s]", issue.Assignees, assignee.ID)
	}

	names := rec.Names()
	if names[len(names)-1] != events.IssueCreated {
		t.Fatalf("last event = %v, want issue:created", names[len(names)-1])
	}
}

func TestCreateIssuePermissions(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	collab := mustCreateUser(t, database, "B", "b@example.com")
	stranger := mustCreateUser(t, database, "C", "c@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", []uuid.UUID{collab.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	// a collaborator can see the project, so the refusal is explicit
	_, err = issues.Create(ctx, collab.ID, CreateIssueInput{ProjectID: project.ID, Title: "x"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("collaborator create error = %v, want ErrForbidden", err)
	}

	// a stranger cannot tell the project exists
	_, err = issues.Create(ctx, stranger.ID, CreateIssueInput{ProjectID: project.ID, Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger create error = %v, want ErrNotFound", err)
	}
}

func TestUpdateReplacesAssigneeSet(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	userB := mustCreateUser(t, database, "B", "b@example.com")
	userC := mustCreateUser(t, database, "C", "c@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "Fix login bug",
		AssigneeIDs: []uuid.UUID{userB.ID, userC.ID},
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	replacement := []uuid.UUID{userC.ID}
	updated, err := issues.Update(ctx, owner.ID, issue.ID, IssuePatch{AssigneeIDs: &replacement})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// replace, not merge
	if len(updated.Assignees) != 1 || updated.Assignees[0].ID != userC.ID {
		t.Fatalf("assignees after patch = %+v, want exactly [%s]", updated.Assignees, userC.ID)
	}
}

func TestUpdatePatchSemantics(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "Fix login bug",
		Description: "users cannot sign in",
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	status := models.StatusInProgress
	updated, err := issues.Update(ctx, owner.ID, issue.ID, IssuePatch{Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Status != models.StatusInProgress {
		t.Fatalf("status = %q, want in_progress", updated.Status)
	}
	// absent fields are untouched
	if updated.Title != "Fix login bug" || updated.Description != "users cannot sign in" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	bad := "blocked"
	if _, err := issues.Update(ctx, owner.ID, issue.ID, IssuePatch{Status: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("invalid status error = %v, want ErrValidation", err)
	}
}

func TestAssignIdempotent(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	userB := mustCreateUser(t, database, "B", "b@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{ProjectID: project.ID, Title: "t"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := issues.Assign(ctx, owner.ID, issue.ID, []uuid.UUID{userB.ID}); err != nil {
			t.Fatalf("assign attempt %d: %v", i+1, err)
		}
	}

	var links int64
	if err := database.Model(&models.IssueAssignee{}).
		Where("issue_id = ?", issue.ID).Count(&links).Error; err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 1 {
		t.Fatalf("%d assignment rows, want 1", links)
	}
}

func TestUnassignAllReturnsRemovedSet(t *testing.T) {
	database, projects, issues, rec := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	userB := mustCreateUser(t, database, "B", "b@example.com")
	userC := mustCreateUser(t, database, "C", "c@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "t",
		AssigneeIDs: []uuid.UUID{userB.ID, userC.ID},
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	updated, removed, err := issues.Unassign(ctx, owner.ID, issue.ID, nil)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if len(updated.Assignees) != 0 {
		t.Fatalf("%d assignees remain, want 0", len(updated.Assignees))
	}

	got := map[uuid.UUID]bool{}
	for _, u := range removed {
		got[u.ID] = true
	}
	if len(removed) != 2 || !got[userB.ID] || !got[userC.ID] {
		t.Fatalf("removed = %+v, want exactly {B, C}", removed)
	}

	names := rec.Names()
	if names[len(names)-1] != events.IssueUnassigned {
		t.Fatalf("last event = %v, want issue:unassigned", names[len(names)-1])
	}
}

func TestListIssueFilters(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID: project.ID, Title: "Fix Login Bug", Priority: models.PriorityHigh,
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if _, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID: project.ID, Title: "Fix signup bug",
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	// case-insensitive substring on the title
	got, err := issues.List(ctx, owner.ID, IssueFilter{Search: "login"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Fix Login Bug" {
		t.Fatalf("search result = %+v, want the login issue only", got)
	}

	got, err = issues.List(ctx, owner.ID, IssueFilter{Priority: models.PriorityHigh})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Priority != models.PriorityHigh {
		t.Fatalf("priority filter = %+v, want the high priority issue only", got)
	}

	if _, err := issues.List(ctx, owner.ID, IssueFilter{Status: "nope"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("invalid status filter error = %v, want ErrValidation", err)
	}
}

func TestListIssueVisibility(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	collab := mustCreateUser(t, database, "B", "b@example.com")
	assignee := mustCreateUser(t, database, "C", "c@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", []uuid.UUID{collab.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "assigned one",
		AssigneeIDs: []uuid.UUID{assignee.ID},
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if _, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID: project.ID,
		Title:     "unassigned one",
	}); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	ownerSees, err := issues.List(ctx, owner.ID, IssueFilter{})
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(ownerSees) != 2 {
		t.Fatalf("owner sees %d issues, want 2", len(ownerSees))
	}

	assigneeSees, err := issues.List(ctx, assignee.ID, IssueFilter{})
	if err != nil {
		t.Fatalf("assignee list: %v", err)
	}
	if len(assigneeSees) != 1 || assigneeSees[0].Title != "assigned one" {
		t.Fatalf("assignee sees %+v, want the assigned issue only", assigneeSees)
	}

	// the listing covers owned and assigned issues; collaborators read
	// through the project surface instead
	collabSees, err := issues.List(ctx, collab.ID, IssueFilter{})
	if err != nil {
		t.Fatalf("collaborator list: %v", err)
	}
	if len(collabSees) != 0 {
		t.Fatalf("collaborator sees %d issues in the list, want 0", len(collabSees))
	}
}

func TestListIssueOrdering(t *testing.T) {
	database, projects, issues, _ := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	first, err := issues.Create(ctx, owner.ID, CreateIssueInput{ProjectID: project.ID, Title: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// force a strictly older timestamp on the first issue; sqlite timestamps
	// can otherwise collide within the test
	if err := database.Model(&models.Issue{}).Where("id = ?", first.ID).
		Update("created_at", first.CreatedAt.Add(-time.Second)).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	second, err := issues.Create(ctx, owner.ID, CreateIssueInput{ProjectID: project.ID, Title: "second"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := issues.List(ctx, owner.ID, IssueFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID {
		t.Fatalf("order = %+v, want newest first", got)
	}
}

func TestDeleteIssue(t *testing.T) {
	database, projects, issues, rec := newProjectFixture(t)
	ctx := context.Background()

	owner := mustCreateUser(t, database, "A", "a@example.com")
	assignee := mustCreateUser(t, database, "B", "b@example.com")

	project, err := projects.Create(ctx, owner.ID, "Roadmap", nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	issue, err := issues.Create(ctx, owner.ID, CreateIssueInput{
		ProjectID:   project.ID,
		Title:       "t",
		AssigneeIDs: []uuid.UUID{assignee.ID},
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}

	if err := issues.Delete(ctx, assignee.ID, issue.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("assignee delete error = %v, want ErrForbidden", err)
	}
	if err := issues.Delete(ctx, owner.ID, issue.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	var count int64
	if err := database.Model(&models.IssueAssignee{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("%d assignment rows survived, want 0", count)
	}

	names := rec.Names()
	if names[len(names)-1] != events.IssueDeleted {
		t.Fatalf("last event = %v, want issue:deleted", names[len(names)-1])
	}
}
