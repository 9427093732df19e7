package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"trackerd/internal/service"
)

func (a *API) handleListIssues(w http.ResponseWriter, r *http.Request) {
	filter := service.IssueFilter{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
		Search:   r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("projectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondServiceError(w, r, service.ErrNotFound)
			return
		}
		filter.ProjectID = &id
	}

	user := currentUser(r)
	issues, err := a.issues.List(r.Context(), user.ID, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"issues": issues})
}

func (a *API) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string      `json:"title"`
		ProjectID   uuid.UUID   `json:"projectId"`
		Description string      `json:"description"`
		Priority    string      `json:"priority"`
		AssigneeIDs []uuid.UUID `json:"assigneeIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user := currentUser(r)
	issue, err := a.issues.Create(r.Context(), user.ID, service.CreateIssueInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"issue": issue})
}

func (a *API) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req struct {
		Title       *string      `json:"title"`
		Description *string      `json:"description"`
		Status      *string      `json:"status"`
		Priority    *string      `json:"priority"`
		AssigneeIDs *[]uuid.UUID `json:"assigneeIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user := currentUser(r)
	issue, err := a.issues.Update(r.Context(), user.ID, id, service.IssuePatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeIDs: req.AssigneeIDs,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"issue": issue})
}

func (a *API) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	user := currentUser(r)
	if err := a.issues.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleAssignIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var req struct {
		UserIDs []uuid.UUID `json:"userIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user := currentUser(r)
	issue, err := a.issues.Assign(r.Context(), user.ID, id, req.UserIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"issue": issue})
}

func (a *API) handleUnassignIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	// body is optional: no userIds means remove every assignee
	var req struct {
		UserIDs []uuid.UUID `json:"userIds"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user := currentUser(r)
	issue, removed, err := a.issues.Unassign(r.Context(), user.ID, id, req.UserIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"issue": issue, "removed": removed})
}
