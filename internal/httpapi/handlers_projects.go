package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trackerd/internal/service"
)

// pathID parses the {id} route parameter. An unparseable id cannot reference
// anything, so it reports the same not-found as a missing entity.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, service.ErrNotFound
	}
	return id, nil
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	projects, err := a.projects.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string      `json:"name"`
		CollaboratorIDs []uuid.UUID `json:"collaboratorIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	user := currentUser(r)
	project, err := a.projects.Create(r.Context(), user.ID, req.Name, req.CollaboratorIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"project": project})
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	user := currentUser(r)
	project, err := a.projects.Get(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	user := currentUser(r)
	if err := a.projects.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) handleAddCollaborators(w http.ResponseWriter, r *http.Request) {
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
	project, err := a.projects.AddCollaborators(r.Context(), user.ID, id, req.UserIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (a *API) handleRemoveCollaborators(w http.ResponseWriter, r *http.Request) {
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
	project, err := a.projects.RemoveCollaborators(r.Context(), user.ID, id, req.UserIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"project": project})
}

func (a *API) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	user := currentUser(r)
	collaborators, err := a.projects.ListCollaborators(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collaborators": collaborators})
}
