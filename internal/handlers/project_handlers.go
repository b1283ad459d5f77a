package handlers

import (
	"bugpilot/internal/projects"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ProjectHandlers struct {
	Projects *projects.Service
}

func NewProjectHandlers(projectService *projects.Service) *ProjectHandlers {
	return &ProjectHandlers{Projects: projectService}
}

func (h *ProjectHandlers) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	detail, err := h.Projects.Create(ctx, actor, req.Name, req.Description)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, detail, http.StatusCreated)
}

// GetMyProjectsHandler listet alle Projekte, die der Benutzer besitzt oder in denen er Mitglied ist.
func (h *ProjectHandlers) GetMyProjectsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	list, err := h.Projects.ListFor(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, list, http.StatusOK)
}

func (h *ProjectHandlers) GetProjectDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	detail, err := h.Projects.Get(ctx, actor, chi.URLParam(r, "projectID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, detail, http.StatusOK)
}

func (h *ProjectHandlers) AddMembersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	var req AddMembersRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	candidates := make([]projects.Candidate, 0, len(req.NewMembers))
	for _, m := range req.NewMembers {
		candidates = append(candidates, projects.Candidate{UserID: m.User, Role: m.Role})
	}

	detail, added, err := h.Projects.AddMembers(ctx, actor, chi.URLParam(r, "projectID"), candidates)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if !added {
		writeJSONResponse(w, MembersResponse{Message: "Alle Benutzer sind bereits Mitglieder"}, http.StatusOK)
		return
	}
	writeJSONResponse(w, MembersResponse{Message: "Mitglieder hinzugefügt", Project: detail}, http.StatusOK)
}
