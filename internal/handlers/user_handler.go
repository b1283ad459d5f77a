package handlers

import (
	"bugpilot/internal/users"
	"net/http"
)

type UserHandlers struct {
	Directory *users.Directory
}

func NewUserHandlers(directory *users.Directory) *UserHandlers {
	return &UserHandlers{Directory: directory}
}

// SearchUsersHandler: ?email=<fragment>&projectId=<optional>
func (h *UserHandlers) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	refs, err := h.Directory.Search(ctx, actor, query.Get("email"), query.Get("projectId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, refs, http.StatusOK)
}
