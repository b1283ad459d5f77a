package tickets

import (
	"bugpilot/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CommentView struct {
	ID        uuid.UUID      `json:"id"`
	User      models.UserRef `json:"user"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
}

// View ist ein Ticket mit aufgelösten Benutzer- und Projektreferenzen.
type View struct {
	ID          uuid.UUID             `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      models.TicketStatus   `json:"status"`
	Priority    models.TicketPriority `json:"priority"`
	Project     models.ProjectRef     `json:"project"`
	CreatedBy   models.UserRef        `json:"created_by"`
	Assignees   []models.UserRef      `json:"assignees"`
	Screenshots []string              `json:"screenshots"`
	Comments    []CommentView         `json:"comments"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func newCommentView(c models.Comment, refs map[uuid.UUID]models.UserRef) CommentView {
	return CommentView{ID: c.ID, User: refs[c.AuthorID], Text: c.Text, CreatedAt: c.CreatedAt}
}

// views löst Ersteller, Zugewiesene, Kommentarautoren und Projektnamen gesammelt auf.
func (s *Service) views(ctx context.Context, list ...*models.Ticket) ([]*View, error) {
	views := make([]*View, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	var userIDs, projectIDs []uuid.UUID
	seenProject := make(map[uuid.UUID]struct{})
	for _, t := range list {
		userIDs = append(userIDs, t.CreatedBy)
		userIDs = append(userIDs, t.Assignees...)
		for _, c := range t.Comments {
			userIDs = append(userIDs, c.AuthorID)
		}
		if _, ok := seenProject[t.ProjectID]; !ok {
			seenProject[t.ProjectID] = struct{}{}
			projectIDs = append(projectIDs, t.ProjectID)
		}
	}

	refs, err := s.Directory.ResolveRefs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	projects, err := s.ProjectRepo.GetProjectsByIDs(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Auflösen der Projekte: %w", err)
	}
	projectRefs := make(map[uuid.UUID]models.ProjectRef, len(projects))
	for _, p := range projects {
		projectRefs[p.ID] = models.ProjectRef{ID: p.ID, Name: p.Name}
	}

	for _, t := range list {
		project, ok := projectRefs[t.ProjectID]
		if !ok {
			project = models.ProjectRef{ID: t.ProjectID}
		}
		v := &View{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Project:     project,
			CreatedBy:   refs[t.CreatedBy],
			Assignees:   make([]models.UserRef, 0, len(t.Assignees)),
			Screenshots: append([]string{}, t.Screenshots...),
			Comments:    make([]CommentView, 0, len(t.Comments)),
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		for _, id := range t.Assignees {
			v.Assignees = append(v.Assignees, refs[id])
		}
		for _, c := range t.Comments {
			v.Comments = append(v.Comments, newCommentView(c, refs))
		}
		views = append(views, v)
	}
	return views, nil
}
