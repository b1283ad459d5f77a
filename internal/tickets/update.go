package tickets

import (
	"bugpilot/internal/authz"
	"bugpilot/internal/logging"
	"bugpilot/internal/models"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// UpdateInput enthält nur die gesetzten Felder; nil bedeutet "unverändert".
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignees   *[]string
}

type update struct {
	title       *string
	description *string
	status      *models.TicketStatus
	priority    *models.TicketPriority
	assignees   []uuid.UUID
	setAssignee bool
}

func (in UpdateInput) parse() (*update, error) {
	u := &update{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("titel darf nicht leer sein: %w", models.ErrInvalidArgument)
		}
		u.title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		u.description = &description
	}
	if in.Status != nil {
		status, err := models.ParseTicketStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		u.status = &status
	}
	if in.Priority != nil {
		priority, err := models.ParseTicketPriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		u.priority = &priority
	}
	if in.Assignees != nil {
		u.setAssignee = true
		u.assignees = []uuid.UUID{}
		seen := make(map[uuid.UUID]struct{})
		for _, ref := range *in.Assignees {
			id, err := uuid.Parse(ref)
			if err != nil {
				return nil, fmt.Errorf("ungültige Benutzer-ID '%s' in assignees: %w", ref, models.ErrInvalidArgument)
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			u.assignees = append(u.assignees, id)
		}
	}
	return u, nil
}

// touched meldet jedes mitgesendete Feld als berührt, auch wenn der Wert unverändert bleibt.
func (in UpdateInput) touched() authz.TicketChange {
	return authz.TicketChange{
		Title:       in.Title != nil,
		Description: in.Description != nil,
		Status:      in.Status != nil,
		Priority:    in.Priority != nil,
		Assignees:   in.Assignees != nil,
	}
}

func (u *update) apply(t *models.Ticket) {
	if u.title != nil {
		t.Title = *u.title
	}
	if u.description != nil {
		t.Description = *u.description
	}
	if u.status != nil {
		t.Status = *u.status
	}
	if u.priority != nil {
		t.Priority = *u.priority
	}
	if u.setAssignee {
		t.Assignees = u.assignees
	}
}

// Update validiert die Werte, prüft die Berechtigung für alle mitgesendeten Felder und speichert das
// Ticket. Nicht-Ersteller ohne Admin-Rolle dürfen nur als Zugewiesene den Status setzen.
func (s *Service) Update(ctx context.Context, actor uuid.UUID, ticketRef string, in UpdateInput) (*View, error) {
	if _, err := parseID("Ticket-ID", ticketRef); err != nil {
		return nil, err
	}
	u, err := in.parse()
	if err != nil {
		return nil, err
	}

	ticket, project, err := s.load(ctx, ticketRef)
	if err != nil {
		return nil, err
	}

	if !authz.CanViewTicket(actor, project, ticket) {
		err := fmt.Errorf("ticket ist für den Benutzer nicht sichtbar: %w", authz.ErrPermissionDenied)
		logging.LogAccessDenied(ctx, "ticket:update", err, slog.String("ticket_id", ticket.ID.String()))
		return nil, err
	}

	change := in.touched()
	if err := authz.CheckTicketUpdate(actor, project, ticket, change); err != nil {
		logging.LogAccessDenied(ctx, "ticket:update", err, slog.String("ticket_id", ticket.ID.String()))
		return nil, err
	}

	if !change.IsEmpty() {
		u.apply(ticket)
		if err := s.TicketRepo.UpdateTicket(ctx, ticket); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Ticket aktualisiert", slog.String("ticket_id", ticket.ID.String()), slog.String("user_id", actor.String()))
	}

	updated, err := s.TicketRepo.GetTicketByID(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, updated)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
