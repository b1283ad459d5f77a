// Package tickets verwaltet den Lebenszyklus von Tickets: Anlage, Änderungen, Kommentare,
// Screenshots und Löschung.
package tickets

import (
	"bugpilot/internal/authz"
	"bugpilot/internal/database"
	"bugpilot/internal/logging"
	"bugpilot/internal/models"
	"bugpilot/internal/storage"
	"bugpilot/internal/users"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ScreenshotStore speichert und entfernt Screenshot-Dateien.
type ScreenshotStore interface {
	SaveImage(ctx context.Context, originalName string, r io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
	URL(name string) string
}

type Service struct {
	TicketRepo  database.TicketRepository
	ProjectRepo database.ProjectRepository
	Directory   *users.Directory
	Store       ScreenshotStore
	Janitor     *storage.Janitor
}

func NewService(
	ticketRepo database.TicketRepository,
	projectRepo database.ProjectRepository,
	directory *users.Directory,
	store ScreenshotStore,
	janitor *storage.Janitor,
) *Service {
	return &Service{
		TicketRepo:  ticketRepo,
		ProjectRepo: projectRepo,
		Directory:   directory,
		Store:       store,
		Janitor:     janitor,
	}
}

type CreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Priority    string
}

// Create legt ein Ticket an. Das Projekt muss existieren; eine Mitgliedschaft wird nicht geprüft.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*View, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("titel ist erforderlich: %w", models.ErrInvalidArgument)
	}
	projectID, err := parseID("Projekt-ID", in.ProjectID)
	if err != nil {
		return nil, err
	}
	var priority models.TicketPriority
	if in.Priority != "" {
		if priority, err = models.ParseTicketPriority(in.Priority); err != nil {
			return nil, err
		}
	}

	project, err := s.ProjectRepo.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ticket := models.NewTicket(project.ID, actor, in.Title, in.Description, priority)
	if err := s.TicketRepo.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("fehler beim Speichern des Tickets: %w", err)
	}
	slog.InfoContext(ctx, "Ticket erstellt",
		slog.String("ticket_id", ticket.ID.String()),
		slog.String("project_id", project.ID.String()),
		slog.String("user_id", actor.String()),
	)

	views, err := s.views(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Get liefert ein Ticket für Ersteller, Zugewiesene und Projektmitglieder.
func (s *Service) Get(ctx context.Context, actor uuid.UUID, ticketRef string) (*View, error) {
	ticket, project, err := s.load(ctx, ticketRef)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewTicket(actor, project, ticket) {
		err := fmt.Errorf("ticket ist für den Benutzer nicht sichtbar: %w", authz.ErrPermissionDenied)
		logging.LogAccessDenied(ctx, "ticket:view", err, slog.String("ticket_id", ticket.ID.String()))
		return nil, err
	}
	views, err := s.views(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListMine liefert Tickets, die der Benutzer erstellt hat oder die ihm zugewiesen sind, neueste zuerst.
func (s *Service) ListMine(ctx context.Context, actor uuid.UUID) ([]*View, error) {
	list, err := s.TicketRepo.GetTicketsForUser(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Abrufen der Tickets: %w", err)
	}
	return s.views(ctx, list...)
}

// ListByProject ist ListMine beschränkt auf ein Projekt.
func (s *Service) ListByProject(ctx context.Context, actor uuid.UUID, projectRef string) ([]*View, error) {
	projectID, err := parseID("Projekt-ID", projectRef)
	if err != nil {
		return nil, err
	}
	list, err := s.TicketRepo.GetProjectTicketsForUser(ctx, projectID, actor)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Abrufen der Projekttickets: %w", err)
	}
	return s.views(ctx, list...)
}

// Delete entfernt ein Ticket (Ersteller oder Projekt-Admin). Die Screenshot-Dateien werden danach
// im Hintergrund gelöscht; Fehler dabei werden nur geloggt.
func (s *Service) Delete(ctx context.Context, actor uuid.UUID, ticketRef string) error {
	ticket, project, err := s.load(ctx, ticketRef)
	if err != nil {
		return err
	}
	if !authz.CanDeleteTicket(actor, project, ticket) {
		err := fmt.Errorf("nur Ersteller oder Projekt-Admins dürfen Tickets löschen: %w", authz.ErrPermissionDenied)
		logging.LogAccessDenied(ctx, "ticket:delete", err, slog.String("ticket_id", ticket.ID.String()))
		return err
	}

	if err := s.TicketRepo.DeleteTicket(ctx, ticket.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Ticket gelöscht", slog.String("ticket_id", ticket.ID.String()), slog.String("user_id", actor.String()))

	names := make([]string, 0, len(ticket.Screenshots))
	for _, url := range ticket.Screenshots {
		names = append(names, storage.NameFromURL(url))
	}
	s.Janitor.Schedule(ctx, names)
	return nil
}

// AddComment hängt einen Kommentar an. Die Sichtbarkeit des Tickets wird dabei nicht geprüft.
func (s *Service) AddComment(ctx context.Context, actor uuid.UUID, ticketRef, text string) (*CommentView, error) {
	ticketID, err := parseID("Ticket-ID", ticketRef)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("kommentartext darf nicht leer sein: %w", models.ErrInvalidArgument)
	}

	comment := models.NewComment(ticketID, actor, text)
	if err := s.TicketRepo.AddComment(ctx, &comment); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Kommentar hinzugefügt", slog.String("ticket_id", ticketID.String()), slog.String("user_id", actor.String()))

	refs, err := s.Directory.ResolveRefs(ctx, []uuid.UUID{actor})
	if err != nil {
		return nil, err
	}
	view := newCommentView(comment, refs)
	return &view, nil
}

// AttachScreenshot speichert ein Bild und hängt dessen URL an das Ticket. Fehlt das Ticket oder
// scheitert das Speichern der URL, wird die Datei wieder entfernt.
func (s *Service) AttachScreenshot(ctx context.Context, actor uuid.UUID, ticketRef, filename string, r io.Reader) (string, error) {
	ticketID, err := parseID("Ticket-ID", ticketRef)
	if err != nil {
		return "", err
	}

	name, err := s.Store.SaveImage(ctx, filename, r)
	if err != nil {
		return "", err
	}
	url := s.Store.URL(name)

	if err := s.TicketRepo.AddScreenshot(ctx, ticketID, url); err != nil {
		if rmErr := s.Store.Remove(ctx, name); rmErr != nil {
			slog.ErrorContext(ctx, "Fehler beim Entfernen eines verwaisten Screenshots", slog.Any("error", rmErr), slog.String("file", name))
		}
		return "", err
	}
	slog.InfoContext(ctx, "Screenshot hochgeladen",
		slog.String("ticket_id", ticketID.String()),
		slog.String("user_id", actor.String()),
		slog.String("file", name),
	)
	return url, nil
}

// load liest Ticket und Projekt. Ein nicht (mehr) existierendes Projekt ergibt nil,
// sodass nur Ersteller- und Zuweisungsregeln greifen.
func (s *Service) load(ctx context.Context, ticketRef string) (*models.Ticket, *models.Project, error) {
	ticketID, err := parseID("Ticket-ID", ticketRef)
	if err != nil {
		return nil, nil, err
	}
	ticket, err := s.TicketRepo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	project, err := s.ProjectRepo.GetProjectByID(ctx, ticket.ProjectID)
	if err != nil {
		if !errors.Is(err, database.ErrProjectNotFound) {
			return nil, nil, err
		}
		slog.WarnContext(ctx, "Projekt des Tickets existiert nicht", slog.String("ticket_id", ticket.ID.String()), slog.String("project_id", ticket.ProjectID.String()))
		project = nil
	}
	return ticket, project, nil
}

func parseID(label, ref string) (uuid.UUID, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ungültige %s '%s': %w", label, ref, models.ErrInvalidArgument)
	}
	return id, nil
}
