package database

import (
	"bugpilot/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const ticketColumns = `t.id, t.title, t.description, t.status, t.priority, t.project_id, t.created_by, t.created_at, t.updated_at`

func (r *sqlxRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fehler beim Starten der Transaktion: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO tickets (id, title, description, status, priority, project_id, created_by, created_at, updated_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		ticket.ID.String(),
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ProjectID.String(),
		ticket.CreatedBy.String(),
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Erstellen des Tickets", slog.Any("error", err), slog.String("project_id", ticket.ProjectID.String()))
		return err
	}
	if err := replaceAssignees(ctx, tx, ticket.ID, ticket.Assignees); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fehler beim Commit der Transaktion: %w", err)
	}
	slog.DebugContext(ctx, "Ticket erfolgreich in DB erstellt", slog.String("ticket_id", ticket.ID.String()))
	return nil
}

func (r *sqlxRepository) GetTicketByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id = ? LIMIT 1`
	err := r.db.GetContext(ctx, &ticket, query, ticketID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "Ticket nicht gefunden", slog.String("ticket_id", ticketID.String()))
			return nil, ErrTicketNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Abrufen des Tickets", slog.Any("error", err), slog.String("ticket_id", ticketID.String()))
		return nil, err
	}
	if err := r.loadTicketChildren(ctx, []*models.Ticket{&ticket}); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *sqlxRepository) GetTicketsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Ticket, error) {
	query := `SELECT DISTINCT ` + ticketColumns + ` FROM tickets t
	           LEFT JOIN ticket_assignees ta ON t.id = ta.ticket_id
	           WHERE t.created_by = ? OR ta.user_id = ?
	           ORDER BY t.created_at DESC`
	return r.selectTickets(ctx, query, userID.String(), userID.String())
}

func (r *sqlxRepository) GetProjectTicketsForUser(ctx context.Context, projectID, userID uuid.UUID) ([]*models.Ticket, error) {
	query := `SELECT DISTINCT ` + ticketColumns + ` FROM tickets t
	           LEFT JOIN ticket_assignees ta ON t.id = ta.ticket_id
	           WHERE t.project_id = ? AND (t.created_by = ? OR ta.user_id = ?)
	           ORDER BY t.created_at DESC`
	return r.selectTickets(ctx, query, projectID.String(), userID.String(), userID.String())
}

func (r *sqlxRepository) selectTickets(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Abrufen der Tickets", slog.Any("error", err))
		return nil, err
	}
	if err := r.loadTicketChildren(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// UpdateTicket schreibt die skalaren Felder und ersetzt die Zuweisungen vollständig.
func (r *sqlxRepository) UpdateTicket(ctx context.Context, ticket *models.Ticket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fehler beim Starten der Transaktion: %w", err)
	}
	defer tx.Rollback()

	ticket.UpdatedAt = time.Now().UTC()
	query := `UPDATE tickets SET title = ?, description = ?, status = ?, priority = ?, updated_at = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.UpdatedAt,
		ticket.ID.String(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Aktualisieren des Tickets", slog.Any("error", err), slog.String("ticket_id", ticket.ID.String()))
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		slog.WarnContext(ctx, "Versuch, nicht existierendes Ticket zu aktualisieren", slog.String("ticket_id", ticket.ID.String()))
		return ErrTicketNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_assignees WHERE ticket_id = ?`, ticket.ID.String()); err != nil {
		return err
	}
	if err := replaceAssignees(ctx, tx, ticket.ID, ticket.Assignees); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fehler beim Commit der Transaktion: %w", err)
	}
	slog.DebugContext(ctx, "Ticket erfolgreich aktualisiert", slog.String("ticket_id", ticket.ID.String()))
	return nil
}

func replaceAssignees(ctx context.Context, tx *sqlx.Tx, ticketID uuid.UUID, assignees []uuid.UUID) error {
	for _, userID := range assignees {
		_, err := tx.ExecContext(ctx, `INSERT INTO ticket_assignees (ticket_id, user_id) VALUES (?, ?)`, ticketID.String(), userID.String())
		if err != nil {
			slog.ErrorContext(ctx, "Fehler beim Speichern der Zuweisung", slog.Any("error", err), slog.String("ticket_id", ticketID.String()))
			return err
		}
	}
	return nil
}

// DeleteTicket entfernt das Ticket. Zuweisungen, Screenshots und Kommentare folgen per ON DELETE CASCADE.
func (r *sqlxRepository) DeleteTicket(ctx context.Context, ticketID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, ticketID.String())
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Löschen des Tickets", slog.Any("error", err), slog.String("ticket_id", ticketID.String()))
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrTicketNotFound
	}
	slog.DebugContext(ctx, "Ticket erfolgreich gelöscht", slog.String("ticket_id", ticketID.String()))
	return nil
}

func (r *sqlxRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	query := `INSERT INTO ticket_comments (id, ticket_id, author_id, text, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID.String(),
		comment.TicketID.String(),
		comment.AuthorID.String(),
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTicketNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Speichern des Kommentars", slog.Any("error", err), slog.String("ticket_id", comment.TicketID.String()))
		return err
	}
	return nil
}

func (r *sqlxRepository) AddScreenshot(ctx context.Context, ticketID uuid.UUID, url string) error {
	query := `INSERT INTO ticket_screenshots (ticket_id, url, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, ticketID.String(), url, time.Now().UTC())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTicketNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Speichern des Screenshots", slog.Any("error", err), slog.String("ticket_id", ticketID.String()))
		return err
	}
	return nil
}

type assigneeRow struct {
	TicketID string    `db:"ticket_id"`
	UserID   uuid.UUID `db:"user_id"`
}

type screenshotRow struct {
	TicketID string `db:"ticket_id"`
	URL      string `db:"url"`
}

// loadTicketChildren lädt Zuweisungen, Screenshots und Kommentare gesammelt für alle Tickets.
func (r *sqlxRepository) loadTicketChildren(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	byID := make(map[string]*models.Ticket, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		t.Assignees = []uuid.UUID{}
		t.Screenshots = []string{}
		t.Comments = []models.Comment{}
		byID[t.ID.String()] = t
		ids = append(ids, t.ID.String())
	}

	var assignees []assigneeRow
	if err := r.selectIn(ctx, &assignees, `SELECT ticket_id, user_id FROM ticket_assignees WHERE ticket_id IN (?) ORDER BY seq`, ids); err != nil {
		return err
	}
	for _, a := range assignees {
		byID[a.TicketID].Assignees = append(byID[a.TicketID].Assignees, a.UserID)
	}

	var screenshots []screenshotRow
	if err := r.selectIn(ctx, &screenshots, `SELECT ticket_id, url FROM ticket_screenshots WHERE ticket_id IN (?) ORDER BY seq`, ids); err != nil {
		return err
	}
	for _, s := range screenshots {
		byID[s.TicketID].Screenshots = append(byID[s.TicketID].Screenshots, s.URL)
	}

	var comments []models.Comment
	if err := r.selectIn(ctx, &comments, `SELECT id, ticket_id, author_id, text, created_at FROM ticket_comments WHERE ticket_id IN (?) ORDER BY seq`, ids); err != nil {
		return err
	}
	for _, c := range comments {
		if t, ok := byID[c.TicketID.String()]; ok {
			t.Comments = append(t.Comments, c)
		}
	}
	return nil
}

func (r *sqlxRepository) selectIn(ctx context.Context, dest any, query string, ids []string) error {
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	if err := r.db.SelectContext(ctx, dest, r.db.Rebind(query), args...); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Laden der Ticket-Details", slog.Any("error", err))
		return err
	}
	return nil
}
