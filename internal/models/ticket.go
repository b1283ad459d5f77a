package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	StatusToDo       TicketStatus = "To Do"
	StatusInProgress TicketStatus = "In Progress"
	StatusDone       TicketStatus = "Done"
)

var TicketStatuses = []TicketStatus{StatusToDo, StatusInProgress, StatusDone}

type TicketPriority string

const (
	PriorityLow    TicketPriority = "Low"
	PriorityMedium TicketPriority = "Medium"
	PriorityHigh   TicketPriority = "High"
)

var TicketPriorities = []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh}

// ParseTicketStatus prüft den Wert gegen die erlaubten Status. Es gibt keine Übergangsregeln:
// jeder gültige Status darf auf jeden anderen folgen.
func ParseTicketStatus(s string) (TicketStatus, error) {
	status := TicketStatus(s)
	if !slices.Contains(TicketStatuses, status) {
		return "", fmt.Errorf("ungültiger Status '%s', erlaubt sind: %s: %w", s, joinValues(TicketStatuses), ErrInvalidArgument)
	}
	return status, nil
}

func ParseTicketPriority(s string) (TicketPriority, error) {
	priority := TicketPriority(s)
	if !slices.Contains(TicketPriorities, priority) {
		return "", fmt.Errorf("ungültige Priorität '%s', erlaubt sind: %s: %w", s, joinValues(TicketPriorities), ErrInvalidArgument)
	}
	return priority, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

type Comment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TicketID  uuid.UUID `db:"ticket_id" json:"-"`
	AuthorID  uuid.UUID `db:"author_id" json:"user"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Ticket struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description,omitempty"`
	Status      TicketStatus   `db:"status" json:"status"`
	Priority    TicketPriority `db:"priority" json:"priority"`
	ProjectID   uuid.UUID      `db:"project_id" json:"project"`
	CreatedBy   uuid.UUID      `db:"created_by" json:"created_by"`
	Assignees   []uuid.UUID    `db:"-" json:"assignees"`
	Screenshots []string       `db:"-" json:"screenshots"`
	Comments    []Comment      `db:"-" json:"comments"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// NewTicket setzt die Standardwerte: Status "To Do", Priorität "Medium" sofern keine angegeben ist.
func NewTicket(projectID, createdBy uuid.UUID, title, description string, priority TicketPriority) *Ticket {
	if priority == "" {
		priority = PriorityMedium
	}
	now := time.Now().UTC()
	return &Ticket{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      StatusToDo,
		Priority:    priority,
		ProjectID:   projectID,
		CreatedBy:   createdBy,
		Assignees:   []uuid.UUID{},
		Screenshots: []string{},
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t *Ticket) IsCreator(userID uuid.UUID) bool {
	return t.CreatedBy == userID
}

func (t *Ticket) IsAssignee(userID uuid.UUID) bool {
	return slices.Contains(t.Assignees, userID)
}

func NewComment(ticketID, authorID uuid.UUID, text string) Comment {
	return Comment{
		ID:        uuid.New(),
		TicketID:  ticketID,
		AuthorID:  authorID,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
}

func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.Assignees = append([]uuid.UUID{}, t.Assignees...)
	c.Screenshots = append([]string{}, t.Screenshots...)
	c.Comments = append([]Comment{}, t.Comments...)
	return &c
}
