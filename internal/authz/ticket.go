package authz

import (
	"bugpilot/internal/models"
	"fmt"

	"github.com/google/uuid"
)

// TicketChange beschreibt, welche Felder ein Update mitsendet.
type TicketChange struct {
	Title       bool
	Description bool
	Status      bool
	Priority    bool
	Assignees   bool
}

// TouchesContent ist wahr, sobald ein anderes Feld als der Status mitgesendet wird.
func (c TicketChange) TouchesContent() bool {
	return c.Title || c.Description || c.Priority || c.Assignees
}

func (c TicketChange) IsEmpty() bool {
	return !c.TouchesContent() && !c.Status
}

// CanViewTicket: Ersteller, Zugewiesene und Projektmitglieder ab viewer.
func CanViewTicket(actor uuid.UUID, project *models.Project, ticket *models.Ticket) bool {
	if ticket.IsCreator(actor) || ticket.IsAssignee(actor) {
		return true
	}
	return Decide(actor, project, ResourceTicket, ActionView)
}

// CanDeleteTicket: Ersteller oder Projekt-Admin.
func CanDeleteTicket(actor uuid.UUID, project *models.Project, ticket *models.Ticket) bool {
	if ticket.IsCreator(actor) {
		return true
	}
	return Decide(actor, project, ResourceTicket, ActionDelete)
}

// CheckTicketUpdate erlaubt Ersteller und Projekt-Admins jede Änderung. Alle anderen dürfen
// höchstens den Status ändern, und das nur als Zugewiesene.
func CheckTicketUpdate(actor uuid.UUID, project *models.Project, ticket *models.Ticket, change TicketChange) error {
	if ticket.IsCreator(actor) || Decide(actor, project, ResourceTicket, ActionEdit) {
		return nil
	}
	if change.Status && !ticket.IsAssignee(actor) {
		return fmt.Errorf("nur Zugewiesene dürfen den Status ändern: %w", ErrPermissionDenied)
	}
	if change.TouchesContent() {
		return fmt.Errorf("nur Ersteller oder Projekt-Admins dürfen Titel, Beschreibung, Priorität oder Zuweisungen ändern: %w", ErrPermissionDenied)
	}
	return nil
}
