// Package authz entscheidet über Zugriffe auf Projekte und Tickets. Grundlage ist die
// Projektrolle des Akteurs, verglichen gegen eine Mindestrolle pro (Ressource, Aktion).
package authz

import (
	"bugpilot/internal/metrics"
	"bugpilot/internal/models"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrPermissionDenied = errors.New("zugriff verweigert")

type Resource string

const (
	ResourceProject Resource = "project"
	ResourceTicket  Resource = "ticket"
)

type Action string

const (
	ActionView       Action = "view"
	ActionAddMembers Action = "add-members"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
)

type permission struct {
	resource Resource
	action   Action
}

// policy ordnet jeder bekannten (Ressource, Aktion) die Mindestrolle zu.
// Nicht eingetragene Paare werden immer abgelehnt.
var policy = map[permission]models.ProjectRole{
	{ResourceProject, ActionView}:       models.ProjectRoleViewer,
	{ResourceProject, ActionAddMembers}: models.ProjectRoleAdmin,
	{ResourceTicket, ActionView}:        models.ProjectRoleViewer,
	{ResourceTicket, ActionEdit}:        models.ProjectRoleAdmin,
	{ResourceTicket, ActionDelete}:      models.ProjectRoleAdmin,
}

var ranks = map[models.ProjectRole]int{
	models.ProjectRoleViewer:    0,
	models.ProjectRoleDeveloper: 1,
	models.ProjectRoleAdmin:     2,
}

// Rank liefert den Rang einer Rolle, -1 für unbekannte Rollen.
func Rank(role models.ProjectRole) int {
	if r, ok := ranks[role]; ok {
		return r
	}
	return -1
}

// IsAtLeast ist ein Schwellwertvergleich, kein exakter Rollenvergleich.
func IsAtLeast(role, required models.ProjectRole) bool {
	r := Rank(role)
	return r >= 0 && r >= Rank(required)
}

// RequiredRole liefert die Mindestrolle für (Ressource, Aktion).
func RequiredRole(resource Resource, action Action) (models.ProjectRole, bool) {
	role, ok := policy[permission{resource, action}]
	return role, ok
}

// Decide prüft die Projektrolle des Akteurs gegen die Policy. Ohne Mitgliedschaft wird abgelehnt.
func Decide(actor uuid.UUID, project *models.Project, resource Resource, action Action) bool {
	allowed := decide(actor, project, resource, action)
	record(resource, action, allowed)
	return allowed
}

func decide(actor uuid.UUID, project *models.Project, resource Resource, action Action) bool {
	required, ok := RequiredRole(resource, action)
	if !ok || project == nil {
		return false
	}
	member, ok := project.FindMember(actor)
	if !ok {
		return false
	}
	return IsAtLeast(member.Role, required)
}

// Check ist Decide mit einem Fehler, der ErrPermissionDenied umhüllt.
func Check(actor uuid.UUID, project *models.Project, resource Resource, action Action) error {
	if Decide(actor, project, resource, action) {
		return nil
	}
	return deniedError(actor, project, resource, action)
}

func deniedError(actor uuid.UUID, project *models.Project, resource Resource, action Action) error {
	required, ok := RequiredRole(resource, action)
	if !ok {
		return fmt.Errorf("unbekannte aktion '%s:%s': %w", resource, action, ErrPermissionDenied)
	}
	if project != nil {
		if member, found := project.FindMember(actor); found {
			return fmt.Errorf("benutzer hat '%s', aber '%s' ist für '%s:%s' erforderlich: %w",
				member.Role, required, resource, action, ErrPermissionDenied)
		}
	}
	return fmt.Errorf("benutzer ist kein Mitglied des Projekts: %w", ErrPermissionDenied)
}

func record(resource Resource, action Action, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.AuthzDecisions.WithLabelValues(string(resource), string(action), result).Inc()
}
