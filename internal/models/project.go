package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectRole ist die projektbezogene Rolle eines Mitglieds.
type ProjectRole string

const (
	ProjectRoleViewer    ProjectRole = "viewer"
	ProjectRoleDeveloper ProjectRole = "developer"
	ProjectRoleAdmin     ProjectRole = "admin"
)

// ProjectRoles listet alle gültigen Projektrollen.
var ProjectRoles = []ProjectRole{ProjectRoleAdmin, ProjectRoleDeveloper, ProjectRoleViewer}

func (r ProjectRole) Validate() error {
	switch r {
	case ProjectRoleViewer, ProjectRoleDeveloper, ProjectRoleAdmin:
		return nil
	default:
		return fmt.Errorf("rolle '%s' ist ungültig, erlaubt sind: admin, developer, viewer: %w", r, ErrInvalidArgument)
	}
}

type ProjectMember struct {
	UserID  uuid.UUID   `db:"user_id" json:"user"`
	Role    ProjectRole `db:"role" json:"role"`
	AddedAt time.Time   `db:"added_at" json:"added_at"`
}

type Project struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	OwnerUserID uuid.UUID       `db:"owner_user_id" json:"created_by"`
	Members     []ProjectMember `db:"-" json:"members"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// NewProject legt ein Projekt an, dessen einziges Mitglied der Owner mit der Rolle admin ist.
func NewProject(name, description string, ownerUserID uuid.UUID) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		OwnerUserID: ownerUserID,
		Members: []ProjectMember{
			{UserID: ownerUserID, Role: ProjectRoleAdmin, AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindMember liefert den ersten Mitgliedseintrag des Benutzers.
func (p *Project) FindMember(userID uuid.UUID) (ProjectMember, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return ProjectMember{}, false
}

func (p *Project) IsMember(userID uuid.UUID) bool {
	_, ok := p.FindMember(userID)
	return ok
}

func (p *Project) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// Clone liefert eine tiefe Kopie (für den In-Memory-Store).
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Members = append([]ProjectMember(nil), p.Members...)
	return &c
}

// ProjectRef ist die Anzeigeform eines referenzierten Projekts.
type ProjectRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
