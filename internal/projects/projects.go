// Package projects verwaltet Projekte und ihre Mitgliedschaften.
package projects

import (
	"bugpilot/internal/authz"
	"bugpilot/internal/database"
	"bugpilot/internal/logging"
	"bugpilot/internal/models"
	"bugpilot/internal/users"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate ist ein noch ungeprüfter Eintrag aus einer Mitgliederanfrage.
type Candidate struct {
	UserID string
	Role   string
}

// MemberView ist ein Mitglied mit aufgelöstem Benutzer.
type MemberView struct {
	User models.UserRef     `json:"user"`
	Role models.ProjectRole `json:"role"`
}

// Detail ist ein Projekt mit aufgelösten Benutzerreferenzen.
type Detail struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedBy   models.UserRef `json:"created_by"`
	Members     []MemberView   `json:"members"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Service struct {
	ProjectRepo database.ProjectRepository
	Directory   *users.Directory
}

func NewService(projectRepo database.ProjectRepository, directory *users.Directory) *Service {
	return &Service{ProjectRepo: projectRepo, Directory: directory}
}

// Create legt ein Projekt an; der Owner wird einziges Mitglied mit der Rolle admin.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, name, description string) (*Detail, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("projektname ist erforderlich: %w", models.ErrInvalidArgument)
	}

	project := models.NewProject(name, description, owner)
	if err := s.ProjectRepo.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("fehler beim Speichern des Projekts: %w", err)
	}
	slog.InfoContext(ctx, "Neues Projekt erstellt", slog.String("project_id", project.ID.String()), slog.String("user_id", owner.String()))

	details, err := s.resolve(ctx, project)
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// AddMembers fügt Mitglieder hinzu. Vorhandene Mitglieder werden übersprungen (ohne Rollenänderung),
// Duplikate innerhalb der Anfrage behalten den ersten Eintrag. added ist false, wenn nichts zu tun war.
// Reihenfolge der Prüfungen: Projekt-ID, Einträge, Projekt vorhanden, Admin-Rolle.
func (s *Service) AddMembers(ctx context.Context, actor uuid.UUID, projectRef string, candidates []Candidate) (detail *Detail, added bool, err error) {
	projectID, err := parseProjectID(projectRef)
	if err != nil {
		return nil, false, err
	}

	members, err := parseCandidates(candidates)
	if err != nil {
		return nil, false, err
	}

	project, err := s.ProjectRepo.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, false, err
	}

	if err := authz.Check(actor, project, authz.ResourceProject, authz.ActionAddMembers); err != nil {
		logging.LogAccessDenied(ctx, "project:add-members", err, slog.String("project_id", project.ID.String()))
		return nil, false, err
	}

	now := time.Now().UTC()
	seen := make(map[uuid.UUID]struct{}, len(members))
	var toAdd []models.ProjectMember
	for _, m := range members {
		if _, dup := seen[m.UserID]; dup || project.IsMember(m.UserID) {
			continue
		}
		seen[m.UserID] = struct{}{}
		m.AddedAt = now
		toAdd = append(toAdd, m)
	}

	if len(toAdd) == 0 {
		slog.InfoContext(ctx, "Keine neuen Mitglieder hinzuzufügen", slog.String("project_id", project.ID.String()))
		return nil, false, nil
	}

	if err := s.ProjectRepo.AddProjectMembers(ctx, project.ID, toAdd); err != nil {
		return nil, false, fmt.Errorf("fehler beim Hinzufügen der Mitglieder: %w", err)
	}
	slog.InfoContext(ctx, "Projektmitglieder hinzugefügt",
		slog.String("project_id", project.ID.String()),
		slog.String("user_id", actor.String()),
		slog.Int("count", len(toAdd)),
	)

	updated, err := s.ProjectRepo.GetProjectByID(ctx, project.ID)
	if err != nil {
		return nil, false, err
	}
	details, err := s.resolve(ctx, updated)
	if err != nil {
		return nil, false, err
	}
	return details[0], true, nil
}

func parseCandidates(candidates []Candidate) ([]models.ProjectMember, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("die Liste neuer Mitglieder darf nicht leer sein: %w", models.ErrInvalidArgument)
	}
	members := make([]models.ProjectMember, 0, len(candidates))
	for i, c := range candidates {
		userID, err := uuid.Parse(c.UserID)
		if err != nil {
			return nil, fmt.Errorf("eintrag %d: ungültige Benutzer-ID '%s': %w", i, c.UserID, models.ErrInvalidArgument)
		}
		role := models.ProjectRole(c.Role)
		if err := role.Validate(); err != nil {
			return nil, fmt.Errorf("eintrag %d: %w", i, err)
		}
		members = append(members, models.ProjectMember{UserID: userID, Role: role})
	}
	return members, nil
}

// ListFor liefert alle Projekte, deren Owner oder Mitglied der Benutzer ist.
func (s *Service) ListFor(ctx context.Context, userID uuid.UUID) ([]*Detail, error) {
	projects, err := s.ProjectRepo.GetProjectsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Abrufen der Projekte: %w", err)
	}
	return s.resolve(ctx, projects...)
}

// Get liefert ein Projekt, sofern der Akteur es sehen darf.
func (s *Service) Get(ctx context.Context, actor uuid.UUID, projectRef string) (*Detail, error) {
	project, err := s.load(ctx, projectRef)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, project, authz.ResourceProject, authz.ActionView); err != nil {
		logging.LogAccessDenied(ctx, "project:view", err, slog.String("project_id", project.ID.String()))
		return nil, err
	}
	details, err := s.resolve(ctx, project)
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// IsMember prüft die Mitgliedschaft eines Benutzers. Ein fehlendes Projekt ergibt ErrProjectNotFound.
func (s *Service) IsMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	project, err := s.ProjectRepo.GetProjectByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.IsMember(userID), nil
}

func (s *Service) load(ctx context.Context, projectRef string) (*models.Project, error) {
	projectID, err := parseProjectID(projectRef)
	if err != nil {
		return nil, err
	}
	return s.ProjectRepo.GetProjectByID(ctx, projectID)
}

func parseProjectID(projectRef string) (uuid.UUID, error) {
	projectID, err := uuid.Parse(projectRef)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ungültige Projekt-ID '%s': %w", projectRef, models.ErrInvalidArgument)
	}
	return projectID, nil
}

// resolve löst Owner und Mitglieder aller Projekte mit einer einzigen Abfrage auf.
func (s *Service) resolve(ctx context.Context, projects ...*models.Project) ([]*Detail, error) {
	var ids []uuid.UUID
	for _, p := range projects {
		ids = append(ids, p.OwnerUserID)
		ids = append(ids, p.MemberIDs()...)
	}
	refs, err := s.Directory.ResolveRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]*Detail, 0, len(projects))
	for _, p := range projects {
		d := &Detail{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			CreatedBy:   refs[p.OwnerUserID],
			Members:     make([]MemberView, 0, len(p.Members)),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		for _, m := range p.Members {
			d.Members = append(d.Members, MemberView{User: refs[m.UserID], Role: m.Role})
		}
		details = append(details, d)
	}
	return details, nil
}
