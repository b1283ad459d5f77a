// Package users stellt die Benutzersuche und die Auflösung von Benutzer-IDs zu Anzeigereferenzen bereit.
package users

import (
	"bugpilot/internal/database"
	"bugpilot/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// SearchLimit begrenzt die Treffer einer Suche.
const SearchLimit = 50

type Directory struct {
	UserRepo    database.UserRepository
	ProjectRepo database.ProjectRepository
}

func NewDirectory(userRepo database.UserRepository, projectRepo database.ProjectRepository) *Directory {
	return &Directory{UserRepo: userRepo, ProjectRepo: projectRepo}
}

// Search findet Benutzer, deren E-Mail den Suchbegriff (ohne Beachtung der Groß-/Kleinschreibung) enthält.
// Der Akteur ist nie im Ergebnis. Verweist projectRef auf ein existierendes Projekt, werden dessen
// Mitglieder ausgeschlossen; scheitert das, wird nur gewarnt.
func (d *Directory) Search(ctx context.Context, actor uuid.UUID, fragment, projectRef string) ([]models.UserRef, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("der Suchparameter 'email' ist erforderlich: %w", models.ErrInvalidArgument)
	}

	exclude := []uuid.UUID{actor}
	exclude = append(exclude, d.projectMembers(ctx, projectRef)...)

	found, err := d.UserRepo.SearchUsersByEmail(ctx, fragment, exclude, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("fehler bei der Benutzersuche: %w", err)
	}

	refs := make([]models.UserRef, 0, len(found))
	for _, u := range found {
		refs = append(refs, u.Ref())
	}
	return refs, nil
}

func (d *Directory) projectMembers(ctx context.Context, projectRef string) []uuid.UUID {
	if projectRef == "" {
		return nil
	}
	projectID, err := uuid.Parse(projectRef)
	if err != nil {
		return nil
	}
	project, err := d.ProjectRepo.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrProjectNotFound) {
			slog.WarnContext(ctx, "Projekt für Mitgliederausschluss nicht gefunden", slog.String("project_id", projectRef))
		} else {
			slog.WarnContext(ctx, "Mitglieder für Ausschluss konnten nicht geladen werden", slog.Any("error", err), slog.String("project_id", projectRef))
		}
		return nil
	}
	return project.MemberIDs()
}

// ResolveRefs löst IDs zu Anzeigereferenzen auf. Unbekannte IDs erhalten eine Referenz ohne Namen.
func (d *Directory) ResolveRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserRef, error) {
	refs := make(map[uuid.UUID]models.UserRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	found, err := d.UserRepo.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Auflösen der Benutzer: %w", err)
	}
	for _, u := range found {
		refs[u.ID] = u.Ref()
	}
	for _, id := range ids {
		if _, ok := refs[id]; !ok {
			refs[id] = models.UserRef{ID: id}
		}
	}
	return refs, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
