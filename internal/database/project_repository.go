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

const projectColumns = `p.id, p.name, p.description, p.owner_user_id, p.created_at, p.updated_at`

type memberRow struct {
	ProjectID string `db:"project_id"`
	models.ProjectMember
}

// CreateProject legt das Projekt und seine initialen Mitglieder in einer Transaktion an.
func (r *sqlxRepository) CreateProject(ctx context.Context, project *models.Project) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fehler beim Starten der Transaktion: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO projects (id, name, description, owner_user_id, created_at, updated_at)
			   VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		project.ID.String(),
		project.Name,
		project.Description,
		project.OwnerUserID.String(),
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Erstellen des Projekts", slog.Any("error", err), slog.String("name", project.Name))
		return err
	}

	if err := insertMembers(ctx, tx, project.ID, project.Members); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Anlegen der Projektmitglieder", slog.Any("error", err), slog.String("project_id", project.ID.String()))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fehler beim Commit der Transaktion: %w", err)
	}
	slog.DebugContext(ctx, "Projekt erfolgreich in DB erstellt", slog.String("project_id", project.ID.String()))
	return nil
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, projectID uuid.UUID, members []models.ProjectMember) error {
	query := `INSERT INTO project_members (project_id, user_id, role, added_at) VALUES (?, ?, ?, ?)`
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, query, projectID.String(), m.UserID.String(), m.Role, m.AddedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlxRepository) GetProjectByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = ? LIMIT 1`
	err := r.db.GetContext(ctx, &project, query, projectID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "Projekt nicht gefunden", slog.String("project_id", projectID.String()))
			return nil, ErrProjectNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Abrufen des Projekts nach ID", slog.Any("error", err), slog.String("project_id", projectID.String()))
		return nil, err
	}

	projects := []*models.Project{&project}
	if err := r.loadMembers(ctx, projects); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *sqlxRepository) GetProjectsByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	query := `SELECT DISTINCT ` + projectColumns + ` FROM projects p
	           LEFT JOIN project_members pm ON p.id = pm.project_id
	           WHERE p.owner_user_id = ? OR pm.user_id = ?
	           ORDER BY p.created_at DESC`

	var projects []*models.Project
	err := r.db.SelectContext(ctx, &projects, query, userID.String(), userID.String())
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Abrufen der Projekte für Benutzer", slog.Any("error", err), slog.String("user_id", userID.String()))
		return nil, err
	}
	if err := r.loadMembers(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *sqlxRepository) GetProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Project, error) {
	if len(ids) == 0 {
		return []*models.Project{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+projectColumns+` FROM projects p WHERE p.id IN (?)`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	var projects []*models.Project
	if err := r.db.SelectContext(ctx, &projects, r.db.Rebind(query), args...); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Abrufen mehrerer Projekte", slog.Any("error", err))
		return nil, err
	}
	if err := r.loadMembers(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// AddProjectMembers hängt Mitglieder an. Der Aufrufer filtert bereits vorhandene Mitglieder.
func (r *sqlxRepository) AddProjectMembers(ctx context.Context, projectID uuid.UUID, members []models.ProjectMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fehler beim Starten der Transaktion: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), projectID.String())
	if err != nil {
		slog.ErrorContext(ctx, "Fehler beim Aktualisieren des Projekts", slog.Any("error", err), slog.String("project_id", projectID.String()))
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	if err := insertMembers(ctx, tx, projectID, members); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Hinzufügen der Projektmitglieder", slog.Any("error", err), slog.String("project_id", projectID.String()))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fehler beim Commit der Transaktion: %w", err)
	}
	slog.DebugContext(ctx, "Projektmitglieder erfolgreich hinzugefügt", slog.String("project_id", projectID.String()), slog.Int("count", len(members)))
	return nil
}

func (r *sqlxRepository) loadMembers(ctx context.Context, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[string]*models.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		p.Members = []models.ProjectMember{}
		byID[p.ID.String()] = p
		ids = append(ids, p.ID.String())
	}

	query, args, err := sqlx.In(`SELECT project_id, user_id, role, added_at FROM project_members
	           WHERE project_id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return err
	}
	var rows []memberRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Laden der Projektmitglieder", slog.Any("error", err))
		return err
	}
	for _, row := range rows {
		if p, ok := byID[row.ProjectID]; ok {
			p.Members = append(p.Members, row.ProjectMember)
		}
	}
	return nil
}
