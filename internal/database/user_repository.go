package database

import (
	"bugpilot/internal/models"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// CreateUser fügt einen neuen Benutzer ein. Eine bereits vergebene E-Mail ergibt ErrEmailAlreadyExists.
func (r *sqlxRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			slog.WarnContext(ctx, "E-Mail-Adresse bereits registriert", slog.String("email", user.Email))
			return ErrEmailAlreadyExists
		}
		slog.ErrorContext(ctx, "Fehler beim Einfügen des Benutzers", slog.Any("error", err), slog.String("email", user.Email))
		return err
	}
	slog.DebugContext(ctx, "Benutzer erfolgreich in DB erstellt", slog.String("user_id", user.ID.String()))
	return nil
}

// GetUserByEmail ruft einen Benutzer anhand seiner E-Mail-Adresse ab.
func (r *sqlxRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "Benutzer nicht gefunden", slog.String("email", email))
			return nil, ErrUserNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Abrufen des Benutzers nach E-Mail", slog.Any("error", err), slog.String("email", email))
		return nil, err
	}
	return &user, nil
}

// GetUserByID ruft einen Benutzer anhand seiner ID ab.
func (r *sqlxRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.DebugContext(ctx, "Benutzer nicht gefunden", slog.String("id", id.String()))
			return nil, ErrUserNotFound
		}
		slog.ErrorContext(ctx, "Fehler beim Abrufen des Benutzers nach ID", slog.Any("error", err), slog.String("id", id.String()))
		return nil, err
	}
	return &user, nil
}

func (r *sqlxRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		slog.ErrorContext(ctx, "Fehler beim Abrufen mehrerer Benutzer", slog.Any("error", err), slog.Int("count", len(ids)))
		return nil, err
	}
	return users, nil
}

func (r *sqlxRepository) SearchUsersByEmail(ctx context.Context, fragment string, exclude []uuid.UUID, limit int) ([]*models.User, error) {
	pattern := "%" + EscapeLike(strings.ToLower(fragment)) + "%"
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) LIKE ? ESCAPE '\\'`
	args := []any{pattern}
	if len(exclude) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, uuidStrings(exclude))
	}
	query += ` ORDER BY email LIMIT ?`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		slog.ErrorContext(ctx, "Fehler bei der Benutzersuche", slog.Any("error", err), slog.String("fragment", fragment))
		return nil, err
	}
	return users, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
