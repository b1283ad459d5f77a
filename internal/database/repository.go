package database

import (
	"bugpilot/internal/models"
	"context"
	"errors"

	"github.com/google/uuid"
)

// --- Fehler ---
var ErrUserNotFound = errors.New("benutzer nicht gefunden")
var ErrProjectNotFound = errors.New("projekt nicht gefunden")
var ErrTicketNotFound = errors.New("ticket nicht gefunden")
var ErrOTPNotFound = errors.New("kein OTP für diese E-Mail-Adresse vorhanden")
var ErrEmailAlreadyExists = errors.New("e-mail-adresse ist bereits registriert")

// DBPinger wird von *DB, vom sqlxRepository und vom In-Memory-Store implementiert
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// UserRepository verwaltet globale Benutzerkonten
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// GetUsersByIDs ignoriert unbekannte IDs.
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
	// SearchUsersByEmail sucht case-insensitiv nach einem Teilstring der E-Mail-Adresse.
	SearchUsersByEmail(ctx context.Context, fragment string, exclude []uuid.UUID, limit int) ([]*models.User, error)
}

// ProjectRepository verwaltet Projekte samt Mitgliedern
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetProjectByID(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	// GetProjectsByUserID liefert Projekte, deren Owner oder Mitglied der Benutzer ist.
	GetProjectsByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	GetProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Project, error)
	AddProjectMembers(ctx context.Context, projectID uuid.UUID, members []models.ProjectMember) error
}

// TicketRepository verwaltet Tickets, Zuweisungen, Screenshots und Kommentare
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error)
	// GetTicketsForUser liefert Tickets, die der Benutzer erstellt hat oder die ihm zugewiesen sind,
	// neueste zuerst.
	GetTicketsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Ticket, error)
	GetProjectTicketsForUser(ctx context.Context, projectID, userID uuid.UUID) ([]*models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *models.Ticket) error
	DeleteTicket(ctx context.Context, ticketID uuid.UUID) error
	AddComment(ctx context.Context, comment *models.Comment) error
	AddScreenshot(ctx context.Context, ticketID uuid.UUID, url string) error
}

// OTPRepository hält pro E-Mail-Adresse genau einen Einmalcode
type OTPRepository interface {
	UpsertOTP(ctx context.Context, otp *models.OTP) error
	GetOTPByEmail(ctx context.Context, email string) (*models.OTP, error)
}
