// Package memory implementiert die Repositories auf Basis von go-memdb.
// Wird für Tests und STORE_DRIVER=memory verwendet.
package memory

import (
	"bugpilot/internal/database"
	"bugpilot/internal/models"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

// DB ist ein In-Memory-Store. Alle Lese- und Schreibzugriffe arbeiten auf Kopien.
type DB struct {
	db *memdb.MemDB
}

var _ database.UserRepository = (*DB)(nil)
var _ database.ProjectRepository = (*DB)(nil)
var _ database.TicketRepository = (*DB)(nil)
var _ database.OTPRepository = (*DB)(nil)
var _ database.DBPinger = (*DB)(nil)

// New erzeugt einen leeren In-Memory-Store.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &DB{db: memDB}, nil
}

func (d *DB) Close() error {
	return nil
}

func (d *DB) PingContext(_ context.Context) error {
	return nil
}

type userRecord struct {
	ID    string
	Email string
	User  *models.User
}

type projectRecord struct {
	ID      string
	Owner   string
	Members []string
	Project *models.Project
}

type ticketRecord struct {
	ID        string
	CreatedBy string
	Assignees []string
	Ticket    *models.Ticket
}

type otpRecord struct {
	Email string
	OTP   *models.OTP
}

func newProjectRecord(p *models.Project) *projectRecord {
	return &projectRecord{
		ID:      p.ID.String(),
		Owner:   p.OwnerUserID.String(),
		Members: uuidStrings(p.MemberIDs()),
		Project: p.Clone(),
	}
}

func newTicketRecord(t *models.Ticket) *ticketRecord {
	return &ticketRecord{
		ID:        t.ID.String(),
		CreatedBy: t.CreatedBy.String(),
		Assignees: uuidStrings(t.Assignees),
		Ticket:    t.Clone(),
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

// --- Benutzer ---

func (d *DB) CreateUser(_ context.Context, user *models.User) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tblUsers, "email", user.Email)
	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return database.ErrEmailAlreadyExists
	}

	record := &userRecord{ID: user.ID.String(), Email: user.Email, User: copyUser(user)}
	if err := txn.Insert(tblUsers, record); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	txn.Commit()
	return nil
}

func (d *DB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblUsers, "email", models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if raw == nil {
		return nil, database.ErrUserNotFound
	}
	return copyUser(raw.(*userRecord).User), nil
}

func (d *DB) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblUsers, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if raw == nil {
		return nil, database.ErrUserNotFound
	}
	return copyUser(raw.(*userRecord).User), nil
}

func (d *DB) GetUsersByIDs(_ context.Context, ids []uuid.UUID) ([]*models.User, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	users := make([]*models.User, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		raw, err := txn.First(tblUsers, "id", id.String())
		if err != nil {
			return nil, fmt.Errorf("find user by id: %w", err)
		}
		if raw != nil {
			users = append(users, copyUser(raw.(*userRecord).User))
		}
	}
	return users, nil
}

func (d *DB) SearchUsersByEmail(_ context.Context, fragment string, exclude []uuid.UUID, limit int) ([]*models.User, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblUsers, "id")
	if err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	needle := strings.ToLower(fragment)
	var users []*models.User
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		user := raw.(*userRecord).User
		if slices.Contains(exclude, user.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(user.Email), needle) {
			users = append(users, copyUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// --- Projekte ---

func (d *DB) CreateProject(_ context.Context, project *models.Project) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tblProjects, newProjectRecord(project)); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	txn.Commit()
	return nil
}

func (d *DB) GetProjectByID(_ context.Context, projectID uuid.UUID) (*models.Project, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblProjects, "id", projectID.String())
	if err != nil {
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	if raw == nil {
		return nil, database.ErrProjectNotFound
	}
	return raw.(*projectRecord).Project.Clone(), nil
}

func (d *DB) GetProjectsByUserID(_ context.Context, userID uuid.UUID) ([]*models.Project, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	seen := make(map[string]struct{})
	var projects []*models.Project
	for _, index := range []string{"owner", "member"} {
		iter, err := txn.Get(tblProjects, index, userID.String())
		if err != nil {
			return nil, fmt.Errorf("find projects by %s: %w", index, err)
		}
		for raw := iter.Next(); raw != nil; raw = iter.Next() {
			record := raw.(*projectRecord)
			if _, ok := seen[record.ID]; ok {
				continue
			}
			seen[record.ID] = struct{}{}
			projects = append(projects, record.Project.Clone())
		}
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects, nil
}

func (d *DB) GetProjectsByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Project, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	projects := make([]*models.Project, 0, len(ids))
	for _, id := range ids {
		raw, err := txn.First(tblProjects, "id", id.String())
		if err != nil {
			return nil, fmt.Errorf("find project by id: %w", err)
		}
		if raw != nil {
			projects = append(projects, raw.(*projectRecord).Project.Clone())
		}
	}
	return projects, nil
}

func (d *DB) AddProjectMembers(_ context.Context, projectID uuid.UUID, members []models.ProjectMember) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblProjects, "id", projectID.String())
	if err != nil {
		return fmt.Errorf("find project by id: %w", err)
	}
	if raw == nil {
		return database.ErrProjectNotFound
	}

	project := raw.(*projectRecord).Project.Clone()
	project.Members = append(project.Members, members...)
	project.UpdatedAt = time.Now().UTC()
	if err := txn.Insert(tblProjects, newProjectRecord(project)); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	txn.Commit()
	return nil
}

// --- Tickets ---

func (d *DB) CreateTicket(_ context.Context, ticket *models.Ticket) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tblTickets, newTicketRecord(ticket)); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	txn.Commit()
	return nil
}

func (d *DB) GetTicketByID(_ context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	ticket, err := findTicket(txn, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket.Clone(), nil
}

func findTicket(txn *memdb.Txn, ticketID uuid.UUID) (*models.Ticket, error) {
	raw, err := txn.First(tblTickets, "id", ticketID.String())
	if err != nil {
		return nil, fmt.Errorf("find ticket by id: %w", err)
	}
	if raw == nil {
		return nil, database.ErrTicketNotFound
	}
	return raw.(*ticketRecord).Ticket, nil
}

func (d *DB) GetTicketsForUser(_ context.Context, userID uuid.UUID) ([]*models.Ticket, error) {
	return d.ticketsForUser(userID, func(*models.Ticket) bool { return true })
}

func (d *DB) GetProjectTicketsForUser(_ context.Context, projectID, userID uuid.UUID) ([]*models.Ticket, error) {
	return d.ticketsForUser(userID, func(t *models.Ticket) bool { return t.ProjectID == projectID })
}

func (d *DB) ticketsForUser(userID uuid.UUID, keep func(*models.Ticket) bool) ([]*models.Ticket, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	seen := make(map[string]struct{})
	tickets := []*models.Ticket{}
	for _, index := range []string{"creator", "assignee"} {
		iter, err := txn.Get(tblTickets, index, userID.String())
		if err != nil {
			return nil, fmt.Errorf("find tickets by %s: %w", index, err)
		}
		for raw := iter.Next(); raw != nil; raw = iter.Next() {
			record := raw.(*ticketRecord)
			if _, ok := seen[record.ID]; ok || !keep(record.Ticket) {
				continue
			}
			seen[record.ID] = struct{}{}
			tickets = append(tickets, record.Ticket.Clone())
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets, nil
}

func (d *DB) UpdateTicket(_ context.Context, ticket *models.Ticket) error {
	return d.mutateTicket(ticket.ID, func(stored *models.Ticket) {
		stored.Title = ticket.Title
		stored.Description = ticket.Description
		stored.Status = ticket.Status
		stored.Priority = ticket.Priority
		stored.Assignees = append([]uuid.UUID{}, ticket.Assignees...)
		stored.UpdatedAt = time.Now().UTC()
		ticket.UpdatedAt = stored.UpdatedAt
	})
}

func (d *DB) DeleteTicket(_ context.Context, ticketID uuid.UUID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblTickets, "id", ticketID.String())
	if err != nil {
		return fmt.Errorf("find ticket by id: %w", err)
	}
	if raw == nil {
		return database.ErrTicketNotFound
	}
	if err := txn.Delete(tblTickets, raw); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	txn.Commit()
	return nil
}

func (d *DB) AddComment(_ context.Context, comment *models.Comment) error {
	return d.mutateTicket(comment.TicketID, func(stored *models.Ticket) {
		stored.Comments = append(stored.Comments, *comment)
	})
}

func (d *DB) AddScreenshot(_ context.Context, ticketID uuid.UUID, url string) error {
	return d.mutateTicket(ticketID, func(stored *models.Ticket) {
		stored.Screenshots = append(stored.Screenshots, url)
	})
}

func (d *DB) mutateTicket(ticketID uuid.UUID, mutate func(*models.Ticket)) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	stored, err := findTicket(txn, ticketID)
	if err != nil {
		return err
	}
	ticket := stored.Clone()
	mutate(ticket)
	if err := txn.Insert(tblTickets, newTicketRecord(ticket)); err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	txn.Commit()
	return nil
}

// --- OTP ---

func (d *DB) UpsertOTP(_ context.Context, otp *models.OTP) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	c := *otp
	if err := txn.Insert(tblOTPs, &otpRecord{Email: otp.Email, OTP: &c}); err != nil {
		return fmt.Errorf("upsert otp: %w", err)
	}
	txn.Commit()
	return nil
}

func (d *DB) GetOTPByEmail(_ context.Context, email string) (*models.OTP, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblOTPs, "id", models.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find otp by email: %w", err)
	}
	if raw == nil {
		return nil, database.ErrOTPNotFound
	}
	c := *raw.(*otpRecord).OTP
	return &c, nil
}
