package database

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// sqlxRepository ist die konkrete MySQL-Implementierung.
// Sie implementiert alle vier Interfaces (User, Project, Ticket, OTP).
type sqlxRepository struct {
	db *DB
}

var _ UserRepository = (*sqlxRepository)(nil)
var _ ProjectRepository = (*sqlxRepository)(nil)
var _ TicketRepository = (*sqlxRepository)(nil)
var _ OTPRepository = (*sqlxRepository)(nil)
var _ DBPinger = (*sqlxRepository)(nil)

// --- Konstruktoren ---

func NewUserRepository(db *DB) UserRepository {
	return &sqlxRepository{db: db}
}

func NewProjectRepository(db *DB) ProjectRepository {
	return &sqlxRepository{db: db}
}

func NewTicketRepository(db *DB) TicketRepository {
	return &sqlxRepository{db: db}
}

func NewOTPRepository(db *DB) OTPRepository {
	return &sqlxRepository{db: db}
}

// PingContext implementiert DBPinger
func (r *sqlxRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const mysqlErrDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike maskiert die LIKE-Platzhalter, damit der Suchbegriff wörtlich gilt.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const mysqlErrNoReferencedRow = 1452

func isForeignKeyViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrNoReferencedRow
}
