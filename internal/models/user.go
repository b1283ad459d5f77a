package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlobalRole ist die globale Benutzerrolle. Sie wird gespeichert, fließt aber in keine
// Berechtigungsentscheidung ein.
type GlobalRole string

const (
	GlobalRoleAdmin GlobalRole = "Admin"
	GlobalRoleUser  GlobalRole = "User"
)

type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         GlobalRole `db:"role" json:"role"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         GlobalRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail sorgt dafür, dass E-Mail-Adressen case-insensitiv eindeutig sind.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRef ist die Anzeigeform eines referenzierten Benutzers.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}
