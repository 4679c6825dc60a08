package models

import "time"

// UserRole — закрытый набор ролей на границе API.
type UserRole string

const (
	RoleParticipant UserRole = "participant"
	RoleOrganizer   UserRole = "organizer"
	RoleAdmin       UserRole = "admin"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CurrentUser — аутентифицированный актор, разрешённый один раз на границе
// (middleware) и передаваемый явно в каждый вызов сервиса.
type CurrentUser struct {
	ID   int      `json:"id"`
	Role UserRole `json:"role"`
}

func (u CurrentUser) IsZero() bool {
	return u.ID == 0
}

func (u CurrentUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
