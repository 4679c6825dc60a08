package models

import "time"

type TeamMemberRole int

const (
	TeamRoleMember  TeamMemberRole = 0
	TeamRoleCaptain TeamMemberRole = 1
)

// TeamMember — строка членства; пара (team_id, user_id) уникальна среди
// живых строк.
type TeamMember struct {
	ID       int            `json:"id" db:"id"`
	TeamID   int            `json:"team_id" db:"team_id"`
	UserID   int            `json:"user_id" db:"user_id"`
	Role     TeamMemberRole `json:"role" db:"role"`
	JoinTime time.Time      `json:"join_time" db:"join_time"`

	User *User `json:"user,omitempty" db:"-"`
}
