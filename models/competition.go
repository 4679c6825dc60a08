package models

import "time"

// Competition — соревнование, опубликованное организатором.
// MaxMembers == 1 означает индивидуальное соревнование: команды для него
// создаются автоматически при регистрации, а не вручную.
type Competition struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatorID   int       `json:"creator_id" db:"creator_id"`
	MaxMembers  int       `json:"max_members" db:"max_members"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	Creator *User `json:"creator,omitempty" db:"-"`
}

func (c Competition) IsIndividual() bool {
	return c.MaxMembers == 1
}
