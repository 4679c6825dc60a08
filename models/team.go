package models

import "time"

// TeamStatus соответствует ENUM в БД.
type TeamStatus string

const (
	TeamStatusNormal     TeamStatus = "normal"
	TeamStatusFull       TeamStatus = "full"
	TeamStatusRegistered TeamStatus = "registered"
	TeamStatusDisbanded  TeamStatus = "disbanded"
)

// Team принадлежит ровно одному соревнованию. CaptainID дублируется в
// строке участника с ролью captain; CurrentNum — денормализованный счётчик,
// который обязан совпадать с числом живых строк TeamMember.
type Team struct {
	ID            int        `json:"id" db:"id"`
	CompetitionID int        `json:"competition_id" db:"competition_id"`
	Name          string     `json:"name" db:"name"`
	Description   *string    `json:"description,omitempty" db:"description"`
	CaptainID     int        `json:"captain_id" db:"captain_id"`
	MaxNum        int        `json:"max_num" db:"max_num"`
	CurrentNum    int        `json:"current_num" db:"current_num"`
	Status        TeamStatus `json:"status" db:"status"`
	ExpireTime    *time.Time `json:"expire_time,omitempty" db:"expire_time"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`

	Captain *User        `json:"captain,omitempty" db:"-"`
	Members []TeamMember `json:"members,omitempty" db:"-"`
}
