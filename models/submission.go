package models

import "time"

type SubmissionStatus int

const (
	SubmissionSubmitted SubmissionStatus = 0
	SubmissionScored    SubmissionStatus = 1
)

// Submission — сданная работа. На одну регистрацию существует не больше
// одной живой строки: повторная сдача перезаписывает изменяемые поля,
// сохраняя id и CreatedAt первой сдачи.
type Submission struct {
	ID             int              `json:"id" db:"id"`
	CompetitionID  int              `json:"competition_id" db:"competition_id"`
	RegistrationID int              `json:"registration_id" db:"registration_id"`
	UserID         int              `json:"user_id" db:"user_id"`
	TeamID         *int             `json:"team_id,omitempty" db:"team_id"`
	FileURL        string           `json:"file_url" db:"file_url"`
	Description    *string          `json:"description,omitempty" db:"description"`
	Score          *int             `json:"score,omitempty" db:"score"`
	ReviewerID     *int             `json:"reviewer_id,omitempty" db:"reviewer_id"`
	Status         SubmissionStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// RankEntry — строка рейтинга соревнования: оценённая работа плюс
// отображаемое имя участника или команды.
type RankEntry struct {
	Rank        int        `json:"rank"`
	Submission  Submission `json:"submission"`
	DisplayName string     `json:"display_name"`
}
