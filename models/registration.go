package models

import "time"

type RegistrationStatus int

const (
	RegistrationPending  RegistrationStatus = 0
	RegistrationApproved RegistrationStatus = 1
	RegistrationRejected RegistrationStatus = 2
)

// Registration — заявка на участие в соревновании. Для командной
// регистрации заполнен TeamID; для индивидуальной заполнены оба поля,
// так как индивидуальный путь тоже разрешается в авто-созданную команду
// вместимостью 1.
type Registration struct {
	ID            int                `json:"id" db:"id"`
	CompetitionID int                `json:"competition_id" db:"competition_id"`
	UserID        *int               `json:"user_id,omitempty" db:"user_id"`
	TeamID        *int               `json:"team_id,omitempty" db:"team_id"`
	Status        RegistrationStatus `json:"status" db:"status"`
	SubmitTime    time.Time          `json:"submit_time" db:"submit_time"`
	ReviewTime    *time.Time         `json:"review_time,omitempty" db:"review_time"`
	ReviewerID    *int               `json:"reviewer_id,omitempty" db:"reviewer_id"`

	Team *Team `json:"team,omitempty" db:"-"`
	User *User `json:"user,omitempty" db:"-"`
}

func (s RegistrationStatus) IsReviewOutcome() bool {
	return s == RegistrationApproved || s == RegistrationRejected
}
