package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrCompetitionIDRequired = errors.New("competition id is required")
	ErrTeamIDRequired        = errors.New("team id is required for team competitions")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrFileRequired          = errors.New("submission file is required")
	ErrFileExtensionDenied   = errors.New("submission file extension is not allowed")
	ErrInvalidReviewStatus   = errors.New("review status must be approved or rejected")
	ErrAlreadyReviewed       = errors.New("registration has already been reviewed")
	ErrNotTeamMember         = errors.New("user is not a member of this team")
	ErrCaptainCannotQuit     = errors.New("team captain cannot quit the team, disband it instead")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidScore          = errors.New("score must not be negative")

	// Ошибки конфликтов
	ErrAlreadyRegistered     = errors.New("already registered for this competition")
	ErrAlreadyTeamMember     = errors.New("user is already a member of this team")
	ErrTeamFull              = errors.New("team has reached its maximum size")
	ErrIndividualCompetition = errors.New("individual competition does not allow manual team creation")
	ErrUserEmailConflict     = errors.New("email address is already in use")
	ErrUserNicknameConflict  = errors.New("nickname is already in use")
	ErrTeamNameConflict      = errors.New("team name is already in use")

	// Ошибки аутентификации и авторизации
	ErrUnauthenticated        = errors.New("authentication required")
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")
	ErrNotCompetitionOwner    = errors.New("only the competition creator can perform this action")
	ErrTeamExpired            = errors.New("team join period has expired")

	// Ошибки, специфичные для сущностей (дублируют ErrNotFound, но дают больше контекста)
	ErrUserNotFound         = errors.New("user not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrCompetitionNotFound  = errors.New("competition not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrSubmissionNotFound   = errors.New("submission not found")
	// Работы принимаются только против одобренных регистраций; для
	// вызывающего это неотличимо от отсутствия регистрации.
	ErrRegistrationNotApproved = errors.New("approved registration not found")
)
