package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/live"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/repositories"
)

type RegisterCompetitionInput struct {
	CompetitionID int  `json:"competition_id"`
	TeamID        *int `json:"team_id"`
}

// RegistrationStatusInfo — ответ "мой статус регистрации". Для
// незарегистрированного пользователя все поля пустые, ошибки нет.
type RegistrationStatusInfo struct {
	Registered     bool                       `json:"registered"`
	Status         *models.RegistrationStatus `json:"status,omitempty"`
	TeamID         *int                       `json:"team_id,omitempty"`
	RegistrationID *int                       `json:"registration_id,omitempty"`
}

type RegistrationService interface {
	RegisterCompetition(ctx context.Context, input RegisterCompetitionInput, actor models.CurrentUser) (*models.Registration, error)
	ReviewRegistration(ctx context.Context, registrationID int, status models.RegistrationStatus, actor models.CurrentUser) error
	GetMyRegistrationStatus(ctx context.Context, userID, competitionID int) (*RegistrationStatusInfo, error)
	ListCompetitionRegistrations(ctx context.Context, competitionID int, actor models.CurrentUser) ([]*models.Registration, error)
	ListMyCompetitions(ctx context.Context, actor models.CurrentUser) ([]*models.Competition, error)
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	memberRepo       repositories.TeamMemberRepository
	competitionRepo  repositories.CompetitionRepository
	userRepo         repositories.UserRepository
	broadcaster      live.Broadcaster
	logger           *slog.Logger
	now              func() time.Time
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	competitionRepo repositories.CompetitionRepository,
	userRepo repositories.UserRepository,
	broadcaster live.Broadcaster,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		memberRepo:       memberRepo,
		competitionRepo:  competitionRepo,
		userRepo:         userRepo,
		broadcaster:      broadcaster,
		logger:           logger,
		now:              time.Now,
	}
}

// RegisterCompetition сводит оба пути к "всегда есть команда": командный
// путь требует капитанства, индивидуальный переиспользует или создаёт
// команду вместимостью 1. Дальше авторизация работ единообразна.
func (s *registrationService) RegisterCompetition(ctx context.Context, input RegisterCompetitionInput, actor models.CurrentUser) (*models.Registration, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if input.CompetitionID == 0 {
		return nil, ErrCompetitionIDRequired
	}

	competition, err := s.competitionRepo.GetByID(ctx, input.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", input.CompetitionID, err)
	}

	var team *models.Team
	if competition.IsIndividual() {
		team, err = s.resolveSoloTeam(ctx, competition, actor)
		if err != nil {
			return nil, err
		}
	} else {
		if input.TeamID == nil {
			return nil, ErrTeamIDRequired
		}
		team, err = s.teamRepo.GetByID(ctx, *input.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return nil, ErrTeamNotFound
			}
			return nil, fmt.Errorf("failed to get team %d: %w", *input.TeamID, err)
		}
		if team.CompetitionID != competition.ID {
			return nil, fmt.Errorf("%w: team %d belongs to another competition", ErrValidationFailed, team.ID)
		}
		if team.CaptainID != actor.ID {
			return nil, ErrCaptainActionForbidden
		}
	}

	_, err = s.registrationRepo.FindByCompetitionAndTeam(ctx, competition.ID, team.ID)
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}

	registration := &models.Registration{
		CompetitionID: competition.ID,
		TeamID:        &team.ID,
		Status:        models.RegistrationPending,
	}
	if competition.IsIndividual() {
		userID := actor.ID
		registration.UserID = &userID
	}

	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		// Уникальный индекс хранилища перекрывает гонку
		// "проверили — вставили" между параллельными запросами.
		if errors.Is(err, repositories.ErrRegistrationConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	status := models.TeamStatusRegistered
	if err := s.teamRepo.UpdateFields(ctx, team.ID, map[string]interface{}{"status": status}); err != nil {
		// Регистрация уже создана; статус команды — косметика, не повод
		// откатывать операцию.
		s.logger.Warn("failed to mark team as registered",
			slog.Int("team_id", team.ID), slog.Any("error", err))
	}

	registration.Team = team
	return registration, nil
}

// resolveSoloTeam находит или создаёт команду вместимостью 1 для
// индивидуального соревнования; одна авто-команда на пару
// (пользователь, соревнование).
func (s *registrationService) resolveSoloTeam(ctx context.Context, competition *models.Competition, actor models.CurrentUser) (*models.Team, error) {
	team, err := s.teamRepo.FindByCompetitionAndCaptain(ctx, competition.ID, actor.ID)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, repositories.ErrTeamNotFound) {
		return nil, fmt.Errorf("failed to look up solo team: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", actor.ID, err)
	}

	team = &models.Team{
		CompetitionID: competition.ID,
		Name:          user.Nickname,
		CaptainID:     actor.ID,
		MaxNum:        1,
		CurrentNum:    1,
		Status:        models.TeamStatusNormal,
	}
	if err := createTeamWithCaptain(ctx, s.teamRepo, s.memberRepo, team, actor.ID); err != nil {
		return nil, fmt.Errorf("failed to bootstrap solo team: %w", err)
	}
	return team, nil
}

func (s *registrationService) ReviewRegistration(ctx context.Context, registrationID int, status models.RegistrationStatus, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	registration, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to get registration %d: %w", registrationID, err)
	}

	if !status.IsReviewOutcome() {
		return ErrInvalidReviewStatus
	}
	// Повторного ревью нет: один вердикт на заявку.
	if registration.Status != models.RegistrationPending {
		return ErrAlreadyReviewed
	}

	competition, err := s.competitionRepo.GetByID(ctx, registration.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to get competition %d: %w", registration.CompetitionID, err)
	}
	if competition.CreatorID != actor.ID {
		return ErrNotCompetitionOwner
	}

	if err := s.registrationRepo.UpdateReview(ctx, registrationID, status, actor.ID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to update registration %d review: %w", registrationID, err)
	}

	s.broadcaster.BroadcastToCompetition(competition.ID, live.EventRegistrationReviewed, map[string]interface{}{
		"registration_id": registrationID,
		"status":          status,
	})
	return nil
}

// GetMyRegistrationStatus никогда не возвращает ошибку для случая
// "не зарегистрирован" — это обычный пустой ответ.
func (s *registrationService) GetMyRegistrationStatus(ctx context.Context, userID, competitionID int) (*RegistrationStatusInfo, error) {
	registration, err := s.registrationRepo.FindByCompetitionAndUser(ctx, competitionID, userID)
	if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("failed to look up registration: %w", err)
	}

	if registration == nil {
		// Командные регистрации не несут user_id: смотрим команды,
		// в которых пользователь состоит.
		teamIDs, err := s.memberRepo.ListTeamIDsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list membership team ids: %w", err)
		}
		for _, teamID := range teamIDs {
			reg, err := s.registrationRepo.FindByCompetitionAndTeam(ctx, competitionID, teamID)
			if err != nil {
				if errors.Is(err, repositories.ErrRegistrationNotFound) {
					continue
				}
				return nil, fmt.Errorf("failed to look up team registration: %w", err)
			}
			registration = reg
			break
		}
	}

	if registration == nil {
		return &RegistrationStatusInfo{Registered: false}, nil
	}

	status := registration.Status
	id := registration.ID
	return &RegistrationStatusInfo{
		Registered:     true,
		Status:         &status,
		TeamID:         registration.TeamID,
		RegistrationID: &id,
	}, nil
}

func (s *registrationService) ListCompetitionRegistrations(ctx context.Context, competitionID int, actor models.CurrentUser) ([]*models.Registration, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	competition, err := s.competitionRepo.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", competitionID, err)
	}
	if competition.CreatorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}

	registrations, err := s.registrationRepo.ListByCompetition(ctx, competitionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return registrations, nil
}

// ListMyCompetitions — соревнования, доступные актору через одобренную
// личную регистрацию либо через членство в команде с одобренной
// регистрацией; дубликаты по id соревнования схлопываются.
func (s *registrationService) ListMyCompetitions(ctx context.Context, actor models.CurrentUser) ([]*models.Competition, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	ownIDs, err := s.registrationRepo.ListApprovedCompetitionIDsByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list own approved competitions: %w", err)
	}

	teamIDs, err := s.memberRepo.ListTeamIDsByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership team ids: %w", err)
	}
	teamCompIDs, err := s.registrationRepo.ListApprovedCompetitionIDsByTeams(ctx, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list team approved competitions: %w", err)
	}

	seen := make(map[int]bool, len(ownIDs)+len(teamCompIDs))
	ids := make([]int, 0, len(ownIDs)+len(teamCompIDs))
	for _, id := range append(ownIDs, teamCompIDs...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	competitions, err := s.competitionRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	return competitions, nil
}
