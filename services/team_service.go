package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/repositories"
)

type CreateTeamInput struct {
	CompetitionID int        `json:"competition_id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description"`
	ExpireTime    *time.Time `json:"expire_time"`
}

type UpdateTeamInput struct {
	TeamID      int                `json:"-"`
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	MaxNum      *int               `json:"max_num"`
	Status      *models.TeamStatus `json:"status"`
	ExpireTime  *time.Time         `json:"expire_time"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput, actor models.CurrentUser) (*models.Team, error)
	JoinTeam(ctx context.Context, teamID int, actor models.CurrentUser) error
	QuitTeam(ctx context.Context, teamID int, actor models.CurrentUser) error
	DeleteTeam(ctx context.Context, teamID int, actor models.CurrentUser) error
	UpdateTeam(ctx context.Context, input UpdateTeamInput, actor models.CurrentUser) (*models.Team, error)
	GetTeamDetail(ctx context.Context, teamID int) (*models.Team, error)
	ListTeams(ctx context.Context, competitionID int) ([]*models.Team, error)
	ListMyTeams(ctx context.Context, actor models.CurrentUser) ([]*models.Team, error)
}

type teamService struct {
	teamRepo        repositories.TeamRepository
	memberRepo      repositories.TeamMemberRepository
	competitionRepo repositories.CompetitionRepository
	now             func() time.Time
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	competitionRepo repositories.CompetitionRepository,
) TeamService {
	return &teamService{
		teamRepo:        teamRepo,
		memberRepo:      memberRepo,
		competitionRepo: competitionRepo,
		now:             time.Now,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput, actor models.CurrentUser) (*models.Team, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if input.CompetitionID == 0 {
		return nil, ErrCompetitionIDRequired
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTeamNameRequired
	}

	competition, err := s.competitionRepo.GetByID(ctx, input.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", input.CompetitionID, err)
	}

	// Для индивидуальных соревнований команды создаёт только
	// авто-бутстрап при регистрации.
	if competition.IsIndividual() {
		return nil, ErrIndividualCompetition
	}

	team := &models.Team{
		CompetitionID: competition.ID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		CaptainID:     actor.ID,
		MaxNum:        competition.MaxMembers,
		CurrentNum:    1,
		Status:        models.TeamStatusNormal,
		ExpireTime:    input.ExpireTime,
	}

	if err := createTeamWithCaptain(ctx, s.teamRepo, s.memberRepo, team, actor.ID); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) JoinTeam(ctx context.Context, teamID int, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.ExpireTime != nil && s.now().After(*team.ExpireTime) {
		return ErrTeamExpired
	}

	_, err = s.memberRepo.Find(ctx, teamID, actor.ID)
	if err == nil {
		return ErrAlreadyTeamMember
	}
	if !errors.Is(err, repositories.ErrTeamMemberNotFound) {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	count, err := s.memberRepo.CountByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to count team members: %w", err)
	}
	if count >= team.MaxNum {
		return ErrTeamFull
	}

	member := &models.TeamMember{
		TeamID: teamID,
		UserID: actor.ID,
		Role:   models.TeamRoleMember,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		// Уникальный индекс хранилища — последняя защита от гонки
		// параллельных join-ов.
		if errors.Is(err, repositories.ErrTeamMemberConflict) {
			return ErrAlreadyTeamMember
		}
		return fmt.Errorf("failed to join team %d: %w", teamID, err)
	}

	count++
	if err := s.teamRepo.SetMemberCount(ctx, teamID, count, nextTeamStatus(team.Status, count, team.MaxNum)); err != nil {
		return fmt.Errorf("failed to update member count for team %d: %w", teamID, err)
	}
	return nil
}

func (s *teamService) QuitTeam(ctx context.Context, teamID int, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	member, err := s.memberRepo.Find(ctx, teamID, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamMemberNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to find membership: %w", err)
	}

	// Наследования капитанства нет: капитан распускает команду, а не
	// выходит из неё.
	if member.Role == models.TeamRoleCaptain {
		return ErrCaptainCannotQuit
	}

	if err := s.memberRepo.SoftDelete(ctx, member.ID); err != nil {
		return fmt.Errorf("failed to remove member %d: %w", member.ID, err)
	}

	count, err := s.memberRepo.CountByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to count team members: %w", err)
	}
	if err := s.teamRepo.SetMemberCount(ctx, teamID, count, nextTeamStatus(team.Status, count, team.MaxNum)); err != nil {
		return fmt.Errorf("failed to update member count for team %d: %w", teamID, err)
	}
	return nil
}

// DeleteTeam удаляет сначала состав, затем команду. Операция не
// транзакционна: если финальная запись не удалась, участники уже удалены,
// и вызывающий получает ошибку как сигнал ретрая.
func (s *teamService) DeleteTeam(ctx context.Context, teamID int, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != actor.ID && !actor.IsAdmin() {
		return ErrCaptainActionForbidden
	}

	if err := s.memberRepo.SoftDeleteByTeam(ctx, teamID); err != nil {
		return fmt.Errorf("failed to remove members of team %d: %w", teamID, err)
	}
	if err := s.teamRepo.SoftDelete(ctx, teamID); err != nil {
		return fmt.Errorf("failed to delete team %d (members already removed): %w", teamID, err)
	}
	return nil
}

func (s *teamService) UpdateTeam(ctx context.Context, input UpdateTeamInput, actor models.CurrentUser) (*models.Team, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", input.TeamID, err)
	}

	if team.CaptainID != actor.ID && !actor.IsAdmin() {
		return nil, ErrCaptainActionForbidden
	}

	fields := make(map[string]interface{})
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.MaxNum != nil {
		count, err := s.memberRepo.CountByTeam(ctx, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count team members: %w", err)
		}
		if *input.MaxNum < count {
			return nil, fmt.Errorf("%w: max_num %d is below current member count %d", ErrValidationFailed, *input.MaxNum, count)
		}
		fields["max_num"] = *input.MaxNum
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TeamStatusNormal, models.TeamStatusFull, models.TeamStatusRegistered, models.TeamStatusDisbanded:
			fields["status"] = *input.Status
		default:
			return nil, fmt.Errorf("%w: unknown team status %q", ErrValidationFailed, *input.Status)
		}
	}
	if input.ExpireTime != nil {
		fields["expire_time"] = *input.ExpireTime
	}

	if err := s.teamRepo.UpdateFields(ctx, team.ID, fields); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrTeamNameConflict):
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to update team %d: %w", team.ID, err)
	}

	return s.GetTeamDetail(ctx, team.ID)
}

// GetTeamDetail возвращает команду с составом. CurrentNum пересчитывается
// из живых строк состава, а не берётся из денормализованного счётчика.
func (s *teamService) GetTeamDetail(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	members, err := s.memberRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of team %d: %w", teamID, err)
	}

	team.Members = make([]models.TeamMember, 0, len(members))
	for _, m := range members {
		team.Members = append(team.Members, *m)
		if m.Role == models.TeamRoleCaptain {
			team.Captain = m.User
		}
	}
	team.CurrentNum = len(members)
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, competitionID int) ([]*models.Team, error) {
	if competitionID == 0 {
		return nil, ErrCompetitionIDRequired
	}
	teams, err := s.teamRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for competition %d: %w", competitionID, err)
	}
	return teams, nil
}

// ListMyTeams — объединение команд, где актор капитан, и команд, где у него
// есть строка членства, без дубликатов.
func (s *teamService) ListMyTeams(ctx context.Context, actor models.CurrentUser) ([]*models.Team, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	captained, err := s.teamRepo.ListByCaptain(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list captained teams: %w", err)
	}

	memberIDs, err := s.memberRepo.ListTeamIDsByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership team ids: %w", err)
	}

	seen := make(map[int]bool, len(captained))
	result := make([]*models.Team, 0, len(captained)+len(memberIDs))
	for _, t := range captained {
		seen[t.ID] = true
		result = append(result, t)
	}

	missing := make([]int, 0, len(memberIDs))
	for _, id := range memberIDs {
		if !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}
	joined, err := s.teamRepo.ListByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined teams: %w", err)
	}
	result = append(result, joined...)
	return result, nil
}
