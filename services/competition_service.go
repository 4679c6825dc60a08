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

type CreateCompetitionInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	MaxMembers  int       `json:"max_members"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

type UpdateCompetitionInput struct {
	CompetitionID int        `json:"-"`
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	MaxMembers    *int       `json:"max_members"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
}

type CompetitionService interface {
	CreateCompetition(ctx context.Context, input CreateCompetitionInput, actor models.CurrentUser) (*models.Competition, error)
	GetCompetitionByID(ctx context.Context, id int) (*models.Competition, error)
	ListCompetitions(ctx context.Context) ([]*models.Competition, error)
	UpdateCompetition(ctx context.Context, input UpdateCompetitionInput, actor models.CurrentUser) (*models.Competition, error)
	DeleteCompetition(ctx context.Context, id int, actor models.CurrentUser) error
}

type competitionService struct {
	competitionRepo repositories.CompetitionRepository
}

func NewCompetitionService(competitionRepo repositories.CompetitionRepository) CompetitionService {
	return &competitionService{competitionRepo: competitionRepo}
}

func (s *competitionService) CreateCompetition(ctx context.Context, input CreateCompetitionInput, actor models.CurrentUser) (*models.Competition, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if actor.Role != models.RoleOrganizer && !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: competition name is required", ErrValidationFailed)
	}
	if input.MaxMembers < 1 {
		return nil, fmt.Errorf("%w: max_members must be at least 1", ErrValidationFailed)
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", ErrValidationFailed)
	}

	competition := &models.Competition{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CreatorID:   actor.ID,
		MaxMembers:  input.MaxMembers,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
	}
	if err := s.competitionRepo.Create(ctx, competition); err != nil {
		return nil, fmt.Errorf("failed to create competition: %w", err)
	}
	return competition, nil
}

func (s *competitionService) GetCompetitionByID(ctx context.Context, id int) (*models.Competition, error) {
	competition, err := s.competitionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %d: %w", id, err)
	}
	return competition, nil
}

func (s *competitionService) ListCompetitions(ctx context.Context) ([]*models.Competition, error) {
	competitions, err := s.competitionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	return competitions, nil
}

func (s *competitionService) UpdateCompetition(ctx context.Context, input UpdateCompetitionInput, actor models.CurrentUser) (*models.Competition, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}

	competition, err := s.GetCompetitionByID(ctx, input.CompetitionID)
	if err != nil {
		return nil, err
	}
	if competition.CreatorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrNotCompetitionOwner
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: competition name is required", ErrValidationFailed)
		}
		competition.Name = name
	}
	if input.Description != nil {
		competition.Description = input.Description
	}
	if input.MaxMembers != nil {
		if *input.MaxMembers < 1 {
			return nil, fmt.Errorf("%w: max_members must be at least 1", ErrValidationFailed)
		}
		competition.MaxMembers = *input.MaxMembers
	}
	if input.StartTime != nil {
		competition.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		competition.EndTime = *input.EndTime
	}
	if !competition.EndTime.After(competition.StartTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", ErrValidationFailed)
	}

	if err := s.competitionRepo.Update(ctx, competition); err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to update competition %d: %w", competition.ID, err)
	}
	return competition, nil
}

func (s *competitionService) DeleteCompetition(ctx context.Context, id int, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	competition, err := s.GetCompetitionByID(ctx, id)
	if err != nil {
		return err
	}
	if competition.CreatorID != actor.ID && !actor.IsAdmin() {
		return ErrNotCompetitionOwner
	}

	if err := s.competitionRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to delete competition %d: %w", id, err)
	}
	return nil
}
