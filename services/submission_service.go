package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/live"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/repositories"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/storage"
	"golang.org/x/sync/errgroup"
)

// Разрешённые расширения файлов работ. Глубже расширения содержимое не
// проверяется.
var allowedSubmissionExtensions = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".pdf": true,
	".doc": true, ".docx": true, ".md": true, ".txt": true,
}

type SubmitWorkInput struct {
	RegistrationID int
	CompetitionID  int
	Description    *string
	FileName       string
	ContentType    string
	File           io.Reader
}

type SubmissionService interface {
	SubmitWork(ctx context.Context, input SubmitWorkInput, actor models.CurrentUser) (*models.Submission, error)
	ScoreSubmission(ctx context.Context, submissionID, score int, actor models.CurrentUser) error
	ListSubmissions(ctx context.Context, competitionID int, actor models.CurrentUser) ([]*models.Submission, error)
	GetCompetitionRank(ctx context.Context, competitionID int) ([]models.RankEntry, error)
}

type submissionService struct {
	submissionRepo   repositories.SubmissionRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	competitionRepo  repositories.CompetitionRepository
	userRepo         repositories.UserRepository
	uploader         storage.FileUploader
	broadcaster      live.Broadcaster
	now              func() time.Time
}

func NewSubmissionService(
	submissionRepo repositories.SubmissionRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	competitionRepo repositories.CompetitionRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	broadcaster live.Broadcaster,
) SubmissionService {
	return &submissionService{
		submissionRepo:   submissionRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		competitionRepo:  competitionRepo,
		userRepo:         userRepo,
		uploader:         uploader,
		broadcaster:      broadcaster,
		now:              time.Now,
	}
}

// SubmitWork принимает работу против одобренной регистрации. Повторная
// сдача перезаписывает существующую живую строку (тот же id, тот же
// created_at), так что на регистрацию всегда не больше одной живой работы.
func (s *submissionService) SubmitWork(ctx context.Context, input SubmitWorkInput, actor models.CurrentUser) (*models.Submission, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if input.RegistrationID == 0 {
		return nil, fmt.Errorf("%w: registration id is required", ErrValidationFailed)
	}
	if input.File == nil || input.FileName == "" {
		return nil, ErrFileRequired
	}
	ext := strings.ToLower(path.Ext(input.FileName))
	if !allowedSubmissionExtensions[ext] {
		return nil, ErrFileExtensionDenied
	}

	registration, err := s.registrationRepo.GetByID(ctx, input.RegistrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration %d: %w", input.RegistrationID, err)
	}
	// Неодобренная заявка для сдающего неотличима от отсутствующей.
	if registration.Status != models.RegistrationApproved {
		return nil, ErrRegistrationNotApproved
	}

	if err := s.authorizeSubmitter(ctx, registration, actor); err != nil {
		return nil, err
	}

	key, err := storage.SubmissionKey(registration.CompetitionID, registration.ID, input.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build object key: %w", err)
	}
	uploaded, err := s.uploader.Upload(ctx, key, input.ContentType, input.File)
	if err != nil {
		return nil, fmt.Errorf("failed to upload submission file: %w", err)
	}

	existing, err := s.submissionRepo.FindByRegistration(ctx, registration.ID)
	if err != nil && !errors.Is(err, repositories.ErrSubmissionNotFound) {
		return nil, fmt.Errorf("failed to look up existing submission: %w", err)
	}

	if existing != nil {
		if err := s.submissionRepo.Overwrite(ctx, existing.ID, uploaded.Location, input.Description, s.now()); err != nil {
			return nil, fmt.Errorf("failed to overwrite submission %d: %w", existing.ID, err)
		}
		existing.FileURL = uploaded.Location
		existing.Description = input.Description
		existing.UpdatedAt = s.now()
		return existing, nil
	}

	submission := &models.Submission{
		CompetitionID:  registration.CompetitionID,
		RegistrationID: registration.ID,
		UserID:         actor.ID,
		TeamID:         registration.TeamID,
		FileURL:        uploaded.Location,
		Description:    input.Description,
		Status:         models.SubmissionSubmitted,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		if errors.Is(err, repositories.ErrSubmissionConflict) {
			// Параллельная первая сдача успела раньше; перезаписываем её
			// строку, как того требует инвариант одной живой работы.
			raced, findErr := s.submissionRepo.FindByRegistration(ctx, registration.ID)
			if findErr != nil {
				return nil, fmt.Errorf("failed to resolve concurrent submission: %w", findErr)
			}
			if err := s.submissionRepo.Overwrite(ctx, raced.ID, uploaded.Location, input.Description, s.now()); err != nil {
				return nil, fmt.Errorf("failed to overwrite submission %d: %w", raced.ID, err)
			}
			raced.FileURL = uploaded.Location
			raced.Description = input.Description
			return raced, nil
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return submission, nil
}

// authorizeSubmitter: индивидуальная регистрация — только её владелец,
// командная — только капитан команды.
func (s *submissionService) authorizeSubmitter(ctx context.Context, registration *models.Registration, actor models.CurrentUser) error {
	if registration.UserID != nil && *registration.UserID == actor.ID {
		return nil
	}
	if registration.TeamID != nil {
		team, err := s.teamRepo.GetByID(ctx, *registration.TeamID)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return fmt.Errorf("failed to get team %d: %w", *registration.TeamID, err)
		}
		if team.CaptainID == actor.ID {
			return nil
		}
	}
	return ErrForbiddenOperation
}

func (s *submissionService) ScoreSubmission(ctx context.Context, submissionID, score int, actor models.CurrentUser) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}
	if score < 0 {
		return ErrInvalidScore
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to get submission %d: %w", submissionID, err)
	}

	competition, err := s.competitionRepo.GetByID(ctx, submission.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return ErrCompetitionNotFound
		}
		return fmt.Errorf("failed to get competition %d: %w", submission.CompetitionID, err)
	}
	if competition.CreatorID != actor.ID {
		return ErrNotCompetitionOwner
	}

	if err := s.submissionRepo.UpdateScore(ctx, submissionID, score, actor.ID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("failed to score submission %d: %w", submissionID, err)
	}

	s.broadcaster.BroadcastToCompetition(competition.ID, live.EventSubmissionScored, map[string]interface{}{
		"submission_id": submissionID,
		"score":         score,
	})
	return nil
}

// ListSubmissions: создатель соревнования (и админ) видит все работы,
// остальные — только свои.
func (s *submissionService) ListSubmissions(ctx context.Context, competitionID int, actor models.CurrentUser) ([]*models.Submission, error) {
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

	filter := repositories.SubmissionFilter{CompetitionID: competitionID}
	if competition.CreatorID != actor.ID && !actor.IsAdmin() {
		userID := actor.ID
		filter.UserID = &userID
	}

	submissions, err := s.submissionRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// GetCompetitionRank возвращает оценённые работы в порядке рейтинга,
// обогащённые отображаемыми именами. Имена команд и пользователей
// подтягиваются параллельно.
func (s *submissionService) GetCompetitionRank(ctx context.Context, competitionID int) ([]models.RankEntry, error) {
	submissions, err := s.submissionRepo.ListScoredByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored submissions: %w", err)
	}

	teamNames := make(map[int]string)
	userNames := make(map[int]string)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teamIDs := make([]int, 0, len(submissions))
		seen := make(map[int]bool)
		for _, sub := range submissions {
			if sub.TeamID != nil && !seen[*sub.TeamID] {
				seen[*sub.TeamID] = true
				teamIDs = append(teamIDs, *sub.TeamID)
			}
		}
		teams, err := s.teamRepo.ListByIDs(gctx, teamIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve team names: %w", err)
		}
		mu.Lock()
		for _, t := range teams {
			teamNames[t.ID] = t.Name
		}
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		userIDs := make([]int, 0, len(submissions))
		seen := make(map[int]bool)
		for _, sub := range submissions {
			if !seen[sub.UserID] {
				seen[sub.UserID] = true
				userIDs = append(userIDs, sub.UserID)
			}
		}
		users, err := s.userRepo.ListByIDs(gctx, userIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve user names: %w", err)
		}
		mu.Lock()
		for _, u := range users {
			userNames[u.ID] = u.Nickname
		}
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]models.RankEntry, 0, len(submissions))
	for i, sub := range submissions {
		name := userNames[sub.UserID]
		if sub.TeamID != nil {
			if teamName, ok := teamNames[*sub.TeamID]; ok {
				name = teamName
			}
		}
		entries = append(entries, models.RankEntry{
			Rank:        i + 1,
			Submission:  *sub,
			DisplayName: name,
		})
	}
	return entries, nil
}
