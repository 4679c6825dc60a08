package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionConflict = errors.New("submission already exists for this registration")
	ErrSubmissionInvalid  = errors.New("submission registration or competition conflict or invalid")
)

// SubmissionFilter ограничивает выборку ListSubmissions.
type SubmissionFilter struct {
	CompetitionID int
	UserID        *int
	Status        *models.SubmissionStatus
}

type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	FindByRegistration(ctx context.Context, registrationID int) (*models.Submission, error)
	Overwrite(ctx context.Context, id int, fileURL string, description *string, updatedAt time.Time) error
	UpdateScore(ctx context.Context, id, score, reviewerID int, updatedAt time.Time) error
	List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error)
	ListScoredByCompetition(ctx context.Context, competitionID int) ([]*models.Submission, error)
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

const submissionColumns = `id, competition_id, registration_id, user_id, team_id, file_url, description, score, reviewer_id, status, created_at, updated_at`

func (r *postgresSubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (competition_id, registration_id, user_id, team_id, file_url, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		sub.CompetitionID,
		sub.RegistrationID,
		sub.UserID,
		sub.TeamID,
		sub.FileURL,
		sub.Description,
		sub.Status,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // частичный уникальный индекс по registration_id среди живых строк
				return ErrSubmissionConflict
			case "23503":
				return ErrSubmissionInvalid
			}
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *postgresSubmissionRepository) scanSubmission(rowScanner interface {
	Scan(dest ...interface{}) error
}, s *models.Submission) error {
	return rowScanner.Scan(
		&s.ID,
		&s.CompetitionID,
		&s.RegistrationID,
		&s.UserID,
		&s.TeamID,
		&s.FileURL,
		&s.Description,
		&s.Score,
		&s.ReviewerID,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

func (r *postgresSubmissionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Submission, error) {
	s := &models.Submission{}
	err := r.scanSubmission(r.db.QueryRowContext(ctx, query, args...), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}
	return s, nil
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1 AND %s`, submissionColumns, notDeleted)
	return r.findOne(ctx, query, id)
}

func (r *postgresSubmissionRepository) FindByRegistration(ctx context.Context, registrationID int) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE registration_id = $1 AND %s`, submissionColumns, notDeleted)
	return r.findOne(ctx, query, registrationID)
}

// Overwrite обновляет изменяемые поля существующей строки; created_at
// не трогается.
func (r *postgresSubmissionRepository) Overwrite(ctx context.Context, id int, fileURL string, description *string, updatedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE submissions
		SET file_url = $1, description = $2, updated_at = $3
		WHERE id = $4 AND %s`, notDeleted)

	result, err := r.db.ExecContext(ctx, query, fileURL, description, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to overwrite submission: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) UpdateScore(ctx context.Context, id, score, reviewerID int, updatedAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE submissions
		SET score = $1, reviewer_id = $2, status = $3, updated_at = $4
		WHERE id = $5 AND %s`, notDeleted)

	result, err := r.db.ExecContext(ctx, query, score, reviewerID, models.SubmissionScored, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update submission score: %w", err)
	}
	return checkAffectedRows(result, ErrSubmissionNotFound)
}

func (r *postgresSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*models.Submission, 0)
	for rows.Next() {
		var s models.Submission
		if err := r.scanSubmission(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		submissions = append(submissions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return submissions, nil
}

func (r *postgresSubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE competition_id = $1 AND %s`, submissionColumns, notDeleted)
	args := []interface{}{filter.CompetitionID}
	argCounter := 2
	if filter.UserID != nil {
		query += fmt.Sprintf(` AND user_id = $%d`, argCounter)
		args = append(args, *filter.UserID)
		argCounter++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, argCounter)
		args = append(args, *filter.Status)
		argCounter++
	}
	query += ` ORDER BY created_at ASC`
	return r.list(ctx, query, args...)
}

// ListScoredByCompetition возвращает оценённые работы в порядке рейтинга:
// по убыванию балла, при равенстве — раньше сданные выше.
func (r *postgresSubmissionRepository) ListScoredByCompetition(ctx context.Context, competitionID int) ([]*models.Submission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM submissions
		WHERE competition_id = $1 AND status = $2 AND %s
		ORDER BY score DESC, created_at ASC`, submissionColumns, notDeleted)
	return r.list(ctx, query, competitionID, models.SubmissionScored)
}
