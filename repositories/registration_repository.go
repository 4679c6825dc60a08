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
	ErrRegistrationNotFound = errors.New("registration not found")
	// Последняя линия обороны от гонки "проверили — вставили": частичные
	// уникальные индексы по (competition_id, team_id) и
	// (competition_id, user_id) среди живых строк.
	ErrRegistrationConflict = errors.New("registration conflict: user or team already registered for this competition")
	ErrRegistrationInvalid  = errors.New("registration user, team or competition conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id int) (*models.Registration, error)
	FindByCompetitionAndTeam(ctx context.Context, competitionID, teamID int) (*models.Registration, error)
	FindByCompetitionAndUser(ctx context.Context, competitionID, userID int) (*models.Registration, error)
	ListByCompetition(ctx context.Context, competitionID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	ListApprovedCompetitionIDsByUser(ctx context.Context, userID int) ([]int, error)
	ListApprovedCompetitionIDsByTeams(ctx context.Context, teamIDs []int) ([]int, error)
	UpdateReview(ctx context.Context, id int, status models.RegistrationStatus, reviewerID int, reviewTime time.Time) error
	SoftDelete(ctx context.Context, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `id, competition_id, user_id, team_id, status, submit_time, review_time, reviewer_id`

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (competition_id, user_id, team_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submit_time`

	err := r.db.QueryRowContext(ctx, query,
		reg.CompetitionID,
		reg.UserID,
		reg.TeamID,
		reg.Status,
	).Scan(&reg.ID, &reg.SubmitTime)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrRegistrationConflict
			case "23503": // foreign_key_violation
				return ErrRegistrationInvalid
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface {
	Scan(dest ...interface{}) error
}, reg *models.Registration) error {
	return rowScanner.Scan(
		&reg.ID,
		&reg.CompetitionID,
		&reg.UserID,
		&reg.TeamID,
		&reg.Status,
		&reg.SubmitTime,
		&reg.ReviewTime,
		&reg.ReviewerID,
	)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Registration, error) {
	reg := &models.Registration{}
	err := r.scanRegistration(r.db.QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE id = $1 AND %s`, registrationColumns, notDeleted)
	return r.findOne(ctx, query, id)
}

func (r *postgresRegistrationRepository) FindByCompetitionAndTeam(ctx context.Context, competitionID, teamID int) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE competition_id = $1 AND team_id = $2 AND %s`, registrationColumns, notDeleted)
	return r.findOne(ctx, query, competitionID, teamID)
}

func (r *postgresRegistrationRepository) FindByCompetitionAndUser(ctx context.Context, competitionID, userID int) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE competition_id = $1 AND user_id = $2 AND %s`, registrationColumns, notDeleted)
	return r.findOne(ctx, query, competitionID, userID)
}

func (r *postgresRegistrationRepository) ListByCompetition(ctx context.Context, competitionID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations WHERE competition_id = $1 AND %s`, registrationColumns, notDeleted)
	args := []interface{}{competitionID}
	if statusFilter != nil {
		query += ` AND status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY submit_time ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by competition: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := r.scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, &reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) listCompetitionIDs(ctx context.Context, query string, args ...interface{}) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competition ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan competition id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competition id rows: %w", err)
	}
	return ids, nil
}

func (r *postgresRegistrationRepository) ListApprovedCompetitionIDsByUser(ctx context.Context, userID int) ([]int, error) {
	query := fmt.Sprintf(`SELECT competition_id FROM registrations WHERE user_id = $1 AND status = $2 AND %s`, notDeleted)
	return r.listCompetitionIDs(ctx, query, userID, models.RegistrationApproved)
}

func (r *postgresRegistrationRepository) ListApprovedCompetitionIDsByTeams(ctx context.Context, teamIDs []int) ([]int, error) {
	if len(teamIDs) == 0 {
		return []int{}, nil
	}
	query := fmt.Sprintf(`SELECT competition_id FROM registrations WHERE team_id = ANY($1) AND status = $2 AND %s`, notDeleted)
	return r.listCompetitionIDs(ctx, query, intArray(teamIDs), models.RegistrationApproved)
}

func (r *postgresRegistrationRepository) UpdateReview(ctx context.Context, id int, status models.RegistrationStatus, reviewerID int, reviewTime time.Time) error {
	query := fmt.Sprintf(`
		UPDATE registrations
		SET status = $1, reviewer_id = $2, review_time = $3
		WHERE id = $4 AND %s`, notDeleted)

	result, err := r.db.ExecContext(ctx, query, status, reviewerID, reviewTime, id)
	if err != nil {
		return fmt.Errorf("failed to update registration review: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) SoftDelete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`UPDATE registrations SET deleted_at = now() WHERE id = $1 AND %s`, notDeleted)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
