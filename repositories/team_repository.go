package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound           = errors.New("team not found")
	ErrTeamNameConflict       = errors.New("team name is already taken in this competition")
	ErrTeamCompetitionInvalid = errors.New("team competition conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	FindByCompetitionAndCaptain(ctx context.Context, competitionID, captainID int) (*models.Team, error)
	ListByCompetition(ctx context.Context, competitionID int) ([]*models.Team, error)
	ListByCaptain(ctx context.Context, captainID int) ([]*models.Team, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error)
	UpdateFields(ctx context.Context, id int, fields map[string]interface{}) error
	SetMemberCount(ctx context.Context, id, count int, status models.TeamStatus) error
	SoftDelete(ctx context.Context, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, competition_id, name, description, captain_id, max_num, current_num, status, expire_time, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (competition_id, name, description, captain_id, max_num, current_num, status, expire_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.CompetitionID,
		team.Name,
		team.Description,
		team.CaptainID,
		team.MaxNum,
		team.CurrentNum,
		team.Status,
		team.ExpireTime,
	).Scan(&team.ID, &team.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrTeamNameConflict
			case "23503": // foreign_key_violation
				return ErrTeamCompetitionInvalid
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) scanTeam(rowScanner interface {
	Scan(dest ...interface{}) error
}, t *models.Team) error {
	return rowScanner.Scan(
		&t.ID,
		&t.CompetitionID,
		&t.Name,
		&t.Description,
		&t.CaptainID,
		&t.MaxNum,
		&t.CurrentNum,
		&t.Status,
		&t.ExpireTime,
		&t.CreatedAt,
	)
}

func (r *postgresTeamRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Team, error) {
	t := &models.Team{}
	err := r.scanTeam(r.db.QueryRowContext(ctx, query, args...), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE id = $1 AND %s`, teamColumns, notDeleted)
	return r.findOne(ctx, query, id)
}

func (r *postgresTeamRepository) FindByCompetitionAndCaptain(ctx context.Context, competitionID, captainID int) (*models.Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE competition_id = $1 AND captain_id = $2 AND %s`, teamColumns, notDeleted)
	return r.findOne(ctx, query, competitionID, captainID)
}

func (r *postgresTeamRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var t models.Team
		if err := r.scanTeam(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) ListByCompetition(ctx context.Context, competitionID int) ([]*models.Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE competition_id = $1 AND %s ORDER BY created_at ASC`, teamColumns, notDeleted)
	return r.list(ctx, query, competitionID)
}

func (r *postgresTeamRepository) ListByCaptain(ctx context.Context, captainID int) ([]*models.Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE captain_id = $1 AND %s ORDER BY created_at ASC`, teamColumns, notDeleted)
	return r.list(ctx, query, captainID)
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE id = ANY($1) AND %s ORDER BY created_at ASC`, teamColumns, notDeleted)
	return r.list(ctx, query, intArray(ids))
}

// UpdateFields собирает SET-часть динамически: обновляются только
// переданные колонки.
func (r *postgresTeamRepository) UpdateFields(ctx context.Context, id int, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	setParts := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	argCounter := 1
	for _, column := range []string{"name", "description", "max_num", "status", "expire_time"} {
		value, ok := fields[column]
		if !ok {
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argCounter))
		args = append(args, value)
		argCounter++
	}
	if len(setParts) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE teams SET %s WHERE id = $%d AND %s`,
		strings.Join(setParts, ", "), argCounter, notDeleted)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTeamNameConflict
		}
		return fmt.Errorf("failed to update team: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SetMemberCount(ctx context.Context, id, count int, status models.TeamStatus) error {
	query := fmt.Sprintf(`UPDATE teams SET current_num = $1, status = $2 WHERE id = $3 AND %s`, notDeleted)
	result, err := r.db.ExecContext(ctx, query, count, status, id)
	if err != nil {
		return fmt.Errorf("failed to update team member count: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SoftDelete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`UPDATE teams SET deleted_at = now(), status = $1 WHERE id = $2 AND %s`, notDeleted)
	result, err := r.db.ExecContext(ctx, query, models.TeamStatusDisbanded, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
