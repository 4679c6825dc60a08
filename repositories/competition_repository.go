package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
)

var ErrCompetitionNotFound = errors.New("competition not found")

type CompetitionRepository interface {
	Create(ctx context.Context, c *models.Competition) error
	GetByID(ctx context.Context, id int) (*models.Competition, error)
	List(ctx context.Context) ([]*models.Competition, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Competition, error)
	Update(ctx context.Context, c *models.Competition) error
	SoftDelete(ctx context.Context, id int) error
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

const competitionColumns = `id, name, description, creator_id, max_members, start_time, end_time, created_at`

func (r *postgresCompetitionRepository) Create(ctx context.Context, c *models.Competition) error {
	query := `
		INSERT INTO competitions (name, description, creator_id, max_members, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Name,
		c.Description,
		c.CreatorID,
		c.MaxMembers,
		c.StartTime,
		c.EndTime,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

func (r *postgresCompetitionRepository) scanCompetition(rowScanner interface {
	Scan(dest ...interface{}) error
}, c *models.Competition) error {
	return rowScanner.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.CreatorID,
		&c.MaxMembers,
		&c.StartTime,
		&c.EndTime,
		&c.CreatedAt,
	)
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id int) (*models.Competition, error) {
	query := fmt.Sprintf(`SELECT %s FROM competitions WHERE id = $1 AND %s`, competitionColumns, notDeleted)
	c := &models.Competition{}
	err := r.scanCompetition(r.db.QueryRowContext(ctx, query, id), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return c, nil
}

func (r *postgresCompetitionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Competition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	competitions := make([]*models.Competition, 0)
	for rows.Next() {
		var c models.Competition
		if err := r.scanCompetition(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan competition row: %w", err)
		}
		competitions = append(competitions, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating competition rows: %w", err)
	}
	return competitions, nil
}

func (r *postgresCompetitionRepository) List(ctx context.Context) ([]*models.Competition, error) {
	query := fmt.Sprintf(`SELECT %s FROM competitions WHERE %s ORDER BY start_time DESC`, competitionColumns, notDeleted)
	return r.list(ctx, query)
}

func (r *postgresCompetitionRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Competition, error) {
	if len(ids) == 0 {
		return []*models.Competition{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM competitions WHERE id = ANY($1) AND %s ORDER BY start_time DESC`, competitionColumns, notDeleted)
	return r.list(ctx, query, intArray(ids))
}

func (r *postgresCompetitionRepository) Update(ctx context.Context, c *models.Competition) error {
	query := fmt.Sprintf(`
		UPDATE competitions
		SET name = $1, description = $2, max_members = $3, start_time = $4, end_time = $5
		WHERE id = $6 AND %s`, notDeleted)

	result, err := r.db.ExecContext(ctx, query,
		c.Name, c.Description, c.MaxMembers, c.StartTime, c.EndTime, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}

func (r *postgresCompetitionRepository) SoftDelete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`UPDATE competitions SET deleted_at = now() WHERE id = $1 AND %s`, notDeleted)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete competition: %w", err)
	}
	return checkAffectedRows(result, ErrCompetitionNotFound)
}
