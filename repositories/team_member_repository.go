package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/lib/pq"
)

var (
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrTeamMemberConflict = errors.New("user is already a member of this team")
	ErrTeamMemberInvalid  = errors.New("team member user or team conflict or invalid")
)

type TeamMemberRepository interface {
	Create(ctx context.Context, member *models.TeamMember) error
	Find(ctx context.Context, teamID, userID int) (*models.TeamMember, error)
	ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error)
	CountByTeam(ctx context.Context, teamID int) (int, error)
	ListTeamIDsByUser(ctx context.Context, userID int) ([]int, error)
	SoftDelete(ctx context.Context, id int) error
	SoftDeleteByTeam(ctx context.Context, teamID int) error
}

type postgresTeamMemberRepository struct {
	db *sql.DB
}

func NewPostgresTeamMemberRepository(db *sql.DB) TeamMemberRepository {
	return &postgresTeamMemberRepository{db: db}
}

const teamMemberColumns = `id, team_id, user_id, role, join_time`

func (r *postgresTeamMemberRepository) Create(ctx context.Context, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, join_time`

	err := r.db.QueryRowContext(ctx, query,
		member.TeamID,
		member.UserID,
		member.Role,
	).Scan(&member.ID, &member.JoinTime)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // частичный уникальный индекс по (team_id, user_id) WHERE deleted_at IS NULL
				return ErrTeamMemberConflict
			case "23503":
				return ErrTeamMemberInvalid
			}
		}
		return fmt.Errorf("failed to create team member: %w", err)
	}
	return nil
}

func (r *postgresTeamMemberRepository) Find(ctx context.Context, teamID, userID int) (*models.TeamMember, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_members WHERE team_id = $1 AND user_id = $2 AND %s`, teamMemberColumns, notDeleted)
	m := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).
		Scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("failed to find team member: %w", err)
	}
	return m, nil
}

func (r *postgresTeamMemberRepository) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.team_id, m.user_id, m.role, m.join_time,
			u.id, u.nickname, u.email, u.role, u.created_at
		FROM team_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.team_id = $1 AND m.%s
		ORDER BY m.join_time ASC`, notDeleted)

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.TeamMember, 0)
	for rows.Next() {
		var m models.TeamMember
		var u models.User
		err := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinTime,
			&u.ID, &u.Nickname, &u.Email, &u.Role, &u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member row: %w", err)
		}
		m.User = &u
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member rows: %w", err)
	}
	return members, nil
}

func (r *postgresTeamMemberRepository) CountByTeam(ctx context.Context, teamID int) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM team_members WHERE team_id = $1 AND %s`, notDeleted)
	var count int
	if err := r.db.QueryRowContext(ctx, query, teamID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}
	return count, nil
}

func (r *postgresTeamMemberRepository) ListTeamIDsByUser(ctx context.Context, userID int) ([]int, error) {
	query := fmt.Sprintf(`SELECT team_id FROM team_members WHERE user_id = $1 AND %s`, notDeleted)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team ids by user: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team id rows: %w", err)
	}
	return ids, nil
}

func (r *postgresTeamMemberRepository) SoftDelete(ctx context.Context, id int) error {
	query := fmt.Sprintf(`UPDATE team_members SET deleted_at = now() WHERE id = $1 AND %s`, notDeleted)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	return checkAffectedRows(result, ErrTeamMemberNotFound)
}

func (r *postgresTeamMemberRepository) SoftDeleteByTeam(ctx context.Context, teamID int) error {
	query := fmt.Sprintf(`UPDATE team_members SET deleted_at = now() WHERE team_id = $1 AND %s`, notDeleted)
	if _, err := r.db.ExecContext(ctx, query, teamID); err != nil {
		return fmt.Errorf("failed to delete team members: %w", err)
	}
	return nil
}
