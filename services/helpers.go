package services

import (
	"context"
	"fmt"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/repositories"
)

// createTeamWithCaptain выполняет два последовательных не-транзакционных
// insert-а: команда, затем строка капитана. Если вторая запись не удалась,
// команда компенсирующе удаляется, чтобы не оставить команду без единого
// участника; сбой самой компенсации лишь дописывается в ошибку.
func createTeamWithCaptain(
	ctx context.Context,
	teamRepo repositories.TeamRepository,
	memberRepo repositories.TeamMemberRepository,
	team *models.Team,
	captainID int,
) error {
	if err := teamRepo.Create(ctx, team); err != nil {
		return err
	}

	captain := &models.TeamMember{
		TeamID: team.ID,
		UserID: captainID,
		Role:   models.TeamRoleCaptain,
	}
	if err := memberRepo.Create(ctx, captain); err != nil {
		if cleanupErr := teamRepo.SoftDelete(ctx, team.ID); cleanupErr != nil {
			return fmt.Errorf("failed to insert captain member (team %d left orphaned: %v): %w", team.ID, cleanupErr, err)
		}
		return fmt.Errorf("failed to insert captain member for team %d: %w", team.ID, err)
	}
	team.Members = []models.TeamMember{*captain}
	return nil
}

// nextTeamStatus возвращает статус после изменения размера состава.
// Статус registered выставляется регистрацией и составом не сбрасывается.
func nextTeamStatus(current models.TeamStatus, count, maxNum int) models.TeamStatus {
	if current == models.TeamStatusRegistered {
		return current
	}
	if count >= maxNum {
		return models.TeamStatusFull
	}
	return models.TeamStatusNormal
}
