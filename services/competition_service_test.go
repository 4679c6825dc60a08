package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
)

func TestCreateCompetition(t *testing.T) {
	s := NewCompetitionService(newFakeCompetitionRepo())
	organizer := models.CurrentUser{ID: 1, Role: models.RoleOrganizer}
	participant := models.CurrentUser{ID: 2, Role: models.RoleParticipant}
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	valid := CreateCompetitionInput{
		Name:       "Spring Contest",
		MaxMembers: 4,
		StartTime:  start,
		EndTime:    start.Add(48 * time.Hour),
	}

	if _, err := s.CreateCompetition(context.Background(), valid, participant); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("participant create: err = %v, want ErrForbiddenOperation", err)
	}

	comp, err := s.CreateCompetition(context.Background(), valid, organizer)
	if err != nil {
		t.Fatalf("CreateCompetition: %v", err)
	}
	if comp.CreatorID != organizer.ID {
		t.Errorf("creator = %d, want %d", comp.CreatorID, organizer.ID)
	}

	bad := valid
	bad.MaxMembers = 0
	if _, err := s.CreateCompetition(context.Background(), bad, organizer); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("zero capacity: err = %v, want ErrValidationFailed", err)
	}

	bad = valid
	bad.EndTime = start.Add(-time.Hour)
	if _, err := s.CreateCompetition(context.Background(), bad, organizer); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("end before start: err = %v, want ErrValidationFailed", err)
	}
}

func TestUpdateCompetitionOwnership(t *testing.T) {
	repo := newFakeCompetitionRepo()
	s := NewCompetitionService(repo)
	organizer := models.CurrentUser{ID: 1, Role: models.RoleOrganizer}
	other := models.CurrentUser{ID: 2, Role: models.RoleOrganizer}
	admin := models.CurrentUser{ID: 3, Role: models.RoleAdmin}
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	comp, err := s.CreateCompetition(context.Background(), CreateCompetitionInput{
		Name:       "Spring Contest",
		MaxMembers: 4,
		StartTime:  start,
		EndTime:    start.Add(48 * time.Hour),
	}, organizer)
	if err != nil {
		t.Fatalf("CreateCompetition: %v", err)
	}

	name := "Renamed"
	if _, err := s.UpdateCompetition(context.Background(), UpdateCompetitionInput{CompetitionID: comp.ID, Name: &name}, other); !errors.Is(err, ErrNotCompetitionOwner) {
		t.Fatalf("other organizer update: err = %v, want ErrNotCompetitionOwner", err)
	}

	updated, err := s.UpdateCompetition(context.Background(), UpdateCompetitionInput{CompetitionID: comp.ID, Name: &name}, admin)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != name {
		t.Errorf("name = %q, want %q", updated.Name, name)
	}
}

func TestDeleteCompetition(t *testing.T) {
	repo := newFakeCompetitionRepo()
	s := NewCompetitionService(repo)
	organizer := models.CurrentUser{ID: 1, Role: models.RoleOrganizer}
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	comp, err := s.CreateCompetition(context.Background(), CreateCompetitionInput{
		Name:       "Spring Contest",
		MaxMembers: 4,
		StartTime:  start,
		EndTime:    start.Add(48 * time.Hour),
	}, organizer)
	if err != nil {
		t.Fatalf("CreateCompetition: %v", err)
	}

	if err := s.DeleteCompetition(context.Background(), comp.ID, organizer); err != nil {
		t.Fatalf("DeleteCompetition: %v", err)
	}
	if _, err := s.GetCompetitionByID(context.Background(), comp.ID); !errors.Is(err, ErrCompetitionNotFound) {
		t.Fatalf("after delete: err = %v, want ErrCompetitionNotFound", err)
	}
	if err := s.DeleteCompetition(context.Background(), comp.ID, organizer); !errors.Is(err, ErrCompetitionNotFound) {
		t.Fatalf("double delete: err = %v, want ErrCompetitionNotFound", err)
	}
}
