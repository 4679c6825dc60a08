package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/live"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
)

type registrationServiceFixture struct {
	service       *registrationService
	users         *fakeUserRepo
	teams         *fakeTeamRepo
	members       *fakeTeamMemberRepo
	competitions  *fakeCompetitionRepo
	registrations *fakeRegistrationRepo
	broadcaster   *fakeBroadcaster
	now           time.Time
}

func newRegistrationServiceFixture() *registrationServiceFixture {
	users := newFakeUserRepo()
	teams := newFakeTeamRepo()
	members := newFakeTeamMemberRepo(users)
	competitions := newFakeCompetitionRepo()
	registrations := newFakeRegistrationRepo()
	broadcaster := &fakeBroadcaster{}
	now := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	return &registrationServiceFixture{
		service: &registrationService{
			registrationRepo: registrations,
			teamRepo:         teams,
			memberRepo:       members,
			competitionRepo:  competitions,
			userRepo:         users,
			broadcaster:      broadcaster,
			logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
			now:              func() time.Time { return now },
		},
		users:         users,
		teams:         teams,
		members:       members,
		competitions:  competitions,
		registrations: registrations,
		broadcaster:   broadcaster,
		now:           now,
	}
}

func (f *registrationServiceFixture) addUser(t *testing.T, nickname string, role models.UserRole) models.CurrentUser {
	t.Helper()
	user := &models.User{Nickname: nickname, Email: nickname + "@example.com", Role: role}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return models.CurrentUser{ID: user.ID, Role: role}
}

func (f *registrationServiceFixture) addCompetition(t *testing.T, creatorID, maxMembers int) *models.Competition {
	t.Helper()
	c := &models.Competition{
		Name:       "Spring Contest",
		CreatorID:  creatorID,
		MaxMembers: maxMembers,
		StartTime:  f.now,
		EndTime:    f.now.Add(48 * time.Hour),
	}
	if err := f.competitions.Create(context.Background(), c); err != nil {
		t.Fatalf("create competition: %v", err)
	}
	return c
}

func (f *registrationServiceFixture) addTeam(t *testing.T, competitionID int, captain models.CurrentUser, name string) *models.Team {
	t.Helper()
	team := &models.Team{
		CompetitionID: competitionID,
		Name:          name,
		CaptainID:     captain.ID,
		MaxNum:        4,
		CurrentNum:    1,
		Status:        models.TeamStatusNormal,
	}
	if err := createTeamWithCaptain(context.Background(), f.teams, f.members, team, captain.ID); err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return team
}

func TestRegisterIndividualBootstrapsSoloTeam(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	participant := f.addUser(t, "alice", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 1)

	reg, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, participant)
	if err != nil {
		t.Fatalf("RegisterCompetition: %v", err)
	}
	if reg.Status != models.RegistrationPending {
		t.Errorf("status = %d, want pending", reg.Status)
	}
	if reg.UserID == nil || *reg.UserID != participant.ID {
		t.Errorf("user id = %v, want %d", reg.UserID, participant.ID)
	}
	if reg.TeamID == nil {
		t.Fatal("team id is nil, want auto solo team")
	}

	team, err := f.teams.GetByID(context.Background(), *reg.TeamID)
	if err != nil {
		t.Fatalf("solo team: %v", err)
	}
	if team.MaxNum != 1 {
		t.Errorf("solo team capacity = %d, want 1", team.MaxNum)
	}
	if team.Name != "alice" {
		t.Errorf("solo team name = %q, want nickname %q", team.Name, "alice")
	}
	if team.CaptainID != participant.ID {
		t.Errorf("solo team captain = %d, want %d", team.CaptainID, participant.ID)
	}
}

func TestRegisterIndividualReusesSoloTeam(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	participant := f.addUser(t, "alice", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 1)

	first, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, participant)
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	// Повторная попытка — конфликт, а не вторая авто-команда.
	_, err = f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, participant)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second register: err = %v, want ErrAlreadyRegistered", err)
	}

	teams, err := f.teams.ListByCaptain(context.Background(), participant.ID)
	if err != nil {
		t.Fatalf("ListByCaptain: %v", err)
	}
	if len(teams) != 1 {
		t.Fatalf("solo teams = %d, want 1", len(teams))
	}
	if teams[0].ID != *first.TeamID {
		t.Errorf("team id = %d, want %d", teams[0].ID, *first.TeamID)
	}
}

func TestRegisterTeamCompetition(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	captain := f.addUser(t, "alice", models.RoleParticipant)
	member := f.addUser(t, "bob", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 4)
	team := f.addTeam(t, comp.ID, captain, "Night Owls")

	// TeamID обязателен для командного соревнования.
	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, captain); !errors.Is(err, ErrTeamIDRequired) {
		t.Fatalf("no team id: err = %v, want ErrTeamIDRequired", err)
	}

	// Регистрирует только капитан.
	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID, TeamID: &team.ID}, member); !errors.Is(err, ErrCaptainActionForbidden) {
		t.Fatalf("member register: err = %v, want ErrCaptainActionForbidden", err)
	}

	reg, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID, TeamID: &team.ID}, captain)
	if err != nil {
		t.Fatalf("RegisterCompetition: %v", err)
	}
	if reg.UserID != nil {
		t.Errorf("user id = %v, want nil for team registration", reg.UserID)
	}
	if reg.TeamID == nil || *reg.TeamID != team.ID {
		t.Errorf("team id = %v, want %d", reg.TeamID, team.ID)
	}

	// Команда помечается зарегистрированной.
	got, err := f.teams.GetByID(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.TeamStatusRegistered {
		t.Errorf("team status = %q, want %q", got.Status, models.TeamStatusRegistered)
	}

	// Повторная регистрация той же команды — конфликт.
	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID, TeamID: &team.ID}, captain); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate register: err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterTeamFromAnotherCompetition(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	captain := f.addUser(t, "alice", models.RoleParticipant)
	compA := f.addCompetition(t, organizer.ID, 4)
	compB := f.addCompetition(t, organizer.ID, 4)
	team := f.addTeam(t, compA.ID, captain, "Night Owls")

	_, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: compB.ID, TeamID: &team.ID}, captain)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
}

func TestReviewRegistration(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	stranger := f.addUser(t, "other", models.RoleOrganizer)
	participant := f.addUser(t, "alice", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 1)

	reg, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, participant)
	if err != nil {
		t.Fatalf("RegisterCompetition: %v", err)
	}

	// Pending не является вердиктом.
	if err := f.service.ReviewRegistration(context.Background(), reg.ID, models.RegistrationPending, organizer); !errors.Is(err, ErrInvalidReviewStatus) {
		t.Fatalf("pending verdict: err = %v, want ErrInvalidReviewStatus", err)
	}
	// Ревьюит только создатель соревнования.
	if err := f.service.ReviewRegistration(context.Background(), reg.ID, models.RegistrationApproved, stranger); !errors.Is(err, ErrNotCompetitionOwner) {
		t.Fatalf("stranger review: err = %v, want ErrNotCompetitionOwner", err)
	}

	if err := f.service.ReviewRegistration(context.Background(), reg.ID, models.RegistrationApproved, organizer); err != nil {
		t.Fatalf("ReviewRegistration: %v", err)
	}

	got, err := f.registrations.GetByID(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.RegistrationApproved {
		t.Errorf("status = %d, want approved", got.Status)
	}
	if got.ReviewerID == nil || *got.ReviewerID != organizer.ID {
		t.Errorf("reviewer = %v, want %d", got.ReviewerID, organizer.ID)
	}
	if got.ReviewTime == nil || !got.ReviewTime.Equal(f.now) {
		t.Errorf("review time = %v, want %v", got.ReviewTime, f.now)
	}

	// Один вердикт на заявку.
	if err := f.service.ReviewRegistration(context.Background(), reg.ID, models.RegistrationRejected, organizer); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("second review: err = %v, want ErrAlreadyReviewed", err)
	}

	if len(f.broadcaster.events) != 1 {
		t.Fatalf("broadcast events = %d, want 1", len(f.broadcaster.events))
	}
	event := f.broadcaster.events[0]
	if event.competitionID != comp.ID || event.eventType != live.EventRegistrationReviewed {
		t.Errorf("event = %+v, want review event for competition %d", event, comp.ID)
	}
}

func TestGetMyRegistrationStatus(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	captain := f.addUser(t, "alice", models.RoleParticipant)
	member := f.addUser(t, "bob", models.RoleParticipant)
	outsider := f.addUser(t, "carol", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 4)
	team := f.addTeam(t, comp.ID, captain, "Night Owls")
	if err := f.members.Create(context.Background(), &models.TeamMember{TeamID: team.ID, UserID: member.ID, Role: models.TeamRoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	// До регистрации — пустой ответ, не ошибка.
	info, err := f.service.GetMyRegistrationStatus(context.Background(), outsider.ID, comp.ID)
	if err != nil {
		t.Fatalf("GetMyRegistrationStatus: %v", err)
	}
	if info.Registered {
		t.Fatalf("info = %+v, want not registered", info)
	}

	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID, TeamID: &team.ID}, captain); err != nil {
		t.Fatalf("RegisterCompetition: %v", err)
	}

	// Рядовой участник видит командную регистрацию через членство.
	info, err = f.service.GetMyRegistrationStatus(context.Background(), member.ID, comp.ID)
	if err != nil {
		t.Fatalf("GetMyRegistrationStatus: %v", err)
	}
	if !info.Registered {
		t.Fatal("want registered via team membership")
	}
	if info.TeamID == nil || *info.TeamID != team.ID {
		t.Errorf("team id = %v, want %d", info.TeamID, team.ID)
	}
	if info.Status == nil || *info.Status != models.RegistrationPending {
		t.Errorf("status = %v, want pending", info.Status)
	}
}

func TestListCompetitionRegistrations(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	admin := f.addUser(t, "root", models.RoleAdmin)
	participant := f.addUser(t, "alice", models.RoleParticipant)
	comp := f.addCompetition(t, organizer.ID, 1)

	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: comp.ID}, participant); err != nil {
		t.Fatalf("RegisterCompetition: %v", err)
	}

	if _, err := f.service.ListCompetitionRegistrations(context.Background(), comp.ID, participant); !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("participant list: err = %v, want ErrForbiddenOperation", err)
	}

	regs, err := f.service.ListCompetitionRegistrations(context.Background(), comp.ID, organizer)
	if err != nil {
		t.Fatalf("creator list: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("registrations = %d, want 1", len(regs))
	}

	if _, err := f.service.ListCompetitionRegistrations(context.Background(), comp.ID, admin); err != nil {
		t.Fatalf("admin list: %v", err)
	}
}

func TestListMyCompetitions(t *testing.T) {
	f := newRegistrationServiceFixture()
	organizer := f.addUser(t, "org", models.RoleOrganizer)
	captain := f.addUser(t, "alice", models.RoleParticipant)
	member := f.addUser(t, "bob", models.RoleParticipant)

	solo := f.addCompetition(t, organizer.ID, 1)
	teamComp := f.addCompetition(t, organizer.ID, 4)
	pendingComp := f.addCompetition(t, organizer.ID, 1)

	team := f.addTeam(t, teamComp.ID, captain, "Night Owls")
	if err := f.members.Create(context.Background(), &models.TeamMember{TeamID: team.ID, UserID: member.ID, Role: models.TeamRoleMember}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	soloReg, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: solo.ID}, captain)
	if err != nil {
		t.Fatalf("solo register: %v", err)
	}
	teamReg, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: teamComp.ID, TeamID: &team.ID}, captain)
	if err != nil {
		t.Fatalf("team register: %v", err)
	}
	// Третья заявка остаётся pending и в список не попадает.
	if _, err := f.service.RegisterCompetition(context.Background(), RegisterCompetitionInput{CompetitionID: pendingComp.ID}, member); err != nil {
		t.Fatalf("pending register: %v", err)
	}

	if err := f.service.ReviewRegistration(context.Background(), soloReg.ID, models.RegistrationApproved, organizer); err != nil {
		t.Fatalf("review solo: %v", err)
	}
	if err := f.service.ReviewRegistration(context.Background(), teamReg.ID, models.RegistrationApproved, organizer); err != nil {
		t.Fatalf("review team: %v", err)
	}

	// Капитан: личная одобренная плюс командная, без дубликатов.
	comps, err := f.service.ListMyCompetitions(context.Background(), captain)
	if err != nil {
		t.Fatalf("ListMyCompetitions: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("competitions = %d, want 2", len(comps))
	}

	// Рядовой участник видит командное соревнование, pending — нет.
	comps, err = f.service.ListMyCompetitions(context.Background(), member)
	if err != nil {
		t.Fatalf("ListMyCompetitions: %v", err)
	}
	if len(comps) != 1 || comps[0].ID != teamComp.ID {
		t.Fatalf("competitions = %+v, want only %d", comps, teamComp.ID)
	}
}
