package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/models"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/repositories"
	"github.com/Reviahh/GoblinCave-CMS-backend-sub000/storage"
)

// In-memory репозитории для тестов сервисного слоя. Повторяют контрактные
// ошибки Postgres-реализаций, включая конфликты уникальных индексов.

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	c := *user
	r.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListByIDs(_ context.Context, ids []int) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeCompetitionRepo struct {
	competitions map[int]*models.Competition
	deleted      map[int]bool
	nextID       int
}

func newFakeCompetitionRepo() *fakeCompetitionRepo {
	return &fakeCompetitionRepo{
		competitions: make(map[int]*models.Competition),
		deleted:      make(map[int]bool),
		nextID:       1,
	}
}

func (r *fakeCompetitionRepo) Create(_ context.Context, c *models.Competition) error {
	c.ID = r.nextID
	r.nextID++
	cp := *c
	r.competitions[c.ID] = &cp
	return nil
}

func (r *fakeCompetitionRepo) GetByID(_ context.Context, id int) (*models.Competition, error) {
	c, ok := r.competitions[id]
	if !ok || r.deleted[id] {
		return nil, repositories.ErrCompetitionNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCompetitionRepo) List(_ context.Context) ([]*models.Competition, error) {
	var out []*models.Competition
	for id, c := range r.competitions {
		if !r.deleted[id] {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCompetitionRepo) ListByIDs(_ context.Context, ids []int) ([]*models.Competition, error) {
	var out []*models.Competition
	for _, id := range ids {
		if c, ok := r.competitions[id]; ok && !r.deleted[id] {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCompetitionRepo) Update(_ context.Context, c *models.Competition) error {
	if _, ok := r.competitions[c.ID]; !ok || r.deleted[c.ID] {
		return repositories.ErrCompetitionNotFound
	}
	cp := *c
	r.competitions[c.ID] = &cp
	return nil
}

func (r *fakeCompetitionRepo) SoftDelete(_ context.Context, id int) error {
	if _, ok := r.competitions[id]; !ok || r.deleted[id] {
		return repositories.ErrCompetitionNotFound
	}
	r.deleted[id] = true
	return nil
}

type fakeTeamRepo struct {
	teams   map[int]*models.Team
	deleted map[int]bool
	nextID  int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:   make(map[int]*models.Team),
		deleted: make(map[int]bool),
		nextID:  1,
	}
}

func (r *fakeTeamRepo) Create(_ context.Context, team *models.Team) error {
	for id, t := range r.teams {
		if !r.deleted[id] && t.CompetitionID == team.CompetitionID && t.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = r.nextID
	r.nextID++
	cp := *team
	r.teams[team.ID] = &cp
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok || r.deleted[id] {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) FindByCompetitionAndCaptain(_ context.Context, competitionID, captainID int) (*models.Team, error) {
	for id, t := range r.teams {
		if !r.deleted[id] && t.CompetitionID == competitionID && t.CaptainID == captainID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) ListByCompetition(_ context.Context, competitionID int) ([]*models.Team, error) {
	var out []*models.Team
	for id, t := range r.teams {
		if !r.deleted[id] && t.CompetitionID == competitionID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) ListByCaptain(_ context.Context, captainID int) ([]*models.Team, error) {
	var out []*models.Team
	for id, t := range r.teams {
		if !r.deleted[id] && t.CaptainID == captainID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) ListByIDs(_ context.Context, ids []int) ([]*models.Team, error) {
	var out []*models.Team
	for _, id := range ids {
		if t, ok := r.teams[id]; ok && !r.deleted[id] {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) UpdateFields(_ context.Context, id int, fields map[string]interface{}) error {
	t, ok := r.teams[id]
	if !ok || r.deleted[id] {
		return repositories.ErrTeamNotFound
	}
	for field, value := range fields {
		switch field {
		case "name":
			t.Name = value.(string)
		case "description":
			desc := value.(string)
			t.Description = &desc
		case "max_num":
			t.MaxNum = value.(int)
		case "status":
			t.Status = value.(models.TeamStatus)
		case "expire_time":
			et := value.(time.Time)
			t.ExpireTime = &et
		default:
			return fmt.Errorf("unexpected field %q", field)
		}
	}
	return nil
}

func (r *fakeTeamRepo) SetMemberCount(_ context.Context, id, count int, status models.TeamStatus) error {
	t, ok := r.teams[id]
	if !ok || r.deleted[id] {
		return repositories.ErrTeamNotFound
	}
	t.CurrentNum = count
	t.Status = status
	return nil
}

func (r *fakeTeamRepo) SoftDelete(_ context.Context, id int) error {
	t, ok := r.teams[id]
	if !ok || r.deleted[id] {
		return repositories.ErrTeamNotFound
	}
	t.Status = models.TeamStatusDisbanded
	r.deleted[id] = true
	return nil
}

type fakeTeamMemberRepo struct {
	members map[int]*models.TeamMember
	deleted map[int]bool
	users   *fakeUserRepo
	nextID  int
}

func newFakeTeamMemberRepo(users *fakeUserRepo) *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{
		members: make(map[int]*models.TeamMember),
		deleted: make(map[int]bool),
		users:   users,
		nextID:  1,
	}
}

func (r *fakeTeamMemberRepo) Create(_ context.Context, member *models.TeamMember) error {
	for id, m := range r.members {
		if !r.deleted[id] && m.TeamID == member.TeamID && m.UserID == member.UserID {
			return repositories.ErrTeamMemberConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	cp := *member
	r.members[member.ID] = &cp
	return nil
}

func (r *fakeTeamMemberRepo) Find(_ context.Context, teamID, userID int) (*models.TeamMember, error) {
	for id, m := range r.members {
		if !r.deleted[id] && m.TeamID == teamID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrTeamMemberNotFound
}

func (r *fakeTeamMemberRepo) ListByTeam(_ context.Context, teamID int) ([]*models.TeamMember, error) {
	var out []*models.TeamMember
	for id, m := range r.members {
		if !r.deleted[id] && m.TeamID == teamID {
			cp := *m
			if r.users != nil {
				if u, ok := r.users.users[m.UserID]; ok {
					uc := *u
					cp.User = &uc
				}
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamMemberRepo) CountByTeam(_ context.Context, teamID int) (int, error) {
	count := 0
	for id, m := range r.members {
		if !r.deleted[id] && m.TeamID == teamID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTeamMemberRepo) ListTeamIDsByUser(_ context.Context, userID int) ([]int, error) {
	var out []int
	for id, m := range r.members {
		if !r.deleted[id] && m.UserID == userID {
			out = append(out, m.TeamID)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *fakeTeamMemberRepo) SoftDelete(_ context.Context, id int) error {
	if _, ok := r.members[id]; !ok || r.deleted[id] {
		return repositories.ErrTeamMemberNotFound
	}
	r.deleted[id] = true
	return nil
}

func (r *fakeTeamMemberRepo) SoftDeleteByTeam(_ context.Context, teamID int) error {
	for id, m := range r.members {
		if !r.deleted[id] && m.TeamID == teamID {
			r.deleted[id] = true
		}
	}
	return nil
}

type fakeRegistrationRepo struct {
	registrations map[int]*models.Registration
	deleted       map[int]bool
	nextID        int
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		registrations: make(map[int]*models.Registration),
		deleted:       make(map[int]bool),
		nextID:        1,
	}
}

func (r *fakeRegistrationRepo) Create(_ context.Context, reg *models.Registration) error {
	for id, existing := range r.registrations {
		if r.deleted[id] || existing.CompetitionID != reg.CompetitionID {
			continue
		}
		if existing.TeamID != nil && reg.TeamID != nil && *existing.TeamID == *reg.TeamID {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = r.nextID
	r.nextID++
	cp := *reg
	cp.Team = nil
	r.registrations[reg.ID] = &cp
	return nil
}

func (r *fakeRegistrationRepo) GetByID(_ context.Context, id int) (*models.Registration, error) {
	reg, ok := r.registrations[id]
	if !ok || r.deleted[id] {
		return nil, repositories.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *fakeRegistrationRepo) FindByCompetitionAndTeam(_ context.Context, competitionID, teamID int) (*models.Registration, error) {
	for id, reg := range r.registrations {
		if !r.deleted[id] && reg.CompetitionID == competitionID && reg.TeamID != nil && *reg.TeamID == teamID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) FindByCompetitionAndUser(_ context.Context, competitionID, userID int) (*models.Registration, error) {
	for id, reg := range r.registrations {
		if !r.deleted[id] && reg.CompetitionID == competitionID && reg.UserID != nil && *reg.UserID == userID {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByCompetition(_ context.Context, competitionID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	var out []*models.Registration
	for id, reg := range r.registrations {
		if r.deleted[id] || reg.CompetitionID != competitionID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		cp := *reg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRegistrationRepo) ListApprovedCompetitionIDsByUser(_ context.Context, userID int) ([]int, error) {
	var out []int
	for id, reg := range r.registrations {
		if !r.deleted[id] && reg.Status == models.RegistrationApproved && reg.UserID != nil && *reg.UserID == userID {
			out = append(out, reg.CompetitionID)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *fakeRegistrationRepo) ListApprovedCompetitionIDsByTeams(_ context.Context, teamIDs []int) ([]int, error) {
	wanted := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = true
	}
	var out []int
	for id, reg := range r.registrations {
		if !r.deleted[id] && reg.Status == models.RegistrationApproved && reg.TeamID != nil && wanted[*reg.TeamID] {
			out = append(out, reg.CompetitionID)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *fakeRegistrationRepo) UpdateReview(_ context.Context, id int, status models.RegistrationStatus, reviewerID int, reviewTime time.Time) error {
	reg, ok := r.registrations[id]
	if !ok || r.deleted[id] {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = status
	reg.ReviewerID = &reviewerID
	reg.ReviewTime = &reviewTime
	return nil
}

func (r *fakeRegistrationRepo) SoftDelete(_ context.Context, id int) error {
	if _, ok := r.registrations[id]; !ok || r.deleted[id] {
		return repositories.ErrRegistrationNotFound
	}
	r.deleted[id] = true
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[int]*models.Submission
	nextID      int
	createdAt   time.Time
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{
		submissions: make(map[int]*models.Submission),
		nextID:      1,
		createdAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, sub *models.Submission) error {
	for _, existing := range r.submissions {
		if existing.RegistrationID == sub.RegistrationID {
			return repositories.ErrSubmissionConflict
		}
	}
	sub.ID = r.nextID
	r.nextID++
	sub.CreatedAt = r.createdAt
	sub.UpdatedAt = r.createdAt
	r.createdAt = r.createdAt.Add(time.Minute)
	cp := *sub
	r.submissions[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id int) (*models.Submission, error) {
	sub, ok := r.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) FindByRegistration(_ context.Context, registrationID int) (*models.Submission, error) {
	for _, sub := range r.submissions {
		if sub.RegistrationID == registrationID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) Overwrite(_ context.Context, id int, fileURL string, description *string, updatedAt time.Time) error {
	sub, ok := r.submissions[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	sub.FileURL = fileURL
	sub.Description = description
	sub.UpdatedAt = updatedAt
	return nil
}

func (r *fakeSubmissionRepo) UpdateScore(_ context.Context, id, score, reviewerID int, updatedAt time.Time) error {
	sub, ok := r.submissions[id]
	if !ok {
		return repositories.ErrSubmissionNotFound
	}
	sub.Score = &score
	sub.ReviewerID = &reviewerID
	sub.Status = models.SubmissionScored
	sub.UpdatedAt = updatedAt
	return nil
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter repositories.SubmissionFilter) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, sub := range r.submissions {
		if sub.CompetitionID != filter.CompetitionID {
			continue
		}
		if filter.UserID != nil && sub.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && sub.Status != *filter.Status {
			continue
		}
		cp := *sub
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSubmissionRepo) ListScoredByCompetition(_ context.Context, competitionID int) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, sub := range r.submissions {
		if sub.CompetitionID == competitionID && sub.Status == models.SubmissionScored {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].Score != *out[j].Score {
			return *out[i].Score > *out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type fakeUploader struct {
	uploads []string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, reader io.Reader) (*storage.UploadResult, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	u.uploads = append(u.uploads, key)
	return &storage.UploadResult{
		Key:      key,
		Location: "https://files.test/" + key,
	}, nil
}

func (u *fakeUploader) Delete(_ context.Context, _ string) error { return nil }

func (u *fakeUploader) GetPublicURL(key string) string { return "https://files.test/" + key }

type broadcastEvent struct {
	competitionID int
	eventType     string
	payload       interface{}
}

type fakeBroadcaster struct {
	events []broadcastEvent
}

func (b *fakeBroadcaster) BroadcastToCompetition(competitionID int, eventType string, payload interface{}) {
	b.events = append(b.events, broadcastEvent{
		competitionID: competitionID,
		eventType:     eventType,
		payload:       payload,
	})
}
