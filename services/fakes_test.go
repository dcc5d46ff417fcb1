package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golf-arbitri/referee-system/models"
	"github.com/golf-arbitri/referee-system/repositories"
)

// fakeTxRunner исполняет fn целиком под одним мьютексом: параллельные
// вызовы выстраиваются в очередь так же, как настоящие транзакции на
// блокировке строки турнира.
type fakeTxRunner struct {
	mu   sync.Mutex
	runs int
}

func (r *fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return fn(nil)
}

// Простые in-memory репозитории для сервисных тестов.

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
	for _, u := range users {
		if u.ID == 0 {
			u.ID = r.nextID
		}
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context, filter repositories.ListUsersFilter) ([]models.User, error) {
	out := []models.User{}
	for _, u := range r.users {
		if !filter.Visibility.Matches(u) {
			continue
		}
		if filter.UserType != nil && u.UserType != *filter.UserType {
			continue
		}
		if filter.Level != nil && (u.Level == nil || *u.Level != *filter.Level) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id int, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament

	mu    sync.Mutex
	locks int
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range tournaments {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	t.ID = len(r.tournaments) + 1
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	out := []models.Tournament{}
	for _, t := range r.tournaments {
		if !filter.Visibility.Matches(t) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) LockForUpdate(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	r.locks++
	return nil
}

func (r *fakeTournamentRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) GetTournamentsForAutoStatusUpdate(_ context.Context, _ repositories.SQLExecutor, _ time.Time) ([]*models.Tournament, error) {
	return nil, errors.New("not implemented")
}

type fakeAvailabilityRepo struct {
	items  []models.Availability
	nextID int
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{nextID: 1}
}

func (r *fakeAvailabilityRepo) Create(_ context.Context, availability *models.Availability) error {
	for _, a := range r.items {
		if a.UserID == availability.UserID && a.TournamentID == availability.TournamentID {
			return repositories.ErrAvailabilityDuplicate
		}
	}
	availability.ID = r.nextID
	r.nextID++
	availability.SubmittedAt = time.Now()
	r.items = append(r.items, *availability)
	return nil
}

func (r *fakeAvailabilityRepo) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Availability, error) {
	for i := range r.items {
		if r.items[i].UserID == userID && r.items[i].TournamentID == tournamentID {
			return &r.items[i], nil
		}
	}
	return nil, repositories.ErrAvailabilityNotFound
}

func (r *fakeAvailabilityRepo) List(_ context.Context, filter repositories.ListAvailabilitiesFilter) ([]models.Availability, error) {
	out := []models.Availability{}
	for _, a := range r.items {
		if filter.UserID != nil && a.UserID != *filter.UserID {
			continue
		}
		if filter.TournamentID != nil && a.TournamentID != *filter.TournamentID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ListByUserWithTournaments(_ context.Context, userID int, tournamentIDs []int) ([]models.Availability, error) {
	ids := make(map[int]bool, len(tournamentIDs))
	for _, id := range tournamentIDs {
		ids[id] = true
	}
	out := []models.Availability{}
	for _, a := range r.items {
		if a.UserID == userID && ids[a.TournamentID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) DeleteByUserAndTournament(_ context.Context, userID, tournamentID int) error {
	for i, a := range r.items {
		if a.UserID == userID && a.TournamentID == tournamentID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repositories.ErrAvailabilityNotFound
}

type fakeAssignmentRepo struct {
	items  []models.Assignment
	nextID int
}

func newFakeAssignmentRepo(items ...models.Assignment) *fakeAssignmentRepo {
	r := &fakeAssignmentRepo{nextID: 1}
	for _, a := range items {
		if a.ID == 0 {
			a.ID = r.nextID
		}
		if a.ID >= r.nextID {
			r.nextID = a.ID + 1
		}
		r.items = append(r.items, a)
	}
	return r
}

func (r *fakeAssignmentRepo) Create(_ context.Context, _ repositories.SQLExecutor, assignment *models.Assignment) error {
	for _, a := range r.items {
		if a.UserID == assignment.UserID && a.TournamentID == assignment.TournamentID {
			return repositories.ErrAssignmentDuplicate
		}
	}
	assignment.ID = r.nextID
	r.nextID++
	assignment.AssignedAt = time.Now()
	r.items = append(r.items, *assignment)
	return nil
}

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id int) (*models.Assignment, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			copied := r.items[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, a := range r.items {
		if a.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeAssignmentRepo) ExistsByUserAndTournament(_ context.Context, _ repositories.SQLExecutor, userID, tournamentID int) (bool, error) {
	for _, a := range r.items {
		if a.UserID == userID && a.TournamentID == tournamentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAssignmentRepo) ListWithDetails(_ context.Context, filter repositories.ListAssignmentsFilter) ([]models.Assignment, error) {
	statuses := make(map[models.TournamentStatus]bool, len(filter.TournamentStatuses))
	for _, s := range filter.TournamentStatuses {
		statuses[s] = true
	}
	out := []models.Assignment{}
	for _, a := range r.items {
		if filter.TournamentID != nil && a.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.UserID != nil && a.UserID != *filter.UserID {
			continue
		}
		if len(statuses) > 0 && (a.Tournament == nil || !statuses[a.Tournament.Status]) {
			continue
		}
		if a.Tournament != nil && !filter.Visibility.Matches(a.Tournament) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAssignmentRepo) Confirm(_ context.Context, id int) error {
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].Status = models.AssignmentConfirmed
			r.items[i].IsConfirmed = true
			return nil
		}
	}
	return repositories.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) UpdateDocumentKey(_ context.Context, id int, documentKey *string) error {
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].DocumentKey = documentKey
			return nil
		}
	}
	return repositories.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) Delete(_ context.Context, id int) error {
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return repositories.ErrAssignmentNotFound
}

// fakeMailer фиксирует отправленные письма. Потокобезопасен: рассылка идёт
// из errgroup.
type fakeMailer struct {
	mu            sync.Mutex
	adminBatches  map[string][]models.Tournament
	confirmations [][]models.Tournament
	assignments   []models.AssignmentRole
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{adminBatches: make(map[string][]models.Tournament)}
}

func (m *fakeMailer) SendAvailabilityBatchToAdmin(mailbox string, _ *models.User, tournaments []models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminBatches[mailbox] = append(m.adminBatches[mailbox], tournaments...)
	return nil
}

func (m *fakeMailer) SendAvailabilityConfirmationToReferee(_ *models.User, tournaments []models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, tournaments)
	return nil
}

func (m *fakeMailer) SendAssignmentEmail(_ *models.User, _ *models.Tournament, role models.AssignmentRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments = append(m.assignments, role)
	return nil
}

type broadcastRecord struct {
	Room string
	Type string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRecord
}

func (b *fakeBroadcaster) BroadcastToRoom(room string, eventType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastRecord{Room: room, Type: eventType})
}

func (b *fakeBroadcaster) BroadcastTournamentEvent(t *models.Tournament, eventType string, payload interface{}) {
	b.BroadcastToRoom(roomForTournament(t), eventType, payload)
}

func roomForTournament(t *models.Tournament) string {
	if t.IsNational() || t.ZoneID == nil {
		return "national"
	}
	return "zone"
}

// fakeConvocations подменяет генерацию документов.
type fakeConvocations struct {
	generated int
	removed   []string
	failErr   error
}

func (c *fakeConvocations) Generate(_ context.Context, _ *models.Assignment, _ *models.User, t *models.Tournament) (string, string, error) {
	if c.failErr != nil {
		return "", "", c.failErr
	}
	c.generated++
	key := "convocations/test-key.html"
	return key, "https://docs.example.com/" + key, nil
}

func (c *fakeConvocations) Remove(_ context.Context, key string) error {
	c.removed = append(c.removed, key)
	return nil
}

func (c *fakeConvocations) PublicURL(key string) string {
	return "https://docs.example.com/" + key
}
