package services_test

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// MockDonorRepository is a testify mock of repositories.DonorRepository
type MockDonorRepository struct {
	mock.Mock
}

func (m *MockDonorRepository) Create(ctx context.Context, donor *entities.Donor) error {
	return m.Called(ctx, donor).Error(0)
}

func (m *MockDonorRepository) GetByID(ctx context.Context, id string) (*entities.Donor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Donor), args.Error(1)
}

func (m *MockDonorRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Donor, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Donor), args.Error(1)
}

func (m *MockDonorRepository) Update(ctx context.Context, donor *entities.Donor) error {
	return m.Called(ctx, donor).Error(0)
}

func (m *MockDonorRepository) SetStatus(ctx context.Context, id string, status entities.DonorStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockDonorRepository) List(ctx context.Context, filter repositories.DonorFilter) ([]*entities.Donor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Donor), args.Error(1)
}

func (m *MockDonorRepository) Count(ctx context.Context, filter repositories.DonorFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockDonorRepository) RecordDonation(ctx context.Context, rec entities.DonationRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

// MockDonorSearchRepository is a testify mock of repositories.DonorSearchRepository
type MockDonorSearchRepository struct {
	mock.Mock
}

func (m *MockDonorSearchRepository) Search(ctx context.Context, facilityID, query string, limit int) ([]string, error) {
	args := m.Called(ctx, facilityID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDonorSearchRepository) Index(ctx context.Context, donor *entities.Donor) error {
	return m.Called(ctx, donor).Error(0)
}

func (m *MockDonorSearchRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockCampaignRepository is a testify mock of repositories.CampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *entities.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id string) (*entities.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Campaign), args.Error(1)
}

func (m *MockCampaignRepository) Update(ctx context.Context, campaign *entities.Campaign) error {
	return m.Called(ctx, campaign).Error(0)
}

func (m *MockCampaignRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCampaignRepository) List(ctx context.Context, filter repositories.CampaignFilter) ([]*entities.Campaign, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Campaign), args.Error(1)
}

// MockFacilityRepository is a testify mock of repositories.FacilityRepository
type MockFacilityRepository struct {
	mock.Mock
}

func (m *MockFacilityRepository) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) Upsert(ctx context.Context, facility *entities.Facility) error {
	return m.Called(ctx, facility).Error(0)
}

// MockUserRepository is a testify mock of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return m.Called(ctx, id, admin).Error(0)
}

func (m *MockUserRepository) SetPassword(ctx context.Context, id string, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// MockActivityRepository is a testify mock of repositories.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Append(ctx context.Context, activity *entities.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *MockActivityRepository) List(ctx context.Context, filter repositories.ActivityFilter) ([]*entities.Activity, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Activity), args.Error(1)
}

// MockAlertSender is a testify mock of providers.AlertSender
type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendBloodTypeAlert(ctx context.Context, alert providers.BloodTypeAlert) (string, error) {
	args := m.Called(ctx, alert)
	return args.String(0), args.Error(1)
}

// fakeActivities records activity types in order
type fakeActivities struct {
	mu    sync.Mutex
	types []entities.ActivityType
}

func (f *fakeActivities) Record(ctx context.Context, activityType entities.ActivityType, subjectID, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, activityType)
}

func (f *fakeActivities) Types() []entities.ActivityType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.ActivityType(nil), f.types...)
}

// fakeAppointmentRepo keeps appointments in memory with the same marker
// semantics as the database adapter
type fakeAppointmentRepo struct {
	mu      sync.Mutex
	items   map[string]*entities.Appointment
	failOn  map[string]error
	created int
}

func newFakeAppointmentRepo(list ...*entities.Appointment) *fakeAppointmentRepo {
	r := &fakeAppointmentRepo{items: map[string]*entities.Appointment{}, failOn: map[string]error{}}
	for _, apt := range list {
		cp := *apt
		r.items[apt.ID] = &cp
	}
	return r
}

func (r *fakeAppointmentRepo) fail(op string) error {
	return r.failOn[op]
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, apt *entities.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("Create"); err != nil {
		return err
	}
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	cp := *apt
	r.items[apt.ID] = &cp
	r.created++
	return nil
}

func (r *fakeAppointmentRepo) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) ListByFacility(ctx context.Context, facilityID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ListByFacility"); err != nil {
		return nil, err
	}
	out := []*entities.Appointment{}
	for _, apt := range r.items {
		if apt.FacilityID != facilityID {
			continue
		}
		if filter.Status != nil && apt.Status != *filter.Status {
			continue
		}
		if filter.From != nil && apt.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && apt.Date.After(*filter.To) {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if c := out[i].Time.Compare(out[j].Time); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id string, status entities.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateStatus"); err != nil {
		return err
	}
	apt, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	apt.Status = status
	return nil
}

func (r *fakeAppointmentRepo) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("MarkCompleted"); err != nil {
		return err
	}
	apt, ok := r.items[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if apt.Status != entities.AppointmentStatusConfirmed {
		return apperrors.NewConflictError(fmt.Sprintf("appointment %s is already %s", id, apt.Status))
	}
	apt.Status = entities.AppointmentStatusCompleted
	apt.CompletedAt = &completedAt
	apt.EligibilityPending = apt.HasDonor()
	return nil
}

func (r *fakeAppointmentRepo) ClearEligibilityPending(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if apt, ok := r.items[id]; ok {
		apt.EligibilityPending = false
	}
	return nil
}

func (r *fakeAppointmentRepo) ListEligibilityPending(ctx context.Context, limit int) ([]*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*entities.Appointment{}
	for _, apt := range r.items {
		if apt.EligibilityPending {
			cp := *apt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAppointmentRepo) CountSlotConflicts(ctx context.Context, facilityID string, date calendar.Date, tod calendar.TimeOfDay) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, apt := range r.items {
		if apt.FacilityID == facilityID && apt.Date.Equal(date) && apt.Time.Compare(tod) == 0 && apt.BlocksSlot() {
			n++
		}
	}
	return n, nil
}

// pending marker of id, for assertions
func (r *fakeAppointmentRepo) pending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].EligibilityPending
}

// MockCacheProvider is an in-memory cache for testing
type MockCacheProvider struct {
	mu      sync.RWMutex
	data    map[string][]byte
	ttl     map[string]int
	deleted []string
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{
		data: make(map[string][]byte),
		ttl:  make(map[string]int),
	}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = expirationSeconds
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func (m *MockCacheProvider) TTL(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ttl[key]
}

func (m *MockCacheProvider) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// MockEventBus records published events and fans them out to subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.ChangeEvent
	published   []*entities.ChangeEvent
	publishErr  error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.ChangeEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, event)
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.ChangeEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, chans := range m.subscribers {
		for _, ch := range chans {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) Published() []*entities.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.ChangeEvent(nil), m.published...)
}

func (m *MockEventBus) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, chans := range m.subscribers {
		n += len(chans)
	}
	return n
}

// saoPaulo is the deployment time zone used throughout the tests
var saoPaulo = time.FixedZone("BRT", -3*60*60)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, saoPaulo)
}

func strPtr(s string) *string { return &s }
